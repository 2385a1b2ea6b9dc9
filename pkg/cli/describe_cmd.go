package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"colbridge/internal/domain"
	"colbridge/internal/engine"
	"colbridge/internal/storage"
	"colbridge/internal/typemap"
)

type describedColumn struct {
	Name        string `json:"name"`
	StorageType string `json:"storage_type,omitempty"`
	EngineType  string `json:"engine_type,omitempty"`
	Nullable    *bool  `json:"nullable,omitempty"`
	Note        string `json:"note,omitempty"`
}

func newDescribeCmd(opts *globalOptions) *cobra.Command {
	var (
		query       string
		engineTable string
	)
	cmd := &cobra.Command{
		Use:   "describe [TABLE]",
		Short: "Describe a table or query with both engine and storage types",
		Long: `Without flags, describes a table on the storage service and shows the
engine type each column reads as. With --query or --engine-table, describes
DuckDB output and shows the storage type each column would be written as.`,
		Example: `  colbridge describe events
  colbridge describe --query "SELECT id, amount FROM orders"
  colbridge describe --engine-table orders --duckdb local.db`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				cols []describedColumn
				err  error
			)
			switch {
			case query != "" || engineTable != "":
				if len(args) > 0 || (query != "" && engineTable != "") {
					return fmt.Errorf("use one of TABLE, --query or --engine-table")
				}
				cols, err = describeEngine(cmd, opts, query, engineTable)
			case len(args) == 1:
				cols, err = describeStorage(cmd, opts, args[0])
			default:
				return fmt.Errorf("a TABLE, --query or --engine-table is required")
			}
			if err != nil {
				return err
			}

			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), cols)
			}
			rows := make([][]string, len(cols))
			for i, c := range cols {
				nullable := ""
				if c.Nullable != nil {
					nullable = strconv.FormatBool(*c.Nullable)
				}
				rows[i] = []string{c.Name, c.StorageType, c.EngineType, nullable, c.Note}
			}
			printTable(cmd.OutOrStdout(), []string{"COLUMN", "STORAGE TYPE", "ENGINE TYPE", "NULLABLE", "NOTE"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&query, "query", "", "DuckDB query to describe")
	cmd.Flags().StringVar(&engineTable, "engine-table", "", "DuckDB table to describe")
	return cmd
}

// describeStorage lists a storage table's columns. Columns the engine
// cannot read are reported, not fatal.
func describeStorage(cmd *cobra.Command, opts *globalOptions, table string) ([]describedColumn, error) {
	client, err := opts.dialStorage()
	if err != nil {
		return nil, err
	}
	defer client.Close() //nolint:errcheck

	tbl, err := storage.OpenTable(cmd.Context(), client, table)
	if err != nil {
		return nil, err
	}
	schema := tbl.Schema()
	out := make([]describedColumn, len(schema.Columns))
	for i, c := range schema.Columns {
		nullable := c.Nullable
		out[i] = describedColumn{Name: c.Name, StorageType: c.Type.String(), Nullable: &nullable}
		ct, err := typemap.StorageToEngine(c.Type)
		if err != nil {
			out[i].Note = err.Error()
			continue
		}
		out[i].EngineType = ct.String()
	}
	return out, nil
}

func describeEngine(cmd *cobra.Command, opts *globalOptions, query, table string) ([]describedColumn, error) {
	db, err := opts.openDuckDB()
	if err != nil {
		return nil, err
	}
	defer db.Close() //nolint:errcheck

	eng := engine.New(db)
	var cols []domain.EngineColumn
	if query != "" {
		cols, err = eng.DescribeQuery(cmd.Context(), query)
	} else {
		cols, err = eng.DescribeTable(cmd.Context(), table)
	}
	if err != nil {
		return nil, err
	}

	out := make([]describedColumn, len(cols))
	for i, c := range cols {
		out[i] = describedColumn{Name: c.Name, EngineType: c.Type.String()}
		st, err := typemap.EngineToStorage(c.Type)
		if err != nil {
			out[i].Note = err.Error()
			continue
		}
		out[i].StorageType = st.String()
	}
	return out, nil
}
