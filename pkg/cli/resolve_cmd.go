package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"colbridge/internal/domain"
	"colbridge/internal/projection"
	"colbridge/internal/storage"
)

type resolvedColumn struct {
	Required string `json:"required"`
	Column   string `json:"column"`
	Position int    `json:"position"`
	Type     string `json:"type"`
}

func newResolveCmd(opts *globalOptions) *cobra.Command {
	var (
		schemaPath string
		table      string
	)
	cmd := &cobra.Command{
		Use:   "resolve COLUMN...",
		Short: "Resolve required columns against a storage schema",
		Long: `Maps each required column, in order, to the storage column it names.
Names are matched case-insensitively; duplicates are kept. The schema comes
from a YAML file (--schema) or from the storage service (--table).`,
		Example: `  colbridge resolve --schema events.yaml eventid USERNAME eventid
  colbridge resolve --table events occurredat`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (schemaPath == "") == (table == "") {
				return fmt.Errorf("exactly one of --schema or --table is required")
			}

			var schema domain.StorageSchema
			if schemaPath != "" {
				s, err := loadSchemaFile(schemaPath)
				if err != nil {
					return err
				}
				schema = s
			} else {
				client, err := opts.dialStorage()
				if err != nil {
					return err
				}
				defer client.Close() //nolint:errcheck
				tbl, err := storage.OpenTable(cmd.Context(), client, table)
				if err != nil {
					return err
				}
				schema = tbl.Schema()
			}

			resolved, err := resolveColumns(schema, args)
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), resolved)
			}
			rows := make([][]string, len(resolved))
			for i, r := range resolved {
				rows[i] = []string{r.Required, r.Column, strconv.Itoa(r.Position), r.Type}
			}
			printTable(cmd.OutOrStdout(), []string{"REQUIRED", "COLUMN", "POSITION", "TYPE"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&schemaPath, "schema", "", "YAML schema file")
	cmd.Flags().StringVar(&table, "table", "", "Table on the storage service")
	return cmd
}

func resolveColumns(schema domain.StorageSchema, names []string) ([]resolvedColumn, error) {
	idx, err := projection.BuildIndex(schema)
	if err != nil {
		return nil, err
	}
	required := domain.RequiredColumnsFromNames(names...)
	positions, err := projection.Positions(required, idx, schema)
	if err != nil {
		return nil, err
	}
	out := make([]resolvedColumn, len(positions))
	for i, pos := range positions {
		col := schema.Columns[pos]
		out[i] = resolvedColumn{Required: names[i], Column: col.Name, Position: pos, Type: col.Type.String()}
	}
	return out, nil
}
