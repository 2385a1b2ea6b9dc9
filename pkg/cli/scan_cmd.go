package cli

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/spf13/cobra"

	"colbridge/internal/domain"
	"colbridge/internal/storage"
)

type scanResult struct {
	Columns []string    `json:"columns"`
	Rows    [][]*string `json:"rows"`
}

func newScanCmd(opts *globalOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "scan TABLE COLUMN...",
		Short: "Scan the named columns of a storage table",
		Long: `Resolves the columns against the table schema and streams them back in
the order given. Names are matched case-insensitively and may repeat.`,
		Example: `  colbridge scan events eventid username --limit 10`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.dialStorage()
			if err != nil {
				return err
			}
			defer client.Close() //nolint:errcheck

			tbl, err := storage.OpenTable(cmd.Context(), client, args[0])
			if err != nil {
				return err
			}
			rdr, err := tbl.Scan(cmd.Context(), domain.RequiredColumnsFromNames(args[1:]...))
			if err != nil {
				return err
			}
			defer rdr.Release()

			res, err := collectScan(rdr, limit)
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), res)
			}
			rows := make([][]string, len(res.Rows))
			for i, r := range res.Rows {
				rows[i] = make([]string, len(r))
				for j, v := range r {
					rows[i][j] = cell(v)
				}
			}
			printTable(cmd.OutOrStdout(), res.Columns, rows)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "(%d rows)\n", len(rows))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Stop after this many rows (0 for all)")
	return cmd
}

// collectScan drains rdr into text rows, stopping after limit rows when
// limit is positive.
func collectScan(rdr array.RecordReader, limit int) (*scanResult, error) {
	res := &scanResult{}
	schema := rdr.Schema()
	for _, f := range schema.Fields() {
		res.Columns = append(res.Columns, f.Name)
	}

	for rdr.Next() {
		rec := rdr.Record()
		for i := 0; i < int(rec.NumRows()); i++ {
			if limit > 0 && len(res.Rows) >= limit {
				return res, nil
			}
			row := make([]*string, rec.NumCols())
			for j := 0; j < int(rec.NumCols()); j++ {
				col := rec.Column(j)
				if col.IsNull(i) {
					continue
				}
				v := col.ValueStr(i)
				row[j] = &v
			}
			res.Rows = append(res.Rows, row)
		}
	}
	if err := rdr.Err(); err != nil {
		return nil, fmt.Errorf("read scan: %w", err)
	}
	return res, nil
}
