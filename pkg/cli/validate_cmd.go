package cli

import (
	"github.com/spf13/cobra"

	"colbridge/internal/engine"
	"colbridge/internal/storage"
)

type writeBinding struct {
	Source      string `json:"source"`
	EngineType  string `json:"engine_type"`
	Target      string `json:"target"`
	StorageType string `json:"storage_type"`
}

func newValidateWriteCmd(opts *globalOptions) *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "validate-write TABLE",
		Short: "Check that a DuckDB query's rows can be written to a storage table",
		Long: `Describes the query in DuckDB, binds its columns to the target table by
name (case-insensitively) and checks that each type can be stored without
loss. Nothing is written.`,
		Example: `  colbridge validate-write events --query "SELECT id AS EventId, name AS UserName FROM staging"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := opts.openDuckDB()
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck

			client, err := opts.dialStorage()
			if err != nil {
				return err
			}
			defer client.Close() //nolint:errcheck

			target, err := storage.OpenTable(cmd.Context(), client, args[0])
			if err != nil {
				return err
			}
			bound, err := engine.New(db).ValidateWrite(cmd.Context(), query, target)
			if err != nil {
				return err
			}

			out := make([]writeBinding, len(bound))
			for i, b := range bound {
				out[i] = writeBinding{
					Source:      b.Source.Name,
					EngineType:  b.Source.Type.String(),
					Target:      b.Target.Name,
					StorageType: b.Target.Type.String(),
				}
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), out)
			}
			rows := make([][]string, len(out))
			for i, b := range out {
				rows[i] = []string{b.Source, b.EngineType, b.Target, b.StorageType}
			}
			printTable(cmd.OutOrStdout(), []string{"SOURCE", "ENGINE TYPE", "TARGET", "STORAGE TYPE"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&query, "query", "", "DuckDB query producing the rows to write")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}
