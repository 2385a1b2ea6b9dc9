package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"colbridge/internal/typemap"
)

type translation struct {
	Input  string `json:"input"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

func newTranslateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Translate column types between the engine and storage",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "to-storage TYPE...",
		Short: "Translate DuckDB/engine types to storage types",
		Example: `  colbridge translate to-storage INTEGER "DECIMAL(10,2)" "CHAR(5)"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, args, func(s string) (string, error) {
				ct, err := typemap.ParseEngineType(s)
				if err != nil {
					return "", err
				}
				st, err := typemap.EngineToStorage(ct)
				if err != nil {
					return "", err
				}
				return st.String(), nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "to-engine TYPE...",
		Short: "Translate storage types to engine types",
		Example: `  colbridge translate to-engine INT32 "VARCHAR(20)" DATE`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, args, func(s string) (string, error) {
				st, err := typemap.ParseStorageType(s)
				if err != nil {
					return "", err
				}
				ct, err := typemap.StorageToEngine(st)
				if err != nil {
					return "", err
				}
				return ct.String(), nil
			})
		},
	})
	return cmd
}

// runTranslate prints every translation and then fails with the first
// error, if any.
func runTranslate(cmd *cobra.Command, args []string, fn func(string) (string, error)) error {
	results := make([]translation, len(args))
	var firstErr error
	failed := 0
	for i, in := range args {
		out, err := fn(in)
		results[i] = translation{Input: in, Output: out}
		if err != nil {
			results[i].Error = err.Error()
			failed++
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if getOutputFormat(cmd) == "json" {
		if err := printJSON(cmd.OutOrStdout(), results); err != nil {
			return err
		}
	} else {
		rows := make([][]string, len(results))
		for i, r := range results {
			rows[i] = []string{r.Input, r.Output, r.Error}
		}
		printTable(cmd.OutOrStdout(), []string{"INPUT", "OUTPUT", "ERROR"}, rows)
	}

	if firstErr != nil {
		return fmt.Errorf("%d of %d types could not be translated: %w", failed, len(args), firstErr)
	}
	return nil
}
