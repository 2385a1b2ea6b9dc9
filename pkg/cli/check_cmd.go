package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"colbridge/internal/storage"
)

func newCheckCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report whether the storage integration is usable on this host",
		Long: `Checks that the storage client supports this platform and that the
integration has not been disabled. Fails when the integration is unavailable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := storage.CheckAvailability(opts.cfg.Storage)
			result := map[string]interface{}{
				"available": err == nil,
				"platform":  runtime.GOOS + "/" + runtime.GOARCH,
				"addr":      opts.cfg.Storage.Addr,
			}
			if err != nil {
				result["reason"] = err.Error()
			}

			if getOutputFormat(cmd) == "json" {
				if perr := printJSON(cmd.OutOrStdout(), result); perr != nil {
					return perr
				}
			} else {
				status := "available"
				if err != nil {
					status = "unavailable"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "storage integration %s on %s\n", status, result["platform"])
			}
			return err
		},
	}
}
