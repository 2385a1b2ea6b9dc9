package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"colbridge/internal/flightsql"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	var (
		listen string
		seed   string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a DuckDB-backed storage service for development",
		Long: `Serves the tables of a DuckDB database over Flight SQL with their storage
schemas, so the other commands can run without a real storage cluster.`,
		Example: `  colbridge serve --duckdb dev.db --listen 127.0.0.1:31337
  colbridge serve --seed fixtures.sql`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr := opts.cfg.ListenAddr
			if cmd.Flags().Changed("listen") {
				addr = listen
			}

			db, err := opts.openDuckDB()
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck

			if seed != "" {
				script, err := os.ReadFile(seed)
				if err != nil {
					return fmt.Errorf("read seed script: %w", err)
				}
				if _, err := db.ExecContext(cmd.Context(), string(script)); err != nil {
					return fmt.Errorf("run seed script: %w", err)
				}
				opts.logger.Info("seed script applied", "path", seed)
			}

			srv := flightsql.NewServer(addr, opts.logger, flightsql.NewDuckDBExecutor(db))
			if err := srv.Start(); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "storage service listening on %s\n", srv.Addr())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()

			opts.logger.Info("shutting down storage service")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (default from LISTEN_ADDR or :31337)")
	cmd.Flags().StringVar(&seed, "seed", "", "SQL script to run before serving")
	return cmd
}
