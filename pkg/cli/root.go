// Package cli implements the colbridge command-line interface.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"colbridge/internal/config"
	"colbridge/internal/domain"
)

var (
	version = "dev"
	commit  = "none"
)

// globalOptions are the resolved persistent flags shared by all commands.
type globalOptions struct {
	output      string
	profile     string
	storageAddr string
	insecure    bool
	timeout     time.Duration
	duckdbPath  string
	logLevel    string

	cfg    *config.Config
	logger *slog.Logger
}

// Execute runs the CLI.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		output, _ := rootCmd.PersistentFlags().GetString("output")
		if output == "json" {
			errObj := map[string]interface{}{
				"error": err.Error(),
			}
			if kind := errorKind(err); kind != "" {
				errObj["kind"] = kind
			}
			_ = printJSON(os.Stdout, errObj)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

// errorKind names the bridge error category for machine-readable output.
func errorKind(err error) string {
	var (
		unsupported *domain.UnsupportedTypeError
		duplicate   *domain.DuplicateColumnError
		unknown     *domain.UnknownColumnError
		unavailable *domain.AvailabilityError
		validation  *domain.ValidationError
		notFound    *domain.NotFoundError
		storageErr  *domain.StorageError
	)
	switch {
	case errors.As(err, &unsupported):
		return "unsupported_type"
	case errors.As(err, &duplicate):
		return "duplicate_name"
	case errors.As(err, &unknown):
		return "unknown_column"
	case errors.As(err, &unavailable):
		return "unavailable"
	case errors.As(err, &validation):
		return "validation"
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &storageErr):
		return "storage"
	}
	return ""
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "colbridge",
		Short:         "Column type bridge between DuckDB and a columnar storage service",
		Long:          "Translate column types, resolve projections and scan tables held by a Flight SQL storage service.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.resolve(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.output, "output", "o", "table", "Output format (table, json)")
	flags.StringVarP(&opts.profile, "profile", "p", "", "Config profile to use")
	flags.StringVar(&opts.storageAddr, "storage-addr", "", "Storage service address (host:port)")
	flags.BoolVar(&opts.insecure, "insecure", false, "Use plaintext gRPC to reach the storage service")
	flags.DurationVar(&opts.timeout, "timeout", 0, "Schema discovery timeout")
	flags.StringVar(&opts.duckdbPath, "duckdb", "", "DuckDB database file (empty for in-memory)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCheckCmd(opts))
	rootCmd.AddCommand(newTranslateCmd())
	rootCmd.AddCommand(newResolveCmd(opts))
	rootCmd.AddCommand(newDescribeCmd(opts))
	rootCmd.AddCommand(newScanCmd(opts))
	rootCmd.AddCommand(newValidateWriteCmd(opts))
	rootCmd.AddCommand(newServeCmd(opts))
	rootCmd.AddCommand(newUDFCmd())
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

// resolve applies precedence flag > env > profile > default and sets up
// logging. Storage settings are validated only by commands that dial.
func (o *globalOptions) resolve(cmd *cobra.Command) error {
	cfg := config.FromEnv()

	userCfg, err := LoadUserConfig()
	if err != nil {
		// Config file is optional
		userCfg = &UserConfig{CurrentProfile: "default", Profiles: map[string]Profile{}}
	}
	p, err := userCfg.ActiveProfile(o.profile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	switch {
	case flags.Changed("storage-addr"):
		cfg.Storage.Addr = o.storageAddr
	case cfg.Storage.Addr == "" && p.StorageAddr != "":
		cfg.Storage.Addr = p.StorageAddr
	}
	switch {
	case flags.Changed("insecure"):
		cfg.Storage.Insecure = o.insecure
	case os.Getenv("STORAGE_INSECURE") == "" && p.Insecure != nil:
		cfg.Storage.Insecure = *p.Insecure
	}
	if flags.Changed("timeout") {
		cfg.Storage.Timeout = o.timeout
	}
	switch {
	case flags.Changed("duckdb"):
		cfg.DuckDBPath = o.duckdbPath
	case cfg.DuckDBPath == "" && p.DuckDBPath != "":
		cfg.DuckDBPath = p.DuckDBPath
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if !flags.Changed("output") {
		if v := os.Getenv("COLBRIDGE_OUTPUT"); v != "" {
			o.output = v
		} else if p.Output != "" {
			o.output = p.Output
		}
		_ = cmd.Root().PersistentFlags().Set("output", o.output)
	}
	if err := validateOutputFormat(o.output); err != nil {
		return err
	}

	o.cfg = cfg
	o.logger = slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	for _, w := range cfg.Warnings {
		o.logger.Warn(w)
	}
	return nil
}

func newCompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
	return cmd
}
