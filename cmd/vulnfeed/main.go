// Package main provides the vulnfeed command-line tool for turning CWE
// definition pages and NVD feed archives into CSV datasets.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"vulnfeed/internal/config"
	"vulnfeed/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// rootOptions holds the flags shared by every subcommand.
type rootOptions struct {
	configFile string
	logLevel   string
	logFormat  string
	progress   bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "vulnfeed",
		Short:        "Build CSV datasets from CWE pages and NVD feeds",
		Long:         "vulnfeed scrapes CWE definition pages and reads NVD 1.1 JSON feed archives, normalizing both into fixed-column CSV files.",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "Path to YAML configuration file")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	flags.StringVar(&opts.logFormat, "log-format", "", "Log format: text or json (overrides config)")
	flags.BoolVar(&opts.progress, "progress", false, "Show a progress bar (overrides config)")

	root.AddCommand(newCWECmd(opts), newNVDCmd(opts), newConfigCmd(opts))

	return root
}

// load reads the config file, or the defaults when none is given, and applies
// the shared flag overrides. Subcommands apply their own overrides and then
// validate.
func (o *rootOptions) load(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()

	if o.configFile != "" {
		loaded, err := config.LoadConfig(o.configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}

		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Logging.Level = o.logLevel
	}

	if flags.Changed("log-format") {
		cfg.Logging.Format = o.logFormat
	}

	if flags.Changed("progress") {
		cfg.Logging.ShowProgress = o.progress
	}

	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) *logger.Logger {
	return logger.New(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
}
