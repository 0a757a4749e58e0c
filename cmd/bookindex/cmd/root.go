// Package cmd provides the CLI commands of bookindex.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gcbaptista/go-book-indexer/config"
	"github.com/gcbaptista/go-book-indexer/internal/logger"
	"github.com/gcbaptista/go-book-indexer/internal/source"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// app carries the state shared by every subcommand.
type app struct {
	configPath string
	logLevel   string
	logFormat  string
	cfg        *config.Config
}

// NewRootCmd creates the root command for the bookindex CLI.
func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "bookindex",
		Short: "In-memory inverted index over JSON document collections",
		Long: `bookindex builds an inverted index (term -> document positions) over a
JSON array of documents and answers term lookups against it.

Run 'bookindex serve' for the HTTP API, or use 'build' and 'search' for
one-off queries against local files and URLs.`,
		Version:           Version,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}
	cmd.SetVersionTemplate("bookindex version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "Log format (text, json)")

	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newBuildCmd(a))
	cmd.AddCommand(newSearchCmd(a))

	return cmd
}

// setup loads the configuration and installs the default logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}
	a.cfg = cfg

	logger.SetupWithWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	return nil
}

// httpOptions maps the source configuration onto the HTTP source options.
func (a *app) httpOptions() source.HTTPOptions {
	return source.HTTPOptions{
		Timeout: a.cfg.Source.Timeout,
		Retry: source.RetryConfig{
			MaxAttempts:  a.cfg.Source.MaxAttempts,
			InitialDelay: a.cfg.Source.InitialDelay,
			MaxDelay:     a.cfg.Source.MaxDelay,
		},
	}
}

// Execute runs the root command, cancelling its context on SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}
