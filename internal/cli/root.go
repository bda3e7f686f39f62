package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"financas/internal/config"
	"financas/internal/log"
)

var (
	flagConfig   string
	flagOwner    string
	flagLogLevel string

	// Set by the root command before any subcommand runs.
	cfg    *config.Config
	logger *log.Logger
)

var rootCmd = &cobra.Command{
	Use:   "financas",
	Short: "Track personal income and expenses",
	Long: `financas keeps a per-owner list of income and expense transactions,
with live totals, category breakdowns and filters.

Configuration comes from an optional TOML file (--config or FINANCAS_CONFIG), then the
environment (.env is loaded when present). --owner overrides FINANCAS_OWNER.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to a TOML config file")
	rootCmd.PersistentFlags().StringVarP(&flagOwner, "owner", "o", "", "Owner whose transactions to use")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn or error")
}

func setup(cmd *cobra.Command, args []string) error {
	LoadEnvFile()

	path := flagConfig
	if path == "" {
		path = os.Getenv("FINANCAS_CONFIG")
	}
	c, err := LoadAndValidateConfig(path)
	if err != nil {
		return err
	}
	if flagOwner != "" {
		c.Owner = flagOwner
	}
	if flagLogLevel != "" {
		c.LogLevel = flagLogLevel
	}

	l, err := SetupLogger(c.LogLevel, os.Stderr)
	if err != nil {
		return err
	}
	cfg, logger = c, l
	cmd.SetContext(log.NewContext(cmd.Context(), logger))
	return nil
}

// Execute runs the command tree until it finishes or the process is
// signalled.
func Execute() error {
	ctx, stop := SignalContext(context.Background())
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// withSession runs fn with an app whose session for the configured owner has
// delivered its first snapshot.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, app *App) error) error {
	owner, err := requireOwner(cfg)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	app, err := NewApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("Failed to close backend", log.FieldError, err)
		}
	}()

	if _, err := app.Open(ctx, owner); err != nil {
		return err
	}
	return fn(ctx, app)
}
