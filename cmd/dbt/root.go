package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/j-veylop/dify-backup-tui/internal/config"
	"github.com/j-veylop/dify-backup-tui/internal/logger"
	"github.com/j-veylop/dify-backup-tui/internal/services"
)

var logLevel string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dbt",
	Short: "dbt - Dify console backup and usage statistics",
	Long: `dbt talks to a Dify console with credentials exported from a browser session.
It backs up every application's DSL into a zip archive and computes per-application
usage statistics into a CSV report.

Configuration is read from .env files (current directory, ~/.config/dbt/.env, ~/.dbt/.env)
and the environment. DIFY_BASE_URL is required; credentials come from DIFY_COOKIES_PATH,
DIFY_ACCESS_TOKEN and DIFY_CSRF_TOKEN.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default to the TUI when no subcommand is provided
		return runTUI(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides DBT_LOG_LEVEL)")
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration and applies the --log-level override.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, nil
}

// newManager starts the service manager. The returned func closes it.
func newManager(cfg *config.Config) (*services.Manager, func(), error) {
	mgr, err := services.NewManager(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	return mgr, func() {
		if err := mgr.Close(); err != nil {
			logger.Warn("error closing services", "error", err)
		}
	}, nil
}
