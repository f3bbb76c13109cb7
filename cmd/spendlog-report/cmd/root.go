// Package cmd provides CLI commands for spendlog-report.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"spendlog/internal/backend"
	"spendlog/internal/cli"
	"spendlog/internal/config"
	applog "spendlog/internal/log"
)

var (
	envFile string
	debug   bool
	logger  = applog.FromContext(context.Background())
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "spendlog-report",
	Short: "Export and summarize spendlog transactions",
	Long: `spendlog-report reads a user's transactions straight from the configured
store (DATA_BACKEND) and renders them without going through the API.

Example:
  spendlog-report export --user u_123 --from 2024-01 --to 2024-03 --format pdf --out ./reports
  spendlog-report summary --user u_123 --month 2024-03`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFile != "" {
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("load env file %s: %w", envFile, err)
			}
		} else {
			cli.LoadEnvFile()
		}

		level := "warn"
		if debug {
			level = "debug"
		}
		logger = cli.SetupLoggerTo(os.Stderr, level, applog.ComponentCLI)
		return nil
	},
}

// Execute runs the root command until it finishes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "env file to load (default is .env when present)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(summaryCmd)
}

// openStore loads the configuration and opens the store. The broker is never
// dialled: these commands only read.
func openStore(ctx context.Context) (*config.Config, *backend.BackendResult, error) {
	cfg := config.Load()
	cfg.AMQPURL = ""
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	res, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", bcfg.Type, err)
	}
	return cfg, res, nil
}

// parseMonth reads YYYY-MM.
func parseMonth(s string) (int, time.Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month %q (expected YYYY-MM)", s)
	}
	return t.Year(), t.Month(), nil
}
