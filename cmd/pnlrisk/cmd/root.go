package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/pnlrisk/config"
	"github.com/rustyeddy/pnlrisk/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "pnlrisk",
	Short: "Daily PnL attribution and Monte Carlo risk analysis",
	Long: `pnlrisk rebuilds a day-by-day PnL series from a closed-trade ledger and a
daily close price series, then measures its risk.

It provides tools for:
  - Attributing multi-day trades to the sessions they were open in
  - K-ratio, gain/pain, drawdown, concentration and expectancy metrics
  - Autocorrelation and unit-root diagnostics of the PnL series
  - Monte Carlo resampling of drawdown and CAR/MDD
  - Recording runs to CSV or SQLite, with an Org-mode summary`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

var (
	configPath string
	logLevel   string
	tzName     string

	cfg *config.Config
	log *zap.SugaredLogger
	loc *time.Location
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (YAML or JSON); defaults apply when empty")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug|info|warn|error")
	rootCmd.PersistentFlags().StringVar(&tzName, "tz", "UTC", "time zone of ledger and price timestamps")
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	if log, err = logger.NewWithLevel(logLevel); err != nil {
		return err
	}
	if loc, err = time.LoadLocation(tzName); err != nil {
		return fmt.Errorf("time zone: %w", err)
	}

	if configPath == "" {
		cfg = config.Default()
		return nil
	}
	if cfg, err = config.LoadFromFile(configPath); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log.Debugw("config loaded", "path", configPath)
	return nil
}

// signalContext is cancelled on SIGINT or SIGTERM. Monte Carlo runs stop at
// the next iteration and keep what they have.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := logger.WithContext(cmd.Context(), log)
	return signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
}
