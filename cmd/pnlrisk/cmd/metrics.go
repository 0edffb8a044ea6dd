package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/pnlrisk/analysis"
	"github.com/rustyeddy/pnlrisk/journal"
	"github.com/rustyeddy/pnlrisk/metrics"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Compute risk metrics for a daily PnL series",
	Long: `Compute the risk metric set of a Date,PnL series written by "attribute".
Trade-level metrics (expectancy, hold time, trade HHI) need the ledger too.

Example:
  pnlrisk metrics --daily daily_pnl.csv --trades trades.csv -o metrics.csv`,
	Args: cobra.NoArgs,
	RunE: runMetrics,
}

var (
	metricsDailyPath  string
	metricsTradesPath string
	metricsOutput     string
)

func init() {
	rootCmd.AddCommand(metricsCmd)

	metricsCmd.Flags().StringVarP(&metricsDailyPath, "daily", "d", "", "daily PnL CSV (required)")
	metricsCmd.Flags().StringVarP(&metricsTradesPath, "trades", "t", "", "trade ledger CSV")
	metricsCmd.Flags().StringVarP(&metricsOutput, "output", "o", "", "also write the metrics as Name,Value CSV")
	metricsCmd.MarkFlagRequired("daily")
}

func runMetrics(cmd *cobra.Command, args []string) error {
	daily, err := journal.LoadDailyFile(metricsDailyPath)
	if err != nil {
		return fmt.Errorf("load daily pnl: %w", err)
	}

	var trades []journal.TradeRecord
	if metricsTradesPath != "" {
		if trades, _, err = journal.LoadTradesFile(metricsTradesPath, loc, log); err != nil {
			return fmt.Errorf("load trades: %w", err)
		}
	}

	m, err := metrics.Compute(daily, trades, metrics.OptionsFromConfig(cfg.Metrics))
	if err != nil {
		return err
	}
	analysis.PrintMetrics(cmd.OutOrStdout(), m)
	for _, n := range m.Notes {
		fmt.Fprintf(cmd.OutOrStdout(), "- %s\n", n)
	}

	if metricsOutput == "" {
		return nil
	}
	f, err := os.Create(metricsOutput)
	if err != nil {
		return err
	}
	if err := journal.WriteMetricsCSV(f, m.Rows()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
