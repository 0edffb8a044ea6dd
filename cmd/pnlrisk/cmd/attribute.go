package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/pnlrisk/attribution"
	"github.com/rustyeddy/pnlrisk/journal"
	"github.com/rustyeddy/pnlrisk/market"
)

var attributeCmd = &cobra.Command{
	Use:   "attribute",
	Short: "Build the daily PnL series from a trade ledger",
	Long: `Split every trade across the sessions it was open in, marking overnight
positions to the session close, and write the Date,PnL series.

Example:
  pnlrisk attribute --trades trades.csv --prices hsi.csv -o daily_pnl.csv`,
	Args: cobra.NoArgs,
	RunE: runAttribute,
}

var (
	attrTradesPath string
	attrPricesPath string
	attrOutput     string
	attrLegs       bool
)

func init() {
	rootCmd.AddCommand(attributeCmd)

	attributeCmd.Flags().StringVarP(&attrTradesPath, "trades", "t", "", "trade ledger CSV (required)")
	attributeCmd.Flags().StringVarP(&attrPricesPath, "prices", "p", "", "daily close price CSV (required)")
	attributeCmd.Flags().StringVarP(&attrOutput, "output", "o", "-", "daily PnL CSV to write, - for stdout")
	attributeCmd.Flags().BoolVar(&attrLegs, "legs", false, "log every per-session leg at debug level")
	attributeCmd.MarkFlagRequired("trades")
	attributeCmd.MarkFlagRequired("prices")
}

func runAttribute(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	trades, report, err := journal.LoadTradesFile(attrTradesPath, loc, log)
	if err != nil {
		return fmt.Errorf("load trades: %w", err)
	}
	prices, err := market.LoadPricesFile(attrPricesPath, loc)
	if err != nil {
		return fmt.Errorf("load prices: %w", err)
	}

	engine, err := attribution.FromConfig(cfg.Attribution)
	if err != nil {
		return err
	}
	engine.Log = log
	engine.Legs = attrLegs
	res, err := engine.Attribute(ctx, trades, prices)
	if err != nil {
		return err
	}
	for _, l := range res.Legs {
		log.Debugw("leg", "date", l.Date.Format(journal.DateLayout), "symbol", l.Symbol,
			"case", l.Case, "shares", l.Shares, "pnl", l.PnL)
	}

	var w io.Writer = cmd.OutOrStdout()
	if attrOutput != "-" {
		f, err := os.Create(attrOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := journal.WriteDailyCSV(w, res.Daily); err != nil {
		return err
	}

	log.Infow("attribution written",
		"days", len(res.Daily), "trades", len(trades),
		"skipped", len(report.Skipped)+res.Skipped, "output", attrOutput)
	return nil
}
