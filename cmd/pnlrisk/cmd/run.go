package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/pnlrisk/analysis"
	"github.com/rustyeddy/pnlrisk/internal/observability"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full analysis on a ledger and price series",
	Long: `Attribute the ledger to sessions, compute the risk metrics, resample the
daily series and record everything to the configured journal.

Example:
  pnlrisk run --trades trades.csv --prices hsi.csv -c pnlrisk.yaml`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

var (
	runTradesPath string
	runPricesPath string
	runOrgPath    string
	runQuiet      bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runTradesPath, "trades", "t", "", "trade ledger CSV (required)")
	runCmd.Flags().StringVarP(&runPricesPath, "prices", "p", "", "daily close price CSV (required)")
	runCmd.Flags().StringVar(&runOrgPath, "org", "", "write an Org-mode report here (overrides journal.org_path)")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "do not print the report")
	runCmd.MarkFlagRequired("trades")
	runCmd.MarkFlagRequired("prices")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	if runOrgPath != "" {
		cfg.Journal.OrgPath = runOrgPath
	}

	j, err := analysis.OpenJournal(cfg.Journal)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	if j != nil {
		defer j.Close()
	}

	p := analysis.New(cfg, log, observability.NewMetrics(""))
	rep, err := p.Run(ctx, analysis.Inputs{
		TradesPath: runTradesPath,
		PricesPath: runPricesPath,
		Location:   loc,
	})
	if err != nil {
		return err
	}
	if err := p.Record(rep, j); err != nil {
		return err
	}

	if !runQuiet {
		analysis.PrintReport(cmd.OutOrStdout(), rep)
	}
	switch cfg.Journal.Type {
	case "csv":
		fmt.Fprintf(cmd.OutOrStdout(), "Results saved to: %s/%s\n", cfg.Journal.OutputDir, rep.Run.RunID)
	case "sqlite":
		fmt.Fprintf(cmd.OutOrStdout(), "Results saved to: %s (run %s)\n", cfg.Journal.DBPath, rep.Run.RunID)
	}
	return nil
}
