package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/pnlrisk/analysis"
	"github.com/rustyeddy/pnlrisk/journal"
	"github.com/rustyeddy/pnlrisk/montecarlo"
)

var montecarloCmd = &cobra.Command{
	Use:     "montecarlo",
	Aliases: []string{"mc"},
	Short:   "Resample a PnL series and report drawdown percentiles",
	Long: `Replay a PnL series in random orders and report the 90/70/50/30/10%
values of drawdown, CAR/MDD, equity extremes and sub-period win rates.

The series is the daily PnL file, summed to weeks, months or quarters when
the period asks for it, or the ledger's per-trade PnL for --period trades.
Interrupting a long run keeps the iterations finished so far.

Examples:
  pnlrisk montecarlo --daily daily_pnl.csv --iterations 20000 --seed 7
  pnlrisk mc --trades trades.csv --period trades --by-year -o mc/`,
	Args: cobra.NoArgs,
	RunE: runMonteCarlo,
}

var (
	mcDailyPath  string
	mcTradesPath string
	mcPeriod     string
	mcIterations int
	mcSeed       uint64
	mcByYear     bool
	mcOutputDir  string
)

func init() {
	rootCmd.AddCommand(montecarloCmd)

	f := montecarloCmd.Flags()
	f.StringVarP(&mcDailyPath, "daily", "d", "", "daily PnL CSV")
	f.StringVarP(&mcTradesPath, "trades", "t", "", "trade ledger CSV, for --period trades")
	f.StringVar(&mcPeriod, "period", "", "daily|weekly|monthly|quarterly|trades (overrides montecarlo.period_type)")
	f.IntVarP(&mcIterations, "iterations", "n", 0, "iteration count (overrides montecarlo.iteration_count)")
	f.Uint64Var(&mcSeed, "seed", 0, "random seed (overrides montecarlo.random_seed)")
	f.BoolVar(&mcByYear, "by-year", false, "also resample each calendar year")
	f.StringVarP(&mcOutputDir, "output", "o", "", "write montecarlo_<period>[_<year>].csv tables to this directory")
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	mcCfg := cfg.MonteCarlo
	flags := cmd.Flags()
	if flags.Changed("period") {
		mcCfg.PeriodType = mcPeriod
	}
	if flags.Changed("iterations") {
		mcCfg.IterationCount = mcIterations
	}
	if flags.Changed("seed") {
		mcCfg.RandomSeed = &mcSeed
	}
	if flags.Changed("by-year") {
		mcCfg.ByYear = mcByYear
	}

	engine, seed, err := montecarlo.FromConfig(mcCfg, log)
	if err != nil {
		return err
	}

	var daily []journal.DailyPnL
	if mcDailyPath != "" {
		if daily, err = journal.LoadDailyFile(mcDailyPath); err != nil {
			return fmt.Errorf("load daily pnl: %w", err)
		}
	}
	var trades []journal.TradeRecord
	if mcTradesPath != "" {
		if trades, _, err = journal.LoadTradesFile(mcTradesPath, loc, log); err != nil {
			return fmt.Errorf("load trades: %w", err)
		}
	}
	if engine.Period == montecarlo.Trades && trades == nil {
		return fmt.Errorf("--period trades needs --trades")
	}
	if engine.Period != montecarlo.Trades && daily == nil {
		return fmt.Errorf("--daily is required for period %s", engine.Period)
	}

	series := analysis.ResampleSeries(engine.Period, daily, trades)
	var tables []montecarlo.YearTable
	if mcCfg.ByYear {
		tables, err = engine.RunByYear(ctx, series)
	} else {
		var t *montecarlo.Table
		t, err = engine.Run(ctx, journal.Values(series))
		tables = []montecarlo.YearTable{{Table: t}}
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Seed: %d\n", seed)
	for _, yt := range tables {
		analysis.PrintTable(out, engine.Period.String(), yt)
	}

	if mcOutputDir == "" {
		return nil
	}
	if err := os.MkdirAll(mcOutputDir, 0755); err != nil {
		return err
	}
	for _, yt := range tables {
		name := "montecarlo_" + engine.Period.String()
		if yt.Year != 0 {
			name += "_" + strconv.Itoa(yt.Year)
		}
		if err := writeTable(filepath.Join(mcOutputDir, name+".csv"), yt.Table.PercentileRows(engine.Period.String(), yt.Year)); err != nil {
			return err
		}
	}
	return nil
}

func writeTable(path string, rows []journal.PercentileRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := journal.WritePercentilesCSV(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
