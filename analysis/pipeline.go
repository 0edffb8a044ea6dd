// Package analysis wires the engines into one run: ledger and prices in,
// daily PnL, risk metrics and Monte Carlo tables out.
package analysis

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/pnlrisk/attribution"
	"github.com/rustyeddy/pnlrisk/config"
	"github.com/rustyeddy/pnlrisk/internal/logger"
	"github.com/rustyeddy/pnlrisk/internal/observability"
	"github.com/rustyeddy/pnlrisk/journal"
	"github.com/rustyeddy/pnlrisk/market"
	"github.com/rustyeddy/pnlrisk/metrics"
	"github.com/rustyeddy/pnlrisk/montecarlo"
	"github.com/rustyeddy/pnlrisk/pkg/id"
)

// Inputs names the files of one run.
type Inputs struct {
	TradesPath string
	PricesPath string
	// Location is the time zone of the ledger and price timestamps; nil
	// means UTC.
	Location *time.Location
}

// SeriesTables are the Monte Carlo tables of one resampled series.
type SeriesTables struct {
	Series string
	Tables []montecarlo.YearTable
}

// Report is everything one run produced.
type Report struct {
	Run         journal.Run
	Trades      []journal.TradeRecord
	Load        *journal.LoadReport
	Gaps        market.GapStats
	Attribution *attribution.Result
	Metrics     *metrics.RiskMetricSet
	MonteCarlo  []SeriesTables
	Seed        uint64
}

// Pipeline runs the full analysis for a config.
type Pipeline struct {
	Config *config.Config
	Log    *zap.SugaredLogger
	Obs    *observability.Metrics

	// Now stamps the run; tests pin it.
	Now func() time.Time
}

func New(cfg *config.Config, log *zap.SugaredLogger, obs *observability.Metrics) *Pipeline {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Pipeline{Config: cfg, Log: log, Obs: obs, Now: time.Now}
}

// Run loads the input files and analyses them.
func (p *Pipeline) Run(ctx context.Context, in Inputs) (*Report, error) {
	log := logger.OrNop(p.Log)
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}

	trades, load, err := journal.LoadTradesFile(in.TradesPath, loc, log)
	if err != nil {
		p.Obs.IncRun("error")
		return nil, fmt.Errorf("load trades: %w", err)
	}
	p.Obs.IncIngested(len(trades))
	for range load.Skipped {
		p.Obs.IncSkipped("unparseable")
	}

	prices, err := market.LoadPricesFile(in.PricesPath, loc)
	if err != nil {
		p.Obs.IncRun("error")
		return nil, fmt.Errorf("load prices: %w", err)
	}
	log.Infow("inputs loaded",
		"trades", len(trades), "skipped", len(load.Skipped),
		"prices", prices.Len(), "first", prices.First().Date, "last", prices.Last().Date)

	rep, err := p.Analyze(ctx, trades, prices)
	if err != nil {
		return nil, err
	}
	rep.Load = load
	rep.Run.TradesPath = in.TradesPath
	rep.Run.PricesPath = in.PricesPath
	rep.Run.Skipped += len(load.Skipped)
	for _, s := range load.Skipped {
		rep.Run.Notes = append(rep.Run.Notes, fmt.Sprintf("ledger line %d skipped: %v", s.Line, s.Err))
	}
	return rep, nil
}

// Analyze runs attribution, metrics and Monte Carlo on loaded inputs.
func (p *Pipeline) Analyze(ctx context.Context, trades []journal.TradeRecord, prices *market.PriceSeries) (rep *Report, err error) {
	log := logger.OrNop(p.Log)
	cfg := p.Config
	defer func() {
		if err != nil {
			p.Obs.IncRun("error")
		} else {
			p.Obs.IncRun("ok")
		}
	}()

	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	created := now()
	rep = &Report{Trades: trades}
	rep.Run.RunID = id.At(created)
	rep.Run.Created = created
	rep.Run.OrgPath = cfg.Journal.OrgPath
	if rep.Run.Config, err = yaml.Marshal(cfg); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	log = log.With("run_id", rep.Run.RunID)
	ctx = logger.WithContext(ctx, log)

	rep.Gaps = prices.Stats()
	if rep.Gaps.SuspiciousGaps > 0 {
		log.Warnw("price series has suspicious gaps",
			"count", rep.Gaps.SuspiciousGaps, "longest", rep.Gaps.LongestGap)
		rep.Run.Notes = append(rep.Run.Notes,
			fmt.Sprintf("price series has %d suspicious gaps", rep.Gaps.SuspiciousGaps))
	}

	attr, err := attribution.FromConfig(cfg.Attribution)
	if err != nil {
		return nil, err
	}
	attr.Log, attr.Obs = log, p.Obs
	if rep.Attribution, err = attr.Attribute(ctx, trades, prices); err != nil {
		return nil, fmt.Errorf("attribute: %w", err)
	}
	daily := rep.Attribution.Daily

	start := time.Now()
	rep.Metrics, err = metrics.Compute(daily, trades, metrics.OptionsFromConfig(cfg.Metrics))
	p.Obs.ObserveStage("metrics", start)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	if err := p.resample(ctx, rep, daily, trades, log); err != nil {
		return nil, fmt.Errorf("monte carlo: %w", err)
	}

	summarize(rep)
	log.Infow("analysis complete",
		"days", rep.Run.Days, "net_pl", rep.Run.NetPL, "k_ratio", rep.Run.KRatio)
	return rep, nil
}

func (p *Pipeline) resample(ctx context.Context, rep *Report, daily []journal.DailyPnL, trades []journal.TradeRecord, log *zap.SugaredLogger) error {
	cfg := p.Config.MonteCarlo
	mc, seed, err := montecarlo.FromConfig(cfg, log)
	if err != nil {
		return err
	}
	mc.Obs = p.Obs
	rep.Seed = seed

	run := func(series []journal.DailyPnL) ([]montecarlo.YearTable, error) {
		if cfg.ByYear {
			return mc.RunByYear(ctx, series)
		}
		t, err := mc.Run(ctx, journal.Values(series))
		if err != nil {
			return nil, err
		}
		return []montecarlo.YearTable{{Table: t}}, nil
	}

	tables, err := run(ResampleSeries(mc.Period, daily, trades))
	if err != nil {
		return err
	}
	rep.MonteCarlo = append(rep.MonteCarlo, SeriesTables{Series: mc.Period.String(), Tables: tables})

	if cfg.Trades && mc.Period != montecarlo.Trades && len(trades) > 0 {
		mc.Period = montecarlo.Trades
		tables, err := run(ResampleSeries(montecarlo.Trades, daily, trades))
		if err != nil {
			return fmt.Errorf("trades: %w", err)
		}
		rep.MonteCarlo = append(rep.MonteCarlo, SeriesTables{Series: montecarlo.Trades.String(), Tables: tables})
	}
	return nil
}

// ResampleSeries is the dated PnL series the engine resamples for period:
// the daily series, its weekly, monthly or quarterly sums, or one value per
// trade dated at its open.
func ResampleSeries(period montecarlo.Period, daily []journal.DailyPnL, trades []journal.TradeRecord) []journal.DailyPnL {
	var g metrics.Granularity
	switch period {
	case montecarlo.Daily:
		return daily
	case montecarlo.Trades:
		out := make([]journal.DailyPnL, len(trades))
		for i, t := range trades {
			out[i] = journal.DailyPnL{Date: t.OpenTime, PnL: t.PnL()}
		}
		return out
	case montecarlo.Weekly:
		g = metrics.Weekly
	case montecarlo.Monthly:
		g = metrics.Monthly
	case montecarlo.Quarterly:
		g = metrics.Quarterly
	}

	sums := metrics.GroupPnL(daily, g)
	out := make([]journal.DailyPnL, len(sums))
	for i, s := range sums {
		d := s.Start(g)
		// ISO week 1 can start in December; keep the bucket in its own year.
		if d.Year() != s.Year {
			d = time.Date(s.Year, 1, 1, 0, 0, 0, 0, time.UTC)
		}
		out[i] = journal.DailyPnL{Date: d, PnL: s.PnL}
	}
	return out
}
