// Package montecarlo estimates the distribution of path-dependent risk
// outcomes (drawdown, CAR/MDD, equity extremes) by replaying a PnL series in
// many random orders.
package montecarlo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/pnlrisk/config"
	"github.com/rustyeddy/pnlrisk/internal/logger"
	"github.com/rustyeddy/pnlrisk/internal/observability"
	"github.com/rustyeddy/pnlrisk/metrics"
)

var (
	// ErrInsufficientSampleSize is returned when the input has fewer
	// distinct values than the engine's MinDistinct.
	ErrInsufficientSampleSize = errors.New("insufficient sample size")

	// ErrCancelled is returned when the context ends before MinCompleted
	// iterations finish. It wraps the context error.
	ErrCancelled = errors.New("monte carlo cancelled")
)

// CARMDDNoDrawdown is the CAR/MDD reported for a path with no drawdown.
const CARMDDNoDrawdown = 9999

// Sub-period bucket sizes, counted in input values.
const (
	weekBucket    = 5
	monthBucket   = 20
	quarterBucket = 60
)

const (
	DefaultIterations    = 10000
	DefaultInitialEquity = 50000
	DefaultMultiplier    = 10
	DefaultMinDistinct   = 2
	DefaultMinCompleted  = 100
)

// Engine runs permutation resampling. Rand is only used to draw one seed
// per iteration up front, so the outcome of a seeded run does not depend on
// Workers.
type Engine struct {
	Rand          *rand.Rand
	Iterations    int
	InitialEquity float64
	Multiplier    float64
	Period        Period
	// PeriodsPerYear overrides Period.PeriodsPerYear when positive.
	PeriodsPerYear float64
	Workers        int
	MinDistinct    int
	MinCompleted   int

	Log *zap.SugaredLogger
	Obs *observability.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

func WithIterations(n int) Option { return func(e *Engine) { e.Iterations = n } }

func WithInitialEquity(v float64) Option { return func(e *Engine) { e.InitialEquity = v } }

func WithMultiplier(v float64) Option { return func(e *Engine) { e.Multiplier = v } }

func WithPeriod(p Period) Option { return func(e *Engine) { e.Period = p } }

// WithPeriodsPerYear overrides the annualisation divisor of the period.
func WithPeriodsPerYear(v float64) Option { return func(e *Engine) { e.PeriodsPerYear = v } }

func WithWorkers(n int) Option { return func(e *Engine) { e.Workers = n } }

// WithMinDistinct sets how many distinct input values a run needs.
func WithMinDistinct(n int) Option { return func(e *Engine) { e.MinDistinct = n } }

// WithMinCompleted sets how many iterations a cancelled run needs to still
// return a table.
func WithMinCompleted(n int) Option { return func(e *Engine) { e.MinCompleted = n } }

func WithLogger(l *zap.SugaredLogger) Option { return func(e *Engine) { e.Log = l } }

func WithMetrics(m *observability.Metrics) Option { return func(e *Engine) { e.Obs = m } }

// New creates an engine drawing from src with the legacy defaults: 10000
// daily iterations on 50000 of equity with a multiplier of 10.
func New(src rand.Source, opts ...Option) *Engine {
	e := &Engine{
		Rand:          rand.New(src),
		Iterations:    DefaultIterations,
		InitialEquity: DefaultInitialEquity,
		Multiplier:    DefaultMultiplier,
		Period:        Daily,
		Workers:       1,
		MinDistinct:   DefaultMinDistinct,
		MinCompleted:  DefaultMinCompleted,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Seed returns the seed to use for cfg: the configured one, or the current
// time when none is set.
func Seed(cfg config.MonteCarloConfig) uint64 {
	if cfg.RandomSeed != nil {
		return *cfg.RandomSeed
	}
	return uint64(time.Now().UnixNano())
}

// FromConfig builds an engine from the montecarlo config section, seeded
// with Seed(cfg). The seed is logged so a time-seeded run can be replayed.
func FromConfig(cfg config.MonteCarloConfig, log *zap.SugaredLogger) (*Engine, uint64, error) {
	period, err := ParsePeriod(cfg.PeriodType)
	if err != nil {
		return nil, 0, err
	}
	seed := Seed(cfg)
	logger.OrNop(log).Infow("monte carlo seed", "seed", seed, "configured", cfg.RandomSeed != nil)

	opts := []Option{
		WithPeriod(period),
		WithLogger(log),
	}
	if cfg.IterationCount > 0 {
		opts = append(opts, WithIterations(cfg.IterationCount))
	}
	if cfg.InitialEquity > 0 {
		opts = append(opts, WithInitialEquity(cfg.InitialEquity))
	}
	if cfg.EquityMultiplier > 0 {
		opts = append(opts, WithMultiplier(cfg.EquityMultiplier))
	}
	if cfg.Workers > 0 {
		opts = append(opts, WithWorkers(cfg.Workers))
	}
	if cfg.MinCompleted > 0 {
		opts = append(opts, WithMinCompleted(cfg.MinCompleted))
	}
	return New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15), opts...), seed, nil
}

// Permute returns a uniformly random reordering of pnl. pnl is not
// modified.
func Permute(r *rand.Rand, pnl []float64) []float64 {
	out := make([]float64, len(pnl))
	copy(out, pnl)
	r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// Outcome holds the metrics of one resampled equity path.
type Outcome struct {
	MDD              float64
	MDDDuration      int
	MaxEquity        float64
	MinEquity        float64
	CARMDD           float64
	CAR              float64
	EndEquity        float64
	InitEquity       float64
	WeeklyWinRate    float64
	MonthlyWinRate   float64
	QuarterlyWinRate float64
}

// Evaluate computes the outcome of replaying pnl in the given order.
func (e *Engine) Evaluate(pnl []float64) Outcome {
	if len(pnl) == 0 {
		return Outcome{InitEquity: e.InitialEquity, EndEquity: e.InitialEquity}
	}
	path := make([]float64, len(pnl))
	var cum float64
	o := Outcome{
		InitEquity: e.InitialEquity,
		MaxEquity:  math.Inf(-1),
		MinEquity:  math.Inf(1),
	}
	for i, v := range pnl {
		cum += v
		path[i] = e.InitialEquity + e.Multiplier*cum
		o.MaxEquity = math.Max(o.MaxEquity, path[i])
		o.MinEquity = math.Min(o.MinEquity, path[i])
	}
	o.EndEquity = path[len(path)-1]
	o.MDD, o.MDDDuration = metrics.MaxDrawdownPath(path)
	o.MDD = math.Abs(o.MDD)

	years := float64(len(pnl)) / e.periodsPerYear()
	if o.EndEquity > 0 {
		o.CAR = math.Log(o.EndEquity/e.InitialEquity) / years
	} else {
		o.CAR = math.Inf(-1)
	}
	if o.MDD > 0 {
		o.CARMDD = o.CAR / o.MDD
	} else {
		o.CARMDD = CARMDDNoDrawdown
	}

	o.WeeklyWinRate = bucketWinRate(pnl, weekBucket)
	o.MonthlyWinRate = bucketWinRate(pnl, monthBucket)
	o.QuarterlyWinRate = bucketWinRate(pnl, quarterBucket)
	return o
}

func (e *Engine) periodsPerYear() float64 {
	if e.PeriodsPerYear > 0 {
		return e.PeriodsPerYear
	}
	return e.Period.PeriodsPerYear()
}

// bucketWinRate splits pnl into consecutive buckets of size values and
// returns the fraction with a positive sum. Buckets follow position in the
// permuted order, not the calendar.
func bucketWinRate(pnl []float64, size int) float64 {
	var buckets, wins int
	for start := 0; start < len(pnl); start += size {
		var sum float64
		for _, v := range pnl[start:min(start+size, len(pnl))] {
			sum += v
		}
		buckets++
		if sum > 0 {
			wins++
		}
	}
	if buckets == 0 {
		return 0
	}
	return float64(wins) / float64(buckets)
}

func (e *Engine) validate(pnl []float64) error {
	if e.Iterations <= 0 {
		return fmt.Errorf("iterations must be positive, got %d", e.Iterations)
	}
	if e.InitialEquity <= 0 {
		return fmt.Errorf("initial equity must be positive, got %v", e.InitialEquity)
	}
	if e.Rand == nil {
		return errors.New("no random source")
	}
	distinct := map[float64]struct{}{}
	for i, v := range pnl {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: pnl value %d is %v", metrics.ErrInvalidInputShape, i, v)
		}
		distinct[v] = struct{}{}
	}
	minDistinct := max(e.MinDistinct, 1)
	if len(distinct) < minDistinct {
		return fmt.Errorf("%w: %d distinct values, need %d", ErrInsufficientSampleSize, len(distinct), minDistinct)
	}
	return nil
}

// Run resamples pnl Iterations times and returns the percentile table.
//
// If ctx ends first, the table is built from the iterations that finished,
// provided there are at least MinCompleted of them (capped at Iterations);
// otherwise Run fails with ErrCancelled.
func (e *Engine) Run(ctx context.Context, pnl []float64) (*Table, error) {
	if err := e.validate(pnl); err != nil {
		return nil, err
	}
	log := logger.OrNop(e.Log)
	defer e.Obs.ObserveStage("montecarlo", time.Now())

	n := e.Iterations
	seeds := make([]uint64, n)
	for i := range seeds {
		seeds[i] = e.Rand.Uint64()
	}
	input := append([]float64(nil), pnl...)

	outcomes := make([]Outcome, n)
	done := make([]bool, n)
	var next atomic.Int64
	var cancelled atomic.Bool

	workers := min(max(e.Workers, 1), n)
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for {
				i := int(next.Add(1) - 1)
				if i >= n {
					return nil
				}
				if ctx.Err() != nil {
					cancelled.Store(true)
					return nil
				}
				r := rand.New(rand.NewPCG(seeds[i], uint64(i)))
				outcomes[i] = e.Evaluate(Permute(r, input))
				done[i] = true
			}
		})
	}
	_ = g.Wait()

	completed := outcomes[:0:0]
	for i, ok := range done {
		if ok {
			completed = append(completed, outcomes[i])
		}
	}
	e.Obs.AddIterations(e.Period.String(), len(completed))

	if cancelled.Load() {
		e.Obs.IncCancelled()
		need := min(max(e.MinCompleted, 1), n)
		if len(completed) < need {
			return nil, fmt.Errorf("%w after %d of %d iterations (need %d): %w",
				ErrCancelled, len(completed), n, need, ctx.Err())
		}
		log.Warnw("monte carlo cancelled, using partial results",
			"completed", len(completed), "requested", n)
	}

	t := buildTable(completed, pnl)
	t.Period = e.Period
	t.Requested = n
	t.Partial = len(completed) < n
	log.Infow("monte carlo complete",
		"period", e.Period, "values", len(pnl), "iterations", len(completed))
	return t, nil
}
