// Package journal holds the trade ledger consumed by the engines and the
// writers that persist a run's flat outputs (daily PnL, metrics and
// percentile tables) to CSV or SQLite.
package journal

import (
	"fmt"
	"strings"
	"time"
)

// Direction is +1 for long trades and -1 for short trades so it can be
// used directly as a sign in PnL formulas.
type Direction int

const (
	Long  Direction = 1
	Short Direction = -1
)

func (d Direction) String() string {
	switch d {
	case Long:
		return "Long"
	case Short:
		return "Short"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// ParseDirection accepts the platform's trade column ("Long", "Short",
// "Long (scale-in)", ...).
func ParseDirection(s string) (Direction, error) {
	u := strings.ToUpper(s)
	switch {
	case strings.Contains(u, "LONG"):
		return Long, nil
	case strings.Contains(u, "SHORT"):
		return Short, nil
	}
	return 0, fmt.Errorf("unknown trade direction %q", s)
}

// TradeRecord is one closed trade from the ledger. Profit is the realized
// profit per share, so a trade's total realized PnL is Profit * Shares.
type TradeRecord struct {
	Symbol     string
	Direction  Direction
	OpenTime   time.Time
	OpenPrice  float64
	CloseTime  time.Time
	ClosePrice float64
	Shares     float64
	Profit     float64
}

// PnL is the trade's total realized profit.
func (t TradeRecord) PnL() float64 {
	return t.Profit * t.Shares
}

// Validate reports ledger rows the engines cannot attribute.
func (t TradeRecord) Validate() error {
	if t.OpenTime.IsZero() || t.CloseTime.IsZero() {
		return fmt.Errorf("%w: missing open or close time", ErrUnparseableTimestamp)
	}
	if t.CloseTime.Before(t.OpenTime) {
		return fmt.Errorf("%w: close %s before open %s", ErrInvalidTrade,
			t.CloseTime.Format(time.RFC3339), t.OpenTime.Format(time.RFC3339))
	}
	if t.Shares < 0 {
		return fmt.Errorf("%w: negative shares %v", ErrInvalidTrade, t.Shares)
	}
	if t.Direction != Long && t.Direction != Short {
		return fmt.Errorf("%w: %v", ErrInvalidTrade, t.Direction)
	}
	return nil
}

// TradePnLs returns each trade's total realized PnL in ledger order.
func TradePnLs(trades []TradeRecord) []float64 {
	out := make([]float64, len(trades))
	for i, t := range trades {
		out[i] = t.PnL()
	}
	return out
}

// DailyPnL is the PnL attributed to one session date.
type DailyPnL struct {
	Date time.Time
	PnL  float64
}

// Values returns the PnL column of a daily series.
func Values(daily []DailyPnL) []float64 {
	out := make([]float64, len(daily))
	for i, d := range daily {
		out[i] = d.PnL
	}
	return out
}

// MetricRow is one named scalar of a run's risk metric set.
type MetricRow struct {
	Name  string
	Value float64
}

// PercentileRow is one cell of a percentile risk table. Series names the
// resampled input ("daily", "trades"), Year is 0 for the whole series.
type PercentileRow struct {
	Series     string
	Year       int
	Metric     string
	Percentile string
	Value      float64
}

// Run summarises one analysis run.
type Run struct {
	RunID   string
	Created time.Time

	TradesPath string
	PricesPath string
	Config     []byte // analysis config as YAML

	Start time.Time
	End   time.Time

	Trades  int
	Skipped int
	Days    int
	Wins    int
	Losses  int

	NetPL       float64
	WinRate     float64
	MaxDDPct    float64
	MaxDDDays   int
	KRatio      float64
	GPR         float64
	Expectancy  float64
	HHIDaily    float64
	HHITrade    float64
	MC90MDDPct  float64
	MC90CARMDD  float64
	MC50EndEq   float64
	MCIteration int

	OrgPath string

	Notes []string
}

// Journal persists the flat outputs of a run.
type Journal interface {
	RecordRun(Run) error
	RecordDaily(runID string, daily []DailyPnL) error
	RecordMetrics(runID string, rows []MetricRow) error
	RecordPercentiles(runID string, rows []PercentileRow) error
	Close() error
}
