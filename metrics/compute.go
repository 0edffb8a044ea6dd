package metrics

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/montanaflynn/stats"

	"github.com/rustyeddy/pnlrisk/config"
	"github.com/rustyeddy/pnlrisk/journal"
)

// Options tune Compute.
type Options struct {
	ConcentrationK    int // 5 or 10: which HHI pair is the headline
	ACFLags           int
	PValueMax         float64
	IgnoreZeroWinRate bool
}

// OptionsFromConfig maps the metrics config section.
func OptionsFromConfig(cfg config.MetricsConfig) Options {
	return Options{
		ConcentrationK:    cfg.ConcentrationK,
		ACFLags:           cfg.ACFLags,
		PValueMax:         cfg.StationarityPValue,
		IgnoreZeroWinRate: cfg.IgnoreZeroWinRate,
	}
}

func DefaultOptions() Options {
	return OptionsFromConfig(config.Default().Metrics)
}

// RiskMetricSet is the full scalar metric set of one run.
type RiskMetricSet struct {
	Days     int
	Trades   int
	NetPnL   float64
	WinDays  int
	LossDays int

	KRatio              float64
	Slope               float64
	GPR                 float64
	MaxDrawdown         float64
	MaxDrawdownDuration int
	Expectancy          float64
	AvgHoldMinutes      float64
	Concentration       Concentration
	ConcentrationK      int
	WinRates            WinRates

	// Serial correlation diagnostics; nil when the series is too short or
	// constant.
	TradeAC   *Autocorrelation
	DailyAC   *Autocorrelation
	MonthlyAC *Autocorrelation

	Notes []string
}

// Compute derives the metric set from the attributed daily series and the
// trades behind it. Daily-series metrics are required; trade metrics are
// skipped with a note when trades is empty.
func Compute(daily []journal.DailyPnL, trades []journal.TradeRecord, opts Options) (*RiskMetricSet, error) {
	values := journal.Values(daily)
	if err := checkSeries("daily pnl", values, 3); err != nil {
		return nil, err
	}
	if opts.ACFLags <= 0 {
		opts.ACFLags = 10
	}
	if opts.ConcentrationK != 5 {
		opts.ConcentrationK = 10
	}

	m := &RiskMetricSet{Days: len(daily), Trades: len(trades), ConcentrationK: opts.ConcentrationK}
	m.NetPnL, _ = stats.Sum(values)
	for _, v := range values {
		switch {
		case v > 0:
			m.WinDays++
		case v < 0:
			m.LossDays++
		}
	}

	curve := EquityCurve(values)
	var err error
	if m.KRatio, err = KRatio(curve); err != nil {
		return nil, err
	}
	if m.Slope, err = Slope(curve); err != nil {
		return nil, err
	}
	if m.GPR, err = GPR(daily); err != nil {
		return nil, err
	}
	if m.MaxDrawdown, m.MaxDrawdownDuration, err = MaxDrawdown(curve); err != nil {
		return nil, err
	}
	if m.WinRates, err = CalendarWinRates(daily, opts.IgnoreZeroWinRate); err != nil {
		return nil, err
	}

	tradePnL := journal.TradePnLs(trades)
	if m.Concentration, err = PnLConcentration(values, tradePnL); err != nil {
		return nil, err
	}

	if len(trades) > 0 {
		if m.Expectancy, err = Expectancy(tradePnL); err != nil {
			if !errors.Is(err, ErrInvalidInputShape) {
				return nil, err
			}
			m.Expectancy = math.NaN()
			m.Notes = append(m.Notes, fmt.Sprintf("expectancy not defined: %v", err))
		}
		if m.AvgHoldMinutes, err = AvgHoldMinutes(trades); err != nil {
			return nil, err
		}
	} else {
		m.Notes = append(m.Notes, "no trades: expectancy and hold time not computed")
	}

	monthly := periodValues(MonthlyPnL(daily))
	for _, s := range []struct {
		name   string
		series []float64
		dst    **Autocorrelation
	}{
		{"trades", tradePnL, &m.TradeAC},
		{"daily", values, &m.DailyAC},
		{"monthly", monthly, &m.MonthlyAC},
	} {
		ac, err := Autocorrelate(s.series, opts.ACFLags, opts.PValueMax)
		if err != nil {
			if !errors.Is(err, ErrInvalidInputShape) {
				return nil, err
			}
			m.Notes = append(m.Notes, fmt.Sprintf("%s autocorrelation skipped: %v", s.name, err))
			continue
		}
		if !ac.Pass {
			m.Notes = append(m.Notes, fmt.Sprintf("%s pnl may have a unit root: ADF p=%.4f", s.name, ac.PValue))
		}
		*s.dst = ac
	}

	return m, nil
}

// Rows flattens the set to named metric rows, in a stable order.
func (m *RiskMetricSet) Rows() []journal.MetricRow {
	rows := []journal.MetricRow{
		{Name: "Net PnL", Value: m.NetPnL},
		{Name: "Days", Value: float64(m.Days)},
		{Name: "Trades", Value: float64(m.Trades)},
		{Name: "K Ratio (Zephyr)", Value: m.KRatio},
		{Name: "Slope", Value: m.Slope},
		{Name: "GPR", Value: m.GPR},
		{Name: "Average Hold Minutes", Value: m.AvgHoldMinutes},
		{Name: "HHI Trade 10", Value: m.Concentration.Trade10},
		{Name: "HHI Trade 5", Value: m.Concentration.Trade5},
		{Name: "HHI Daily 10", Value: m.Concentration.Daily10},
		{Name: "HHI Daily 5", Value: m.Concentration.Daily5},
		{Name: "Max. DD", Value: m.MaxDrawdown},
		{Name: "Max. DD Days", Value: float64(m.MaxDrawdownDuration)},
		{Name: "Expectancy", Value: m.Expectancy},
		{Name: "Daily Win Rate", Value: m.WinRates.Daily},
		{Name: "Weekly Win Rate", Value: m.WinRates.Weekly},
		{Name: "Monthly Win Rate", Value: m.WinRates.Monthly},
		{Name: "Yearly Win Rate", Value: m.WinRates.Yearly},
	}
	for _, s := range []struct {
		name string
		ac   *Autocorrelation
	}{
		{"Trades", m.TradeAC},
		{"Daily", m.DailyAC},
		{"Monthly", m.MonthlyAC},
	} {
		if s.ac == nil {
			continue
		}
		pass := 0.0
		if s.ac.Pass {
			pass = 1
		}
		rows = append(rows,
			journal.MetricRow{Name: "ADF Stat (" + s.name + ")", Value: s.ac.ADFStat},
			journal.MetricRow{Name: "ADF p (" + s.name + ")", Value: s.ac.PValue},
			journal.MetricRow{Name: "ADF Pass (" + s.name + ")", Value: pass},
		)
		for lag := 1; lag < len(s.ac.ACF); lag++ {
			rows = append(rows,
				journal.MetricRow{Name: "ACF Lag" + strconv.Itoa(lag) + " (" + s.name + ")", Value: s.ac.ACF[lag]},
				journal.MetricRow{Name: "PACF Lag" + strconv.Itoa(lag) + " (" + s.name + ")", Value: s.ac.PACF[lag]},
			)
		}
	}
	return rows
}
