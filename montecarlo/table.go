package montecarlo

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/rustyeddy/pnlrisk/journal"
)

// Percentile ranks reported in a Table, best to worst case. Labels match
// journal.PercentileLabels.
var percentiles = []struct {
	Label string
	P     float64
}{
	{"90", 0.9},
	{"70", 0.7},
	{"50", 0.5},
	{"30", 0.3},
	{"10", 0.1},
}

// Metric names, in the order tables are written.
const (
	MetricMDD              = "MDD"
	MetricMDDPeriod        = "MDD_Period"
	MetricInitEquity       = "Init_Equity"
	MetricMaxEquity        = "Max_Equity"
	MetricMinEquity        = "Min_Equity"
	MetricEndEquity        = "End_Equity"
	MetricCARMDD           = "CAR/MDD"
	MetricCAR              = "CAR"
	MetricWeeklyWinRate    = "Weekly_Win_Rate"
	MetricMonthlyWinRate   = "Monthly_Win_Rate"
	MetricQuarterlyWinRate = "Quarterly_Win_Rate"
	MetricWinRateIgnore0   = "Win_Rate_Ignore0"
	MetricWinRateConsider0 = "Win_Rate_Consider0"
)

// column describes how one outcome metric is ranked. Every metric is sorted
// best first (drawdown ascending, the rest descending), so the 90% row is a
// value 90% of paths do no better than.
type column struct {
	name      string
	ascending bool
	get       func(Outcome) float64
	set       func(*Outcome, float64)
}

var columns = []column{
	{MetricMDD, true,
		func(o Outcome) float64 { return o.MDD },
		func(o *Outcome, v float64) { o.MDD = v }},
	{MetricMDDPeriod, true,
		func(o Outcome) float64 { return float64(o.MDDDuration) },
		func(o *Outcome, v float64) { o.MDDDuration = int(v) }},
	{MetricInitEquity, false,
		func(o Outcome) float64 { return o.InitEquity },
		func(o *Outcome, v float64) { o.InitEquity = v }},
	{MetricMaxEquity, false,
		func(o Outcome) float64 { return o.MaxEquity },
		func(o *Outcome, v float64) { o.MaxEquity = v }},
	{MetricMinEquity, false,
		func(o Outcome) float64 { return o.MinEquity },
		func(o *Outcome, v float64) { o.MinEquity = v }},
	{MetricEndEquity, false,
		func(o Outcome) float64 { return o.EndEquity },
		func(o *Outcome, v float64) { o.EndEquity = v }},
	{MetricCARMDD, false,
		func(o Outcome) float64 { return o.CARMDD },
		func(o *Outcome, v float64) { o.CARMDD = v }},
	{MetricCAR, false,
		func(o Outcome) float64 { return o.CAR },
		func(o *Outcome, v float64) { o.CAR = v }},
	{MetricWeeklyWinRate, false,
		func(o Outcome) float64 { return o.WeeklyWinRate },
		func(o *Outcome, v float64) { o.WeeklyWinRate = v }},
	{MetricMonthlyWinRate, false,
		func(o Outcome) float64 { return o.MonthlyWinRate },
		func(o *Outcome, v float64) { o.MonthlyWinRate = v }},
	{MetricQuarterlyWinRate, false,
		func(o Outcome) float64 { return o.QuarterlyWinRate },
		func(o *Outcome, v float64) { o.QuarterlyWinRate = v }},
}

// Table is the percentile risk table of one resampling run. Each metric is
// ranked on its own, so the Outcome at a label is not one simulated path.
type Table struct {
	Period     Period
	Requested  int
	Iterations int // completed
	Partial    bool

	Percentiles map[string]Outcome
	Mean        map[string]float64
	Std         map[string]float64

	// Win rates of the input series itself.
	WinRateIgnoreZero   float64
	WinRateConsiderZero float64
}

// At returns the outcome at a percentile label ("90", "70", ...).
func (t *Table) At(label string) Outcome {
	return t.Percentiles[label]
}

// percentileIndex is the rank of fraction p in n sorted values.
func percentileIndex(n int, p float64) int {
	return min(int(math.Floor(float64(n)*p)), n-1)
}

// buildTable ranks the completed outcomes. outcomes must not be empty.
func buildTable(outcomes []Outcome, input []float64) *Table {
	n := len(outcomes)
	t := &Table{
		Iterations:  n,
		Percentiles: make(map[string]Outcome, len(percentiles)),
		Mean:        make(map[string]float64, len(columns)),
		Std:         make(map[string]float64, len(columns)),
	}
	ranked := make([]Outcome, len(percentiles))

	values := make([]float64, n)
	for _, c := range columns {
		for i, o := range outcomes {
			values[i] = c.get(o)
		}
		t.Mean[c.name], _ = stats.Mean(values)
		t.Std[c.name], _ = stats.StandardDeviationPopulation(values)

		if c.ascending {
			sort.Float64s(values)
		} else {
			sort.Sort(sort.Reverse(sort.Float64Slice(values)))
		}
		for k, p := range percentiles {
			c.set(&ranked[k], values[percentileIndex(n, p.P)])
		}
	}
	for k, p := range percentiles {
		t.Percentiles[p.Label] = ranked[k]
	}

	t.WinRateIgnoreZero, t.WinRateConsiderZero = WinRates(input)
	return t
}

// WinRates returns the share of positive values among the non-zero values
// and among all values. Either is 0 when its base is empty.
func WinRates(pnl []float64) (ignoreZero, considerZero float64) {
	var wins, nonZero int
	for _, v := range pnl {
		if v > 0 {
			wins++
		}
		if v != 0 {
			nonZero++
		}
	}
	if nonZero > 0 {
		ignoreZero = float64(wins) / float64(nonZero)
	}
	if len(pnl) > 0 {
		considerZero = float64(wins) / float64(len(pnl))
	}
	return ignoreZero, considerZero
}

// PercentileRows flattens the table for the run journal: one row per metric
// and percentile, then the mean and std summary rows.
func (t *Table) PercentileRows(series string, year int) []journal.PercentileRow {
	var rows []journal.PercentileRow
	add := func(metric, pct string, v float64) {
		rows = append(rows, journal.PercentileRow{
			Series: series, Year: year, Metric: metric, Percentile: pct, Value: v,
		})
	}
	for _, c := range columns {
		for _, p := range percentiles {
			add(c.name, p.Label, c.get(t.Percentiles[p.Label]))
		}
		add(c.name, journal.SummaryMean, t.Mean[c.name])
		add(c.name, journal.SummaryStd, t.Std[c.name])
	}
	for _, wr := range []struct {
		name string
		v    float64
	}{
		{MetricWinRateIgnore0, t.WinRateIgnoreZero},
		{MetricWinRateConsider0, t.WinRateConsiderZero},
	} {
		for _, p := range percentiles {
			add(wr.name, p.Label, wr.v)
		}
		add(wr.name, journal.SummaryMean, wr.v)
		add(wr.name, journal.SummaryStd, 0)
	}
	return rows
}
