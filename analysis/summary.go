package analysis

import (
	"fmt"
	"math"

	"github.com/rustyeddy/pnlrisk/journal"
	"github.com/rustyeddy/pnlrisk/montecarlo"
)

// summarize fills the run summary from the engine outputs. Summary floats
// are stored in NOT NULL columns, so NaN and the infinite sentinels are
// written as 0; the metric rows keep the raw values.
func summarize(rep *Report) {
	r := &rep.Run
	m := rep.Metrics
	daily := rep.Attribution.Daily

	r.Trades = len(rep.Trades) - rep.Attribution.Skipped
	r.Skipped = rep.Attribution.Skipped
	r.Days = m.Days
	r.Wins = m.WinDays
	r.Losses = m.LossDays
	if len(daily) > 0 {
		r.Start = daily[0].Date
		r.End = daily[len(daily)-1].Date
	}

	hhiDaily, hhiTrade := m.Concentration.Top(m.ConcentrationK)
	r.NetPL = finite(m.NetPnL)
	r.WinRate = finite(m.WinRates.Daily)
	r.MaxDDPct = finite(m.MaxDrawdown)
	r.MaxDDDays = m.MaxDrawdownDuration
	r.KRatio = finite(m.KRatio)
	r.GPR = finite(m.GPR)
	r.Expectancy = finite(m.Expectancy)
	r.HHIDaily = finite(hhiDaily)
	r.HHITrade = finite(hhiTrade)

	if t := headline(rep.MonteCarlo); t != nil {
		r.MC90MDDPct = finite(t.At("90").MDD)
		r.MC90CARMDD = finite(t.At("90").CARMDD)
		r.MC50EndEq = finite(t.At("50").EndEquity)
		r.MCIteration = t.Iterations
		if t.Partial {
			r.Notes = append(r.Notes, fmt.Sprintf("monte carlo stopped early: %d of %d iterations",
				t.Iterations, t.Requested))
		}
	}
	r.Notes = append(r.Notes, m.Notes...)
}

// headline is the whole-series table of the first resampled series.
func headline(series []SeriesTables) *montecarlo.Table {
	for _, s := range series {
		for _, yt := range s.Tables {
			if yt.Year == 0 {
				return yt.Table
			}
		}
	}
	return nil
}

func finite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}

// PercentileRows flattens every Monte Carlo table of the report.
func (rep *Report) PercentileRows() []journal.PercentileRow {
	var rows []journal.PercentileRow
	for _, s := range rep.MonteCarlo {
		rows = append(rows, montecarlo.PercentileRows(s.Series, s.Tables)...)
	}
	return rows
}
