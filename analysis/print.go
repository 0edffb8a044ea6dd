package analysis

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/rustyeddy/pnlrisk/journal"
	"github.com/rustyeddy/pnlrisk/metrics"
	"github.com/rustyeddy/pnlrisk/montecarlo"
)

const rule = "--------------------------------------------------"

func num(x float64) string {
	switch {
	case math.IsNaN(x):
		return "n/a"
	case math.IsInf(x, 1):
		return "+inf"
	case math.IsInf(x, -1):
		return "-inf"
	}
	return fmt.Sprintf("%.2f", x)
}

func section(w io.Writer, title string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, rule)
}

// PrintReport writes a human readable summary of a run.
func PrintReport(w io.Writer, rep *Report) {
	r := rep.Run
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " PnL Risk Report")
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintf(w, "Run ID:        %s\n", r.RunID)
	fmt.Fprintf(w, "Created:       %s\n", r.Created.Format(time.RFC3339))
	if r.TradesPath != "" {
		fmt.Fprintf(w, "Trades:        %s\n", r.TradesPath)
	}
	if r.PricesPath != "" {
		fmt.Fprintf(w, "Prices:        %s\n", r.PricesPath)
	}
	fmt.Fprintf(w, "MC Seed:       %d\n", rep.Seed)

	section(w, "Period")
	fmt.Fprintf(w, "Start:         %s\n", r.Start.Format(journal.DateLayout))
	fmt.Fprintf(w, "End:           %s\n", r.End.Format(journal.DateLayout))
	fmt.Fprintf(w, "Sessions:      %d\n", r.Days)

	section(w, "Trade Statistics")
	fmt.Fprintf(w, "Trades:        %d\n", r.Trades)
	fmt.Fprintf(w, "Skipped:       %d\n", r.Skipped)
	fmt.Fprintf(w, "Winning Days:  %d\n", r.Wins)
	fmt.Fprintf(w, "Losing Days:   %d\n", r.Losses)

	if m := rep.Metrics; m != nil {
		PrintMetrics(w, m)
	}
	for _, s := range rep.MonteCarlo {
		for _, yt := range s.Tables {
			PrintTable(w, s.Series, yt)
		}
	}

	if r.OrgPath != "" {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Org Report:    %s\n", r.OrgPath)
	}

	if len(r.Notes) > 0 {
		section(w, "Observations")
		for _, note := range r.Notes {
			fmt.Fprintf(w, "- %s\n", note)
		}
	}
	fmt.Fprintln(w)
}

// PrintMetrics writes the scalar risk metrics.
func PrintMetrics(w io.Writer, m *metrics.RiskMetricSet) {
	section(w, "Risk Metrics")
	fmt.Fprintf(w, "Net P/L:       %s\n", num(m.NetPnL))
	fmt.Fprintf(w, "K-Ratio:       %s\n", num(m.KRatio))
	fmt.Fprintf(w, "Slope:         %s\n", num(m.Slope))
	fmt.Fprintf(w, "Gain/Pain:     %s\n", num(m.GPR))
	fmt.Fprintf(w, "Max Drawdown:  %s%% over %d days\n", num(m.MaxDrawdown*100), m.MaxDrawdownDuration)
	fmt.Fprintf(w, "Expectancy:    %s\n", num(m.Expectancy))
	fmt.Fprintf(w, "Avg Hold:      %s min\n", num(m.AvgHoldMinutes))

	d, t := m.Concentration.Top(m.ConcentrationK)
	fmt.Fprintf(w, "HHI Daily %-2d:  %s\n", m.ConcentrationK, num(d))
	fmt.Fprintf(w, "HHI Trade %-2d:  %s\n", m.ConcentrationK, num(t))

	section(w, "Win Rates")
	fmt.Fprintf(w, "Daily:         %s%%\n", num(m.WinRates.Daily*100))
	fmt.Fprintf(w, "Weekly:        %s%%\n", num(m.WinRates.Weekly*100))
	fmt.Fprintf(w, "Monthly:       %s%%\n", num(m.WinRates.Monthly*100))
	fmt.Fprintf(w, "Yearly:        %s%%\n", num(m.WinRates.Yearly*100))

	for _, s := range []struct {
		name string
		ac   *metrics.Autocorrelation
	}{
		{"Trades", m.TradeAC},
		{"Daily", m.DailyAC},
		{"Monthly", m.MonthlyAC},
	} {
		if s.ac == nil {
			continue
		}
		pass := "no"
		if s.ac.Pass {
			pass = "yes"
		}
		fmt.Fprintf(w, "ADF %-8s   stat %s  p %.4f  lag %d  stationary %s\n",
			s.name+":", num(s.ac.ADFStat), s.ac.PValue, s.ac.UsedLag, pass)
	}
}

// PrintTable writes one Monte Carlo percentile table.
func PrintTable(w io.Writer, series string, yt montecarlo.YearTable) {
	year := "all years"
	if yt.Year != 0 {
		year = fmt.Sprint(yt.Year)
	}
	t := yt.Table
	section(w, fmt.Sprintf("Monte Carlo: %s, %s (%d iterations)", series, year, t.Iterations))
	fmt.Fprintf(w, "%-6s %10s %8s %12s %12s %10s\n", "Pct", "MDD %", "MDD Per", "End Equity", "CAR/MDD", "CAR")
	for _, label := range journal.PercentileLabels {
		o := t.At(label)
		fmt.Fprintf(w, "%-6s %10s %8d %12s %12s %10s\n",
			label+"%", num(o.MDD*100), o.MDDDuration, num(o.EndEquity), num(o.CARMDD), num(o.CAR))
	}
	fmt.Fprintf(w, "Win rate: %s%% ignoring flat, %s%% counting flat\n",
		num(t.WinRateIgnoreZero*100), num(t.WinRateConsiderZero*100))
}
