package journal

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"text/template"
	"time"
)

var runOrgFuncs = template.FuncMap{
	"mul100": func(x float64) float64 { return x * 100.0 },
	"num": func(x float64) string {
		switch {
		case math.IsNaN(x):
			return "n/a"
		case math.IsInf(x, 1):
			return "+inf"
		case math.IsInf(x, -1):
			return "-inf"
		}
		return fmt.Sprintf("%.2f", x)
	},
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

var runOrg = template.Must(template.New("run").Funcs(runOrgFuncs).Parse(RunOrgTemplate))

// FormatOrg renders the run as an Org-mode heading.
func (r *Run) FormatOrg() (string, error) {
	buf := new(bytes.Buffer)
	if err := runOrg.Execute(buf, r); err != nil {
		return "", fmt.Errorf("render org report: %w", err)
	}
	return buf.String(), nil
}

// WriteOrg writes the Org report to r.OrgPath.
func (r *Run) WriteOrg() error {
	if r.OrgPath == "" {
		return fmt.Errorf("run %s: no org path", r.RunID)
	}
	s, err := r.FormatOrg()
	if err != nil {
		return err
	}
	return os.WriteFile(r.OrgPath, []byte(s), 0644)
}

const RunOrgTemplate = `
* PNL RISK: {{if .TradesPath}}{{.TradesPath}}{{else}}(trades?){{end}}
:PROPERTIES:
:RUN_ID:      {{if .RunID}}{{.RunID}}{{else}}(run-id?){{end}}
:TRADES_CSV:  {{.TradesPath}}
:PRICES_CSV:  {{.PricesPath}}
:START_DATE:  {{.Start.Format "2006-01-02"}}
:END_DATE:    {{.End.Format "2006-01-02"}}
:TRADES:      {{.Trades}}
:SKIPPED:     {{.Skipped}}
:DAYS:        {{.Days}}
:NET_PL:      {{num .NetPL}}
:WIN_RATE:    {{num (mul100 .WinRate)}}
:MAX_DD_PCT:  {{num (mul100 .MaxDDPct)}}
:K_RATIO:     {{num .KRatio}}
:GPR:         {{num .GPR}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Performance Summary
- Net P/L:          *{{num .NetPL}}*
- Daily Win Rate:   *{{num (mul100 .WinRate)}}%*
- Max Drawdown:     *{{num (mul100 .MaxDDPct)}}%* over {{.MaxDDDays}} days
- K-Ratio:          *{{num .KRatio}}*
- Gain/Pain:        *{{num .GPR}}*
- Expectancy:       *{{num .Expectancy}}*

** Concentration
| Series | HHI |
|--------+-----|
| Daily  | {{num .HHIDaily}} |
| Trades | {{num .HHITrade}} |

** Day Distribution
| Outcome | Count |
|---------+-------|
| Wins    | {{.Wins}} |
| Losses  | {{.Losses}} |
| Total   | {{.Days}} |

{{- if .MCIteration }}

** Monte Carlo ({{.MCIteration}} iterations)
- 90% MDD:          *{{num (mul100 .MC90MDDPct)}}%*
- 90% CAR/MDD:      *{{num .MC90CARMDD}}*
- 50% End Equity:   *{{num .MC50EndEq}}*
{{- end }}

{{- if .Config }}

** Configuration
#+begin_src yaml
{{printf "%s" .Config}}#+end_src
{{- end }}

{{- if .Notes }}

** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}
`
