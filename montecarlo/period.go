package montecarlo

import (
	"fmt"
	"strings"
)

// Period is the spacing of the resampled PnL values. It sets the
// annualisation divisor used for CAR.
type Period int

const (
	Daily Period = iota
	Weekly
	Monthly
	Quarterly
	Trades
)

var periodNames = [...]string{"daily", "weekly", "monthly", "quarterly", "trades"}

// periodsPerYear are the divisors of the legacy workbook. Daily is 356, not
// 365 or 252; trades assumes 1000 trades a year.
var periodsPerYear = [...]float64{356, 52, 12, 4, 1000}

func (p Period) String() string {
	if p < 0 || int(p) >= len(periodNames) {
		return fmt.Sprintf("Period(%d)", int(p))
	}
	return periodNames[p]
}

// PeriodsPerYear is the number of values of this period in one year.
func (p Period) PeriodsPerYear() float64 {
	if p < 0 || int(p) >= len(periodsPerYear) {
		return periodsPerYear[Daily]
	}
	return periodsPerYear[p]
}

// ParsePeriod accepts the config spelling of a period, case-insensitively.
func ParsePeriod(s string) (Period, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range periodNames {
		if s == name {
			return Period(i), nil
		}
	}
	return 0, fmt.Errorf("unknown period %q", s)
}
