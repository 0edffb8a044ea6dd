package metrics

import (
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/rustyeddy/pnlrisk/journal"
)

// Granularity selects the calendar bucket for PeriodPnL.
type Granularity int

const (
	Weekly Granularity = iota + 1 // ISO week
	Monthly
	Yearly
	Quarterly
)

// PeriodPnL is the PnL summed over one calendar bucket. Period is the ISO
// week, month or quarter number; it is 0 for yearly buckets.
type PeriodPnL struct {
	Year   int
	Period int
	PnL    float64
}

// Start returns the first day of the bucket in UTC.
func (p PeriodPnL) Start(g Granularity) time.Time {
	switch g {
	case Weekly:
		// ISO week 1 contains January 4th.
		jan4 := time.Date(p.Year, 1, 4, 0, 0, 0, 0, time.UTC)
		offset := (int(jan4.Weekday()) + 6) % 7
		return jan4.AddDate(0, 0, -offset+7*(p.Period-1))
	case Monthly:
		return time.Date(p.Year, time.Month(p.Period), 1, 0, 0, 0, 0, time.UTC)
	case Quarterly:
		return time.Date(p.Year, time.Month(3*p.Period-2), 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(p.Year, 1, 1, 0, 0, 0, 0, time.UTC)
}

type bucketKey struct{ year, period int }

func bucketOf(d time.Time, g Granularity) bucketKey {
	switch g {
	case Weekly:
		y, w := d.ISOWeek()
		return bucketKey{y, w}
	case Monthly:
		return bucketKey{d.Year(), int(d.Month())}
	case Quarterly:
		return bucketKey{d.Year(), (int(d.Month())-1)/3 + 1}
	}
	return bucketKey{d.Year(), 0}
}

// GroupPnL sums daily PnL into calendar buckets, ordered by time.
func GroupPnL(daily []journal.DailyPnL, g Granularity) []PeriodPnL {
	sums := map[bucketKey]float64{}
	var keys []bucketKey
	for _, d := range daily {
		k := bucketOf(d.Date, g)
		if _, ok := sums[k]; !ok {
			keys = append(keys, k)
		}
		sums[k] += d.PnL
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].period < keys[j].period
	})

	out := make([]PeriodPnL, len(keys))
	for i, k := range keys {
		out[i] = PeriodPnL{Year: k.year, Period: k.period, PnL: sums[k]}
	}
	return out
}

// MonthlyPnL sums daily PnL by calendar (year, month).
func MonthlyPnL(daily []journal.DailyPnL) []PeriodPnL {
	return GroupPnL(daily, Monthly)
}

func periodValues(ps []PeriodPnL) []float64 {
	out := make([]float64, len(ps))
	for i, p := range ps {
		out[i] = p.PnL
	}
	return out
}

// GPRNoLoss is returned by GPR when no month lost money.
const GPRNoLoss = 99999

// GPR is the gain-to-pain ratio: total monthly PnL over the absolute sum of
// losing months.
func GPR(daily []journal.DailyPnL) (float64, error) {
	if err := checkSeries("gpr", journal.Values(daily), 1); err != nil {
		return 0, err
	}
	monthly := periodValues(MonthlyPnL(daily))

	total, _ := stats.Sum(monthly)
	var loss float64
	for _, m := range monthly {
		if m < 0 {
			loss -= m
		}
	}
	if loss == 0 {
		return GPRNoLoss, nil
	}
	return total / loss, nil
}

// WinRates are the fraction of winning days, ISO weeks, months and years.
type WinRates struct {
	Daily   float64
	Weekly  float64
	Monthly float64
	Yearly  float64
}

// CalendarWinRates buckets daily PnL by calendar period and returns the
// fraction of buckets with positive PnL. With ignoreZero, flat buckets are
// left out of the denominator. A series with no counted buckets has rate 0.
func CalendarWinRates(daily []journal.DailyPnL, ignoreZero bool) (WinRates, error) {
	values := journal.Values(daily)
	if err := checkSeries("win rate", values, 1); err != nil {
		return WinRates{}, err
	}
	return WinRates{
		Daily:   winRate(values, ignoreZero),
		Weekly:  winRate(periodValues(GroupPnL(daily, Weekly)), ignoreZero),
		Monthly: winRate(periodValues(GroupPnL(daily, Monthly)), ignoreZero),
		Yearly:  winRate(periodValues(GroupPnL(daily, Yearly)), ignoreZero),
	}, nil
}

func winRate(xs []float64, ignoreZero bool) float64 {
	var wins, n int
	for _, x := range xs {
		if x > 0 {
			wins++
		}
		if x != 0 || !ignoreZero {
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float64(wins) / float64(n)
}

// AvgHoldMinutes is the mean time between open and close over trades.
func AvgHoldMinutes(trades []journal.TradeRecord) (float64, error) {
	if len(trades) == 0 {
		return 0, ErrInvalidInputShape
	}
	mins := make([]float64, len(trades))
	for i, t := range trades {
		mins[i] = t.CloseTime.Sub(t.OpenTime).Minutes()
	}
	return stats.Mean(mins)
}
