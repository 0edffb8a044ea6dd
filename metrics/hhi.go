package metrics

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
)

// hhiMinLen is the series length HHI needs; shorter series score 0.
const hhiMinLen = 11

// HHI is Herfindahl gated on series length: series of 10 or fewer values
// score 0.
func HHI(pnl []float64, total float64, k int) float64 {
	if len(pnl) < hhiMinLen {
		return 0
	}
	return Herfindahl(pnl, total, k)
}

// Herfindahl is a Herfindahl-Hirschman concentration index over the k
// largest values of pnl, each expressed as a percentage of total.
//
// total is the caller's base and may be negative or near zero, in which case
// the percentages are not shares in any useful sense. A zero total gives
// +Inf.
func Herfindahl(pnl []float64, total float64, k int) float64 {
	if total == 0 {
		return math.Inf(1)
	}
	sorted := make([]float64, len(pnl))
	copy(sorted, pnl)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	if k > len(sorted) {
		k = len(sorted)
	}
	var sum float64
	for _, v := range sorted[:k] {
		pct := v / total * 100
		sum += pct * pct
	}
	return sum
}

// Concentration holds the HHI of the top 5 and top 10 days and trades.
type Concentration struct {
	Daily5, Daily10 float64
	Trade5, Trade10 float64
}

// Top returns the daily and trade index for k (5 or 10).
func (c Concentration) Top(k int) (daily, trade float64) {
	if k == 5 {
		return c.Daily5, c.Trade5
	}
	return c.Daily10, c.Trade10
}

// PnLConcentration scores daily and trade PnL concentration. Both are
// normalised by the total daily PnL.
func PnLConcentration(daily, trades []float64) (Concentration, error) {
	if err := checkSeries("hhi daily", daily, 1); err != nil {
		return Concentration{}, err
	}
	if err := checkSeries("hhi trades", trades, 0); err != nil {
		return Concentration{}, err
	}
	total, _ := stats.Sum(daily)
	return Concentration{
		Daily5:  HHI(daily, total, 5),
		Daily10: HHI(daily, total, 10),
		Trade5:  HHI(trades, total, 5),
		Trade10: HHI(trades, total, 10),
	}, nil
}
