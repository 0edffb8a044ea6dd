package metrics

import (
	"fmt"
	"math"
)

// Expectancy is the expected PnL per unit risked:
//
//	(avgWin*winRate + avgLoss*lossRate) / |avgLoss|
//
// Zero values count as neither wins nor losses. With no losses the result
// is +Inf; a series with neither wins nor losses is ErrInvalidInputShape.
func Expectancy(pnl []float64) (float64, error) {
	if err := checkSeries("expectancy", pnl, 1); err != nil {
		return 0, err
	}

	var winSum, lossSum float64
	var wins, losses int
	for _, v := range pnl {
		switch {
		case v > 0:
			winSum += v
			wins++
		case v < 0:
			lossSum += v
			losses++
		}
	}
	if wins+losses == 0 {
		return 0, fmt.Errorf("%w: expectancy of an all-zero series", ErrInvalidInputShape)
	}
	if losses == 0 {
		return math.Inf(1), nil
	}

	n := float64(wins + losses)
	avgLoss := lossSum / float64(losses)
	var winTerm float64
	if wins > 0 {
		winTerm = winSum / float64(wins) * float64(wins) / n
	}
	return (winTerm + avgLoss*float64(losses)/n) / math.Abs(avgLoss), nil
}
