// Package metrics computes the scalar risk metrics of a PnL series. Every
// function is pure: the same input gives bit-identical output.
package metrics

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInputShape is returned for empty series, series too short for
// the metric, or series containing NaN or Inf.
var ErrInvalidInputShape = errors.New("invalid input shape")

func checkSeries(name string, xs []float64, min int) error {
	if len(xs) < min {
		return fmt.Errorf("%w: %s needs at least %d values, got %d", ErrInvalidInputShape, name, min, len(xs))
	}
	for i, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("%w: %s value %d is %v", ErrInvalidInputShape, name, i, x)
		}
	}
	return nil
}

// EquityCurve is the running sum of pnl.
func EquityCurve(pnl []float64) []float64 {
	out := make([]float64, len(pnl))
	var sum float64
	for i, v := range pnl {
		sum += v
		out[i] = sum
	}
	return out
}
