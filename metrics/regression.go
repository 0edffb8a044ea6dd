package metrics

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// sseTolerance treats a residual sum of squares this small relative to the
// total sum of squares as an exact fit.
const sseTolerance = 1e-12

func index(n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = float64(i + 1)
	}
	return x
}

// Slope is the OLS slope of curve against the index 1..n.
func Slope(curve []float64) (float64, error) {
	if err := checkSeries("slope", curve, 2); err != nil {
		return 0, err
	}
	_, beta := stat.LinearRegression(index(len(curve)), curve, nil, false)
	return beta, nil
}

// KRatio is the Zephyr K-ratio: the OLS slope of curve divided by the
// standard error of that slope.
//
// A perfect linear fit has zero standard error. KRatio then returns +Inf
// for a rising curve, -Inf for a falling one and 0 for a flat one.
func KRatio(curve []float64) (float64, error) {
	if err := checkSeries("k-ratio", curve, 3); err != nil {
		return 0, err
	}
	n := len(curve)
	x := index(n)
	xbar := stat.Mean(x, nil)
	ybar := stat.Mean(curve, nil)

	var sxx, syy, sxy float64
	for i := range curve {
		dx, dy := x[i]-xbar, curve[i]-ybar
		sxx += dx * dx
		syy += dy * dy
		sxy += dx * dy
	}
	slope := sxy / sxx
	sse := syy - sxy*sxy/sxx

	if sse <= sseTolerance*syy || sse <= 0 {
		switch {
		case slope > 0:
			return math.Inf(1), nil
		case slope < 0:
			return math.Inf(-1), nil
		}
		return 0, nil
	}

	se := math.Sqrt(sse/float64(n-2)) / math.Sqrt(sxx)
	return slope / se, nil
}
