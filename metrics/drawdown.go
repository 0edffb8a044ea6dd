package metrics

// MaxDrawdown returns the largest fractional decline from a running peak
// and the longest run of periods without a new peak. The peak starts at
// curve[0]; a zero peak is replaced by 1 so the fraction stays defined.
func MaxDrawdown(curve []float64) (mdd float64, duration int, err error) {
	if err := checkSeries("max drawdown", curve, 1); err != nil {
		return 0, 0, err
	}
	mdd, duration = maxDrawdown(curve)
	return mdd, duration, nil
}

// maxDrawdown is MaxDrawdown without input checks, for hot loops.
func maxDrawdown(curve []float64) (float64, int) {
	var mdd float64
	var duration, run int
	peak := curve[0]
	for _, x := range curve {
		if x > peak {
			peak = x
			run = 0
		} else {
			run++
		}
		if peak == 0 {
			peak = 1
		}
		if dd := (peak - x) / peak; dd > mdd {
			mdd = dd
		}
		if run > duration {
			duration = run
		}
	}
	return mdd, duration
}

// MaxDrawdownPath skips input validation; the resampling loop calls it on
// paths built from an already checked series.
func MaxDrawdownPath(curve []float64) (float64, int) {
	if len(curve) == 0 {
		return 0, 0
	}
	return maxDrawdown(curve)
}
