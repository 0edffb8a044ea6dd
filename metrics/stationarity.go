package metrics

import (
	"errors"
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultPValueMax is the ADF p-value below which a series is treated as
// stationary.
const DefaultPValueMax = 0.05

// Autocorrelation holds the serial correlation diagnostics of one series.
// ACF and PACF are indexed by lag, with lag 0 always 1.
type Autocorrelation struct {
	ACF     []float64
	PACF    []float64
	ADFStat float64
	PValue  float64
	UsedLag int
	Pass    bool // PValue < the threshold: no unit root
}

// Autocorrelate runs an augmented Dickey-Fuller test (constant term, lag
// order chosen by AIC up to lags) and computes the ACF and PACF of the
// standardised series up to lags. Both lag limits shrink to what the
// series length supports.
func Autocorrelate(series []float64, lags int, pMax float64) (*Autocorrelation, error) {
	if err := checkSeries("autocorrelation", series, 4); err != nil {
		return nil, err
	}
	if lags < 1 {
		return nil, fmt.Errorf("%w: lags must be positive", ErrInvalidInputShape)
	}
	if pMax <= 0 {
		pMax = DefaultPValueMax
	}

	mean, _ := stats.Mean(series)
	sd, _ := stats.StandardDeviationSample(series)
	if sd == 0 {
		return nil, fmt.Errorf("%w: constant series", ErrInvalidInputShape)
	}

	adf, usedLag, err := ADF(series, lags)
	if err != nil {
		return nil, err
	}
	p := MacKinnonP(adf)

	z := make([]float64, len(series))
	for i, v := range series {
		z[i] = (v - mean) / sd
	}
	nlags := min(lags, len(series)/2-1)
	pacf, err := PACF(z, nlags)
	if err != nil {
		return nil, err
	}

	return &Autocorrelation{
		ACF:     ACF(z, nlags),
		PACF:    pacf,
		ADFStat: adf,
		PValue:  p,
		UsedLag: usedLag,
		Pass:    p < pMax,
	}, nil
}

// ACF returns the sample autocorrelation for lags 0..nlags, using the
// biased (divide by n) autocovariance.
func ACF(x []float64, nlags int) []float64 {
	n := len(x)
	var mean float64
	for _, v := range x {
		mean += v
	}
	mean /= float64(n)

	acov := make([]float64, nlags+1)
	for k := 0; k <= nlags; k++ {
		var s float64
		for t := 0; t+k < n; t++ {
			s += (x[t] - mean) * (x[t+k] - mean)
		}
		acov[k] = s / float64(n)
	}
	out := make([]float64, nlags+1)
	for k := range out {
		out[k] = acov[k] / acov[0]
	}
	return out
}

// PACF returns the partial autocorrelation for lags 0..nlags by solving the
// Yule-Walker equations of each order on the adjusted (divide by n-k)
// autocovariance.
func PACF(x []float64, nlags int) ([]float64, error) {
	n := len(x)
	var mean float64
	for _, v := range x {
		mean += v
	}
	mean /= float64(n)

	r := make([]float64, nlags+1)
	for k := 0; k <= nlags; k++ {
		var s float64
		for t := 0; t+k < n; t++ {
			s += (x[t] - mean) * (x[t+k] - mean)
		}
		if k == 0 {
			r[k] = s / float64(n)
		} else {
			r[k] = s / float64(n-k)
		}
	}

	out := make([]float64, nlags+1)
	out[0] = 1
	for order := 1; order <= nlags; order++ {
		R := mat.NewDense(order, order, nil)
		for i := 0; i < order; i++ {
			for j := 0; j < order; j++ {
				d := i - j
				if d < 0 {
					d = -d
				}
				R.Set(i, j, r[d])
			}
		}
		b := mat.NewVecDense(order, append([]float64(nil), r[1:order+1]...))
		var phi mat.VecDense
		if err := phi.SolveVec(R, b); err != nil && !isCondition(err) {
			return nil, fmt.Errorf("%w: yule-walker order %d: %v", ErrInvalidInputShape, order, err)
		}
		out[order] = phi.AtVec(order - 1)
	}
	return out, nil
}

// maxCondition bounds the condition number accepted from gonum before a
// system is treated as singular.
const maxCondition = 1e15

// isCondition reports whether err is only a gonum ill-conditioning warning
// with a usable result.
func isCondition(err error) bool {
	var c mat.Condition
	if !errors.As(err, &c) {
		return false
	}
	return !math.IsInf(float64(c), 0) && float64(c) < maxCondition
}

// ADF returns the augmented Dickey-Fuller t-statistic of x with a constant
// term, choosing the number of lagged differences in 0..maxlag by minimum
// AIC over a common sample, then refitting on the full sample.
func ADF(x []float64, maxlag int) (stat float64, usedLag int, err error) {
	n := len(x)
	if limit := n/2 - 2; maxlag > limit {
		maxlag = limit
	}
	if maxlag < 0 {
		return 0, 0, fmt.Errorf("%w: adf needs at least 4 values", ErrInvalidInputShape)
	}

	dx := make([]float64, n-1)
	for i := range dx {
		dx[i] = x[i+1] - x[i]
	}

	// Lag selection: every candidate is fitted on rows maxlag..n-2.
	best := math.Inf(1)
	usedLag = -1
	for k := 0; k <= maxlag; k++ {
		y, X := adfDesign(x, dx, maxlag, k)
		fit, err := ols(y, X)
		if err != nil {
			continue
		}
		if aic := fit.aic(); aic < best || usedLag < 0 {
			best, usedLag = aic, k
		}
	}
	if usedLag < 0 {
		return 0, 0, fmt.Errorf("%w: adf regression is singular", ErrInvalidInputShape)
	}

	y, X := adfDesign(x, dx, usedLag, usedLag)
	fit, err := ols(y, X)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: adf regression: %v", ErrInvalidInputShape, err)
	}
	return fit.tvalue(1), usedLag, nil
}

// adfDesign builds the regression of dx[t] on a constant, x[t] and
// dx[t-1..t-k] for t = start..len(dx)-1.
func adfDesign(x, dx []float64, start, k int) ([]float64, *mat.Dense) {
	nobs := len(dx) - start
	cols := 2 + k
	y := make([]float64, nobs)
	X := mat.NewDense(nobs, cols, nil)
	for r := 0; r < nobs; r++ {
		t := start + r
		y[r] = dx[t]
		X.Set(r, 0, 1)
		X.Set(r, 1, x[t])
		for j := 1; j <= k; j++ {
			X.Set(r, 1+j, dx[t-j])
		}
	}
	return y, X
}

type olsFit struct {
	beta   *mat.VecDense
	xtxInv *mat.Dense
	ssr    float64
	nobs   int
	k      int
}

func ols(y []float64, X *mat.Dense) (*olsFit, error) {
	nobs, k := X.Dims()
	if nobs <= k {
		return nil, fmt.Errorf("%d observations for %d parameters", nobs, k)
	}
	var xtx mat.Dense
	xtx.Mul(X.T(), X)
	var inv mat.Dense
	if err := inv.Inverse(&xtx); err != nil && !isCondition(err) {
		return nil, err
	}

	yv := mat.NewVecDense(nobs, y)
	var xty mat.VecDense
	xty.MulVec(X.T(), yv)
	var beta mat.VecDense
	beta.MulVec(&inv, &xty)

	var fitted mat.VecDense
	fitted.MulVec(X, &beta)
	var ssr float64
	for i := 0; i < nobs; i++ {
		e := y[i] - fitted.AtVec(i)
		ssr += e * e
	}
	return &olsFit{beta: &beta, xtxInv: &inv, ssr: ssr, nobs: nobs, k: k}, nil
}

func (f *olsFit) aic() float64 {
	n := float64(f.nobs)
	llf := -n / 2 * (math.Log(2*math.Pi) + math.Log(f.ssr/n) + 1)
	return -2*llf + 2*float64(f.k)
}

func (f *olsFit) tvalue(j int) float64 {
	s2 := f.ssr / float64(f.nobs-f.k)
	se := math.Sqrt(s2 * f.xtxInv.At(j, j))
	return f.beta.AtVec(j) / se
}

// MacKinnon (1994, 2010) response surface for the ADF test with a constant
// and one variable.
const (
	tauMax  = 2.74
	tauMin  = -18.83
	tauStar = -1.61
)

var (
	tauSmallP = []float64{2.1659, 1.4412, 0.038269}
	tauLargeP = []float64{1.7339, 0.93202, -0.12745, -0.010368}
)

// MacKinnonP is the approximate p-value of an ADF statistic.
func MacKinnonP(stat float64) float64 {
	switch {
	case math.IsNaN(stat):
		return math.NaN()
	case stat > tauMax:
		return 1
	case stat < tauMin:
		return 0
	}
	coef := tauLargeP
	if stat <= tauStar {
		coef = tauSmallP
	}
	// Horner, highest power last in coef.
	var z float64
	for i := len(coef) - 1; i >= 0; i-- {
		z = z*stat + coef[i]
	}
	return distuv.UnitNormal.CDF(z)
}
