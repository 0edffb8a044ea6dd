package metrics

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHerfindahlMixed(t *testing.T) {
	t.Parallel()

	pnl := []float64{10, 20, 30, 40, 100}
	got := Herfindahl(pnl, 200, len(pnl))
	// 50^2 + 20^2 + 15^2 + 10^2 + 5^2
	assert.InDelta(t, 3250.0, got, 1e-9)
	assert.LessOrEqual(t, got, 10000.0)

	assert.InDelta(t, 10000.0, Herfindahl([]float64{0, 0, 100}, 100, 3), 1e-9)
	assert.True(t, math.IsInf(Herfindahl(pnl, 0, 5), 1))
}

func TestHHIShortSeriesScoresZero(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, HHI([]float64{10, 20, 30, 40, 100}, 200, 5))
}

func TestHHITopK(t *testing.T) {
	t.Parallel()

	pnl := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 40}
	total := 50.0
	assert.InDelta(t, 80*80+2*2, HHI(pnl, total, 2), 1e-9)
	assert.InDelta(t, 80*80+10*2*2, HHI(pnl, total, 100), 1e-9)
	assert.Equal(t, []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 40}, pnl, "input not reordered")
}

func TestPnLConcentrationUsesDailyTotal(t *testing.T) {
	t.Parallel()

	daily := []float64{5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 50} // total 100
	trades := []float64{20, 10, 10, 10, 10, 10, 10, 10, 10, 10, -10}

	c, err := PnLConcentration(daily, trades)
	require.NoError(t, err)
	assert.InDelta(t, 2500+4*25, c.Daily5, 1e-9)
	assert.InDelta(t, 2500+9*25, c.Daily10, 1e-9)
	assert.InDelta(t, 400+4*100, c.Trade5, 1e-9)
	assert.InDelta(t, 400+9*100, c.Trade10, 1e-9)

	d5, t5 := c.Top(5)
	assert.Equal(t, c.Daily5, d5)
	assert.Equal(t, c.Trade5, t5)
	d10, t10 := c.Top(10)
	assert.Equal(t, c.Daily10, d10)
	assert.Equal(t, c.Trade10, t10)

	_, err = PnLConcentration(nil, trades)
	assert.True(t, errors.Is(err, ErrInvalidInputShape))
}
