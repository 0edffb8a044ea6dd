package metrics

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpectancy(t *testing.T) {
	t.Parallel()

	// wins 10, 20 (avg 15); losses -5, -5 (avg -5); zero ignored.
	got, err := Expectancy([]float64{10, -5, 0, 20, -5})
	require.NoError(t, err)
	assert.InDelta(t, (15*0.5+-5*0.5)/5, got, 1e-12)

	got, err = Expectancy([]float64{-2, -4})
	require.NoError(t, err)
	assert.InDelta(t, -1.0, got, 1e-12)

	got, err = Expectancy([]float64{1, 2})
	require.NoError(t, err)
	assert.True(t, math.IsInf(got, 1))

	_, err = Expectancy([]float64{0, 0})
	assert.True(t, errors.Is(err, ErrInvalidInputShape))

	_, err = Expectancy(nil)
	assert.True(t, errors.Is(err, ErrInvalidInputShape))
}
