package market

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSessions(t *testing.T) *Sessions {
	t.Helper()

	ps, err := NewPriceSeries([]DailyClose{
		{day(2024, 1, 4), 100}, // Thu
		{day(2024, 1, 5), 101}, // Fri
		{day(2024, 1, 8), 102}, // Mon
	})
	require.NoError(t, err)
	return NewSessions(ps, DefaultCutoff)
}

func TestSessionBounds(t *testing.T) {
	t.Parallel()

	s := testSessions(t)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, time.Date(2024, 1, 3, 16, 30, 1, 0, time.UTC), s.DayStart(0))
	assert.Equal(t, time.Date(2024, 1, 4, 16, 30, 1, 0, time.UTC), s.DayEnd(0))
	assert.Equal(t, s.DayEnd(0), s.DayStart(1))
	assert.Equal(t, time.Date(2024, 1, 5, 16, 30, 1, 0, time.UTC), s.DayStart(2), "weekend belongs to Monday")
}

func TestLocate(t *testing.T) {
	t.Parallel()

	s := testSessions(t)
	tests := []struct {
		at   time.Time
		want int
	}{
		{time.Date(2024, 1, 4, 9, 30, 0, 0, time.UTC), 0},
		{time.Date(2024, 1, 4, 16, 30, 1, 0, time.UTC), 0},
		{time.Date(2024, 1, 4, 16, 30, 2, 0, time.UTC), 1},
		{time.Date(2024, 1, 6, 12, 0, 0, 0, time.UTC), 2},
		{time.Date(2024, 1, 8, 16, 30, 1, 0, time.UTC), 2},
	}
	for _, tt := range tests {
		got, err := s.Locate(tt.at)
		require.NoError(t, err, tt.at)
		assert.Equal(t, tt.want, got, tt.at)
	}

	_, err := s.Locate(time.Date(2024, 1, 3, 16, 30, 1, 0, time.UTC))
	assert.True(t, errors.Is(err, ErrOutsideSeries))
	_, err = s.Locate(time.Date(2024, 1, 8, 16, 30, 2, 0, time.UTC))
	assert.True(t, errors.Is(err, ErrOutsideSeries))
}

func TestResolveRejectsWeekdayWithoutClose(t *testing.T) {
	t.Parallel()

	ps, err := NewPriceSeries([]DailyClose{
		{day(2024, 1, 2), 100}, // Tue
		{day(2024, 1, 3), 101}, // Wed
		{day(2024, 1, 5), 103}, // Fri, Thu missing
		{day(2024, 1, 8), 104}, // Mon
	})
	require.NoError(t, err)
	s := NewSessions(ps, DefaultCutoff)

	tests := []struct {
		name string
		at   time.Time
		want int
		err  error
	}{
		{"priced weekday", time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC), 1, nil},
		{"after cutoff before gap", time.Date(2024, 1, 3, 17, 0, 0, 0, time.UTC), 2, nil},
		{"weekend", time.Date(2024, 1, 6, 12, 0, 0, 0, time.UTC), 3, nil},
		{"missing weekday", time.Date(2024, 1, 4, 10, 0, 0, 0, time.UTC), 0, ErrNoClose},
		{"missing weekday after cutoff", time.Date(2024, 1, 4, 18, 0, 0, 0, time.UTC), 0, ErrNoClose},
		{"outside series", time.Date(2024, 1, 9, 10, 0, 0, 0, time.UTC), 0, ErrOutsideSeries},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Resolve(tt.at)
			if tt.err != nil {
				assert.True(t, errors.Is(err, tt.err), err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	i, err := s.Locate(time.Date(2024, 1, 4, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 2, i, "Locate still folds the gap into Friday")
}

func TestAtCutoffKeepsWallClockAcrossDST(t *testing.T) {
	t.Parallel()

	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	got := atCutoff(time.Date(2024, 3, 10, 0, 0, 0, 0, ny), DefaultCutoff)
	assert.Equal(t, 16, got.Hour())
	assert.Equal(t, 30, got.Minute())
	assert.Equal(t, 1, got.Second())
}
