package market

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewPriceSeriesSortsAndIndexes(t *testing.T) {
	t.Parallel()

	ps, err := NewPriceSeries([]DailyClose{
		{day(2024, 1, 3), 102},
		{time.Date(2024, 1, 2, 17, 0, 0, 0, time.UTC), 101},
		{day(2024, 1, 4), 103},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, ps.Len())
	assert.Equal(t, day(2024, 1, 2), ps.Date(0), "truncated to midnight")
	assert.Equal(t, 103.0, ps.Last().Close)
	assert.Equal(t, 101.0, ps.First().Close)

	i, ok := ps.IndexOf(time.Date(2024, 1, 3, 9, 30, 0, 0, time.UTC))
	assert.True(t, ok)
	assert.Equal(t, 1, i)

	_, ok = ps.IndexOf(day(2024, 1, 5))
	assert.False(t, ok)

	rows := ps.Rows()
	rows[0].Close = 0
	assert.Equal(t, 101.0, ps.Close(0), "Rows returns a copy")
}

func TestNewPriceSeriesRejects(t *testing.T) {
	t.Parallel()

	_, err := NewPriceSeries(nil)
	assert.True(t, errors.Is(err, ErrEmptySeries))

	_, err = NewPriceSeries([]DailyClose{{day(2024, 1, 2), 1}, {day(2024, 1, 2), 2}})
	assert.True(t, errors.Is(err, ErrDuplicateDate))

	_, err = NewPriceSeries([]DailyClose{{day(2024, 1, 2), math.NaN()}})
	assert.True(t, errors.Is(err, ErrInvalidPrice))
}

func TestLoadPrices(t *testing.T) {
	t.Parallel()

	in := "Dates,PX_LAST\n03/01/2019,\"2,510.25\"\n02/01/2019,2500\n2019-01-04,2520.5\n"
	ps, err := LoadPrices(strings.NewReader(in), time.UTC)
	require.NoError(t, err)

	require.Equal(t, 3, ps.Len())
	assert.Equal(t, day(2019, 1, 2), ps.Date(0))
	assert.Equal(t, 2500.0, ps.Close(0))
	assert.Equal(t, 2510.25, ps.Close(1))
	assert.Equal(t, day(2019, 1, 4), ps.Date(2))
}

func TestLoadPricesErrors(t *testing.T) {
	t.Parallel()

	_, err := LoadPrices(strings.NewReader(""), nil)
	assert.True(t, errors.Is(err, ErrEmptySeries))

	_, err = LoadPrices(strings.NewReader("Dates,PX_LAST\nJan 2,1\n"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")

	_, err = LoadPrices(strings.NewReader("Dates,PX_LAST\n02/01/2019,n/a\n"), nil)
	assert.True(t, errors.Is(err, ErrInvalidPrice))

	_, err = LoadPrices(strings.NewReader("Dates,PX_LAST\n02/01/2019,1\n2019-01-02,2\n"), nil)
	assert.True(t, errors.Is(err, ErrDuplicateDate))
}

func TestLoadPricesFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "prices.csv")
	require.NoError(t, os.WriteFile(path, []byte("Dates,PX_LAST\n2019-01-02,1\n"), 0644))

	ps, err := LoadPricesFile(path, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 1, ps.Len())
}

func TestGaps(t *testing.T) {
	t.Parallel()

	// Thu 2024-01-04, Fri 05, Mon 08, Wed 10, Mon 22
	ps, err := NewPriceSeries([]DailyClose{
		{day(2024, 1, 4), 1},
		{day(2024, 1, 5), 1},
		{day(2024, 1, 8), 1},
		{day(2024, 1, 10), 1},
		{day(2024, 1, 22), 1},
	})
	require.NoError(t, err)

	gaps := ps.Gaps()
	require.Len(t, gaps, 3)
	assert.Equal(t, Gap{After: day(2024, 1, 5), Missing: 2, Weekdays: 0, Kind: "weekend"}, gaps[0])
	assert.Equal(t, "holiday", gaps[1].Kind)
	assert.Equal(t, 11, gaps[2].Missing)
	assert.Equal(t, 7, gaps[2].Weekdays)
	assert.Equal(t, "suspicious", gaps[2].Kind)

	s := ps.Stats()
	assert.Equal(t, 19, s.CalendarDays)
	assert.Equal(t, 5, s.PresentDays)
	assert.Equal(t, 3, s.GapCount)
	assert.Equal(t, 1, s.WeekendGaps)
	assert.Equal(t, 1, s.HolidayGaps)
	assert.Equal(t, 1, s.SuspiciousGaps)
	assert.Equal(t, 11, s.LongestGap)
	assert.Equal(t, "suspicious", s.LongestGapKind)
}
