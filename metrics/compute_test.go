package metrics

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/pnlrisk/journal"
)

// sampleRun builds count weekdays of daily pnl starting 2024-01-02, with
// one trade per day carrying that day's pnl.
func sampleRun(count int) ([]journal.DailyPnL, []journal.TradeRecord) {
	pattern := []float64{120, -40, 75, -90, 30, 60, -15, 0, 45, -70, 110, 25}
	var daily []journal.DailyPnL
	var trades []journal.TradeRecord
	dt := d(2024, 1, 2)
	for len(daily) < count {
		if dt.Weekday() != time.Saturday && dt.Weekday() != time.Sunday {
			v := pattern[len(daily)%len(pattern)] + float64(len(daily))
			daily = append(daily, journal.DailyPnL{Date: dt, PnL: v})
			open := dt.Add(10 * time.Hour)
			trades = append(trades, journal.TradeRecord{
				Symbol:    "SPY",
				Direction: journal.Long,
				OpenTime:  open,
				CloseTime: open.Add(90 * time.Minute),
				Shares:    10,
				Profit:    v / 10,
			})
		}
		dt = dt.AddDate(0, 0, 1)
	}
	return daily, trades
}

func TestComputeMetricSet(t *testing.T) {
	t.Parallel()

	daily, trades := sampleRun(60)
	m, err := Compute(daily, trades, DefaultOptions())
	require.NoError(t, err)

	var net float64
	wins, losses := 0, 0
	for _, dp := range daily {
		net += dp.PnL
		if dp.PnL > 0 {
			wins++
		} else if dp.PnL < 0 {
			losses++
		}
	}
	assert.Equal(t, 60, m.Days)
	assert.Equal(t, 60, m.Trades)
	assert.InDelta(t, net, m.NetPnL, 1e-9)
	assert.Equal(t, wins, m.WinDays)
	assert.Equal(t, losses, m.LossDays)
	assert.Equal(t, 10, m.ConcentrationK)
	assert.InDelta(t, 90.0, m.AvgHoldMinutes, 1e-9)

	curve := EquityCurve(journal.Values(daily))
	wantK, _ := KRatio(curve)
	wantMDD, wantDur, _ := MaxDrawdown(curve)
	assert.Equal(t, wantK, m.KRatio)
	assert.Equal(t, wantMDD, m.MaxDrawdown)
	assert.Equal(t, wantDur, m.MaxDrawdownDuration)

	// One trade per day: both concentration bases see the same values.
	assert.InDelta(t, m.Concentration.Daily10, m.Concentration.Trade10, 1e-6)
	assert.GreaterOrEqual(t, m.WinRates.Daily, 0.0)
	assert.LessOrEqual(t, m.WinRates.Daily, 1.0)

	require.NotNil(t, m.DailyAC)
	require.NotNil(t, m.TradeAC)
	assert.Nil(t, m.MonthlyAC, "three months is too short for autocorrelation")
	assert.NotEmpty(t, m.Notes)
}

func TestComputeIsDeterministic(t *testing.T) {
	t.Parallel()

	daily, trades := sampleRun(80)
	a, err := Compute(daily, trades, DefaultOptions())
	require.NoError(t, err)
	b, err := Compute(daily, trades, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, a.Rows(), b.Rows())
}

func TestComputeWithoutTrades(t *testing.T) {
	t.Parallel()

	daily, _ := sampleRun(20)
	m, err := Compute(daily, nil, DefaultOptions())
	require.NoError(t, err)
	assert.Zero(t, m.Trades)
	assert.Zero(t, m.Expectancy)
	assert.Nil(t, m.TradeAC)

	found := false
	for _, n := range m.Notes {
		if strings.HasPrefix(n, "no trades") {
			found = true
		}
	}
	assert.True(t, found, "notes: %v", m.Notes)
}

func TestComputeScratchTrades(t *testing.T) {
	t.Parallel()

	daily, trades := sampleRun(30)
	trades = trades[:2]
	for i := range trades {
		trades[i].Profit = 0
	}

	m, err := Compute(daily, trades, DefaultOptions())
	require.NoError(t, err)
	assert.True(t, math.IsNaN(m.Expectancy))
	assert.Greater(t, m.AvgHoldMinutes, 0.0)
	assert.NotZero(t, m.KRatio)

	found := false
	for _, n := range m.Notes {
		if strings.HasPrefix(n, "expectancy not defined") {
			found = true
		}
	}
	assert.True(t, found, "notes: %v", m.Notes)
}

func TestComputeRejectsShortSeries(t *testing.T) {
	t.Parallel()

	daily, trades := sampleRun(2)
	_, err := Compute(daily, trades, DefaultOptions())
	assert.True(t, errors.Is(err, ErrInvalidInputShape))

	daily, trades = sampleRun(10)
	daily[4].PnL = math.NaN()
	_, err = Compute(daily, trades, DefaultOptions())
	assert.True(t, errors.Is(err, ErrInvalidInputShape))
}

func TestComputeHeadlineConcentration(t *testing.T) {
	t.Parallel()

	daily, trades := sampleRun(30)
	opts := DefaultOptions()
	opts.ConcentrationK = 5
	m, err := Compute(daily, trades, opts)
	require.NoError(t, err)
	assert.Equal(t, 5, m.ConcentrationK)

	d5, t5 := m.Concentration.Top(5)
	assert.Equal(t, m.Concentration.Daily5, d5)
	assert.Equal(t, m.Concentration.Trade5, t5)
}

func TestRows(t *testing.T) {
	t.Parallel()

	daily, trades := sampleRun(60)
	m, err := Compute(daily, trades, DefaultOptions())
	require.NoError(t, err)

	rows := m.Rows()
	byName := map[string]float64{}
	for _, r := range rows {
		_, dup := byName[r.Name]
		assert.False(t, dup, "duplicate row %q", r.Name)
		byName[r.Name] = r.Value
	}

	for _, name := range []string{
		"K Ratio (Zephyr)", "Slope", "GPR", "Average Hold Minutes",
		"HHI Trade 10", "HHI Trade 5", "HHI Daily 10", "HHI Daily 5",
		"Max. DD", "Max. DD Days", "Expectancy",
		"ADF Stat (Daily)", "ADF p (Daily)", "ACF Lag1 (Daily)", "PACF Lag1 (Daily)",
	} {
		assert.Contains(t, byName, name)
	}
	assert.Equal(t, m.KRatio, byName["K Ratio (Zephyr)"])
	assert.Equal(t, float64(m.MaxDrawdownDuration), byName["Max. DD Days"])
	assert.NotContains(t, byName, "ADF Stat (Monthly)")
	assert.Equal(t, "Net PnL", rows[0].Name)
}
