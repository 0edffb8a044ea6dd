package attribution

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rustyeddy/pnlrisk/config"
	"github.com/rustyeddy/pnlrisk/internal/observability"
	"github.com/rustyeddy/pnlrisk/journal"
	"github.com/rustyeddy/pnlrisk/market"
)

func at(d, h, m int) time.Time {
	return time.Date(2024, 1, d, h, m, 0, 0, time.UTC)
}

// prices for Tue 2 .. Fri 12 January 2024, skipping the weekend.
func testPrices(t *testing.T, closes map[int]float64) *market.PriceSeries {
	t.Helper()

	var rows []market.DailyClose
	for d, c := range closes {
		rows = append(rows, market.DailyClose{Date: time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC), Close: c})
	}
	ps, err := market.NewPriceSeries(rows)
	require.NoError(t, err)
	return ps
}

func weekPrices(t *testing.T) *market.PriceSeries {
	return testPrices(t, map[int]float64{2: 100, 3: 105, 4: 110, 5: 108, 8: 112, 9: 111, 10: 115, 11: 120, 12: 118})
}

func newEngine() *Engine {
	return &Engine{Cutoff: market.DefaultCutoff, Workers: 3}
}

func TestConservationSingleDayTrades(t *testing.T) {
	t.Parallel()

	trades := []journal.TradeRecord{
		{Symbol: "ES", Direction: journal.Long, OpenTime: at(3, 9, 30), OpenPrice: 100, CloseTime: at(3, 10, 0), ClosePrice: 200, Shares: 1, Profit: 100},
		{Symbol: "ES", Direction: journal.Short, OpenTime: at(3, 11, 0), OpenPrice: 100, CloseTime: at(3, 12, 0), ClosePrice: 150, Shares: 1, Profit: -50},
		{Symbol: "NQ", Direction: journal.Long, OpenTime: at(3, 13, 0), OpenPrice: 10, CloseTime: at(3, 14, 0), ClosePrice: 20, Shares: 2, Profit: 10},
	}

	res, err := newEngine().Attribute(context.Background(), trades, weekPrices(t))
	require.NoError(t, err)
	require.Len(t, res.Daily, 1)
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), res.Daily[0].Date)
	assert.InDelta(t, 70.0, res.Daily[0].PnL, 1e-9)
}

func TestBoundarySplit(t *testing.T) {
	t.Parallel()

	prices := testPrices(t, map[int]float64{2: 100, 3: 105, 4: 110})
	trades := []journal.TradeRecord{{
		Symbol: "ES", Direction: journal.Long,
		OpenTime: at(3, 15, 0), OpenPrice: 100,
		CloseTime: at(4, 10, 0), ClosePrice: 110,
		Shares: 1, Profit: 10,
	}}

	e := newEngine()
	e.Legs = true
	res, err := e.Attribute(context.Background(), trades, prices)
	require.NoError(t, err)

	require.Len(t, res.Daily, 2)
	assert.InDelta(t, 5.0, res.Daily[0].PnL, 1e-9)
	assert.InDelta(t, 5.0, res.Daily[1].PnL, 1e-9)
	assert.InDelta(t, 10.0, res.Daily[0].PnL+res.Daily[1].PnL, 1e-9)

	require.Len(t, res.Legs, 2)
	assert.Equal(t, CarriesOut, res.Legs[0].Case)
	assert.Equal(t, 105.0, res.Legs[0].ClosePrice)
	assert.Equal(t, time.Date(2024, 1, 3, 16, 30, 1, 0, time.UTC), res.Legs[0].CloseTime)
	assert.Equal(t, CarriesIn, res.Legs[1].Case)
	assert.Equal(t, 105.0, res.Legs[1].OpenPrice)
	assert.InDelta(t, 5.0, res.Legs[1].PnL, 1e-9)
}

func TestResidualIsSplitEvenly(t *testing.T) {
	t.Parallel()

	// Profit (7) differs from the price move (10) by commissions/slippage.
	prices := testPrices(t, map[int]float64{2: 100, 3: 105, 4: 110})
	trades := []journal.TradeRecord{{
		Symbol: "ES", Direction: journal.Long,
		OpenTime: at(3, 15, 0), OpenPrice: 100,
		CloseTime: at(4, 10, 0), ClosePrice: 110,
		Shares: 2, Profit: 7,
	}}

	res, err := newEngine().Attribute(context.Background(), trades, prices)
	require.NoError(t, err)
	require.Len(t, res.Daily, 2)
	assert.InDelta(t, (5-1.5)*2, res.Daily[0].PnL, 1e-9)
	assert.InDelta(t, (5-1.5)*2, res.Daily[1].PnL, 1e-9)
}

func TestShortTradeSpanningWeekend(t *testing.T) {
	t.Parallel()

	// Short from Thu 4th to Tue 9th: Thu carries out, Fri and Mon span,
	// Tue carries in.
	trades := []journal.TradeRecord{{
		Symbol: "ES", Direction: journal.Short,
		OpenTime: at(4, 10, 0), OpenPrice: 109,
		CloseTime: at(9, 11, 0), ClosePrice: 113,
		Shares: 3, Profit: -4,
	}}

	e := newEngine()
	e.Legs = true
	res, err := e.Attribute(context.Background(), trades, weekPrices(t))
	require.NoError(t, err)

	require.Len(t, res.Daily, 4)
	wantDates := []int{4, 5, 8, 9}
	for i, d := range wantDates {
		assert.Equal(t, time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC), res.Daily[i].Date)
	}
	// Thu: -(110-109) - 0.5*(-(113-109) - -4) = -1
	assert.InDelta(t, -1*3.0, res.Daily[0].PnL, 1e-9)
	// Fri: -(108-110) = 2
	assert.InDelta(t, 2*3.0, res.Daily[1].PnL, 1e-9)
	// Mon: -(112-108) = -4
	assert.InDelta(t, -4*3.0, res.Daily[2].PnL, 1e-9)
	// Tue: -(113-112) = -1
	assert.InDelta(t, -1*3.0, res.Daily[3].PnL, 1e-9)

	var sum float64
	for _, d := range res.Daily {
		sum += d.PnL
	}
	assert.InDelta(t, -12.0, sum, 1e-9)
	assert.Equal(t, Spans, res.Legs[1].Case)
	assert.Equal(t, Spans, res.Legs[2].Case)
}

func TestDaysWithoutTradesAreZero(t *testing.T) {
	t.Parallel()

	trades := []journal.TradeRecord{
		{Symbol: "A", Direction: journal.Long, OpenTime: at(2, 10, 0), CloseTime: at(2, 11, 0), Shares: 1, Profit: 1},
		{Symbol: "A", Direction: journal.Long, OpenTime: at(5, 10, 0), CloseTime: at(5, 11, 0), Shares: 1, Profit: 2},
	}
	res, err := newEngine().Attribute(context.Background(), trades, weekPrices(t))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 0, 2}, journal.Values(res.Daily))
}

func TestCutoffBoundaryBelongsToEndingSession(t *testing.T) {
	t.Parallel()

	trades := []journal.TradeRecord{
		{Symbol: "A", Direction: journal.Long, OpenTime: at(3, 10, 0),
			CloseTime: time.Date(2024, 1, 3, 16, 30, 1, 0, time.UTC), Shares: 1, Profit: 1},
		{Symbol: "A", Direction: journal.Long, OpenTime: time.Date(2024, 1, 3, 16, 30, 2, 0, time.UTC),
			CloseTime: time.Date(2024, 1, 3, 17, 0, 0, 0, time.UTC), Shares: 1, Profit: 2},
	}
	res, err := newEngine().Attribute(context.Background(), trades, weekPrices(t))
	require.NoError(t, err)
	require.Len(t, res.Daily, 2)
	assert.Equal(t, 1.0, res.Daily[0].PnL)
	assert.Equal(t, time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC), res.Daily[1].Date)
	assert.Equal(t, 2.0, res.Daily[1].PnL)
}

func TestMissingPriceData(t *testing.T) {
	t.Parallel()

	prices := weekPrices(t)
	tests := []struct {
		name  string
		trade journal.TradeRecord
	}{
		{"opens before first session", journal.TradeRecord{Direction: journal.Long, OpenTime: at(1, 10, 0), CloseTime: at(2, 10, 0)}},
		{"closes after last session", journal.TradeRecord{Direction: journal.Long, OpenTime: at(12, 10, 0), CloseTime: at(12, 17, 0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newEngine().Attribute(context.Background(), []journal.TradeRecord{tt.trade}, prices)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMissingPriceData))
		})
	}

	_, err := newEngine().Attribute(context.Background(), nil, nil)
	assert.True(t, errors.Is(err, ErrMissingPriceData))
}

func TestMissingWeekdayClose(t *testing.T) {
	t.Parallel()

	// Thursday the 4th has no close.
	prices := testPrices(t, map[int]float64{2: 100, 3: 105, 5: 119})
	tests := []struct {
		name  string
		trade journal.TradeRecord
	}{
		{"opens on missing day", journal.TradeRecord{Symbol: "ES", Direction: journal.Long,
			OpenTime: at(4, 10, 0), OpenPrice: 106, CloseTime: at(5, 10, 0), ClosePrice: 119, Shares: 1, Profit: 13}},
		{"closes on missing day", journal.TradeRecord{Symbol: "ES", Direction: journal.Long,
			OpenTime: at(3, 10, 0), OpenPrice: 104, CloseTime: at(4, 10, 0), ClosePrice: 110, Shares: 1, Profit: 6}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := newEngine().Attribute(context.Background(), []journal.TradeRecord{tt.trade}, prices)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, ErrMissingPriceData))
			assert.Contains(t, err.Error(), "2024-01-04")
		})
	}

	// Held across the gap without touching it: Friday's session spans it.
	trade := journal.TradeRecord{Symbol: "ES", Direction: journal.Long,
		OpenTime: at(3, 10, 0), OpenPrice: 104, CloseTime: at(5, 10, 0), ClosePrice: 119, Shares: 1, Profit: 15}
	res, err := newEngine().Attribute(context.Background(), []journal.TradeRecord{trade}, prices)
	require.NoError(t, err)
	require.Len(t, res.Daily, 2)
	assert.InDelta(t, 15.0, res.Daily[0].PnL+res.Daily[1].PnL, 1e-9)
}

func TestInvalidTradesAreSkipped(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)
	obs := observability.NewMetrics("")
	e := newEngine()
	e.Log = zap.New(core).Sugar()
	e.Obs = obs

	trades := []journal.TradeRecord{
		{Symbol: "OK", Direction: journal.Long, OpenTime: at(3, 10, 0), CloseTime: at(3, 11, 0), Shares: 1, Profit: 5},
		{Symbol: "BAD", Direction: journal.Long, OpenTime: at(3, 12, 0), CloseTime: at(3, 11, 0), Shares: 1, Profit: 5},
		{Symbol: "NOTIME", Direction: journal.Long, Shares: 1, Profit: 5},
	}
	res, err := e.Attribute(context.Background(), trades, weekPrices(t))
	require.NoError(t, err)

	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, []float64{5}, journal.Values(res.Daily))
	assert.Equal(t, 2, logs.FilterMessage("skipping trade").Len())
	assert.Equal(t, 2.0, testutil.ToFloat64(obs.TradesSkipped.WithLabelValues("invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(obs.DaysAttributed))
}

func TestNoTrades(t *testing.T) {
	t.Parallel()

	res, err := newEngine().Attribute(context.Background(), nil, weekPrices(t))
	require.NoError(t, err)
	assert.Empty(t, res.Daily)
}

func TestConservationRandomTrades(t *testing.T) {
	t.Parallel()

	prices := weekPrices(t)
	r := rand.New(rand.NewPCG(7, 11))
	days := []int{2, 3, 4, 5, 8, 9, 10, 11, 12}

	var trades []journal.TradeRecord
	var want float64
	for k := 0; k < 200; k++ {
		oi := r.IntN(len(days))
		ci := oi + r.IntN(len(days)-oi)
		dir := journal.Long
		if r.IntN(2) == 0 {
			dir = journal.Short
		}
		tr := journal.TradeRecord{
			Symbol:     "X",
			Direction:  dir,
			OpenTime:   at(days[oi], 9, r.IntN(60)),
			OpenPrice:  100 + float64(r.IntN(2000))/100,
			CloseTime:  at(days[ci], 10, r.IntN(60)),
			ClosePrice: 100 + float64(r.IntN(2000))/100,
			Shares:     float64(1 + r.IntN(10)),
			Profit:     float64(r.IntN(4000)-2000) / 100,
		}
		if tr.CloseTime.Before(tr.OpenTime) {
			tr.CloseTime = tr.OpenTime
		}
		trades = append(trades, tr)
		want += tr.PnL()
	}

	for _, workers := range []int{1, 8} {
		e := newEngine()
		e.Workers = workers
		res, err := e.Attribute(context.Background(), trades, prices)
		require.NoError(t, err)

		var got float64
		for _, d := range res.Daily {
			got += d.PnL
		}
		assert.InDelta(t, want, got, 1e-6)
	}
}

func TestCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	trades := []journal.TradeRecord{
		{Symbol: "A", Direction: journal.Long, OpenTime: at(3, 10, 0), CloseTime: at(3, 11, 0), Shares: 1, Profit: 1},
	}
	_, err := newEngine().Attribute(ctx, trades, weekPrices(t))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestFromConfig(t *testing.T) {
	t.Parallel()

	e, err := FromConfig(config.Default().Attribution)
	require.NoError(t, err)
	assert.Equal(t, market.DefaultCutoff, e.Cutoff)
	assert.Equal(t, 4, e.Workers)

	_, err = FromConfig(config.AttributionConfig{SessionCutoff: "late"})
	assert.Error(t, err)
}

func TestCaseString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "inside", Inside.String())
	assert.Equal(t, "spans", Spans.String())
	assert.Equal(t, "Case(9)", Case(9).String())
}
