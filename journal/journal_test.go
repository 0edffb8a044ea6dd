package journal

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDirection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Direction
		wantErr bool
	}{
		{"Long", Long, false},
		{"short", Short, false},
		{"Long (scale-in)", Long, false},
		{"Flat", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseDirection(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
	assert.Equal(t, "Long", Long.String())
	assert.Equal(t, "Short", Short.String())
	assert.Equal(t, "Direction(0)", Direction(0).String())
}

func TestTradeRecordValidate(t *testing.T) {
	t.Parallel()

	open := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	valid := TradeRecord{Symbol: "ES", Direction: Long, OpenTime: open, CloseTime: open.Add(time.Hour), Shares: 1, Profit: 2}
	assert.NoError(t, valid.Validate())
	assert.Equal(t, 2.0, valid.PnL())

	sameInstant := valid
	sameInstant.CloseTime = open
	assert.NoError(t, sameInstant.Validate())

	tests := []struct {
		name   string
		mutate func(tr *TradeRecord)
		want   error
	}{
		{"zero open", func(tr *TradeRecord) { tr.OpenTime = time.Time{} }, ErrUnparseableTimestamp},
		{"close before open", func(tr *TradeRecord) { tr.CloseTime = open.Add(-time.Minute) }, ErrInvalidTrade},
		{"negative shares", func(tr *TradeRecord) { tr.Shares = -1 }, ErrInvalidTrade},
		{"no direction", func(tr *TradeRecord) { tr.Direction = 0 }, ErrInvalidTrade},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := valid
			tt.mutate(&tr)
			err := tr.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want))
		})
	}
}

func TestTradePnLsAndValues(t *testing.T) {
	t.Parallel()

	trades := []TradeRecord{{Profit: 2, Shares: 3}, {Profit: -1, Shares: 4}}
	assert.Equal(t, []float64{6, -4}, TradePnLs(trades))

	d := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	daily := []DailyPnL{{d, 1}, {d.AddDate(0, 0, 1), -2}}
	assert.Equal(t, []float64{1, -2}, Values(daily))
}
