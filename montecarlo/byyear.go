package montecarlo

import (
	"context"
	"errors"

	"github.com/rustyeddy/pnlrisk/internal/logger"
	"github.com/rustyeddy/pnlrisk/journal"
)

// YearTable is a table for one calendar year; Year 0 is the whole series.
type YearTable struct {
	Year  int
	Table *Table
}

// RunByYear runs the engine on the whole daily series and then on each
// calendar year on its own, in date order. A year with too few distinct
// values is skipped with a warning; the whole-series run must succeed.
func (e *Engine) RunByYear(ctx context.Context, daily []journal.DailyPnL) ([]YearTable, error) {
	log := logger.OrNop(e.Log)

	all, err := e.Run(ctx, journal.Values(daily))
	if err != nil {
		return nil, err
	}
	out := []YearTable{{Year: 0, Table: all}}

	for _, y := range splitYears(daily) {
		t, err := e.Run(ctx, y.values)
		if errors.Is(err, ErrInsufficientSampleSize) {
			log.Warnw("skipping monte carlo year", "year", y.year, "values", len(y.values), "error", err)
			continue
		}
		if err != nil {
			return out, err
		}
		out = append(out, YearTable{Year: y.year, Table: t})
	}
	return out, nil
}

type yearValues struct {
	year   int
	values []float64
}

// splitYears groups a date-ordered series by calendar year.
func splitYears(daily []journal.DailyPnL) []yearValues {
	var out []yearValues
	for _, d := range daily {
		y := d.Date.Year()
		if len(out) == 0 || out[len(out)-1].year != y {
			out = append(out, yearValues{year: y})
		}
		last := &out[len(out)-1]
		last.values = append(last.values, d.PnL)
	}
	return out
}

// PercentileRows flattens a set of yearly tables for the run journal.
func PercentileRows(series string, tables []YearTable) []journal.PercentileRow {
	var rows []journal.PercentileRow
	for _, yt := range tables {
		rows = append(rows, yt.Table.PercentileRows(series, yt.Year)...)
	}
	return rows
}
