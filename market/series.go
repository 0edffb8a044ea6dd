// Package market holds the daily close price series the attribution engine
// marks open positions against, and the session boundaries derived from it.
package market

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

var (
	ErrDuplicateDate = errors.New("duplicate price date")
	ErrInvalidPrice  = errors.New("invalid close price")
	ErrEmptySeries   = errors.New("empty price series")
)

// DailyClose is one row of the price series.
type DailyClose struct {
	Date  time.Time
	Close float64
}

// PriceSeries is an immutable, date-ordered daily close series. Dates are
// truncated to midnight in their own location.
type PriceSeries struct {
	rows  []DailyClose
	index map[string]int
}

// NewPriceSeries sorts rows by date and rejects duplicates and non-finite
// closes.
func NewPriceSeries(rows []DailyClose) (*PriceSeries, error) {
	if len(rows) == 0 {
		return nil, ErrEmptySeries
	}

	sorted := make([]DailyClose, len(rows))
	for i, r := range rows {
		if math.IsNaN(r.Close) || math.IsInf(r.Close, 0) {
			return nil, fmt.Errorf("%w: %v on %s", ErrInvalidPrice, r.Close, r.Date.Format(dateKey))
		}
		y, m, d := r.Date.Date()
		sorted[i] = DailyClose{Date: time.Date(y, m, d, 0, 0, 0, 0, r.Date.Location()), Close: r.Close}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	ps := &PriceSeries{rows: sorted, index: make(map[string]int, len(sorted))}
	for i, r := range sorted {
		k := r.Date.Format(dateKey)
		if _, dup := ps.index[k]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateDate, k)
		}
		ps.index[k] = i
	}
	return ps, nil
}

const dateKey = "2006-01-02"

func (ps *PriceSeries) Len() int { return len(ps.rows) }

func (ps *PriceSeries) At(i int) DailyClose { return ps.rows[i] }

func (ps *PriceSeries) Date(i int) time.Time { return ps.rows[i].Date }

func (ps *PriceSeries) Close(i int) float64 { return ps.rows[i].Close }

func (ps *PriceSeries) First() DailyClose { return ps.rows[0] }

func (ps *PriceSeries) Last() DailyClose { return ps.rows[len(ps.rows)-1] }

// IndexOf returns the position of the calendar date of t.
func (ps *PriceSeries) IndexOf(t time.Time) (int, bool) {
	i, ok := ps.index[t.Format(dateKey)]
	return i, ok
}

// Rows returns a copy of the series.
func (ps *PriceSeries) Rows() []DailyClose {
	out := make([]DailyClose, len(ps.rows))
	copy(out, ps.rows)
	return out
}
