package market

import (
	"errors"
	"fmt"
	"time"
)

// DefaultCutoff is the time of day that closes a trading session.
const DefaultCutoff = 16*time.Hour + 30*time.Minute + time.Second

var (
	ErrOutsideSeries = errors.New("time outside price series sessions")
	ErrNoClose       = errors.New("no close for weekday")
)

// Sessions maps instants to trading days. Session i covers the half-open
// interval (DayStart(i), DayEnd(i)], where DayEnd(i) is the price date plus
// the cutoff and DayStart(i) is the previous session's end. The first
// session starts at the cutoff of the preceding calendar day.
type Sessions struct {
	series *PriceSeries
	ends   []time.Time
	start0 time.Time
}

func NewSessions(series *PriceSeries, cutoff time.Duration) *Sessions {
	s := &Sessions{
		series: series,
		ends:   make([]time.Time, series.Len()),
	}
	for i := range s.ends {
		s.ends[i] = atCutoff(series.Date(i), cutoff)
	}
	s.start0 = atCutoff(series.Date(0).AddDate(0, 0, -1), cutoff)
	return s
}

// atCutoff returns date's wall clock at cutoff, DST-safe.
func atCutoff(date time.Time, cutoff time.Duration) time.Time {
	y, m, d := date.Date()
	h := int(cutoff / time.Hour)
	mi := int(cutoff % time.Hour / time.Minute)
	sec := int(cutoff % time.Minute / time.Second)
	return time.Date(y, m, d, h, mi, sec, 0, date.Location())
}

func (s *Sessions) Series() *PriceSeries { return s.series }

func (s *Sessions) Len() int { return len(s.ends) }

func (s *Sessions) DayEnd(i int) time.Time { return s.ends[i] }

func (s *Sessions) DayStart(i int) time.Time {
	if i == 0 {
		return s.start0
	}
	return s.ends[i-1]
}

// Locate returns the session containing t.
func (s *Sessions) Locate(t time.Time) (int, error) {
	if !t.After(s.start0) || t.After(s.ends[len(s.ends)-1]) {
		return 0, fmt.Errorf("%w: %s not in (%s, %s]", ErrOutsideSeries,
			t.Format(time.RFC3339), s.start0.Format(time.RFC3339),
			s.ends[len(s.ends)-1].Format(time.RFC3339))
	}
	lo, hi := 0, len(s.ends)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if t.After(s.ends[mid]) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, nil
}

// Resolve is Locate for trade times. A time on a weekday with no close in
// the series is ErrNoClose rather than being folded into the next session.
// Weekend times belong to the following session.
func (s *Sessions) Resolve(t time.Time) (int, error) {
	i, err := s.Locate(t)
	if err != nil {
		return 0, err
	}
	local := t.In(s.start0.Location())
	if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return i, nil
	}
	if _, ok := s.series.IndexOf(local); !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoClose, local.Format(dateKey))
	}
	return i, nil
}
