package market

import "time"

// Gap is a run of calendar days missing between two consecutive price
// dates.
type Gap struct {
	After    time.Time // last date before the gap
	Missing  int       // calendar days missing
	Weekdays int       // of which Monday to Friday
	Kind     string    // weekend, holiday or suspicious
}

type GapStats struct {
	CalendarDays   int
	PresentDays    int
	GapCount       int
	WeekendGaps    int
	HolidayGaps    int
	SuspiciousGaps int
	LongestGap     int
	LongestGapKind string
}

// Gaps lists every break in the series longer than one calendar day.
// Sessions span gaps by construction; the report flags missing weekdays so
// a truncated price export can be spotted.
func (ps *PriceSeries) Gaps() []Gap {
	var gaps []Gap
	for i := 1; i < len(ps.rows); i++ {
		prev := ps.rows[i-1].Date
		missing := 0
		weekdays := 0
		for d := prev.AddDate(0, 0, 1); d.Before(ps.rows[i].Date); d = d.AddDate(0, 0, 1) {
			missing++
			if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
				weekdays++
			}
		}
		if missing == 0 {
			continue
		}
		gaps = append(gaps, Gap{
			After:    prev,
			Missing:  missing,
			Weekdays: weekdays,
			Kind:     classifyGap(weekdays),
		})
	}
	return gaps
}

func classifyGap(weekdays int) string {
	switch {
	case weekdays == 0:
		return "weekend"
	case weekdays == 1:
		return "holiday"
	}
	return "suspicious"
}

func (ps *PriceSeries) Stats() GapStats {
	var s GapStats
	s.PresentDays = len(ps.rows)
	s.CalendarDays = int(ps.Last().Date.Sub(ps.First().Date).Hours()/24+0.5) + 1

	for _, g := range ps.Gaps() {
		s.GapCount++
		if g.Missing > s.LongestGap {
			s.LongestGap = g.Missing
			s.LongestGapKind = g.Kind
		}
		switch g.Kind {
		case "weekend":
			s.WeekendGaps++
		case "holiday":
			s.HolidayGaps++
		case "suspicious":
			s.SuspiciousGaps++
		}
	}
	return s
}
