package stats

import (
	"fmt"
	"time"
)

const dayLayout = "2006-01-02"

func parseDay(date string) (time.Time, error) {
	t, err := time.Parse(dayLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day %q: %w", date, err)
	}
	return t, nil
}

func mustDay(date string) time.Time {
	t, err := parseDay(date)
	if err != nil {
		// The engine assumes already-validated input; a malformed date here
		// is a programming error upstream.
		panic(err)
	}
	return t
}

func formatDay(t time.Time) string {
	return t.Format(dayLayout)
}

func addDays(date string, days int) string {
	return formatDay(mustDay(date).AddDate(0, 0, days))
}

// daysInclusive counts calendar days in [start, end], both ends included.
func daysInclusive(start, end string) int {
	s, e := mustDay(start), mustDay(end)
	if e.Before(s) {
		return 0
	}
	return int(e.Sub(s).Hours()/24) + 1
}

// eachDay visits every day of [start, end] in ascending order.
func eachDay(start, end string, fn func(date string)) {
	s, e := mustDay(start), mustDay(end)
	for d := s; !d.After(e); d = d.AddDate(0, 0, 1) {
		fn(formatDay(d))
	}
}

func inRange(date, start, end string) bool {
	return date >= start && date <= end
}

// StartOfWeek returns the Sunday on or before date; weeks start on Sunday.
func StartOfWeek(date string) string {
	d := mustDay(date)
	return formatDay(d.AddDate(0, 0, -int(d.Weekday())))
}
