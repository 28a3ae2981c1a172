package utils

import (
	"log"
	"time"
)

const DefaultDateFormat = "2006-01-02"

// ParseDate parses a date string using the default format.
// Logs an error and returns zero time if parsing fails.
func ParseDate(dateStr string) time.Time {
	t, err := time.Parse(DefaultDateFormat, dateStr)
	if err != nil {
		log.Printf("Error parsing date '%s' with format '%s': %v. Returning zero time.", dateStr, DefaultDateFormat, err)
		return time.Time{} // Return zero time on error
	}
	return t
}

// AddMonthsClamped adds calendar months to a date, preserving the original
// day-of-month where the target month allows it and clamping to the last day
// otherwise. The clamp is applied against the original anchor day on every
// call, so stepping Jan 31 forward month by month yields Feb 28, Mar 31,
// Apr 30 instead of drifting down to the 28th.
func AddMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	firstOfTarget := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	last := DaysInMonth(firstOfTarget.Year(), firstOfTarget.Month())
	if d > last {
		d = last
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), d,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// WholeMonthsBetween counts the complete calendar months from one date to a
// later one, with day-of-month clamping. Returns 0 when 'to' is not after
// 'from'.
func WholeMonthsBetween(from, to time.Time) int {
	if !to.After(from) {
		return 0
	}
	months := 0
	for !AddMonthsClamped(from, months+1).After(to) {
		months++
	}
	return months
}
