// Package timeutil provides local-date helpers for the school calendar.
// All comparisons happen at calendar-day granularity in the location carried
// by the time values themselves; no function here reads the wall clock.
package timeutil

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Common date formats.
const (
	// FormatDate is the ISO day format (YYYY-MM-DD) used for day keys.
	FormatDate = "2006-01-02"
	// FormatMonth is the ISO month format (YYYY-MM) used for month keys.
	FormatMonth = "2006-01"
	// FormatMonthTitle names a month for display, e.g. "March 2024".
	FormatMonthTitle = "January 2006"
)

// Instant layouts accepted in addition to RFC 3339. Values without an offset
// are interpreted in the caller's location.
var localInstantLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ErrEmptyDate is returned when the value to parse is blank.
var ErrEmptyDate = errors.New("timeutil: empty date")

// LoadLocation resolves an IANA zone name, falling back to time.Local.
func LoadLocation(name string) *time.Location {
	if strings.TrimSpace(name) == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Local
	}
	return loc
}

// Date creates midnight of the given calendar day in loc.
func Date(year int, month time.Month, day int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

// StartOfDay returns 00:00:00 of t's day in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// StartOfMonth returns midnight of the first day of t's month.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// DaysInMonth returns the number of days in t's month.
func DaysInMonth(t time.Time) int {
	// Day 0 of the next month normalizes to the last day of this one.
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// IsSameDay reports whether a and b fall on the same calendar day, with b
// viewed in a's location.
func IsSameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// DayOffset returns the signed number of calendar days from `from` to `to`,
// with `to` viewed in from's location. DST transitions do not affect it.
func DayOffset(from, to time.Time) int {
	to = to.In(from.Location())
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// DayKey renders t's calendar day as YYYY-MM-DD.
func DayKey(t time.Time) string {
	return t.Format(FormatDate)
}

// MonthKey renders t's month as YYYY-MM.
func MonthKey(t time.Time) string {
	return t.Format(FormatMonth)
}

// ParseISO parses a day-only (YYYY-MM-DD) or instant ISO-8601 value and
// returns it in loc. Day-only values become local midnight.
func ParseISO(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrEmptyDate
	}

	if len(value) == len(FormatDate) {
		t, err := time.ParseInLocation(FormatDate, value, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("timeutil: parse day %q: %w", value, err)
		}
		return t, nil
	}

	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range localInstantLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("timeutil: %q is not an ISO-8601 date", value)
}

// ParseMonth parses a YYYY-MM value into midnight of the month's first day.
func ParseMonth(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(FormatMonth, strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("timeutil: parse month %q: %w", value, err)
	}
	return t, nil
}
