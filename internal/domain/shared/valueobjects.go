package shared

import (
	"time"

	"github.com/kidsacademy/school-hub/pkg/timeutil"
)

// ═══════════════════════════════════════════════════════════════════════════
// Date parsing
// ═══════════════════════════════════════════════════════════════════════════

// ParseDate parses an ISO-8601 date field of an entity in loc. A failure is
// reported as a *MalformedDateError naming the entity and field.
func ParseDate(entity, id, field, value string, loc *time.Location) (time.Time, error) {
	t, err := timeutil.ParseISO(value, loc)
	if err != nil {
		return time.Time{}, &MalformedDateError{
			Entity: entity,
			ID:     id,
			Field:  field,
			Value:  value,
			Err:    err,
		}
	}
	return t, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// DayRange Value Object
// ═══════════════════════════════════════════════════════════════════════════

// DayRange is an inclusive range of calendar days.
type DayRange struct {
	From time.Time
	To   time.Time
}

// NewDayRange creates a DayRange truncated to day precision. The bounds are
// swapped when given in reverse order.
func NewDayRange(from, to time.Time) DayRange {
	from = timeutil.StartOfDay(from)
	to = timeutil.StartOfDay(to.In(from.Location()))
	if to.Before(from) {
		from, to = to, from
	}
	return DayRange{From: from, To: to}
}

// Contains reports whether t's calendar day lies within the range.
func (r DayRange) Contains(t time.Time) bool {
	return timeutil.DayOffset(r.From, t) >= 0 && timeutil.DayOffset(t.In(r.From.Location()), r.To) >= 0
}

// Days returns the number of days covered, both ends included.
func (r DayRange) Days() int {
	return timeutil.DayOffset(r.From, r.To) + 1
}

// MonthRange returns the range covering t's whole month.
func MonthRange(t time.Time) DayRange {
	start := timeutil.StartOfMonth(t)
	return DayRange{From: start, To: start.AddDate(0, 0, timeutil.DaysInMonth(t)-1)}
}
