package stats

import (
	"time"

	"github.com/kidsacademy/school-hub/internal/domain/calendar"
	"github.com/kidsacademy/school-hub/internal/domain/school"
)

// UpcomingEventCount counts the events dated from's day through
// from+horizonDays, both included.
func UpcomingEventCount(events []school.AcademicEvent, horizonDays int, from time.Time) (int, []error) {
	upcoming, errs := UpcomingEvents(events, horizonDays, from)
	return len(upcoming), errs
}

// UpcomingEvents returns the events counted by UpcomingEventCount in
// chronological order.
func UpcomingEvents(events []school.AcademicEvent, horizonDays int, from time.Time) ([]school.AcademicEvent, []error) {
	placed, errs := calendar.Place(events, from.Location())

	upcoming := make([]school.AcademicEvent, 0)
	for _, p := range placed {
		if withinDays(from, p.At, horizonDays) {
			upcoming = append(upcoming, p.Item)
		}
	}
	return upcoming, errs
}
