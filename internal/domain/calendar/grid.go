package calendar

import (
	"time"

	"github.com/kidsacademy/school-hub/internal/domain/school"
	"github.com/kidsacademy/school-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// MONTH GRID
// ══════════════════════════════════════════════════════════════════════════════

const (
	// DaysPerWeek is the width of the grid.
	DaysPerWeek = 7
	// WeeksPerGrid is the height of the grid.
	WeeksPerGrid = 6
	// GridSize is the number of cells of every grid.
	GridSize = DaysPerWeek * WeeksPerGrid
)

// Cell is one day of the month grid.
type Cell struct {
	// Day is the day of month shown in the cell.
	Day int

	// Date is midnight of the cell's day.
	Date time.Time

	// Key is the YYYY-MM-DD day key.
	Key string

	IsCurrentMonth bool
	IsToday        bool
	IsSelected     bool

	// Events holds the events of the day shown in the cell, capped by Annotate.
	Events []school.AcademicEvent

	// EventCount is the true number of events on the day.
	EventCount int
}

// Overflow returns how many events are hidden by the display cap.
func (c Cell) Overflow() int {
	return c.EventCount - len(c.Events)
}

// Grid is a Sunday-aligned 6x7 view of a month.
type Grid struct {
	// Month is midnight of the first day of the reference month.
	Month time.Time

	Cells [GridSize]Cell
}

// BuildGrid materializes the grid of month's month. Only IsToday depends on
// the wall clock; use BuildGridAt for a fixed "now".
func BuildGrid(month time.Time, selected *time.Time) Grid {
	return BuildGridAt(month, selected, time.Now())
}

// BuildGridAt materializes the grid of month's month with now as the current
// date. selected may be nil. All comparisons are at day granularity in
// month's location.
func BuildGridAt(month time.Time, selected *time.Time, now time.Time) Grid {
	first := timeutil.StartOfMonth(month)
	loc := first.Location()
	now = now.In(loc)

	// Leading days of the previous month up to the Sunday before day 1.
	start := first.AddDate(0, 0, -int(first.Weekday()))

	g := Grid{Month: first}
	for i := 0; i < GridSize; i++ {
		d := start.AddDate(0, 0, i)
		g.Cells[i] = Cell{
			Day:            d.Day(),
			Date:           d,
			Key:            timeutil.DayKey(d),
			IsCurrentMonth: d.Year() == first.Year() && d.Month() == first.Month(),
			IsToday:        timeutil.IsSameDay(d, now),
			IsSelected:     selected != nil && timeutil.IsSameDay(d, *selected),
		}
	}

	return g
}

// Span returns the dates of the first and last cells.
func (g *Grid) Span() (time.Time, time.Time) {
	return g.Cells[0].Date, g.Cells[GridSize-1].Date
}

// Selected returns the selected cell, if it is on the grid.
func (g *Grid) Selected() (Cell, bool) {
	for _, c := range g.Cells {
		if c.IsSelected {
			return c, true
		}
	}
	return Cell{}, false
}

// Annotate places events on their cells. At most maxVisible events are kept in
// Cell.Events (no cap when maxVisible <= 0) while Cell.EventCount stays the
// true count. Events with malformed dates are skipped and returned as errors.
func (g *Grid) Annotate(events []school.AcademicEvent, maxVisible int) []error {
	byDay, errs := BucketByDay(events, g.Month.Location())

	for i := range g.Cells {
		c := &g.Cells[i]
		dayEvents := byDay[c.Key]
		c.EventCount = len(dayEvents)
		if maxVisible > 0 && len(dayEvents) > maxVisible {
			dayEvents = dayEvents[:maxVisible]
		}
		c.Events = dayEvents
	}

	return errs
}
