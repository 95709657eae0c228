// Package query contains read operations (CQRS - Queries).
package query

import (
	"time"

	"github.com/kidsacademy/school-hub/internal/domain/calendar"
	"github.com/kidsacademy/school-hub/internal/domain/school"
	"github.com/kidsacademy/school-hub/internal/domain/stats"
	"github.com/kidsacademy/school-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// DASHBOARD VIEW MODEL
// Everything a dashboard screen renders. Screens only format these values.
// ══════════════════════════════════════════════════════════════════════════════

// DashboardViewModel is the role-shaped output of the composer. Exactly one
// of Parent, Teacher and Owner is set for a recognized role; none is set
// for an unrecognized one.
type DashboardViewModel struct {
	ViewerID string      `json:"viewer_id"`
	Role     school.Role `json:"role"`

	// Today is the YYYY-MM-DD key of the reference date.
	Today string `json:"today"`

	Calendar CalendarDTO `json:"calendar"`

	// SelectedDay lists every event of the selected day, uncapped.
	SelectedDay []EventDTO `json:"selected_day"`

	UpcomingEvents     []EventDTO `json:"upcoming_events"`
	UpcomingEventCount int        `json:"upcoming_event_count"`

	Parent  *ParentDashboardDTO  `json:"parent,omitempty"`
	Teacher *TeacherDashboardDTO `json:"teacher,omitempty"`
	Owner   *OwnerDashboardDTO   `json:"owner,omitempty"`

	GeneratedAt time.Time `json:"generated_at"`
}

// IsEmpty reports a view model with nothing to show besides the calendar
// frame. Screens render their "no data available" state for it.
func (vm *DashboardViewModel) IsEmpty() bool {
	return vm.Parent == nil && vm.Teacher == nil && vm.Owner == nil && len(vm.UpcomingEvents) == 0 && len(vm.SelectedDay) == 0
}

// ─────────────────────────────────────────────────────────────────────────────
// Calendar
// ─────────────────────────────────────────────────────────────────────────────

// CalendarDTO is the 6x7 month grid.
type CalendarDTO struct {
	// Month is the YYYY-MM key of the shown month.
	Month string `json:"month"`

	// Title is the human-readable month name, e.g. "March 2024".
	Title string `json:"title"`

	// Selected is the day key of the selected cell, empty when the selected
	// day is not on the grid.
	Selected string `json:"selected,omitempty"`

	Cells []CellDTO `json:"cells"`
}

// CellDTO is one grid cell.
type CellDTO struct {
	Day            int        `json:"day"`
	Date           string     `json:"date"`
	IsCurrentMonth bool       `json:"is_current_month"`
	IsToday        bool       `json:"is_today"`
	IsSelected     bool       `json:"is_selected"`
	Events         []EventDTO `json:"events"`
	EventCount     int        `json:"event_count"`
	Overflow       int        `json:"overflow,omitempty"`
}

// EventDTO is an academic event as shown in lists and cells.
type EventDTO struct {
	ID       string           `json:"id"`
	Title    string           `json:"title"`
	Date     string           `json:"date"`
	Day      string           `json:"day,omitempty"`
	Type     school.EventType `json:"type"`
	Audience school.Audience  `json:"audience"`
	Notes    string           `json:"notes,omitempty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Role sections
// ─────────────────────────────────────────────────────────────────────────────

// StudentDTO identifies a student.
type StudentDTO struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	ClassID string `json:"class_id"`
	Grade   string `json:"grade,omitempty"`
}

// PaymentDTO is a payment as shown in lists.
type PaymentDTO struct {
	ID        string               `json:"id"`
	StudentID string               `json:"student_id"`
	Amount    int64                `json:"amount"`
	DueDate   string               `json:"due_date"`
	Status    school.PaymentStatus `json:"status"`
}

// ParentDashboardDTO is the parent's view of the child.
type ParentDashboardDTO struct {
	// Child is nil when the parent has no child or the child is not on the roster.
	Child *StudentDTO `json:"child,omitempty"`

	// TodayStatus is the child's mark for today, no-record when unmarked.
	TodayStatus school.AttendanceStatus `json:"today_status"`

	MonthAttendance stats.Attendance        `json:"month_attendance"`
	MonthlyTrend    []stats.MonthAttendance `json:"monthly_trend"`
	Payments        stats.Payments          `json:"payments"`
	DueSoon         []PaymentDTO            `json:"due_soon"`
}

// ClassDTO summarizes one class.
type ClassDTO struct {
	ClassID         string                `json:"class_id"`
	StudentCount    int                   `json:"student_count"`
	Today           stats.ClassAttendance `json:"today"`
	MonthAttendance stats.Attendance      `json:"month_attendance"`
}

// TeacherDashboardDTO covers the teacher's classes.
type TeacherDashboardDTO struct {
	Classes         []ClassDTO       `json:"classes"`
	TodayAttendance stats.Attendance `json:"today_attendance"`
	Payments        stats.Payments   `json:"payments"`
}

// OwnerDashboardDTO covers the whole school.
type OwnerDashboardDTO struct {
	StudentCount    int              `json:"student_count"`
	ClassCount      int              `json:"class_count"`
	TodayAttendance stats.Attendance `json:"today_attendance"`
	MonthAttendance stats.Attendance `json:"month_attendance"`
	Payments        stats.Payments   `json:"payments"`
	DueSoon         []PaymentDTO     `json:"due_soon"`
	Classes         []ClassDTO       `json:"classes"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Mapping
// ─────────────────────────────────────────────────────────────────────────────

func toEventDTO(e school.AcademicEvent, loc *time.Location) EventDTO {
	dto := EventDTO{
		ID:       e.ID,
		Title:    e.Title,
		Date:     e.Date,
		Type:     e.Type,
		Audience: e.Audience,
		Notes:    e.Notes,
	}
	if at, err := timeutil.ParseISO(e.Date, loc); err == nil {
		dto.Day = timeutil.DayKey(at)
	}
	return dto
}

func toEventDTOs(events []school.AcademicEvent, loc *time.Location) []EventDTO {
	out := make([]EventDTO, len(events))
	for i, e := range events {
		out[i] = toEventDTO(e, loc)
	}
	return out
}

func toPaymentDTOs(payments []school.Payment) []PaymentDTO {
	out := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		out[i] = PaymentDTO{
			ID:        p.ID,
			StudentID: p.StudentID,
			Amount:    p.Amount,
			DueDate:   p.DueDate,
			Status:    p.Status,
		}
	}
	return out
}

func toStudentDTO(s school.Student) *StudentDTO {
	return &StudentDTO{ID: s.ID, Name: s.Name, ClassID: s.ClassID, Grade: s.Grade}
}

func toCalendarDTO(g *calendar.Grid) CalendarDTO {
	loc := g.Month.Location()
	dto := CalendarDTO{
		Month: timeutil.MonthKey(g.Month),
		Title: g.Month.Format(timeutil.FormatMonthTitle),
		Cells: make([]CellDTO, 0, calendar.GridSize),
	}
	if sel, ok := g.Selected(); ok {
		dto.Selected = sel.Key
	}
	for _, c := range g.Cells {
		dto.Cells = append(dto.Cells, CellDTO{
			Day:            c.Day,
			Date:           c.Key,
			IsCurrentMonth: c.IsCurrentMonth,
			IsToday:        c.IsToday,
			IsSelected:     c.IsSelected,
			Events:         toEventDTOs(c.Events, loc),
			EventCount:     c.EventCount,
			Overflow:       c.Overflow(),
		})
	}
	return dto
}
