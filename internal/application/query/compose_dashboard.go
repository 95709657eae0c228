package query

import (
	"errors"
	"time"

	"github.com/kidsacademy/school-hub/internal/domain/calendar"
	"github.com/kidsacademy/school-hub/internal/domain/school"
	"github.com/kidsacademy/school-hub/internal/domain/shared"
	"github.com/kidsacademy/school-hub/internal/domain/stats"
	"github.com/kidsacademy/school-hub/internal/domain/visibility"
	"github.com/kidsacademy/school-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// DASHBOARD COMPOSER
// Scopes the store to the viewer, then lays events on the month grid, then
// computes the role's statistics. Scoping always comes first so that no
// total includes rows the viewer cannot see.
// ══════════════════════════════════════════════════════════════════════════════

// DatasetReader is the read side of the entity store.
type DatasetReader interface {
	Snapshot() school.Dataset
}

// ComposerConfig tunes the composer.
type ComposerConfig struct {
	// HorizonDays is the upcoming-events window after today.
	HorizonDays int

	// DueSoonDays is the window for payments falling due.
	DueSoonDays int

	// MaxCellEvents caps events shown per calendar cell; 0 means no cap.
	MaxCellEvents int

	// Location is used for every local-date comparison. Nil means the
	// location of the reference date.
	Location *time.Location
}

// DefaultComposerConfig returns the default windows.
func DefaultComposerConfig() ComposerConfig {
	return ComposerConfig{
		HorizonDays:   7,
		DueSoonDays:   7,
		MaxCellEvents: 3,
	}
}

// DashboardComposer builds dashboard view models.
type DashboardComposer struct {
	config ComposerConfig
}

// NewDashboardComposer creates a composer.
func NewDashboardComposer(config ComposerConfig) *DashboardComposer {
	if config.HorizonDays < 0 {
		config.HorizonDays = 0
	}
	if config.DueSoonDays < 0 {
		config.DueSoonDays = 0
	}
	return &DashboardComposer{config: config}
}

// View selects what the calendar shows. Zero Month means the month of Now;
// nil Selected means Now's day.
type View struct {
	Now      time.Time
	Month    time.Time
	Selected *time.Time
}

// Compose builds the dashboard of viewer for the month of now with today
// selected.
func (c *DashboardComposer) Compose(viewer school.Viewer, store DatasetReader, now time.Time) (*DashboardViewModel, []error) {
	return c.ComposeView(viewer, store, View{Now: now})
}

// ComposeView builds the dashboard of viewer for view. Data-shape problems
// never fail the call: the view model is built from the rows that could be
// used and the problems are returned alongside it.
func (c *DashboardComposer) ComposeView(viewer school.Viewer, store DatasetReader, view View) (*DashboardViewModel, []error) {
	var errs errorList

	loc := c.config.Location
	if loc == nil {
		loc = view.Now.Location()
	}
	now := view.Now.In(loc)
	month := now
	if !view.Month.IsZero() {
		month = view.Month.In(loc)
	}
	selected := now
	if view.Selected != nil {
		selected = view.Selected.In(loc)
	}

	data := store.Snapshot()

	// 1. Scope
	filter, err := visibility.For(viewer, data.Students)
	errs.add(err)
	scoped := visibility.Scope(filter, data)

	// 2. Calendar
	grid := calendar.BuildGridAt(month, &selected, now)
	errs.add(grid.Annotate(scoped.Events, c.config.MaxCellEvents)...)

	selectedDay, dayErrs := calendar.ItemsOnDate(scoped.Events, timeutil.StartOfDay(selected))
	errs.add(dayErrs...)

	// 3. Statistics
	upcoming, upErrs := stats.UpcomingEvents(scoped.Events, c.config.HorizonDays, now)
	errs.add(upErrs...)

	vm := &DashboardViewModel{
		ViewerID:           viewer.ID,
		Role:               viewer.Role,
		Today:              timeutil.DayKey(now),
		Calendar:           toCalendarDTO(&grid),
		SelectedDay:        toEventDTOs(selectedDay, loc),
		UpcomingEvents:     toEventDTOs(upcoming, loc),
		UpcomingEventCount: len(upcoming),
		GeneratedAt:        view.Now,
	}

	var unknown *shared.UnknownRoleError
	switch {
	case errors.As(err, &unknown):
		// Nothing beyond the empty frame.
	case viewer.Role == school.RoleParent:
		vm.Parent = c.parentSection(viewer, scoped, now, &errs)
	case viewer.Role == school.RoleTeacher:
		vm.Teacher = c.teacherSection(viewer, scoped, now, &errs)
	case viewer.Role == school.RoleSchoolOwner:
		vm.Owner = c.ownerSection(scoped, now, &errs)
	}

	return vm, errs.list()
}

// ─────────────────────────────────────────────────────────────────────────────
// Role sections
// ─────────────────────────────────────────────────────────────────────────────

func (c *DashboardComposer) parentSection(viewer school.Viewer, data school.Dataset, now time.Time, errs *errorList) *ParentDashboardDTO {
	section := &ParentDashboardDTO{
		TodayStatus:  school.AttendanceNoRecord,
		MonthlyTrend: make([]stats.MonthAttendance, 0),
		Payments:     stats.PaymentSummary(data.Payments),
		DueSoon:      make([]PaymentDTO, 0),
	}
	if viewer.ChildID == "" {
		return section
	}

	if child, ok := school.IndexStudents(data.Students)[viewer.ChildID]; ok {
		section.Child = toStudentDTO(child)
	}

	today, todayErrs := calendar.ItemsOnDate(data.Attendance, timeutil.StartOfDay(now))
	errs.add(todayErrs...)
	if len(today) > 0 {
		section.TodayStatus = today[0].Status
	}

	monthRange := shared.MonthRange(now)
	att, attErrs := stats.AttendanceSummary(data.Attendance, viewer.ChildID, monthRange.From, monthRange.To)
	errs.add(attErrs...)
	section.MonthAttendance = att

	trend, trendErrs := stats.MonthlyAttendance(data.Attendance, viewer.ChildID, now.Location())
	errs.add(trendErrs...)
	section.MonthlyTrend = trend

	due, dueErrs := stats.DueWithinDays(data.Payments, c.config.DueSoonDays, now)
	errs.add(dueErrs...)
	section.DueSoon = toPaymentDTOs(due)

	return section
}

func (c *DashboardComposer) teacherSection(viewer school.Viewer, data school.Dataset, now time.Time, errs *errorList) *TeacherDashboardDTO {
	section := &TeacherDashboardDTO{
		Classes:  c.classSections(viewer.OwnedClassIDs(), data, now, errs),
		Payments: stats.PaymentSummary(data.Payments),
	}
	section.TodayAttendance = todayTotals(section.Classes)
	return section
}

func (c *DashboardComposer) ownerSection(data school.Dataset, now time.Time, errs *errorList) *OwnerDashboardDTO {
	classIDs := data.ClassIDs()

	section := &OwnerDashboardDTO{
		StudentCount: len(data.Students),
		ClassCount:   len(classIDs),
		Payments:     stats.PaymentSummary(data.Payments),
		Classes:      c.classSections(classIDs, data, now, errs),
	}

	today, todayErrs := stats.AttendanceSummary(data.Attendance, "", now, now)
	errs.add(todayErrs...)
	section.TodayAttendance = today

	monthRange := shared.MonthRange(now)
	month, monthErrs := stats.AttendanceSummary(data.Attendance, "", monthRange.From, monthRange.To)
	errs.add(monthErrs...)
	section.MonthAttendance = month

	due, dueErrs := stats.DueWithinDays(data.Payments, c.config.DueSoonDays, now)
	errs.add(dueErrs...)
	section.DueSoon = toPaymentDTOs(due)

	return section
}

// classSections summarizes each class of classIDs, in the given order.
func (c *DashboardComposer) classSections(classIDs []string, data school.Dataset, now time.Time, errs *errorList) []ClassDTO {
	classOf := make(map[string]string, len(data.Students))
	for id, s := range data.StudentIndex() {
		classOf[id] = s.ClassID
	}
	monthRange := shared.MonthRange(now)

	classes := make([]ClassDTO, 0, len(classIDs))
	for _, classID := range classIDs {
		today, todayErrs := stats.ClassAttendanceSummary(data.Attendance, data.Students, classID, now)
		errs.add(todayErrs...)

		records := make([]school.AttendanceRecord, 0)
		for _, r := range data.Attendance {
			if classOf[r.StudentID] == classID {
				records = append(records, r)
			}
		}
		month, monthErrs := stats.AttendanceSummary(records, "", monthRange.From, monthRange.To)
		errs.add(monthErrs...)

		classes = append(classes, ClassDTO{
			ClassID:         classID,
			StudentCount:    len(today.Marks),
			Today:           today,
			MonthAttendance: month,
		})
	}
	return classes
}

// todayTotals adds up the day registers of classes.
func todayTotals(classes []ClassDTO) stats.Attendance {
	var sum stats.Attendance
	for _, c := range classes {
		sum.Present += c.Today.Summary.Present
		sum.Absent += c.Today.Summary.Absent
		sum.Late += c.Today.Summary.Late
		sum.Total += c.Today.Summary.Total
	}
	sum.Percentage = stats.Percent(sum.Present, sum.Total)
	return sum
}

// ─────────────────────────────────────────────────────────────────────────────
// Error collection
// ─────────────────────────────────────────────────────────────────────────────

// errorList collects side-channel errors. The same bad row is reached by
// several computations; it is reported once.
type errorList struct {
	seen map[string]struct{}
	errs []error
}

func (l *errorList) add(errs ...error) {
	for _, err := range errs {
		if err == nil {
			continue
		}
		if l.seen == nil {
			l.seen = make(map[string]struct{})
		}
		msg := err.Error()
		if _, ok := l.seen[msg]; ok {
			continue
		}
		l.seen[msg] = struct{}{}
		l.errs = append(l.errs, err)
	}
}

func (l *errorList) list() []error {
	return l.errs
}
