// Package stats computes the numeric summaries shown on dashboards.
//
// All functions are pure and expect inputs that were already scoped by the
// visibility filter. Rows with malformed dates are skipped and returned on
// the error side channel.
package stats

import (
	"math"
	"time"

	"github.com/kidsacademy/school-hub/internal/domain/calendar"
	"github.com/kidsacademy/school-hub/internal/domain/school"
	"github.com/kidsacademy/school-hub/internal/domain/shared"
	"github.com/kidsacademy/school-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ATTENDANCE SUMMARY
// ══════════════════════════════════════════════════════════════════════════════

// Attendance counts marks over a set of days. Total covers present, absent
// and late marks only. Late marks are not counted as present.
type Attendance struct {
	Present    int `json:"present"`
	Absent     int `json:"absent"`
	Late       int `json:"late"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

func (a *Attendance) add(status school.AttendanceStatus) {
	switch status {
	case school.AttendancePresent:
		a.Present++
	case school.AttendanceAbsent:
		a.Absent++
	case school.AttendanceLate:
		a.Late++
	default:
		return
	}
	a.Total++
}

func (a *Attendance) finish() {
	a.Percentage = Percent(a.Present, a.Total)
}

// Percent returns part/total*100 rounded to the nearest integer, clamped to
// [0, 100]. It is 0 when total is 0.
func Percent(part, total int) int {
	if total <= 0 || part <= 0 {
		return 0
	}
	if part >= total {
		return 100
	}
	return int(math.Round(float64(part) * 100 / float64(total)))
}

// AttendanceSummary summarizes studentID's marks on the days from..to, both
// included and compared in from's location. An empty studentID summarizes
// every record. When a student has several records for one day the first
// one wins.
func AttendanceSummary(records []school.AttendanceRecord, studentID string, from, to time.Time) (Attendance, []error) {
	days := shared.NewDayRange(from, to)
	placed, errs := calendar.Place(records, days.From.Location())

	var summary Attendance
	seen := make(map[string]struct{})
	for _, p := range placed {
		r := p.Item
		if studentID != "" && r.StudentID != studentID {
			continue
		}
		if !days.Contains(p.At) || !firstMark(seen, r.StudentID, p.At) {
			continue
		}
		summary.add(r.Status)
	}
	summary.finish()

	return summary, errs
}

// firstMark records the (student, day) key and reports whether it is new.
func firstMark(seen map[string]struct{}, studentID string, at time.Time) bool {
	key := studentID + "|" + timeutil.DayKey(at)
	if _, ok := seen[key]; ok {
		return false
	}
	seen[key] = struct{}{}
	return true
}

// ══════════════════════════════════════════════════════════════════════════════
// CLASS ATTENDANCE FOR A DAY
// ══════════════════════════════════════════════════════════════════════════════

// StudentMark is the mark of one student on a day.
type StudentMark struct {
	StudentID string                  `json:"student_id"`
	Name      string                  `json:"name"`
	Status    school.AttendanceStatus `json:"status"`
}

// ClassAttendance is the register of a class for one day.
type ClassAttendance struct {
	ClassID string        `json:"class_id"`
	Date    string        `json:"date"`
	Marks   []StudentMark `json:"marks"`
	Summary Attendance    `json:"summary"`
}

// ClassAttendanceSummary joins the students of classID to their record on
// onDate's calendar day. Students without a record are marked no-record.
// If a student has several records for the day, the first one in input
// order is used.
func ClassAttendanceSummary(records []school.AttendanceRecord, students []school.Student, classID string, onDate time.Time) (ClassAttendance, []error) {
	byStudent := make(map[string]school.AttendanceStatus)
	var errs []error

	for _, r := range records {
		at, err := shared.ParseDate("attendance", r.ID, "date", r.Date, onDate.Location())
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !timeutil.IsSameDay(onDate, at) {
			continue
		}
		if _, ok := byStudent[r.StudentID]; !ok {
			byStudent[r.StudentID] = r.Status
		}
	}

	result := ClassAttendance{
		ClassID: classID,
		Date:    timeutil.DayKey(onDate),
		Marks:   make([]StudentMark, 0),
	}
	for _, s := range students {
		if s.ClassID != classID {
			continue
		}
		status, ok := byStudent[s.ID]
		if !ok {
			status = school.AttendanceNoRecord
		}
		result.Marks = append(result.Marks, StudentMark{StudentID: s.ID, Name: s.Name, Status: status})
		result.Summary.add(status)
	}
	result.Summary.finish()

	return result, errs
}

// ══════════════════════════════════════════════════════════════════════════════
// MONTHLY TREND
// ══════════════════════════════════════════════════════════════════════════════

// MonthAttendance is the attendance of one calendar month.
type MonthAttendance struct {
	Month   string     `json:"month"`
	Summary Attendance `json:"summary"`
}

// MonthlyAttendance returns one summary per month that has records for
// studentID, in ascending month order. An empty studentID covers everyone.
func MonthlyAttendance(records []school.AttendanceRecord, studentID string, loc *time.Location) ([]MonthAttendance, []error) {
	mine := records
	if studentID != "" {
		mine = make([]school.AttendanceRecord, 0, len(records))
		for _, r := range records {
			if r.StudentID == studentID {
				mine = append(mine, r)
			}
		}
	}

	buckets, errs := calendar.BucketByMonth(mine, loc)

	months := make([]MonthAttendance, 0, len(buckets))
	for _, key := range calendar.Keys(buckets) {
		month, err := timeutil.ParseMonth(key, loc)
		if err != nil {
			continue
		}
		last := month.AddDate(0, 0, timeutil.DaysInMonth(month)-1)
		// Bucketed records all parsed already.
		summary, _ := AttendanceSummary(buckets[key], studentID, month, last)
		months = append(months, MonthAttendance{Month: key, Summary: summary})
	}

	return months, errs
}
