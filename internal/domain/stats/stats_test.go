package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidsacademy/school-hub/internal/domain/school"
	"github.com/kidsacademy/school-hub/internal/domain/shared"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func mark(id, student, date string, status school.AttendanceStatus) school.AttendanceRecord {
	return school.AttendanceRecord{ID: id, StudentID: student, Date: date, Status: status}
}

func TestAttendanceSummary_Scenario(t *testing.T) {
	records := []school.AttendanceRecord{
		mark("a1", "s1", "2024-01-01", school.AttendancePresent),
		mark("a2", "s1", "2024-01-02", school.AttendanceAbsent),
		mark("a3", "s1", "2024-01-03", school.AttendancePresent),
	}

	got, errs := AttendanceSummary(records, "s1", day(2024, 1, 1), day(2024, 1, 3))
	require.Empty(t, errs)
	assert.Equal(t, Attendance{Present: 2, Absent: 1, Total: 3, Percentage: 67}, got)
}

func TestAttendanceSummary_EmptyIsZeroPercent(t *testing.T) {
	got, errs := AttendanceSummary(nil, "s1", day(2024, 1, 1), day(2024, 1, 31))
	assert.Empty(t, errs)
	assert.Equal(t, Attendance{}, got)

	holidays := []school.AttendanceRecord{
		mark("a1", "s1", "2024-01-01", school.AttendanceHoliday),
		mark("a2", "s1", "2024-01-02", school.AttendanceNoRecord),
	}
	got, _ = AttendanceSummary(holidays, "s1", day(2024, 1, 1), day(2024, 1, 31))
	assert.Equal(t, 0, got.Total)
	assert.Equal(t, 0, got.Percentage)
}

func TestAttendanceSummary_RangeStudentAndDuplicates(t *testing.T) {
	records := []school.AttendanceRecord{
		mark("a0", "s1", "2023-12-31", school.AttendanceAbsent),
		mark("a1", "s1", "2024-01-01", school.AttendanceLate),
		mark("a2", "s1", "2024-01-01", school.AttendancePresent),
		mark("a3", "s2", "2024-01-02", school.AttendanceAbsent),
		mark("a4", "s1", "2024-01-04", school.AttendancePresent),
		mark("a5", "s1", "Jan 3", school.AttendancePresent),
	}

	// Reversed bounds are accepted.
	got, errs := AttendanceSummary(records, "s1", day(2024, 1, 4), day(2024, 1, 1))
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], shared.ErrMalformedDate)
	assert.Equal(t, Attendance{Present: 1, Late: 1, Total: 2, Percentage: 50}, got)

	all, _ := AttendanceSummary(records, "", day(2024, 1, 1), day(2024, 1, 4))
	assert.Equal(t, 3, all.Total)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0, Percent(0, 0))
	assert.Equal(t, 0, Percent(3, 0))
	assert.Equal(t, 33, Percent(1, 3))
	assert.Equal(t, 67, Percent(2, 3))
	assert.Equal(t, 100, Percent(5, 5))
	assert.Equal(t, 100, Percent(7, 5))
	assert.Equal(t, 1, Percent(1, 199))

	for total := 1; total <= 50; total++ {
		for part := 0; part <= total; part++ {
			p := Percent(part, total)
			assert.GreaterOrEqual(t, p, 0)
			assert.LessOrEqual(t, p, 100)
		}
	}
}

func TestClassAttendanceSummary(t *testing.T) {
	students := []school.Student{
		{ID: "s1", Name: "Aru", ClassID: "c1"},
		{ID: "s2", Name: "Dana", ClassID: "c1"},
		{ID: "s3", Name: "Timur", ClassID: "c2"},
		{ID: "s4", Name: "Mira", ClassID: "c1"},
	}
	records := []school.AttendanceRecord{
		mark("a1", "s1", "2024-01-10", school.AttendanceAbsent),
		mark("a2", "s1", "2024-01-10", school.AttendancePresent),
		mark("a3", "s2", "2024-01-10", school.AttendancePresent),
		mark("a4", "s2", "2024-01-11", school.AttendanceAbsent),
		mark("a5", "s3", "2024-01-10", school.AttendancePresent),
		mark("a6", "s4", "bad", school.AttendancePresent),
	}

	got, errs := ClassAttendanceSummary(records, students, "c1", time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC))
	require.Len(t, errs, 1)

	assert.Equal(t, "c1", got.ClassID)
	assert.Equal(t, "2024-01-10", got.Date)
	assert.Equal(t, []StudentMark{
		{StudentID: "s1", Name: "Aru", Status: school.AttendanceAbsent},
		{StudentID: "s2", Name: "Dana", Status: school.AttendancePresent},
		{StudentID: "s4", Name: "Mira", Status: school.AttendanceNoRecord},
	}, got.Marks)
	assert.Equal(t, Attendance{Present: 1, Absent: 1, Total: 2, Percentage: 50}, got.Summary)
}

func TestMonthlyAttendance(t *testing.T) {
	records := []school.AttendanceRecord{
		mark("a1", "s1", "2024-02-01", school.AttendancePresent),
		mark("a2", "s1", "2024-01-30", school.AttendanceAbsent),
		mark("a3", "s1", "2024-01-31", school.AttendancePresent),
		mark("a4", "s2", "2024-03-01", school.AttendancePresent),
	}

	got, errs := MonthlyAttendance(records, "s1", time.UTC)
	require.Empty(t, errs)
	require.Len(t, got, 2)
	assert.Equal(t, "2024-01", got[0].Month)
	assert.Equal(t, Attendance{Present: 1, Absent: 1, Total: 2, Percentage: 50}, got[0].Summary)
	assert.Equal(t, "2024-02", got[1].Month)
	assert.Equal(t, 100, got[1].Summary.Percentage)
}

func TestPaymentSummary_Scenario(t *testing.T) {
	payments := []school.Payment{
		{ID: "p1", StudentID: "s1", Amount: 2000, Status: school.PaymentDue},
		{ID: "p2", StudentID: "s1", Amount: 3000, Status: school.PaymentOverdue},
		{ID: "p3", StudentID: "s1", Amount: 1500, Status: school.PaymentPaid},
	}

	got := PaymentSummary(payments)
	assert.Equal(t, int64(5000), got.TotalDueAmount)
	assert.Equal(t, 1, got.DueCount)
	assert.Equal(t, 1, got.OverdueCount)
	assert.Equal(t, 1, got.PaidCount)
	assert.Equal(t, int64(1500), got.PaidAmount)
}

func TestDueWithinDays(t *testing.T) {
	payments := []school.Payment{
		{ID: "past", DueDate: "2024-01-09", Status: school.PaymentOverdue},
		{ID: "today", DueDate: "2024-01-10", Status: school.PaymentDue},
		{ID: "edge", DueDate: "2024-01-17", Status: school.PaymentDue},
		{ID: "beyond", DueDate: "2024-01-18", Status: school.PaymentDue},
		{ID: "paid", DueDate: "2024-01-12", Status: school.PaymentPaid},
		{ID: "soon", DueDate: "2024-01-11", Status: school.PaymentOverdue},
		{ID: "broken", DueDate: "", Status: school.PaymentDue},
	}

	got, errs := DueWithinDays(payments, 7, time.Date(2024, 1, 10, 22, 0, 0, 0, time.UTC))
	require.Len(t, errs, 1)

	ids := make([]string, len(got))
	for i, p := range got {
		ids[i] = p.ID
	}
	assert.Equal(t, []string{"today", "soon", "edge"}, ids)
}

func TestUpcomingEvents(t *testing.T) {
	events := []school.AcademicEvent{
		{ID: "yesterday", Date: "2024-01-09T23:59:00Z"},
		{ID: "today-late", Date: "2024-01-10T18:00:00Z"},
		{ID: "today-early", Date: "2024-01-10T06:00:00Z"},
		{ID: "last-day", Date: "2024-01-17T23:00:00Z"},
		{ID: "too-far", Date: "2024-01-18T00:00:00Z"},
	}
	from := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

	count, errs := UpcomingEventCount(events, 7, from)
	require.Empty(t, errs)
	assert.Equal(t, 3, count)

	list, _ := UpcomingEvents(events, 7, from)
	require.Len(t, list, 3)
	assert.Equal(t, "today-early", list[0].ID)
	assert.Equal(t, "last-day", list[2].ID)

	none, _ := UpcomingEvents(events, -1, from)
	assert.Empty(t, none)
}
