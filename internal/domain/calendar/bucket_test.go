package calendar

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidsacademy/school-hub/internal/domain/school"
	"github.com/kidsacademy/school-hub/internal/domain/shared"
)

func sampleEvents() []school.AcademicEvent {
	return []school.AcademicEvent{
		{ID: "e1", Date: "2024-01-10T15:00:00Z"},
		{ID: "e2", Date: "2024-01-10T09:00:00Z"},
		{ID: "e3", Date: "2024-01-11"},
		{ID: "e4", Date: "2024-02-01T00:00:00Z"},
		{ID: "e5", Date: "2024-01-10T09:00:00Z"},
	}
}

func ids(events []school.AcademicEvent) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}

func TestBucketByDay(t *testing.T) {
	buckets, errs := BucketByDay(sampleEvents(), time.UTC)
	require.Empty(t, errs)

	assert.Equal(t, []string{"2024-01-10", "2024-01-11", "2024-02-01"}, Keys(buckets))
	// Ascending by full timestamp; equal timestamps keep input order.
	assert.Equal(t, []string{"e2", "e5", "e1"}, ids(buckets["2024-01-10"]))
}

func TestBucketByDay_FlattenRoundTrip(t *testing.T) {
	events := sampleEvents()
	buckets, _ := BucketByDay(events, time.UTC)

	flat := Flatten(buckets)
	assert.Len(t, flat, len(events))
	assert.ElementsMatch(t, events, flat)
}

func TestBucketByDay_LocationDecidesDay(t *testing.T) {
	almaty := time.FixedZone("UTC+5", 5*60*60)
	buckets, _ := BucketByDay([]school.AcademicEvent{{ID: "late", Date: "2024-01-10T20:00:00Z"}}, almaty)
	assert.Contains(t, buckets, "2024-01-11")
}

func TestBucketByMonth(t *testing.T) {
	buckets, errs := BucketByMonth(sampleEvents(), time.UTC)
	require.Empty(t, errs)

	assert.Equal(t, []string{"2024-01", "2024-02"}, Keys(buckets))
	assert.Equal(t, []string{"e2", "e5", "e1", "e3"}, ids(buckets["2024-01"]))
}

func TestBucket_MalformedDatesAreCollected(t *testing.T) {
	records := []school.AttendanceRecord{
		{ID: "a1", StudentID: "s1", Date: "2024-01-01", Status: school.AttendancePresent},
		{ID: "a2", StudentID: "s1", Date: "01.02.2024", Status: school.AttendanceAbsent},
		{ID: "a3", StudentID: "s1", Date: "", Status: school.AttendanceAbsent},
	}

	buckets, errs := BucketByDay(records, time.UTC)
	require.Len(t, errs, 2)
	assert.Len(t, Flatten(buckets), 1)

	for _, err := range errs {
		assert.ErrorIs(t, err, shared.ErrMalformedDate)
	}
	var mde *shared.MalformedDateError
	require.True(t, errors.As(errs[0], &mde))
	assert.Equal(t, "attendance", mde.Entity)
	assert.Equal(t, "a2", mde.ID)
	assert.Equal(t, "date", mde.Field)
}

func TestPlace_PaymentReportsDueDateField(t *testing.T) {
	payments := []school.Payment{
		{ID: "p1", StudentID: "s1", DueDate: "2024-03-20"},
		{ID: "p2", StudentID: "s1", DueDate: "soon"},
	}

	placed, errs := Place(payments, time.UTC)
	require.Len(t, placed, 1)
	require.Len(t, errs, 1)

	var mde *shared.MalformedDateError
	require.True(t, errors.As(errs[0], &mde))
	assert.Equal(t, "payment", mde.Entity)
	assert.Equal(t, "dueDate", mde.Field)
	assert.Equal(t, `payment p2: malformed dueDate "soon"`, mde.Error())
}

func TestItemsOnDate(t *testing.T) {
	on, errs := ItemsOnDate(sampleEvents(), time.Date(2024, time.January, 10, 23, 0, 0, 0, time.UTC))
	require.Empty(t, errs)
	assert.Equal(t, []string{"e2", "e5", "e1"}, ids(on))

	none, _ := ItemsOnDate(sampleEvents(), time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC))
	assert.Empty(t, none)
}
