// Package calendar builds month grids and groups dated items by day and month.
package calendar

import (
	"sort"
	"time"

	"github.com/kidsacademy/school-hub/internal/domain/school"
	"github.com/kidsacademy/school-hub/internal/domain/shared"
	"github.com/kidsacademy/school-hub/pkg/timeutil"
)

// Placed pairs an item with its parsed date.
type Placed[T school.Dated] struct {
	Item T
	At   time.Time
}

// Place parses the date of every item in loc and returns the parseable ones in
// ascending order of their full timestamp. Items with equal timestamps keep
// their input order. Unparseable items are left out and reported as
// *shared.MalformedDateError values.
func Place[T school.Dated](items []T, loc *time.Location) ([]Placed[T], []error) {
	placed := make([]Placed[T], 0, len(items))
	var errs []error

	for _, item := range items {
		entity, id := item.Ref()
		at, err := shared.ParseDate(entity, id, item.DateField(), item.DateValue(), loc)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		placed = append(placed, Placed[T]{Item: item, At: at})
	}

	sort.SliceStable(placed, func(i, j int) bool {
		return placed[i].At.Before(placed[j].At)
	})

	return placed, errs
}

// BucketByDay groups items by their YYYY-MM-DD day key.
func BucketByDay[T school.Dated](items []T, loc *time.Location) (map[string][]T, []error) {
	return bucket(items, loc, timeutil.DayKey)
}

// BucketByMonth groups items by their YYYY-MM month key.
func BucketByMonth[T school.Dated](items []T, loc *time.Location) (map[string][]T, []error) {
	return bucket(items, loc, timeutil.MonthKey)
}

func bucket[T school.Dated](items []T, loc *time.Location, key func(time.Time) string) (map[string][]T, []error) {
	placed, errs := Place(items, loc)

	buckets := make(map[string][]T)
	for _, p := range placed {
		k := key(p.At)
		buckets[k] = append(buckets[k], p.Item)
	}

	return buckets, errs
}

// ItemsOnDate returns the items on date's calendar day, compared in date's
// location, in chronological order.
func ItemsOnDate[T school.Dated](items []T, date time.Time) ([]T, []error) {
	placed, errs := Place(items, date.Location())

	result := make([]T, 0)
	for _, p := range placed {
		if timeutil.IsSameDay(date, p.At) {
			result = append(result, p.Item)
		}
	}

	return result, errs
}

// Keys returns the bucket keys in ascending order.
func Keys[T any](buckets map[string][]T) []string {
	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Flatten concatenates the buckets in ascending key order.
func Flatten[T any](buckets map[string][]T) []T {
	result := make([]T, 0)
	for _, k := range Keys(buckets) {
		result = append(result, buckets[k]...)
	}
	return result
}
