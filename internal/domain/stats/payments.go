package stats

import (
	"time"

	"github.com/kidsacademy/school-hub/internal/domain/calendar"
	"github.com/kidsacademy/school-hub/internal/domain/school"
	"github.com/kidsacademy/school-hub/pkg/timeutil"
)

// Payments totals payments by status. Amounts of paid payments never reach
// TotalDueAmount.
type Payments struct {
	TotalDueAmount int64 `json:"total_due_amount"`
	DueCount       int   `json:"due_count"`
	OverdueCount   int   `json:"overdue_count"`
	PaidCount      int   `json:"paid_count"`
	PaidAmount     int64 `json:"paid_amount"`
}

// PaymentSummary totals payments. Rows with an unknown status are ignored.
func PaymentSummary(payments []school.Payment) Payments {
	var sum Payments
	for _, p := range payments {
		switch p.Status {
		case school.PaymentDue:
			sum.DueCount++
			sum.TotalDueAmount += p.Amount
		case school.PaymentOverdue:
			sum.OverdueCount++
			sum.TotalDueAmount += p.Amount
		case school.PaymentPaid:
			sum.PaidCount++
			sum.PaidAmount += p.Amount
		}
	}
	return sum
}

// DueWithinDays returns the unpaid payments falling due between from's day
// and days later, both included, in due-date order. Payments whose due date
// has already passed are not returned; they show up in OverdueCount instead.
func DueWithinDays(payments []school.Payment, days int, from time.Time) ([]school.Payment, []error) {
	placed, errs := calendar.Place(payments, from.Location())

	due := make([]school.Payment, 0)
	for _, p := range placed {
		if p.Item.Status == school.PaymentPaid {
			continue
		}
		if withinDays(from, p.At, days) {
			due = append(due, p.Item)
		}
	}
	return due, errs
}

// withinDays reports 0 <= day(at) - day(from) <= days.
func withinDays(from, at time.Time, days int) bool {
	offset := timeutil.DayOffset(from, at)
	return offset >= 0 && offset <= days
}
