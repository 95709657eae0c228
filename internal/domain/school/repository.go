package school

import (
	"slices"
	"sort"
)

// ══════════════════════════════════════════════════════════════════════════════
// DATASET
// ══════════════════════════════════════════════════════════════════════════════

// Dataset is a snapshot of the flat collections as loaded from static data.
type Dataset struct {
	Students   []Student          `json:"students"`
	Attendance []AttendanceRecord `json:"attendance"`
	Events     []AcademicEvent    `json:"events"`
	Payments   []Payment          `json:"payments"`
	Users      []User             `json:"users"`
}

// Clone returns a deep copy so callers cannot mutate the store's slices.
func (d Dataset) Clone() Dataset {
	users := make([]User, len(d.Users))
	for i, u := range d.Users {
		u.ClassIDs = slices.Clone(u.ClassIDs)
		users[i] = u
	}
	return Dataset{
		Students:   slices.Clone(d.Students),
		Attendance: slices.Clone(d.Attendance),
		Events:     slices.Clone(d.Events),
		Payments:   slices.Clone(d.Payments),
		Users:      users,
	}
}

// StudentIndex maps student id to student.
func (d Dataset) StudentIndex() map[string]Student {
	return IndexStudents(d.Students)
}

// ClassIDs returns the distinct class ids of all students, sorted.
func (d Dataset) ClassIDs() []string {
	return ClassIDsOf(d.Students)
}

// IndexStudents maps student id to student. The first student wins on duplicate ids.
func IndexStudents(students []Student) map[string]Student {
	idx := make(map[string]Student, len(students))
	for _, s := range students {
		if _, ok := idx[s.ID]; !ok {
			idx[s.ID] = s
		}
	}
	return idx
}

// ClassIDsOf returns the distinct non-empty class ids of students, sorted.
func ClassIDsOf(students []Student) []string {
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, s := range students {
		if s.ClassID == "" {
			continue
		}
		if _, ok := seen[s.ClassID]; ok {
			continue
		}
		seen[s.ClassID] = struct{}{}
		ids = append(ids, s.ClassID)
	}
	sort.Strings(ids)
	return ids
}

// ══════════════════════════════════════════════════════════════════════════════
// STORE INTERFACE
// Implementations live in infrastructure/persistence. Mutations are in-memory,
// synchronous and last-write-wins; nothing is persisted.
// ══════════════════════════════════════════════════════════════════════════════

// Store holds the raw collections.
type Store interface {
	// Snapshot returns a copy of every collection.
	Snapshot() Dataset

	// UserByID returns ErrUserNotFound if no user has the id.
	UserByID(id string) (User, error)

	// AddUser appends to the user list. Returns ErrUserAlreadyExists on a duplicate id or e-mail.
	AddUser(u User) error

	// UpdateUser replaces the user with the same id. Returns ErrUserNotFound.
	UpdateUser(u User) error

	// AddEvent appends an event. Returns ErrEventAlreadyExists on a duplicate id.
	AddEvent(e AcademicEvent) error

	// PaymentByID returns ErrPaymentNotFound if no payment has the id.
	PaymentByID(id string) (Payment, error)

	// UpdatePayment replaces the payment with the same id. Returns ErrPaymentNotFound.
	UpdatePayment(p Payment) error
}
