// Package school contains the school domain model: students, attendance,
// academic events, payments and the users who view them.
// This is the core of the business logic - there are no external dependencies here.
package school

import "slices"

// ══════════════════════════════════════════════════════════════════════════════
// DATED
// ══════════════════════════════════════════════════════════════════════════════

// Dated is implemented by every entity that can be placed on a calendar day.
type Dated interface {
	// Ref names the entity kind and its id, for error reporting.
	Ref() (entity, id string)

	// DateValue returns the raw ISO-8601 date the entity is placed on.
	DateValue() string

	// DateField names the field DateValue reads.
	DateField() string
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT
// ══════════════════════════════════════════════════════════════════════════════

// Student is immutable after load.
type Student struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ClassID  string `json:"classId"`
	ParentID string `json:"parentId"`
	Grade    string `json:"grade"`
}

// ══════════════════════════════════════════════════════════════════════════════
// ATTENDANCE
// ══════════════════════════════════════════════════════════════════════════════

// AttendanceStatus is the mark a student received for a day.
type AttendanceStatus string

const (
	AttendancePresent  AttendanceStatus = "present"
	AttendanceAbsent   AttendanceStatus = "absent"
	AttendanceLate     AttendanceStatus = "late"
	AttendanceHoliday  AttendanceStatus = "holiday"
	AttendanceNoRecord AttendanceStatus = "no-record"
)

// IsValid checks that the status is one of the known marks.
func (s AttendanceStatus) IsValid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceHoliday, AttendanceNoRecord:
		return true
	default:
		return false
	}
}

// Counts reports whether the status belongs in an attendance denominator.
// Holidays and missing marks do not.
func (s AttendanceStatus) Counts() bool {
	return s == AttendancePresent || s == AttendanceAbsent || s == AttendanceLate
}

// AttendanceRecord is one mark per (StudentID, Date). Date is a day-only ISO value.
type AttendanceRecord struct {
	ID        string           `json:"id"`
	StudentID string           `json:"studentId"`
	Date      string           `json:"date"`
	Status    AttendanceStatus `json:"status"`
}

// Ref implements Dated.
func (r AttendanceRecord) Ref() (string, string) { return "attendance", r.ID }

// DateValue implements Dated.
func (r AttendanceRecord) DateValue() string { return r.Date }

// DateField implements Dated.
func (AttendanceRecord) DateField() string { return "date" }

// ══════════════════════════════════════════════════════════════════════════════
// ACADEMIC EVENTS
// ══════════════════════════════════════════════════════════════════════════════

// EventType classifies a calendar entry.
type EventType string

const (
	EventTypeEvent   EventType = "event"
	EventTypeTask    EventType = "task"
	EventTypeHoliday EventType = "holiday"
)

// IsValid checks that the type is known.
func (t EventType) IsValid() bool {
	return t == EventTypeEvent || t == EventTypeTask || t == EventTypeHoliday
}

// AudienceKind tells who an event is addressed to.
type AudienceKind string

const (
	AudienceStudent AudienceKind = "student"
	AudienceClass   AudienceKind = "class"
	AudienceSchool  AudienceKind = "school"
)

// Audience is the tagged union of event recipients. ID is the student or
// class id and is empty for the whole school.
type Audience struct {
	Kind AudienceKind `json:"kind"`
	ID   string       `json:"id,omitempty"`
}

// StudentAudience addresses a single student.
func StudentAudience(studentID string) Audience {
	return Audience{Kind: AudienceStudent, ID: studentID}
}

// ClassAudience addresses a whole class.
func ClassAudience(classID string) Audience {
	return Audience{Kind: AudienceClass, ID: classID}
}

// SchoolAudience addresses everyone.
func SchoolAudience() Audience {
	return Audience{Kind: AudienceSchool}
}

// AudienceFrom converts the optional studentId/classId pair of raw data.
// A student id wins over a class id; neither means the whole school.
func AudienceFrom(studentID, classID string) Audience {
	switch {
	case studentID != "":
		return StudentAudience(studentID)
	case classID != "":
		return ClassAudience(classID)
	default:
		return SchoolAudience()
	}
}

// IsValid checks the kind and that non-school audiences carry an id.
func (a Audience) IsValid() bool {
	switch a.Kind {
	case AudienceStudent, AudienceClass:
		return a.ID != ""
	case AudienceSchool:
		return a.ID == ""
	default:
		return false
	}
}

// IsSchool reports a whole-school audience.
func (a Audience) IsSchool() bool { return a.Kind == AudienceSchool }

// AcademicEvent is a calendar entry. Date is an ISO instant or day.
type AcademicEvent struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Date      string    `json:"date"`
	Type      EventType `json:"type"`
	Audience  Audience  `json:"audience"`
	Notes     string    `json:"notes,omitempty"`
	CreatedBy string    `json:"createdBy"`
}

// Ref implements Dated.
func (e AcademicEvent) Ref() (string, string) { return "event", e.ID }

// DateValue implements Dated.
func (e AcademicEvent) DateValue() string { return e.Date }

// DateField implements Dated.
func (AcademicEvent) DateField() string { return "date" }

// ══════════════════════════════════════════════════════════════════════════════
// PAYMENTS
// ══════════════════════════════════════════════════════════════════════════════

// PaymentStatus is the settlement state of a payment.
type PaymentStatus string

const (
	PaymentDue     PaymentStatus = "due"
	PaymentPaid    PaymentStatus = "paid"
	PaymentOverdue PaymentStatus = "overdue"
)

// IsValid checks that the status is known.
func (s PaymentStatus) IsValid() bool {
	return s == PaymentDue || s == PaymentPaid || s == PaymentOverdue
}

// IsOutstanding reports whether money is still owed.
func (s PaymentStatus) IsOutstanding() bool {
	return s == PaymentDue || s == PaymentOverdue
}

// Payment is a fee owed for a student. Amount is a positive whole number.
type Payment struct {
	ID        string        `json:"id"`
	StudentID string        `json:"studentId"`
	Amount    int64         `json:"amount"`
	DueDate   string        `json:"dueDate"`
	Status    PaymentStatus `json:"status"`
	PaidOn    string        `json:"paidOn,omitempty"`
	Reference string        `json:"reference,omitempty"`
}

// Ref implements Dated.
func (p Payment) Ref() (string, string) { return "payment", p.ID }

// DateValue implements Dated.
func (p Payment) DateValue() string { return p.DueDate }

// DateField implements Dated.
func (Payment) DateField() string { return "dueDate" }

// ══════════════════════════════════════════════════════════════════════════════
// USERS
// ══════════════════════════════════════════════════════════════════════════════

// User is an account of the user list. PasswordHash never leaves the process.
type User struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	Role         Role     `json:"role"`
	ChildID      string   `json:"childId,omitempty"`
	ClassIDs     []string `json:"classIds,omitempty"`
	PasswordHash string   `json:"-"`
}

// Viewer returns the identity the user browses dashboards with.
func (u User) Viewer() Viewer {
	return Viewer{
		ID:       u.ID,
		Role:     u.Role,
		ChildID:  u.ChildID,
		ClassIDs: slices.Clone(u.ClassIDs),
	}
}
