// Package visibility scopes entity collections to what a viewer may see.
//
// Every role gets its own Filter variant. Callers obtain one with For and
// apply it before any bucketing or aggregation, so totals never include rows
// the viewer cannot see.
package visibility

import (
	"github.com/kidsacademy/school-hub/internal/domain/school"
	"github.com/kidsacademy/school-hub/internal/domain/shared"
)

// Filter returns the visible subset of each collection. Output order follows
// input order and applying a Filter twice gives the same result as once.
type Filter interface {
	Events(events []school.AcademicEvent) []school.AcademicEvent
	Attendance(records []school.AttendanceRecord) []school.AttendanceRecord
	Payments(payments []school.Payment) []school.Payment
	Students(students []school.Student) []school.Student
}

// For returns the filter of viewer's role. students is the full roster used
// to resolve the class of attendance rows, payments and student-addressed
// events.
//
// An unrecognized role yields a filter that hides everything together with a
// *shared.UnknownRoleError. A parent without a child or a teacher without
// classes gets a working filter together with a *shared.MissingAssociationError.
func For(viewer school.Viewer, students []school.Student) (Filter, error) {
	switch viewer.Role {
	case school.RoleSchoolOwner:
		return ownerFilter{}, nil

	case school.RoleParent:
		f := parentFilter{childID: viewer.ChildID}
		if viewer.ChildID == "" {
			return f, &shared.MissingAssociationError{ViewerID: viewer.ID, Role: string(viewer.Role), Missing: "child"}
		}
		return f, nil

	case school.RoleTeacher:
		f := newTeacherFilter(viewer.OwnedClassIDs(), students)
		if len(f.classes) == 0 {
			return f, &shared.MissingAssociationError{ViewerID: viewer.ID, Role: string(viewer.Role), Missing: "classes"}
		}
		return f, nil

	default:
		return denyFilter{}, &shared.UnknownRoleError{ViewerID: viewer.ID, Role: string(viewer.Role)}
	}
}

// Scope applies f to every collection of d. Users are not entity rows and
// are left out of the scoped dataset.
func Scope(f Filter, d school.Dataset) school.Dataset {
	return school.Dataset{
		Students:   f.Students(d.Students),
		Attendance: f.Attendance(d.Attendance),
		Events:     f.Events(d.Events),
		Payments:   f.Payments(d.Payments),
	}
}

// keep returns the elements of items for which visible is true.
func keep[T any](items []T, visible func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if visible(item) {
			out = append(out, item)
		}
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHOOL OWNER
// ══════════════════════════════════════════════════════════════════════════════

type ownerFilter struct{}

func (ownerFilter) Events(events []school.AcademicEvent) []school.AcademicEvent {
	return append(make([]school.AcademicEvent, 0, len(events)), events...)
}

func (ownerFilter) Attendance(records []school.AttendanceRecord) []school.AttendanceRecord {
	return append(make([]school.AttendanceRecord, 0, len(records)), records...)
}

func (ownerFilter) Payments(payments []school.Payment) []school.Payment {
	return append(make([]school.Payment, 0, len(payments)), payments...)
}

func (ownerFilter) Students(students []school.Student) []school.Student {
	return append(make([]school.Student, 0, len(students)), students...)
}

// ══════════════════════════════════════════════════════════════════════════════
// PARENT
// ══════════════════════════════════════════════════════════════════════════════

// parentFilter shows the child's own rows plus whole-school events.
type parentFilter struct {
	childID string
}

func (f parentFilter) isChild(studentID string) bool {
	return f.childID != "" && studentID == f.childID
}

func (f parentFilter) Events(events []school.AcademicEvent) []school.AcademicEvent {
	return keep(events, func(e school.AcademicEvent) bool {
		switch e.Audience.Kind {
		case school.AudienceSchool:
			return true
		case school.AudienceStudent:
			return f.isChild(e.Audience.ID)
		default:
			return false
		}
	})
}

func (f parentFilter) Attendance(records []school.AttendanceRecord) []school.AttendanceRecord {
	return keep(records, func(r school.AttendanceRecord) bool { return f.isChild(r.StudentID) })
}

func (f parentFilter) Payments(payments []school.Payment) []school.Payment {
	return keep(payments, func(p school.Payment) bool { return f.isChild(p.StudentID) })
}

func (f parentFilter) Students(students []school.Student) []school.Student {
	return keep(students, func(s school.Student) bool { return f.isChild(s.ID) })
}

// ══════════════════════════════════════════════════════════════════════════════
// TEACHER
// ══════════════════════════════════════════════════════════════════════════════

// teacherFilter shows rows of the owned classes. Attendance, payments and
// student-addressed events are joined to the roster to find their class.
type teacherFilter struct {
	classes       map[string]struct{}
	studentsClass map[string]string
}

func newTeacherFilter(classIDs []string, students []school.Student) teacherFilter {
	f := teacherFilter{
		classes:       make(map[string]struct{}, len(classIDs)),
		studentsClass: make(map[string]string, len(students)),
	}
	for _, id := range classIDs {
		f.classes[id] = struct{}{}
	}
	for id, s := range school.IndexStudents(students) {
		f.studentsClass[id] = s.ClassID
	}
	return f
}

func (f teacherFilter) ownsClass(classID string) bool {
	_, ok := f.classes[classID]
	return classID != "" && ok
}

func (f teacherFilter) ownsStudent(studentID string) bool {
	classID, ok := f.studentsClass[studentID]
	return ok && f.ownsClass(classID)
}

func (f teacherFilter) Events(events []school.AcademicEvent) []school.AcademicEvent {
	return keep(events, func(e school.AcademicEvent) bool {
		switch e.Audience.Kind {
		case school.AudienceSchool:
			return true
		case school.AudienceClass:
			return f.ownsClass(e.Audience.ID)
		case school.AudienceStudent:
			return f.ownsStudent(e.Audience.ID)
		default:
			return false
		}
	})
}

func (f teacherFilter) Attendance(records []school.AttendanceRecord) []school.AttendanceRecord {
	return keep(records, func(r school.AttendanceRecord) bool { return f.ownsStudent(r.StudentID) })
}

func (f teacherFilter) Payments(payments []school.Payment) []school.Payment {
	return keep(payments, func(p school.Payment) bool { return f.ownsStudent(p.StudentID) })
}

func (f teacherFilter) Students(students []school.Student) []school.Student {
	return keep(students, func(s school.Student) bool { return f.ownsClass(s.ClassID) })
}

// ══════════════════════════════════════════════════════════════════════════════
// DENY
// ══════════════════════════════════════════════════════════════════════════════

// denyFilter hides everything. It is used for unrecognized roles.
type denyFilter struct{}

func (denyFilter) Events([]school.AcademicEvent) []school.AcademicEvent {
	return []school.AcademicEvent{}
}

func (denyFilter) Attendance([]school.AttendanceRecord) []school.AttendanceRecord {
	return []school.AttendanceRecord{}
}

func (denyFilter) Payments([]school.Payment) []school.Payment {
	return []school.Payment{}
}

func (denyFilter) Students([]school.Student) []school.Student {
	return []school.Student{}
}
