package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/kidsacademy/school-hub/internal/domain/school"
	"github.com/kidsacademy/school-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// DATASET LOADER
// ══════════════════════════════════════════════════════════════════════════════

// Loader reads the five collections in one pass.
type Loader struct {
	db Querier
}

// NewLoader creates a Loader.
func NewLoader(db Querier) *Loader {
	return &Loader{db: db}
}

const (
	selectStudents = `
		SELECT id, name, class_id, parent_id, grade
		FROM students
		ORDER BY id`

	selectAttendance = `
		SELECT id, student_id, day, status
		FROM attendance
		ORDER BY day, id`

	selectEvents = `
		SELECT id, title, date, type, student_id, class_id, notes, created_by
		FROM events
		ORDER BY id`

	selectPayments = `
		SELECT id, student_id, amount, due_date, status, paid_on, reference
		FROM payments
		ORDER BY due_date, id`

	selectUsers = `
		SELECT id, name, email, role, child_id, class_ids, password_hash
		FROM users
		ORDER BY id`
)

// Load reads every collection.
func (l *Loader) Load(ctx context.Context) (school.Dataset, error) {
	var (
		data school.Dataset
		err  error
	)

	if data.Students, err = queryAll(ctx, l.db, "students", selectStudents, scanStudent); err != nil {
		return school.Dataset{}, err
	}
	if data.Attendance, err = queryAll(ctx, l.db, "attendance", selectAttendance, scanAttendance); err != nil {
		return school.Dataset{}, err
	}
	if data.Events, err = queryAll(ctx, l.db, "events", selectEvents, scanEvent); err != nil {
		return school.Dataset{}, err
	}
	if data.Payments, err = queryAll(ctx, l.db, "payments", selectPayments, scanPayment); err != nil {
		return school.Dataset{}, err
	}
	if data.Users, err = queryAll(ctx, l.db, "users", selectUsers, scanUser); err != nil {
		return school.Dataset{}, err
	}

	return data, nil
}

func queryAll[T any](ctx context.Context, db Querier, table, sql string, scan func(pgx.Row) (T, error)) ([]T, error) {
	rows, err := db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("postgres: load %s: %w", table, err)
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan %s: %w", table, err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: load %s: %w", table, err)
	}

	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Row mapping
// ─────────────────────────────────────────────────────────────────────────────

func scanStudent(row pgx.Row) (school.Student, error) {
	var s school.Student
	err := row.Scan(&s.ID, &s.Name, &s.ClassID, &s.ParentID, &s.Grade)
	return s, err
}

func scanAttendance(row pgx.Row) (school.AttendanceRecord, error) {
	var (
		r   school.AttendanceRecord
		day time.Time
	)
	if err := row.Scan(&r.ID, &r.StudentID, &day, &r.Status); err != nil {
		return r, err
	}
	r.Date = dateString(day)
	return r, nil
}

func scanEvent(row pgx.Row) (school.AcademicEvent, error) {
	var (
		e                  school.AcademicEvent
		studentID, classID *string
	)
	if err := row.Scan(&e.ID, &e.Title, &e.Date, &e.Type, &studentID, &classID, &e.Notes, &e.CreatedBy); err != nil {
		return e, err
	}
	e.Audience = school.AudienceFrom(deref(studentID), deref(classID))
	return e, nil
}

func scanPayment(row pgx.Row) (school.Payment, error) {
	var (
		p       school.Payment
		dueDate time.Time
		paidOn  *time.Time
	)
	if err := row.Scan(&p.ID, &p.StudentID, &p.Amount, &dueDate, &p.Status, &paidOn, &p.Reference); err != nil {
		return p, err
	}
	p.DueDate = dateString(dueDate)
	if paidOn != nil {
		p.PaidOn = dateString(*paidOn)
	}
	return p, nil
}

func scanUser(row pgx.Row) (school.User, error) {
	var (
		u            school.User
		childID      *string
		passwordHash *string
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &childID, &u.ClassIDs, &passwordHash); err != nil {
		return u, err
	}
	u.ChildID = deref(childID)
	u.PasswordHash = deref(passwordHash)
	return u, nil
}

// dateString renders a DATE column. pgx returns DATE values as UTC midnight.
func dateString(t time.Time) string {
	return t.UTC().Format(timeutil.FormatDate)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
