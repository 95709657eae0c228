// Package memory implements the entity store in process memory.
package memory

import (
	"slices"
	"strings"
	"sync"

	"github.com/kidsacademy/school-hub/internal/domain/school"
)

// ══════════════════════════════════════════════════════════════════════════════
// STORE - in-memory entity collections
// ══════════════════════════════════════════════════════════════════════════════

// Store holds the collections loaded at startup. Mutations replace rows in
// place and are lost on restart.
type Store struct {
	mu sync.RWMutex

	data school.Dataset

	// version is incremented on each mutation.
	version int64
}

var _ school.Store = (*Store)(nil)

// NewStore creates a store holding a copy of data.
func NewStore(data school.Dataset) *Store {
	return &Store{data: data.Clone()}
}

// Replace swaps every collection for a copy of data.
func (s *Store) Replace(data school.Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = data.Clone()
	s.touch()
}

// Snapshot returns a copy of every collection.
func (s *Store) Snapshot() school.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.data.Clone()
}

// Version returns the mutation counter.
func (s *Store) Version() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.version
}

// ─────────────────────────────────────────────────────────────────────────────
// Users
// ─────────────────────────────────────────────────────────────────────────────

// UserByID returns school.ErrUserNotFound if no user has the id.
func (s *Store) UserByID(id string) (school.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.userIndex(id)
	if i < 0 {
		return school.User{}, school.ErrUserNotFound
	}
	return cloneUser(s.data.Users[i]), nil
}

// AddUser appends u. Ids and e-mails are unique; e-mails compare case-insensitively.
func (s *Store) AddUser(u school.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.data.Users {
		if existing.ID == u.ID || sameEmail(existing.Email, u.Email) {
			return school.ErrUserAlreadyExists
		}
	}

	s.data.Users = append(s.data.Users, cloneUser(u))
	s.touch()
	return nil
}

// UpdateUser replaces the user with u's id.
func (s *Store) UpdateUser(u school.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.userIndex(u.ID)
	if i < 0 {
		return school.ErrUserNotFound
	}
	for j, existing := range s.data.Users {
		if j != i && sameEmail(existing.Email, u.Email) {
			return school.ErrUserAlreadyExists
		}
	}

	s.data.Users[i] = cloneUser(u)
	s.touch()
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Events
// ─────────────────────────────────────────────────────────────────────────────

// AddEvent appends e.
func (s *Store) AddEvent(e school.AcademicEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.data.Events {
		if existing.ID == e.ID {
			return school.ErrEventAlreadyExists
		}
	}

	s.data.Events = append(s.data.Events, e)
	s.touch()
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Payments
// ─────────────────────────────────────────────────────────────────────────────

// PaymentByID returns school.ErrPaymentNotFound if no payment has the id.
func (s *Store) PaymentByID(id string) (school.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.paymentIndex(id)
	if i < 0 {
		return school.Payment{}, school.ErrPaymentNotFound
	}
	return s.data.Payments[i], nil
}

// UpdatePayment replaces the payment with p's id.
func (s *Store) UpdatePayment(p school.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.paymentIndex(p.ID)
	if i < 0 {
		return school.ErrPaymentNotFound
	}

	s.data.Payments[i] = p
	s.touch()
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers (callers hold the lock)
// ─────────────────────────────────────────────────────────────────────────────

func (s *Store) touch() {
	s.version++
}

func (s *Store) userIndex(id string) int {
	return slices.IndexFunc(s.data.Users, func(u school.User) bool { return u.ID == id })
}

func (s *Store) paymentIndex(id string) int {
	return slices.IndexFunc(s.data.Payments, func(p school.Payment) bool { return p.ID == id })
}

func cloneUser(u school.User) school.User {
	u.ClassIDs = slices.Clone(u.ClassIDs)
	return u
}

func sameEmail(a, b string) bool {
	return a != "" && strings.EqualFold(a, b)
}
