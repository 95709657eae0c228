// Package shared contains common domain types, errors and value objects
// that are used across all domain packages.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation   = errors.New("validation error")
	ErrInvalidInput = errors.New("invalid input")
	ErrInvalidID    = errors.New("invalid ID")

	// Authorization errors
	ErrForbidden = errors.New("forbidden")

	// Data-shape errors collected on the side channel of aggregations.
	ErrMalformedDate      = errors.New("malformed date")
	ErrUnknownRole        = errors.New("unknown role")
	ErrMissingAssociation = errors.New("missing association")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "school", "calendar", "stats"
	Op      string // Operation that failed, e.g., "AddEvent"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// MalformedDateError reports an item whose date field could not be parsed.
// The item is left out of bucketing, grid placement and statistics.
type MalformedDateError struct {
	Entity string // "event", "attendance", "payment"
	ID     string
	Field  string
	Value  string
	Err    error
}

func (e *MalformedDateError) Error() string {
	return fmt.Sprintf("%s %s: malformed %s %q", e.Entity, e.ID, e.Field, e.Value)
}

func (e *MalformedDateError) Unwrap() error { return e.Err }

func (e *MalformedDateError) Is(target error) bool { return target == ErrMalformedDate }

// UnknownRoleError reports a viewer whose role is not recognized.
// Visibility fails closed for such viewers.
type UnknownRoleError struct {
	ViewerID string
	Role     string
}

func (e *UnknownRoleError) Error() string {
	return fmt.Sprintf("viewer %s: unknown role %q", e.ViewerID, e.Role)
}

func (e *UnknownRoleError) Is(target error) bool { return target == ErrUnknownRole }

// MissingAssociationError is informational: a parent without a child or a
// teacher without classes. The dashboard is empty but valid.
type MissingAssociationError struct {
	ViewerID string
	Role     string
	Missing  string // "child" or "classes"
}

func (e *MissingAssociationError) Error() string {
	return fmt.Sprintf("viewer %s (%s): no %s associated", e.ViewerID, e.Role, e.Missing)
}

func (e *MissingAssociationError) Is(target error) bool { return target == ErrMissingAssociation }

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidID)
}

// IsForbidden checks if the error is an authorization error.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsDataShape reports whether err is one of the non-fatal errors collected
// on the side channel of an aggregation.
func IsDataShape(err error) bool {
	return errors.Is(err, ErrMalformedDate) ||
		errors.Is(err, ErrUnknownRole) ||
		errors.Is(err, ErrMissingAssociation)
}
