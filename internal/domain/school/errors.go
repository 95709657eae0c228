package school

import "github.com/kidsacademy/school-hub/internal/domain/shared"

// School domain errors
var (
	ErrUserNotFound       = shared.NewDomainError("school", "FindUser", shared.ErrNotFound, "user not found")
	ErrUserAlreadyExists  = shared.NewDomainError("school", "AddUser", shared.ErrAlreadyExists, "user already exists")
	ErrEventAlreadyExists = shared.NewDomainError("school", "AddEvent", shared.ErrAlreadyExists, "event already exists")
	ErrPaymentNotFound    = shared.NewDomainError("school", "FindPayment", shared.ErrNotFound, "payment not found")
	ErrStudentNotFound    = shared.NewDomainError("school", "FindStudent", shared.ErrNotFound, "student not found")
	ErrInvalidRole        = shared.NewDomainError("school", "Validate", shared.ErrInvalidInput, "invalid role")
	ErrInvalidAudience    = shared.NewDomainError("school", "Validate", shared.ErrInvalidInput, "invalid audience")
	ErrInvalidEventType   = shared.NewDomainError("school", "Validate", shared.ErrInvalidInput, "invalid event type")
	ErrInvalidStatus      = shared.NewDomainError("school", "Validate", shared.ErrInvalidInput, "invalid payment status")
)
