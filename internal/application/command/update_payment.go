package command

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kidsacademy/school-hub/internal/domain/school"
	"github.com/kidsacademy/school-hub/internal/domain/shared"
	"github.com/kidsacademy/school-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// PAYMENT COMMANDS
// Marking a payment paid and changing its status are owner actions.
// ══════════════════════════════════════════════════════════════════════════════

// MarkPaymentPaidCommand settles a payment.
type MarkPaymentPaidCommand struct {
	Actor     school.Viewer
	PaymentID string `validate:"required"`

	// PaidOn is the settlement day. Zero means today.
	PaidOn time.Time

	// Reference is an optional receipt or transfer reference.
	Reference string `validate:"max=100"`
}

// Validate validates the command.
func (c MarkPaymentPaidCommand) Validate() error {
	return checkStruct("mark_payment_paid", c)
}

// UpdatePaymentStatusCommand sets any known status.
type UpdatePaymentStatusCommand struct {
	Actor     school.Viewer
	PaymentID string `validate:"required"`
	Status    school.PaymentStatus
}

// Validate validates the command.
func (c UpdatePaymentStatusCommand) Validate() error {
	if err := checkStruct("update_payment_status", c); err != nil {
		return err
	}
	if !c.Status.IsValid() {
		return school.ErrInvalidStatus
	}
	return nil
}

// PaymentHandler handles payment commands.
type PaymentHandler struct {
	store  school.Store
	cache  DashboardInvalidator
	now    func() time.Time
	logger *slog.Logger
}

// NewPaymentHandler creates a PaymentHandler. cache may be nil.
func NewPaymentHandler(store school.Store, cache DashboardInvalidator, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{
		store:  store,
		cache:  cache,
		now:    time.Now,
		logger: defaultLogger(logger),
	}
}

// MarkPaid sets the payment's status to paid and records the day and
// reference. Marking an already paid payment again overwrites both.
func (h *PaymentHandler) MarkPaid(ctx context.Context, cmd MarkPaymentPaidCommand) (school.Payment, error) {
	if err := cmd.Validate(); err != nil {
		return school.Payment{}, shared.WrapError("command", "MarkPaymentPaid", shared.ErrValidation, err.Error(), err)
	}
	if err := requireOwner(cmd.Actor, "MarkPaymentPaid"); err != nil {
		return school.Payment{}, err
	}

	payment, err := h.store.PaymentByID(cmd.PaymentID)
	if err != nil {
		return school.Payment{}, fmt.Errorf("mark_payment_paid: %w", err)
	}

	paidOn := cmd.PaidOn
	if paidOn.IsZero() {
		paidOn = h.now()
	}
	payment.Status = school.PaymentPaid
	payment.PaidOn = timeutil.DayKey(paidOn)
	payment.Reference = cmd.Reference

	if err := h.store.UpdatePayment(payment); err != nil {
		return school.Payment{}, fmt.Errorf("mark_payment_paid: %w", err)
	}

	h.logger.Info("payment marked paid",
		"payment_id", payment.ID,
		"student_id", payment.StudentID,
		"actor_id", cmd.Actor.ID,
	)
	invalidate(ctx, h.cache, h.logger, "MarkPaymentPaid")

	return payment, nil
}

// UpdateStatus sets the payment's status. Leaving the paid status clears
// the settlement day and reference.
func (h *PaymentHandler) UpdateStatus(ctx context.Context, cmd UpdatePaymentStatusCommand) (school.Payment, error) {
	if err := cmd.Validate(); err != nil {
		return school.Payment{}, shared.WrapError("command", "UpdatePaymentStatus", shared.ErrValidation, err.Error(), err)
	}
	if err := requireOwner(cmd.Actor, "UpdatePaymentStatus"); err != nil {
		return school.Payment{}, err
	}

	payment, err := h.store.PaymentByID(cmd.PaymentID)
	if err != nil {
		return school.Payment{}, fmt.Errorf("update_payment_status: %w", err)
	}

	payment.Status = cmd.Status
	if cmd.Status != school.PaymentPaid {
		payment.PaidOn = ""
		payment.Reference = ""
	}

	if err := h.store.UpdatePayment(payment); err != nil {
		return school.Payment{}, fmt.Errorf("update_payment_status: %w", err)
	}

	h.logger.Info("payment status updated",
		"payment_id", payment.ID,
		"status", string(payment.Status),
		"actor_id", cmd.Actor.ID,
	)
	invalidate(ctx, h.cache, h.logger, "UpdatePaymentStatus")

	return payment, nil
}
