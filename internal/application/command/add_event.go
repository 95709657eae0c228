package command

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kidsacademy/school-hub/internal/domain/school"
	"github.com/kidsacademy/school-hub/internal/domain/shared"
	"github.com/kidsacademy/school-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADD EVENT COMMAND
// Appends an academic event. Owners may address anyone. Teachers may address
// their own classes and the students in them, never the whole school.
// Parents may not add events.
// ══════════════════════════════════════════════════════════════════════════════

// AddEventCommand contains the new event.
type AddEventCommand struct {
	Actor    school.Viewer
	Title    string `validate:"notblank,max=200"`
	Date     string
	Type     school.EventType
	Audience school.Audience
	Notes    string
}

// Validate validates the command.
func (c AddEventCommand) Validate() error {
	if err := checkStruct("add_event", c); err != nil {
		return err
	}
	if _, err := timeutil.ParseISO(c.Date, time.UTC); err != nil {
		return fmt.Errorf("add_event: date: %w", err)
	}
	if !c.Type.IsValid() {
		return school.ErrInvalidEventType
	}
	if !c.Audience.IsValid() {
		return school.ErrInvalidAudience
	}
	return nil
}

// AddEventHandler handles AddEventCommand.
type AddEventHandler struct {
	store  school.Store
	cache  DashboardInvalidator
	logger *slog.Logger
}

// NewAddEventHandler creates an AddEventHandler. cache may be nil.
func NewAddEventHandler(store school.Store, cache DashboardInvalidator, logger *slog.Logger) *AddEventHandler {
	return &AddEventHandler{store: store, cache: cache, logger: defaultLogger(logger)}
}

// Handle authorizes and appends the event. The new event gets a fresh id
// and the actor as its author.
func (h *AddEventHandler) Handle(ctx context.Context, cmd AddEventCommand) (school.AcademicEvent, error) {
	if err := cmd.Validate(); err != nil {
		return school.AcademicEvent{}, shared.WrapError("command", "AddEvent", shared.ErrValidation, err.Error(), err)
	}

	students := school.IndexStudents(h.store.Snapshot().Students)
	if err := authorizeAudience(cmd.Actor, cmd.Audience, students); err != nil {
		return school.AcademicEvent{}, err
	}
	if cmd.Audience.Kind == school.AudienceStudent {
		if _, ok := students[cmd.Audience.ID]; !ok {
			return school.AcademicEvent{}, fmt.Errorf("add_event: %w", school.ErrStudentNotFound)
		}
	}

	event := school.AcademicEvent{
		ID:        uuid.New().String(),
		Title:     strings.TrimSpace(cmd.Title),
		Date:      cmd.Date,
		Type:      cmd.Type,
		Audience:  cmd.Audience,
		Notes:     cmd.Notes,
		CreatedBy: cmd.Actor.ID,
	}
	if err := h.store.AddEvent(event); err != nil {
		return school.AcademicEvent{}, fmt.Errorf("add_event: %w", err)
	}

	h.logger.Info("event added",
		"event_id", event.ID,
		"audience", string(event.Audience.Kind),
		"actor_id", cmd.Actor.ID,
	)
	invalidate(ctx, h.cache, h.logger, "AddEvent")

	return event, nil
}

// authorizeAudience checks that actor may address audience.
func authorizeAudience(actor school.Viewer, audience school.Audience, students map[string]school.Student) error {
	forbidden := func(msg string) error {
		return shared.NewDomainError("command", "AddEvent", shared.ErrForbidden, msg)
	}

	switch actor.Role {
	case school.RoleSchoolOwner:
		return nil

	case school.RoleTeacher:
		switch audience.Kind {
		case school.AudienceClass:
			if actor.OwnsClass(audience.ID) {
				return nil
			}
			return forbidden("class is not taught by the teacher")
		case school.AudienceStudent:
			if s, ok := students[audience.ID]; ok && actor.OwnsClass(s.ClassID) {
				return nil
			}
			return forbidden("student is not in the teacher's classes")
		default:
			return forbidden("teachers cannot address the whole school")
		}

	default:
		return forbidden("role cannot add events")
	}
}
