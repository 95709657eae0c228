package command

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kidsacademy/school-hub/internal/domain/school"
	"github.com/kidsacademy/school-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER COMMANDS
// The user list is the only collection the store appends to besides events.
// Passwords are stored as bcrypt hashes.
// ══════════════════════════════════════════════════════════════════════════════

// AddUserCommand creates a user.
type AddUserCommand struct {
	Actor    school.Viewer
	Name     string `validate:"notblank,max=100"`
	Email    string `validate:"required,email"`
	Password string `validate:"min=8"`
	Role     school.Role
	ChildID  string
	ClassIDs []string
}

// Validate validates the command.
func (c AddUserCommand) Validate() error {
	if err := checkStruct("add_user", c); err != nil {
		return err
	}
	if !c.Role.IsValid() {
		return school.ErrInvalidRole
	}
	return nil
}

// UpdateUserCommand replaces a user's profile. Nil fields are left unchanged.
type UpdateUserCommand struct {
	Actor    school.Viewer
	UserID   string  `validate:"required"`
	Name     *string `validate:"omitempty,notblank,max=100"`
	Email    *string `validate:"omitempty,email"`
	Password *string `validate:"omitempty,min=8"`
	Role     *school.Role
	ChildID  *string
	ClassIDs []string
}

// Validate validates the command.
func (c UpdateUserCommand) Validate() error {
	if err := checkStruct("update_user", c); err != nil {
		return err
	}
	if c.Role != nil && !c.Role.IsValid() {
		return school.ErrInvalidRole
	}
	return nil
}

// profile is the part of a user the update must leave valid.
type profile struct {
	Name  string `validate:"notblank,max=100"`
	Email string `validate:"required,email"`
}

func validateProfile(op string, u school.User) error {
	if err := checkStruct(op, profile{Name: u.Name, Email: u.Email}); err != nil {
		return err
	}
	if !u.Role.IsValid() {
		return school.ErrInvalidRole
	}
	return nil
}

// UserHandler handles user commands. Only school owners manage users.
type UserHandler struct {
	store  school.Store
	cache  DashboardInvalidator
	cost   int
	logger *slog.Logger
}

// NewUserHandler creates a UserHandler. cache may be nil.
func NewUserHandler(store school.Store, cache DashboardInvalidator, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		store:  store,
		cache:  cache,
		cost:   bcrypt.DefaultCost,
		logger: defaultLogger(logger),
	}
}

// Add appends a new user with a fresh id.
func (h *UserHandler) Add(ctx context.Context, cmd AddUserCommand) (school.User, error) {
	if err := cmd.Validate(); err != nil {
		return school.User{}, shared.WrapError("command", "AddUser", shared.ErrValidation, err.Error(), err)
	}
	if err := requireOwner(cmd.Actor, "AddUser"); err != nil {
		return school.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), h.cost)
	if err != nil {
		return school.User{}, fmt.Errorf("add_user: hash password: %w", err)
	}

	user := school.User{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(cmd.Name),
		Email:        strings.ToLower(strings.TrimSpace(cmd.Email)),
		Role:         cmd.Role,
		PasswordHash: string(hash),
	}
	assignAssociations(&user, cmd.ChildID, cmd.ClassIDs)

	if err := h.store.AddUser(user); err != nil {
		return school.User{}, fmt.Errorf("add_user: %w", err)
	}

	h.logger.Info("user added", "user_id", user.ID, "role", string(user.Role), "actor_id", cmd.Actor.ID)
	invalidate(ctx, h.cache, h.logger, "AddUser")

	return user, nil
}

// Update applies the set fields of cmd to an existing user.
func (h *UserHandler) Update(ctx context.Context, cmd UpdateUserCommand) (school.User, error) {
	if err := cmd.Validate(); err != nil {
		return school.User{}, shared.WrapError("command", "UpdateUser", shared.ErrValidation, err.Error(), err)
	}
	if err := requireOwner(cmd.Actor, "UpdateUser"); err != nil {
		return school.User{}, err
	}

	user, err := h.store.UserByID(cmd.UserID)
	if err != nil {
		return school.User{}, fmt.Errorf("update_user: %w", err)
	}

	if cmd.Name != nil {
		user.Name = strings.TrimSpace(*cmd.Name)
	}
	if cmd.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*cmd.Email))
	}
	if cmd.Role != nil {
		user.Role = *cmd.Role
	}
	childID := user.ChildID
	if cmd.ChildID != nil {
		childID = *cmd.ChildID
	}
	classIDs := user.ClassIDs
	if cmd.ClassIDs != nil {
		classIDs = cmd.ClassIDs
	}
	assignAssociations(&user, childID, classIDs)

	if err := validateProfile("update_user", user); err != nil {
		return school.User{}, shared.WrapError("command", "UpdateUser", shared.ErrValidation, err.Error(), err)
	}

	if cmd.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*cmd.Password), h.cost)
		if err != nil {
			return school.User{}, fmt.Errorf("update_user: hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}

	if err := h.store.UpdateUser(user); err != nil {
		return school.User{}, fmt.Errorf("update_user: %w", err)
	}

	h.logger.Info("user updated", "user_id", user.ID, "role", string(user.Role), "actor_id", cmd.Actor.ID)
	invalidate(ctx, h.cache, h.logger, "UpdateUser")

	return user, nil
}

// CheckPassword reports whether password matches the user's hash.
func CheckPassword(user school.User, password string) bool {
	if user.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

// assignAssociations keeps only the association meaningful for the role.
func assignAssociations(u *school.User, childID string, classIDs []string) {
	u.ChildID = ""
	u.ClassIDs = nil
	switch u.Role {
	case school.RoleParent:
		u.ChildID = childID
	case school.RoleTeacher:
		ids := make([]string, 0, len(classIDs))
		for _, id := range classIDs {
			if id != "" && !slices.Contains(ids, id) {
				ids = append(ids, id)
			}
		}
		u.ClassIDs = ids
	}
}
