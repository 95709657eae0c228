package query

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/kidsacademy/school-hub/internal/domain/school"
	"github.com/kidsacademy/school-hub/internal/domain/shared"
	"github.com/kidsacademy/school-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET DASHBOARD QUERY
// Resolves the viewer, serves a cached view model when one exists for the
// same viewer, scope, day and month, and composes a fresh one otherwise.
// ══════════════════════════════════════════════════════════════════════════════

// DashboardCacheKeyPrefix prefixes every cached dashboard key.
const DashboardCacheKeyPrefix = "dashboard:"

// DashboardCache stores composed view models.
type DashboardCache interface {
	// GetDashboard returns ok=false on a miss.
	GetDashboard(ctx context.Context, key string) (vm *DashboardViewModel, ok bool, err error)

	SetDashboard(ctx context.Context, key string, vm *DashboardViewModel, ttl time.Duration) error
}

// UserReader resolves viewers by user id.
type UserReader interface {
	DatasetReader
	UserByID(id string) (school.User, error)
}

// GetDashboardQuery names the viewer and the calendar view.
type GetDashboardQuery struct {
	// ViewerID is a user id, used when Viewer is nil.
	ViewerID string

	// Viewer is an identity supplied by the authentication collaborator.
	Viewer *school.Viewer

	// Now is the reference date. Zero means the current time.
	Now time.Time

	// Month is the month to show. Zero means the month of Now.
	Month time.Time

	// Selected is the selected day. Nil means today.
	Selected *time.Time
}

// Validate checks the query and fills defaults.
func (q *GetDashboardQuery) Validate() error {
	if q.Viewer == nil && q.ViewerID == "" {
		return errors.New("either viewer or viewer_id must be provided")
	}
	if q.Now.IsZero() {
		q.Now = time.Now()
	}
	return nil
}

// GetDashboardResult carries the view model and the data problems met while
// composing it.
type GetDashboardResult struct {
	Dashboard *DashboardViewModel

	// Problems is empty for cached results.
	Problems []error

	FromCache bool
}

// GetDashboardHandler handles dashboard queries.
type GetDashboardHandler struct {
	store    UserReader
	composer *DashboardComposer
	cache    DashboardCache
	cacheTTL time.Duration
	location *time.Location
	logger   *slog.Logger
}

// NewGetDashboardHandler creates a handler. cache may be nil.
func NewGetDashboardHandler(
	store UserReader,
	composer *DashboardComposer,
	cache DashboardCache,
	cacheTTL time.Duration,
	logger *slog.Logger,
) *GetDashboardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GetDashboardHandler{
		store:    store,
		composer: composer,
		cache:    cache,
		cacheTTL: cacheTTL,
		location: composer.config.Location,
		logger:   logger,
	}
}

// Handle executes the query.
func (h *GetDashboardHandler) Handle(ctx context.Context, query GetDashboardQuery) (*GetDashboardResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetDashboard", shared.ErrValidation, err.Error(), err)
	}

	viewer, err := h.resolveViewer(query)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := DashboardCacheKey(viewer, h.localize(query.Now), h.localize(h.month(query)), query.Selected)

	if vm, ok := h.tryGetFromCache(ctx, key); ok {
		return &GetDashboardResult{Dashboard: vm, FromCache: true}, nil
	}

	vm, problems := h.composer.ComposeView(viewer, h.store, View{
		Now:      query.Now,
		Month:    query.Month,
		Selected: query.Selected,
	})
	for _, p := range problems {
		h.logger.Warn("dashboard data problem",
			"viewer_id", viewer.ID,
			"role", string(viewer.Role),
			"error", p,
		)
	}

	h.storeInCache(ctx, key, vm)

	return &GetDashboardResult{Dashboard: vm, Problems: problems}, nil
}

func (h *GetDashboardHandler) resolveViewer(query GetDashboardQuery) (school.Viewer, error) {
	if query.Viewer != nil {
		return *query.Viewer, nil
	}
	user, err := h.store.UserByID(query.ViewerID)
	if err != nil {
		return school.Viewer{}, shared.WrapError("query", "GetDashboard", shared.ErrNotFound, "viewer not found", err)
	}
	return user.Viewer(), nil
}

func (h *GetDashboardHandler) month(query GetDashboardQuery) time.Time {
	if query.Month.IsZero() {
		return query.Now
	}
	return query.Month
}

func (h *GetDashboardHandler) localize(t time.Time) time.Time {
	if h.location == nil {
		return t
	}
	return t.In(h.location)
}

// tryGetFromCache treats cache errors as misses.
func (h *GetDashboardHandler) tryGetFromCache(ctx context.Context, key string) (*DashboardViewModel, bool) {
	if h.cache == nil {
		return nil, false
	}
	vm, ok, err := h.cache.GetDashboard(ctx, key)
	if err != nil {
		h.logger.Warn("dashboard cache read failed", "key", key, "error", err)
		return nil, false
	}
	return vm, ok
}

func (h *GetDashboardHandler) storeInCache(ctx context.Context, key string, vm *DashboardViewModel) {
	if h.cache == nil || h.cacheTTL <= 0 {
		return
	}
	if err := h.cache.SetDashboard(ctx, key, vm, h.cacheTTL); err != nil {
		h.logger.Warn("dashboard cache write failed", "key", key, "error", err)
	}
}

// DashboardCacheKey builds the cache key of a view: viewer id, role, the
// viewer's scope (child or classes), the day of now, the shown month and the
// selected day when it is not today. The same user id with another scope
// never shares an entry.
func DashboardCacheKey(viewer school.Viewer, now, month time.Time, selected *time.Time) string {
	var b strings.Builder
	b.WriteString(DashboardCacheKeyPrefix)
	b.WriteString(viewer.ID)
	b.WriteByte(':')
	b.WriteString(string(viewer.Role))
	b.WriteByte(':')
	b.WriteString(viewer.ScopeKey())
	b.WriteByte(':')
	b.WriteString(timeutil.DayKey(now))
	b.WriteByte(':')
	b.WriteString(timeutil.MonthKey(month))
	if selected != nil && !timeutil.IsSameDay(now, *selected) {
		b.WriteByte(':')
		b.WriteString(timeutil.DayKey(selected.In(now.Location())))
	}
	return b.String()
}
