package query

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidsacademy/school-hub/internal/domain/school"
	"github.com/kidsacademy/school-hub/internal/domain/shared"
)

type fakeCache struct {
	items   map[string]*DashboardViewModel
	ttls    map[string]time.Duration
	readErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		items: make(map[string]*DashboardViewModel),
		ttls:  make(map[string]time.Duration),
	}
}

func (c *fakeCache) GetDashboard(_ context.Context, key string) (*DashboardViewModel, bool, error) {
	if c.readErr != nil {
		return nil, false, c.readErr
	}
	vm, ok := c.items[key]
	return vm, ok, nil
}

func (c *fakeCache) SetDashboard(_ context.Context, key string, vm *DashboardViewModel, ttl time.Duration) error {
	c.items[key] = vm
	c.ttls[key] = ttl
	return nil
}

func newTestHandler(store *fakeStore, cache DashboardCache, buf *bytes.Buffer) *GetDashboardHandler {
	logger := slog.New(slog.NewTextHandler(buf, nil))
	return NewGetDashboardHandler(store, NewDashboardComposer(DefaultComposerConfig()), cache, time.Minute, logger)
}

func TestGetDashboard_ResolvesViewerByID(t *testing.T) {
	var logs bytes.Buffer
	store := &fakeStore{data: testDataset()}
	h := newTestHandler(store, nil, &logs)

	res, err := h.Handle(context.Background(), GetDashboardQuery{ViewerID: "t1", Now: referenceNow})
	require.NoError(t, err)

	assert.False(t, res.FromCache)
	assert.Equal(t, school.RoleTeacher, res.Dashboard.Role)
	require.NotNil(t, res.Dashboard.Teacher)
	require.Len(t, res.Problems, 1)

	assert.Contains(t, logs.String(), "dashboard data problem")
	assert.Contains(t, logs.String(), "viewer_id=t1")
	assert.Contains(t, logs.String(), "role=teacher")
}

func TestGetDashboard_CacheAside(t *testing.T) {
	var logs bytes.Buffer
	store := &fakeStore{data: testDataset()}
	cache := newFakeCache()
	h := newTestHandler(store, cache, &logs)
	q := GetDashboardQuery{ViewerID: "p1", Now: referenceNow}

	first, err := h.Handle(context.Background(), q)
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, 1, store.snapshots)

	key := "dashboard:p1:parent:s1:2024-03-15:2024-03"
	require.Contains(t, cache.items, key)
	assert.Equal(t, time.Minute, cache.ttls[key])

	second, err := h.Handle(context.Background(), q)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Same(t, first.Dashboard, second.Dashboard)
	assert.Equal(t, 1, store.snapshots)
}

func TestGetDashboard_CacheErrorFallsBackToCompose(t *testing.T) {
	var logs bytes.Buffer
	store := &fakeStore{data: testDataset()}
	cache := newFakeCache()
	cache.readErr = errors.New("connection refused")
	h := newTestHandler(store, cache, &logs)

	res, err := h.Handle(context.Background(), GetDashboardQuery{ViewerID: "o1", Now: referenceNow})
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.NotNil(t, res.Dashboard.Owner)
	assert.Contains(t, logs.String(), "dashboard cache read failed")
}

func TestGetDashboard_Errors(t *testing.T) {
	var logs bytes.Buffer
	h := newTestHandler(&fakeStore{data: testDataset()}, nil, &logs)

	_, err := h.Handle(context.Background(), GetDashboardQuery{})
	assert.True(t, shared.IsValidation(err))

	_, err = h.Handle(context.Background(), GetDashboardQuery{ViewerID: "nobody"})
	assert.True(t, shared.IsNotFound(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = h.Handle(ctx, GetDashboardQuery{ViewerID: "o1"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGetDashboard_ExplicitViewer(t *testing.T) {
	var logs bytes.Buffer
	h := newTestHandler(&fakeStore{data: testDataset()}, nil, &logs)

	viewer := school.Viewer{ID: "x", Role: "auditor"}
	res, err := h.Handle(context.Background(), GetDashboardQuery{Viewer: &viewer, Now: referenceNow})
	require.NoError(t, err)
	assert.True(t, res.Dashboard.IsEmpty())
	assert.Contains(t, logs.String(), "unknown role")
}

func TestDashboardCacheKey(t *testing.T) {
	v := school.Viewer{ID: "t1", Role: school.RoleTeacher, ClassIDs: []string{"c2", "c1", "c2", ""}}
	march := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "dashboard:t1:teacher:c1,c2:2024-03-15:2024-03", DashboardCacheKey(v, referenceNow, march, nil))

	sameDay := time.Date(2024, time.March, 15, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, "dashboard:t1:teacher:c1,c2:2024-03-15:2024-03", DashboardCacheKey(v, referenceNow, march, &sameDay))

	other := time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "dashboard:t1:teacher:c1,c2:2024-03-15:2024-03:2024-03-02", DashboardCacheKey(v, referenceNow, march, &other))

	owner := school.Viewer{ID: "o1", Role: school.RoleSchoolOwner}
	assert.Equal(t, "dashboard:o1:schoolOwner:-:2024-03-15:2024-03", DashboardCacheKey(owner, referenceNow, march, nil))
}

func TestGetDashboard_CacheSeparatesViewerScopes(t *testing.T) {
	var logs bytes.Buffer
	store := &fakeStore{data: testDataset()}
	cache := newFakeCache()
	h := newTestHandler(store, cache, &logs)
	ctx := context.Background()

	first := school.Viewer{ID: "p1", Role: school.RoleParent, ChildID: "s1"}
	res, err := h.Handle(ctx, GetDashboardQuery{Viewer: &first, Now: referenceNow})
	require.NoError(t, err)
	require.NotNil(t, res.Dashboard.Parent.Child)
	assert.Equal(t, "s1", res.Dashboard.Parent.Child.ID)

	// Same user id, another child: must not be served the first child's view.
	second := school.Viewer{ID: "p1", Role: school.RoleParent, ChildID: "s3"}
	res, err = h.Handle(ctx, GetDashboardQuery{Viewer: &second, Now: referenceNow})
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	require.NotNil(t, res.Dashboard.Parent.Child)
	assert.Equal(t, "s3", res.Dashboard.Parent.Child.ID)

	teacher := school.Viewer{ID: "t1", Role: school.RoleTeacher, ClassIDs: []string{"c1"}}
	_, err = h.Handle(ctx, GetDashboardQuery{Viewer: &teacher, Now: referenceNow})
	require.NoError(t, err)

	moved := school.Viewer{ID: "t1", Role: school.RoleTeacher, ClassIDs: []string{"c2"}}
	res, err = h.Handle(ctx, GetDashboardQuery{Viewer: &moved, Now: referenceNow})
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	require.NotNil(t, res.Dashboard.Teacher)
	require.Len(t, res.Dashboard.Teacher.Classes, 1)
	assert.Equal(t, "c2", res.Dashboard.Teacher.Classes[0].ClassID)

	assert.Len(t, cache.items, 4)
}
