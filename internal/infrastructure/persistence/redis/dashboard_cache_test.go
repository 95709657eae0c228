package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidsacademy/school-hub/internal/application/query"
	"github.com/kidsacademy/school-hub/internal/domain/school"
	"github.com/kidsacademy/school-hub/pkg/circuitbreaker"
)

// testClient connects to REDIS_TEST_ADDR and skips the test when it is unset
// or unreachable.
func testClient(t *testing.T) *goredis.Client {
	t.Helper()

	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}

	client := goredis.NewClient(&goredis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not reachable at %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func TestConfig_Addr(t *testing.T) {
	assert.Equal(t, "localhost:6379", DefaultConfig().Addr())

	cfg := DefaultConfig()
	cfg.Host, cfg.Port, cfg.DB = "cache", 6380, 2
	opts := cfg.options()
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
}

func TestConnect_Unreachable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Host, cfg.Port = "127.0.0.1", 1
	cfg.MaxRetries = -1
	cfg.DialTimeout = 100 * time.Millisecond

	_, err := Connect(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrConnection)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
}

func TestDashboardCache_Validation(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()
	dc := NewDashboardCache(client, "test")
	ctx := context.Background()

	vm := &query.DashboardViewModel{ViewerID: "p1"}
	assert.ErrorIs(t, dc.SetDashboard(ctx, "", vm, time.Minute), ErrEmptyKey)
	assert.ErrorIs(t, dc.SetDashboard(ctx, "k", nil, time.Minute), ErrNilDashboard)
	assert.ErrorIs(t, dc.SetDashboard(ctx, "k", vm, -time.Second), ErrInvalidTTL)

	_, _, err := dc.GetDashboard(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func TestDashboardCache_RoundTripAndInvalidate(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()
	namespace := "test-" + time.Now().Format("150405.000000")
	dc := NewDashboardCache(client, namespace)
	other := NewDashboardCache(client, namespace+"-other")

	key := query.DashboardCacheKey(
		school.Viewer{ID: "p1", Role: school.RoleParent, ChildID: "s1"},
		time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		nil,
	)

	_, ok, err := dc.GetDashboard(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	vm := &query.DashboardViewModel{
		ViewerID:           "p1",
		Role:               school.RoleParent,
		Today:              "2024-03-15",
		UpcomingEventCount: 2,
		Parent:             &query.ParentDashboardDTO{TodayStatus: school.AttendancePresent},
	}
	require.NoError(t, dc.SetDashboard(ctx, key, vm, time.Minute))
	require.NoError(t, other.SetDashboard(ctx, key, vm, time.Minute))
	t.Cleanup(func() { _ = other.InvalidateDashboards(context.Background()) })

	ttl, err := client.TTL(ctx, namespace+":"+key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	got, ok, err := dc.GetDashboard(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "p1", got.ViewerID)
	assert.Equal(t, 2, got.UpcomingEventCount)
	require.NotNil(t, got.Parent)
	assert.Equal(t, school.AttendancePresent, got.Parent.TodayStatus)

	require.NoError(t, dc.InvalidateDashboards(ctx))
	_, ok, err = dc.GetDashboard(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = other.GetDashboard(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok, "invalidation stays inside its namespace")
}

func TestDashboardCache_UndecodableEntry(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()
	namespace := "test-" + time.Now().Format("150405.000000")
	dc := NewDashboardCache(client, namespace)
	t.Cleanup(func() { _ = dc.InvalidateDashboards(context.Background()) })

	key := query.DashboardCacheKeyPrefix + "p1"
	require.NoError(t, client.Set(ctx, namespace+":"+key, "{not json", time.Minute).Err())

	_, ok, err := dc.GetDashboard(ctx, key)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrEncoding)
	assert.False(t, IsConnectionFailure(err))
}

func TestDashboardCache_InvalidateManyKeys(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()
	namespace := "test-" + time.Now().Format("150405.000000")
	dc := NewDashboardCache(client, namespace)

	for i := 0; i < invalidateBatch+5; i++ {
		key := fmt.Sprintf("%sv%d", query.DashboardCacheKeyPrefix, i)
		require.NoError(t, dc.SetDashboard(ctx, key, &query.DashboardViewModel{ViewerID: "v"}, time.Minute))
	}

	removed, err := dc.unlinkMatching(ctx, namespace+":"+query.DashboardCacheKeyPrefix+"*")
	require.NoError(t, err)
	assert.Equal(t, invalidateBatch+5, removed)
}

func TestDashboardCache_BreakerSkipsUnhealthyRedis(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:0",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	defer client.Close()

	var opened bool
	cb := circuitbreaker.CacheBreaker(IsConnectionFailure, func(_ string, _, to circuitbreaker.State) {
		opened = opened || to == circuitbreaker.StateOpen
	})
	dc := NewDashboardCache(client, "test").WithBreaker(cb)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := dc.GetDashboard(ctx, "k")
		require.Error(t, err)
	}
	require.True(t, opened)

	vm, ok, err := dc.GetDashboard(ctx, "k")
	assert.NoError(t, err, "an open breaker reads as a miss")
	assert.False(t, ok)
	assert.Nil(t, vm)

	assert.NoError(t, dc.SetDashboard(ctx, "k", &query.DashboardViewModel{ViewerID: "p1"}, time.Minute))
	assert.ErrorIs(t, dc.InvalidateDashboards(ctx), circuitbreaker.ErrCircuitOpen)
}

func TestIsConnectionFailure(t *testing.T) {
	assert.False(t, IsConnectionFailure(nil))
	assert.False(t, IsConnectionFailure(goredis.Nil))
	assert.False(t, IsConnectionFailure(ErrEmptyKey))
	assert.False(t, IsConnectionFailure(fmt.Errorf("%w: eof", ErrEncoding)))
	assert.False(t, IsConnectionFailure(context.Canceled))
	assert.True(t, IsConnectionFailure(errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")))
	assert.True(t, IsConnectionFailure(context.DeadlineExceeded))
}
