package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kidsacademy/school-hub/internal/application/command"
	"github.com/kidsacademy/school-hub/internal/application/query"
	"github.com/kidsacademy/school-hub/pkg/circuitbreaker"
)

// invalidateBatch is the SCAN page size and the number of keys per UNLINK.
const invalidateBatch = 100

// DashboardCache caches composed dashboards under query.DashboardCacheKey
// keys. Any store mutation drops all of them.
type DashboardCache struct {
	client  redis.Cmdable
	prefix  string
	breaker *circuitbreaker.CircuitBreaker
}

var (
	_ query.DashboardCache         = (*DashboardCache)(nil)
	_ command.DashboardInvalidator = (*DashboardCache)(nil)
)

// NewDashboardCache creates a DashboardCache. namespace separates
// deployments sharing one Redis database and may be empty.
func NewDashboardCache(client redis.Cmdable, namespace string) *DashboardCache {
	prefix := ""
	if namespace != "" {
		prefix = namespace + ":"
	}
	return &DashboardCache{client: client, prefix: prefix}
}

// WithBreaker runs every round trip through cb. While cb is open, reads
// report a miss and writes are skipped; invalidation returns the rejection.
func (c *DashboardCache) WithBreaker(cb *circuitbreaker.CircuitBreaker) *DashboardCache {
	c.breaker = cb
	return c
}

// GetDashboard returns ok=false when nothing is cached under key.
func (c *DashboardCache) GetDashboard(ctx context.Context, key string) (*query.DashboardViewModel, bool, error) {
	if key == "" {
		return nil, false, ErrEmptyKey
	}

	var (
		data  []byte
		found bool
	)
	err := c.do(ctx, func(ctx context.Context) error {
		b, err := c.client.Get(ctx, c.prefix+key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		data, found = b, err == nil
		return err
	})
	switch {
	case circuitbreaker.IsRejected(err):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	case !found:
		return nil, false, nil
	}

	var vm query.DashboardViewModel
	if err := json.Unmarshal(data, &vm); err != nil {
		return nil, false, fmt.Errorf("%w: %s: %v", ErrEncoding, key, err)
	}
	return &vm, true, nil
}

// SetDashboard stores vm under key for ttl. A zero ttl means no expiry.
func (c *DashboardCache) SetDashboard(ctx context.Context, key string, vm *query.DashboardViewModel, ttl time.Duration) error {
	switch {
	case key == "":
		return ErrEmptyKey
	case vm == nil:
		return ErrNilDashboard
	case ttl < 0:
		return ErrInvalidTTL
	}

	data, err := json.Marshal(vm)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrEncoding, key, err)
	}

	err = c.do(ctx, func(ctx context.Context) error {
		return c.client.Set(ctx, c.prefix+key, data, ttl).Err()
	})
	if circuitbreaker.IsRejected(err) {
		return nil
	}
	return err
}

// InvalidateDashboards deletes every cached dashboard of the namespace.
// SCAN walks the whole database, so this is meant for rare mutations.
func (c *DashboardCache) InvalidateDashboards(ctx context.Context) error {
	return c.do(ctx, func(ctx context.Context) error {
		_, err := c.unlinkMatching(ctx, c.prefix+query.DashboardCacheKeyPrefix+"*")
		return err
	})
}

// unlinkMatching removes the keys matching pattern and returns how many.
func (c *DashboardCache) unlinkMatching(ctx context.Context, pattern string) (int, error) {
	iter := c.client.Scan(ctx, 0, pattern, invalidateBatch).Iterator()
	keys := make([]string, 0, invalidateBatch)
	removed := 0

	flush := func() error {
		if len(keys) == 0 {
			return nil
		}
		if err := c.client.Unlink(ctx, keys...).Err(); err != nil {
			return err
		}
		removed += len(keys)
		keys = keys[:0]
		return nil
	}

	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) == invalidateBatch {
			if err := flush(); err != nil {
				return removed, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, err
	}
	return removed, flush()
}

func (c *DashboardCache) do(ctx context.Context, fn func(context.Context) error) error {
	if c.breaker == nil {
		return fn(ctx)
	}
	return c.breaker.Execute(ctx, fn)
}

// IsConnectionFailure reports errors that say Redis itself is unhealthy.
// Bad input, undecodable values and cancelled callers do not.
func IsConnectionFailure(err error) bool {
	switch {
	case err == nil,
		errors.Is(err, redis.Nil),
		errors.Is(err, ErrEmptyKey),
		errors.Is(err, ErrNilDashboard),
		errors.Is(err, ErrInvalidTTL),
		errors.Is(err, ErrEncoding),
		errors.Is(err, context.Canceled):
		return false
	}
	return true
}
