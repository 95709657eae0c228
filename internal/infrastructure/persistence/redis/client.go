// Package redis caches composed dashboards in Redis.
//
// Connect opens the client; DashboardCache stores view models as JSON under
// namespaced query.DashboardCacheKey keys.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration.
type Config struct {
	Host     string
	Port     int
	Password string

	// DB is the Redis database number (0-15).
	DB int

	PoolSize int

	// MaxRetries is the per-command retry count of the client. The breaker
	// in front of the cache sees only the final outcome.
	MaxRetries int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns the configuration of a local Redis. Timeouts are
// short because a slow cache is worse than none for a dashboard read.
func DefaultConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         6379,
		PoolSize:     10,
		MaxRetries:   1,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}
}

// Addr returns the Redis address in "host:port" format.
func (c Config) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

func (c Config) options() *redis.Options {
	return &redis.Options{
		Addr:         c.Addr(),
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		MaxRetries:   c.MaxRetries,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}
}

var (
	// ErrConnection is returned by Connect when Redis does not answer.
	ErrConnection = errors.New("redis: connection failed")

	// ErrEncoding is returned when a dashboard cannot be encoded or a cached
	// value cannot be decoded.
	ErrEncoding = errors.New("redis: dashboard encoding failed")

	// ErrInvalidTTL is returned for a negative TTL.
	ErrInvalidTTL = errors.New("redis: invalid TTL")

	// ErrEmptyKey is returned for an empty cache key.
	ErrEmptyKey = errors.New("redis: key cannot be empty")

	// ErrNilDashboard is returned when asked to cache a nil view model.
	ErrNilDashboard = errors.New("redis: dashboard cannot be nil")
)

// Connect opens a client and pings it within cfg.DialTimeout.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(cfg.options())

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrConnection, cfg.Addr(), err)
	}

	return client, nil
}
