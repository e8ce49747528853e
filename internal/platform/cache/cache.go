// Package cache provides the key/value stores used for cache-aside reads.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Store is a byte-valued cache with TTLs and atomic counters. Counters are
// used as generation numbers, so they never expire.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
	// Counter returns the current value of a counter, 0 if never incremented.
	Counter(ctx context.Context, key string) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}
