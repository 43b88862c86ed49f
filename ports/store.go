package ports

import (
	"context"
	"time"
)

// KeyValueStore is the shared expiring key-value store. Every entry written
// through it carries a ttl; nothing sweeps stale keys.
type KeyValueStore interface {
	// Get returns core.ErrKeyNotFound for a missing or expired key
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)

	// IncrBelow atomically increments the counter at key and (re)sets its ttl,
	// but only while the current value is below limit. It reports the new
	// value, or false with the unchanged value when the limit was reached.
	IncrBelow(ctx context.Context, key string, limit int64, ttl time.Duration) (int64, bool, error)
}
