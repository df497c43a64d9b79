package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key has no value (or it expired).
var ErrNotFound = errors.New("kv: key not found")

// Store is the minimal key-value surface the session and cart stores need.
// Production uses the Redis client; tests use the in-memory store.
type Store interface {
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}
