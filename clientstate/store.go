// Package clientstate keeps the small pieces of per-user and per-session state
// a browser would hold in local and session storage: the preferred inference
// server, a cached base image, the session's inference token, the welcome flag,
// the try-on page state and the one-shot retry handoff.
package clientstate

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Store.Get and Store.Take for absent keys.
var ErrNotFound = errors.New("clientstate: key not found")

// Store is a string key/value store with optional expiry.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	// Set stores value under key. A zero ttl means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// Take atomically reads and removes key.
	Take(ctx context.Context, key string) (string, error)
	Ping(ctx context.Context) error
	Close() error
}
