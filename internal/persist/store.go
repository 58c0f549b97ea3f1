// Package persist provides the durable key-value collaborator the
// in-memory caches write through to. The caches stay authoritative on
// reads; the store exists so warm data survives process restarts and can
// be inspected out of band.
package persist

import (
	"context"
	"encoding/json"
	"time"
)

// Store is a durable key-value store for cache entries.
type Store interface {
	// Save upserts the value under key. The value is serialized as JSON.
	Save(ctx context.Context, key string, value any, expiresAt time.Time) error

	// Load returns the stored JSON payload and whether a live (unexpired)
	// row exists for key.
	Load(ctx context.Context, key string) (json.RawMessage, bool, error)

	// Delete removes the row for key, if any.
	Delete(ctx context.Context, key string) error

	// Purge removes every row whose expiry has passed and returns how
	// many were removed.
	Purge(ctx context.Context, now time.Time) (int64, error)
}
