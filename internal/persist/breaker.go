package persist

import (
	"context"
	"encoding/json"
	"time"

	"github.com/buildgrid/siteops/backend/internal/circuitbreaker"
)

// Guarded wraps a Store behind a circuit breaker so a dead database
// fails fast instead of timing out on every cache write-through.
type Guarded struct {
	store   Store
	breaker *circuitbreaker.CircuitBreaker
}

// Guard wraps store with the given breaker.
func Guard(store Store, breaker *circuitbreaker.CircuitBreaker) *Guarded {
	return &Guarded{store: store, breaker: breaker}
}

func (g *Guarded) Save(ctx context.Context, key string, value any, expiresAt time.Time) error {
	return g.breaker.Call(func() error {
		return g.store.Save(ctx, key, value, expiresAt)
	})
}

func (g *Guarded) Load(ctx context.Context, key string) (json.RawMessage, bool, error) {
	var payload json.RawMessage
	var found bool
	err := g.breaker.Call(func() error {
		var err error
		payload, found, err = g.store.Load(ctx, key)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return payload, found, nil
}

func (g *Guarded) Delete(ctx context.Context, key string) error {
	return g.breaker.Call(func() error {
		return g.store.Delete(ctx, key)
	})
}

func (g *Guarded) Purge(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := g.breaker.Call(func() error {
		var err error
		n, err = g.store.Purge(ctx, now)
		return err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}
