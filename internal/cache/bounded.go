package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/buildgrid/siteops/backend/internal/logger"
)

// persistTimeout bounds each write-through call to the durable store.
const persistTimeout = 2 * time.Second

// Store is the durable write-through collaborator for a bounded cache.
// Persistence is fire-and-forget: failures are logged and swallowed, and
// the in-memory cache stays authoritative on the read path.
type Store interface {
	Save(ctx context.Context, key string, value any, expiresAt time.Time) error
	Delete(ctx context.Context, key string) error
}

// Config controls capacity, expiry, and maintenance of a bounded cache.
type Config struct {
	// MaxSizeBytes is the hard byte budget. A Set that would exceed it
	// triggers eviction under the configured strategy.
	MaxSizeBytes int64

	// DefaultTTL applies when Set is called with a zero TTL.
	DefaultTTL time.Duration

	// Strategy picks eviction victims. Defaults to LRU.
	Strategy Strategy

	// CleanupInterval > 0 starts a background sweep that removes expired
	// entries. 0 disables the sweep; expired entries are still removed
	// lazily when Get touches them.
	CleanupInterval time.Duration

	// Store, when non-nil, receives a write-through copy of every Set and
	// every explicit Delete. Evictions and expiry do not propagate: the
	// durable copy is still valid data and is swept separately.
	Store Store
}

type entry struct {
	value          any
	insertedAt     time.Time
	expiresAt      time.Time
	accessCount    uint64
	lastAccessedAt time.Time
	sizeBytes      int64
}

// Bounded is a byte-budgeted in-memory cache with per-entry TTL and a
// configurable eviction strategy. All operations are safe for concurrent
// use; each public call is atomic under a single mutex.
type Bounded struct {
	mu      sync.Mutex
	cfg     Config
	entries map[string]*entry
	total   int64
	policy  policy

	hits           uint64
	misses         uint64
	evictions      uint64
	lastEvictionAt time.Time

	// now is swapped out by tests that need to move the clock.
	now func() time.Time

	log *slog.Logger

	// Janitor goroutine ownership.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
}

// NewBounded constructs a bounded cache and starts the background sweep
// if CleanupInterval is set.
func NewBounded(cfg Config) *Bounded {
	if cfg.Strategy == "" {
		cfg.Strategy = LRU
	}
	ctx, cancel := context.WithCancel(context.Background())

	b := &Bounded{
		cfg:     cfg,
		entries: make(map[string]*entry),
		policy:  newPolicy(cfg.Strategy),
		now:     time.Now,
		log:     logger.WithComponent("cache"),
		ctx:     ctx,
		cancel:  cancel,
	}

	if cfg.CleanupInterval > 0 {
		b.wg.Add(1)
		go b.sweepLoop()
	}
	return b
}

// Get retrieves a value by key. An entry past its expiry is removed as a
// side effect and reported as a miss. Hits update the entry's access
// bookkeeping and the eviction strategy's recency/frequency state.
func (b *Bounded) Get(key string) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[key]
	if !ok {
		b.misses++
		return nil, false
	}
	now := b.now()
	if now.After(e.expiresAt) {
		b.removeLocked(key, e)
		b.misses++
		return nil, false
	}

	b.hits++
	e.accessCount++
	e.lastAccessedAt = now
	b.policy.recordGet(key)
	return e.value, true
}

// Set stores a value under key, evicting other entries first if the byte
// budget would be exceeded. Eviction is best-effort: a single value larger
// than the whole budget is still inserted after everything else is gone.
// Set never fails.
func (b *Bounded) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = b.cfg.DefaultTTL
	}
	size := estimateSize(value)

	b.mu.Lock()
	now := b.now()

	// Detach any existing entry before eviction runs, so the eviction
	// pass can neither select the key being written nor double-count its
	// old bytes toward the freed target.
	old, existed := b.entries[key]
	if existed {
		delete(b.entries, key)
		b.total -= old.sizeBytes
	}
	if projected := b.total + size; projected > b.cfg.MaxSizeBytes {
		b.evictLocked(projected-b.cfg.MaxSizeBytes, now)
	}

	expiresAt := now.Add(ttl)
	if existed {
		// Reuse the entry so access bookkeeping survives; LFU keeps its
		// frequency history for the key.
		old.value = value
		old.sizeBytes = size
		old.insertedAt = now
		old.expiresAt = expiresAt
		b.entries[key] = old
	} else {
		b.entries[key] = &entry{
			value:          value,
			insertedAt:     now,
			expiresAt:      expiresAt,
			lastAccessedAt: now,
			sizeBytes:      size,
		}
	}
	b.total += size
	b.policy.recordSet(key)
	store := b.cfg.Store
	b.mu.Unlock()

	if store != nil {
		b.persist(func(ctx context.Context) error {
			return store.Save(ctx, key, value, expiresAt)
		}, "save", key)
	}
}

// Has reports whether key holds a live entry. Unlike Get it has no side
// effects: no access bookkeeping, and an expired entry is left for the
// sweep or the next Get to collect.
func (b *Bounded) Has(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[key]
	return ok && !b.now().After(e.expiresAt)
}

// Delete removes an entry and returns whether one was present.
func (b *Bounded) Delete(key string) bool {
	b.mu.Lock()
	e, ok := b.entries[key]
	if ok {
		b.removeLocked(key, e)
	}
	store := b.cfg.Store
	b.mu.Unlock()

	if ok && store != nil {
		b.persist(func(ctx context.Context) error {
			return store.Delete(ctx, key)
		}, "delete", key)
	}
	return ok
}

// Clear drops every entry and resets byte accounting. Cumulative
// hit/miss/eviction counters survive. Safe to call repeatedly.
func (b *Bounded) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = make(map[string]*entry)
	b.total = 0
	b.policy = newPolicy(b.cfg.Strategy)
}

// Cleanup removes every expired entry and returns how many were dropped.
// It is a maintenance sweep, not a correctness requirement: Get already
// self-heals on access.
func (b *Bounded) Cleanup() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	removed := 0
	for key, e := range b.entries {
		if now.After(e.expiresAt) {
			b.removeLocked(key, e)
			removed++
		}
	}
	return removed
}

// Stats returns a snapshot of cumulative counters and current usage.
func (b *Bounded) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := Stats{
		Hits:           b.hits,
		Misses:         b.misses,
		Evictions:      b.evictions,
		SizeBytes:      b.total,
		Items:          int64(len(b.entries)),
		LastEvictionAt: b.lastEvictionAt,
	}
	if total := b.hits + b.misses; total > 0 {
		s.HitRate = float64(b.hits) / float64(total) * 100
	}
	return s
}

// Close stops the background sweep and drops all entries. Safe to call
// more than once.
func (b *Bounded) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	cancel := b.cancel
	b.mu.Unlock()

	cancel()
	b.wg.Wait()
	b.Clear()
}

// evictLocked removes entries under the configured strategy until at
// least needed bytes are freed or the cache is empty.
func (b *Bounded) evictLocked(needed int64, now time.Time) {
	var freed int64
	for freed < needed && len(b.entries) > 0 {
		key := b.policy.victim(b.entries, now)
		if key == "" {
			return
		}
		e, ok := b.entries[key]
		if !ok {
			// Stale policy bookkeeping, such as the key of an in-flight
			// overwrite; drop it and pick again.
			b.policy.forget(key)
			continue
		}
		freed += e.sizeBytes
		b.removeLocked(key, e)
		b.evictions++
		b.lastEvictionAt = now
	}
}

func (b *Bounded) removeLocked(key string, e *entry) {
	delete(b.entries, key)
	b.total -= e.sizeBytes
	b.policy.forget(key)
}

// persist runs one write-through call with a bounded context. Errors are
// logged and swallowed; the in-memory state has already been committed.
func (b *Bounded) persist(fn func(context.Context) error, op, key string) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		b.log.Warn("cache persistence failed", "op", op, "key", key, "error", err)
	}
}

func (b *Bounded) sweepLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.ctx.Done():
			return
		case <-ticker.C:
			if n := b.Cleanup(); n > 0 {
				b.log.Debug("expired entries swept", "count", n)
			}
		}
	}
}
