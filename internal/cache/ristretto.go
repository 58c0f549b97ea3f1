package cache

import (
	"time"

	"github.com/dgraph-io/ristretto"
)

// Ristretto is a Cache backed by dgraph-io/ristretto, for hot paths where
// throughput matters more than exact byte accounting or a choice of
// eviction strategy. Stats are approximate because ristretto applies
// writes asynchronously.
type Ristretto struct {
	cache      *ristretto.Cache
	defaultTTL time.Duration
}

// ristrettoItem wraps the value with its expiry.
type ristrettoItem struct {
	value     any
	expiresAt time.Time
}

// NewRistretto creates a ristretto-backed cache.
// maxSizeBytes is the byte budget; maxEntries sizes the admission counters.
func NewRistretto(maxSizeBytes int64, maxEntries int64, defaultTTL time.Duration) (*Ristretto, error) {
	// NumCounters should be ~10x the number of entries for optimal
	// admission decisions.
	numCounters := maxEntries * 10
	if numCounters < 1000 {
		numCounters = 1000
	}

	rc, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: numCounters,
		MaxCost:     maxSizeBytes,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, err
	}

	return &Ristretto{cache: rc, defaultTTL: defaultTTL}, nil
}

// Get retrieves a value by key, dropping it if expired.
func (c *Ristretto) Get(key string) (any, bool) {
	val, found := c.cache.Get(key)
	if !found {
		return nil, false
	}

	item, ok := val.(*ristrettoItem)
	if !ok {
		c.cache.Del(key)
		return nil, false
	}
	if time.Now().After(item.expiresAt) {
		c.cache.Del(key)
		return nil, false
	}
	return item.value, true
}

// Set stores a value with the given TTL (0 means the default TTL).
// Admission may reject the write under memory pressure; ristretto owns
// that decision.
func (c *Ristretto) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	item := &ristrettoItem{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}

	_ = c.cache.Set(key, item, estimateSize(value))

	// Wait for the value to pass through the write buffers so a
	// subsequent Get observes it.
	c.cache.Wait()
}

// Delete removes a value. The returned flag reflects whether the key was
// visible immediately before removal.
func (c *Ristretto) Delete(key string) bool {
	_, found := c.cache.Get(key)
	c.cache.Del(key)
	return found
}

// Clear removes all values.
func (c *Ristretto) Clear() {
	c.cache.Clear()
}

// Stats returns approximate statistics from ristretto's metrics.
func (c *Ristretto) Stats() Stats {
	m := c.cache.Metrics

	s := Stats{
		Hits:      m.Hits(),
		Misses:    m.Misses(),
		Evictions: m.KeysEvicted(),
		SizeBytes: int64(m.CostAdded() - m.CostEvicted()),
		Items:     int64(m.KeysAdded() - m.KeysEvicted()),
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total) * 100
	}
	return s
}

// Close releases ristretto's internal goroutines and buffers.
func (c *Ristretto) Close() {
	c.cache.Close()
}
