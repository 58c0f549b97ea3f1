package cache

import "time"

// Cache defines the interface for caching arbitrary values with TTL.
type Cache interface {
	// Get retrieves a value from the cache by key.
	// Returns the value and true if found and not expired, otherwise nil and false.
	Get(key string) (any, bool)

	// Set stores a value in the cache with the given key and TTL.
	// TTL of 0 means use the default cache TTL. Set never fails.
	Set(key string, value any, ttl time.Duration)

	// Delete removes a value from the cache.
	// Returns true if an entry was removed.
	Delete(key string) bool

	// Clear removes all values from the cache.
	// Cumulative hit/miss/eviction counters are not reset.
	Clear()

	// Stats returns cache statistics.
	Stats() Stats

	// Close releases resources owned by the cache, including any
	// background maintenance goroutine, and drops all entries.
	Close()
}

// Stats represents cache statistics.
type Stats struct {
	Hits           uint64    // Total cache hits
	Misses         uint64    // Total cache misses
	HitRate        float64   // Hits / (hits + misses) as a percentage; 0 before any access
	Evictions      uint64    // Total budget-driven evictions
	SizeBytes      int64     // Current size in bytes
	Items          int64     // Current number of entries
	LastEvictionAt time.Time // Zero until the first eviction
}
