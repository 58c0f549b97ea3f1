package metrics

import (
	"context"
	"time"
)

// StatsSource is one named cache whose cumulative stats the collector
// scrapes into Prometheus.
type StatsSource interface {
	Stats() CacheStatsSnapshot
}

// CacheStatsSnapshot is the subset of cache statistics the collector
// exports. Hit/miss/eviction values are cumulative since cache creation.
type CacheStatsSnapshot struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	SizeBytes int64
	Items     int64
}

// Collector periodically mirrors cache statistics into Prometheus.
// Cumulative cache counters are converted to counter increments by
// diffing against the previous scrape.
type Collector struct {
	sources  map[string]StatsSource
	last     map[string]CacheStatsSnapshot
	interval time.Duration
	stop     chan struct{}
}

// NewCollector creates a new metrics collector.
func NewCollector(interval time.Duration) *Collector {
	return &Collector{
		sources:  make(map[string]StatsSource),
		last:     make(map[string]CacheStatsSnapshot),
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Register adds a cache under the given instance name. Register before
// Start; the collector is not safe for concurrent registration.
func (c *Collector) Register(name string, src StatsSource) {
	c.sources[name] = src
}

// Start begins the collection loop.
func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.collect()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stop)
}

func (c *Collector) collect() {
	for name, src := range c.sources {
		s := src.Stats()
		prev := c.last[name]

		if d := s.Hits - prev.Hits; d > 0 {
			CacheHits.WithLabelValues(name).Add(float64(d))
		}
		if d := s.Misses - prev.Misses; d > 0 {
			CacheMisses.WithLabelValues(name).Add(float64(d))
		}
		if d := s.Evictions - prev.Evictions; d > 0 {
			CacheEvictions.WithLabelValues(name).Add(float64(d))
		}
		CacheSizeBytes.WithLabelValues(name).Set(float64(s.SizeBytes))
		CacheItems.WithLabelValues(name).Set(float64(s.Items))

		c.last[name] = s
	}
}
