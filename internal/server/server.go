// Package server assembles the caches, durable store, audit trail, and
// HTTP surface into one runnable unit.
package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"

	"github.com/buildgrid/siteops/backend/internal/api"
	"github.com/buildgrid/siteops/backend/internal/api/handlers"
	"github.com/buildgrid/siteops/backend/internal/audit"
	"github.com/buildgrid/siteops/backend/internal/cache"
	"github.com/buildgrid/siteops/backend/internal/circuitbreaker"
	"github.com/buildgrid/siteops/backend/internal/config"
	"github.com/buildgrid/siteops/backend/internal/health"
	"github.com/buildgrid/siteops/backend/internal/logger"
	"github.com/buildgrid/siteops/backend/internal/metrics"
	"github.com/buildgrid/siteops/backend/internal/persist"
	"github.com/buildgrid/siteops/backend/internal/ratelimit"
	"github.com/buildgrid/siteops/backend/internal/scheduler"
)

// Cache instance names used across the admin API, metrics labels, and
// the stats feed.
const (
	APICacheName      = "api"
	ActivityCacheName = "activity"
)

const collectInterval = 15 * time.Second

// Server owns every long-lived component and their shutdown order.
type Server struct {
	cfg    *config.Config
	router *mux.Router

	caches    map[string]cache.Cache
	store     *persist.PostgresStore
	audit     *audit.Recorder
	limiter   *ratelimit.ActionLimiter
	checker   *health.Checker
	collector *metrics.Collector
	statsFeed *handlers.StatsFeed
	sched     *scheduler.Service

	cancel   context.CancelFunc
	shutdown sync.Once
}

// New builds the full component graph from configuration. Persistence
// and the Postgres audit sink are only wired when DATABASE_URL is set.
func New(cfg *config.Config) (*Server, error) {
	if cfg == nil {
		cfg = config.Load()
	}

	s := &Server{
		cfg:     cfg,
		caches:  make(map[string]cache.Cache),
		checker: health.NewChecker(2 * time.Second),
	}

	var guarded *persist.Guarded
	if cfg.DatabaseURL != "" {
		store, err := persist.Open(cfg.DatabaseURL, cfg.DBStatementTimeout)
		if err != nil {
			return nil, fmt.Errorf("connect durable store: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure cache schema: %w", err)
		}
		s.store = store
		guarded = persist.Guard(store, circuitbreaker.New(circuitbreaker.Config{
			Name:             "persist",
			FailureThreshold: 5,
			SuccessThreshold: 2,
			Cooldown:         30 * time.Second,
		}))
		s.checker.RegisterDB("postgres", store.DB())
	}

	if err := s.buildCaches(guarded); err != nil {
		return nil, err
	}

	s.audit = newAuditRecorder(cfg, s.store)
	s.limiter = ratelimit.NewActionLimiter(cfg.ActionRate, cfg.ActionBurst)

	s.collector = metrics.NewCollector(collectInterval)
	for name, c := range s.caches {
		s.collector.Register(name, statsSource{c})
	}

	s.statsFeed = handlers.NewStatsFeed(s.caches, 0)

	s.checker.Register("api_cache", false, cacheProbe(s.caches[APICacheName]))
	s.checker.Register("activity_cache", false, cacheProbe(s.caches[ActivityCacheName]))

	if err := s.buildScheduler(guarded); err != nil {
		return nil, err
	}

	s.router = api.NewRouter(api.Deps{
		Caches:    s.caches,
		Checker:   s.checker,
		Audit:     s.audit,
		Limiter:   s.limiter,
		StatsFeed: s.statsFeed,
		Config:    cfg,
	})

	return s, nil
}

// buildCaches creates the named cache instances. The API response cache
// can run on ristretto when configured; the activity cache is always a
// bounded cache so per-actor eviction strategies apply.
func (s *Server) buildCaches(store *persist.Guarded) error {
	cfg := s.cfg

	if cfg.APICacheStrategy == "ristretto" {
		c, err := cache.NewRistretto(cfg.APICacheMaxBytes, 1<<20, cfg.APICacheTTL)
		if err != nil {
			return fmt.Errorf("build api cache: %w", err)
		}
		s.caches[APICacheName] = c
	} else {
		var boundedStore cache.Store
		if store != nil {
			boundedStore = store
		}
		s.caches[APICacheName] = cache.NewBounded(cache.Config{
			MaxSizeBytes:    cfg.APICacheMaxBytes,
			DefaultTTL:      cfg.APICacheTTL,
			Strategy:        cache.Strategy(cfg.APICacheStrategy),
			CleanupInterval: cfg.APICacheSweepEvery,
			Store:           boundedStore,
		})
	}

	// The activity cache has no background sweep of its own; the
	// maintenance scheduler runs its cleanup.
	s.caches[ActivityCacheName] = cache.NewBounded(cache.Config{
		MaxSizeBytes: cfg.ActivityCacheMaxBytes,
		DefaultTTL:   cfg.ActivityCacheTTL,
		Strategy:     cache.Strategy(cfg.ActivityCacheStrategy),
	})

	return nil
}

func (s *Server) buildScheduler(store *persist.Guarded) error {
	s.sched = scheduler.NewService(time.Minute)

	if err := s.sched.Register("activity_cache_cleanup", "@every 5m", func(ctx context.Context) error {
		if b, ok := s.caches[ActivityCacheName].(*cache.Bounded); ok {
			b.Cleanup()
		}
		return nil
	}); err != nil {
		return fmt.Errorf("register cleanup job: %w", err)
	}

	if store != nil {
		expr := fmt.Sprintf("@every %s", s.cfg.PersistPurgeEvery)
		if err := s.sched.Register("persist_purge", expr, func(ctx context.Context) error {
			n, err := store.Purge(ctx, time.Now())
			if err != nil {
				return err
			}
			if n > 0 {
				logger.InfoContext(ctx, "Purged expired cache rows", "rows", n)
			}
			return nil
		}); err != nil {
			return fmt.Errorf("register purge job: %w", err)
		}
	}

	return nil
}

func newAuditRecorder(cfg *config.Config, store *persist.PostgresStore) *audit.Recorder {
	if store != nil {
		sink := audit.NewPostgresSink(store.DB())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := sink.EnsureSchema(ctx); err != nil {
			logger.Get().Warn("Audit schema setup failed, falling back to log sink", "error", err)
			return audit.NewRecorder(audit.NewSlogSink(), cfg.AuditQueueSize)
		}
		return audit.NewRecorder(sink, cfg.AuditQueueSize)
	}
	return audit.NewRecorder(audit.NewSlogSink(), cfg.AuditQueueSize)
}

// Handler returns the HTTP surface.
func (s *Server) Handler() *mux.Router {
	return s.router
}

// Start launches the background loops: metrics collection, the live
// stats feed, and the maintenance scheduler.
func (s *Server) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	go s.collector.Start(ctx)
	go s.statsFeed.Run(ctx)
	go s.sched.Start(ctx)

	logger.Get().Info("Server components started",
		"caches", len(s.caches),
		"persistence", s.store != nil,
		"jobs", len(s.sched.Jobs()))
	return nil
}

// Shutdown stops background loops and flushes the audit queue. Caches
// are closed last so in-flight handlers do not observe a closed cache.
// Safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdown.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.sched.Stop()
		s.collector.Stop()
		s.limiter.Stop()
		s.audit.Close()

		for _, c := range s.caches {
			c.Close()
		}
		if s.store != nil {
			if cerr := s.store.DB().Close(); cerr != nil {
				err = fmt.Errorf("close durable store: %w", cerr)
			}
		}
	})
	return err
}

// statsSource adapts a cache to the metrics collector.
type statsSource struct {
	c cache.Cache
}

func (s statsSource) Stats() metrics.CacheStatsSnapshot {
	st := s.c.Stats()
	return metrics.CacheStatsSnapshot{
		Hits:      st.Hits,
		Misses:    st.Misses,
		Evictions: st.Evictions,
		SizeBytes: st.SizeBytes,
		Items:     st.Items,
	}
}

// cacheProbe verifies a cache accepts and serves entries end to end.
func cacheProbe(c cache.Cache) health.Probe {
	return func(ctx context.Context) error {
		const key = "health:probe"
		c.Set(key, "ok", time.Minute)
		if _, ok := c.Get(key); !ok {
			return fmt.Errorf("probe entry not readable after set")
		}
		c.Delete(key)
		return nil
	}
}
