// Package api wires HTTP routes to handlers behind the middleware chain.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/buildgrid/siteops/backend/internal/api/handlers"
	"github.com/buildgrid/siteops/backend/internal/audit"
	"github.com/buildgrid/siteops/backend/internal/cache"
	"github.com/buildgrid/siteops/backend/internal/config"
	"github.com/buildgrid/siteops/backend/internal/health"
	"github.com/buildgrid/siteops/backend/internal/middleware"
	"github.com/buildgrid/siteops/backend/internal/ratelimit"
)

// Deps carries everything the router needs. Caches are explicit named
// instances; there are no package-level singletons.
type Deps struct {
	Caches    map[string]cache.Cache
	Checker   *health.Checker
	Audit     *audit.Recorder
	Limiter   *ratelimit.ActionLimiter
	StatsFeed *handlers.StatsFeed
	Config    *config.Config
}

// NewRouter builds the route table and middleware chain.
func NewRouter(deps Deps) *mux.Router {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.Load()
	}

	r := mux.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RecoverWithSentry)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(&middleware.CORSConfig{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", handlers.ActorHeader},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.Metrics)
	r.Use(middleware.ValidateRequestBody)

	if cfg.EnableRateLimit {
		rl := middleware.NewRateLimiter(
			cfg.RateLimitGlobal, cfg.RateLimitGlobalBurst,
			cfg.RateLimitPerIP, cfg.RateLimitPerIPBurst,
		)
		r.Use(rl.Limit)
	}

	// Health and service info
	healthHandler := handlers.NewHealthHandler(deps.Checker)
	r.HandleFunc("/api/health", healthHandler.Health).Methods("GET")
	r.HandleFunc("/api/health/live", handlers.Liveness).Methods("GET")
	r.HandleFunc("/api/version", handlers.Version).Methods("GET")

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Live cache stats feed
	if deps.StatsFeed != nil {
		r.HandleFunc("/api/cache/stats/ws", deps.StatsFeed.HandleWebSocket).Methods("GET")
	}

	// Cache administration, behind bearer-token auth
	cacheAdmin := handlers.NewCacheAdminHandler(deps.Caches, deps.Audit, deps.Limiter)
	adminOnly := adminAuth(cfg)
	r.Handle("/api/admin/cache/stats",
		adminOnly(middleware.Compress(http.HandlerFunc(cacheAdmin.GetAllStats)))).Methods("GET")
	r.Handle("/api/admin/cache/{name}/stats",
		adminOnly(middleware.Compress(http.HandlerFunc(cacheAdmin.GetStats)))).Methods("GET")
	r.Handle("/api/admin/cache/{name}/invalidate",
		adminOnly(http.HandlerFunc(cacheAdmin.InvalidateCache))).Methods("POST")
	r.Handle("/api/admin/cache/{name}/keys/{key}",
		adminOnly(http.HandlerFunc(cacheAdmin.DeleteKey))).Methods("DELETE")

	return r
}

// adminAuth guards admin endpoints with a static bearer token.
func adminAuth(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.AdminAPIToken == "" {
				http.Error(w, "admin token not configured", http.StatusServiceUnavailable)
				return
			}
			auth := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if len(auth) <= len(prefix) || auth[:len(prefix)] != prefix || auth[len(prefix):] != cfg.AdminAPIToken {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
