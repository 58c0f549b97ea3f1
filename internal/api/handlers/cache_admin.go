package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/buildgrid/siteops/backend/internal/apierr"
	"github.com/buildgrid/siteops/backend/internal/audit"
	"github.com/buildgrid/siteops/backend/internal/cache"
	"github.com/buildgrid/siteops/backend/internal/logger"
	"github.com/buildgrid/siteops/backend/internal/ratelimit"
	"github.com/buildgrid/siteops/backend/internal/tracing"
)

// ActorHeader carries the identity of the operator issuing admin requests.
const ActorHeader = "X-Actor-ID"

// CacheAdminHandler handles cache administration endpoints over a set of
// named caches.
type CacheAdminHandler struct {
	caches  map[string]cache.Cache
	audit   *audit.Recorder
	limiter *ratelimit.ActionLimiter
}

// NewCacheAdminHandler creates a new cache admin handler. audit and
// limiter may be nil, disabling audit trails and per-actor limits.
func NewCacheAdminHandler(caches map[string]cache.Cache, rec *audit.Recorder, lim *ratelimit.ActionLimiter) *CacheAdminHandler {
	return &CacheAdminHandler{caches: caches, audit: rec, limiter: lim}
}

// CacheStatsResponse is the JSON shape of a single cache's statistics.
type CacheStatsResponse struct {
	Hits           uint64  `json:"hits"`
	Misses         uint64  `json:"misses"`
	HitRate        float64 `json:"hit_rate"`
	Evictions      uint64  `json:"evictions"`
	SizeBytes      int64   `json:"size_bytes"`
	Items          int64   `json:"items"`
	LastEvictionAt string  `json:"last_eviction_at,omitempty"`
}

func statsResponse(s cache.Stats) CacheStatsResponse {
	resp := CacheStatsResponse{
		Hits:      s.Hits,
		Misses:    s.Misses,
		HitRate:   s.HitRate,
		Evictions: s.Evictions,
		SizeBytes: s.SizeBytes,
		Items:     s.Items,
	}
	if !s.LastEvictionAt.IsZero() {
		resp.LastEvictionAt = s.LastEvictionAt.Format(time.RFC3339)
	}
	return resp
}

func actor(r *http.Request) string {
	if a := r.Header.Get(ActorHeader); a != "" {
		return a
	}
	return "admin"
}

// allow applies the per-actor action limit when a limiter is configured.
func (h *CacheAdminHandler) allow(w http.ResponseWriter, r *http.Request, action string) bool {
	if h.limiter == nil {
		return true
	}
	if !h.limiter.Allow(actor(r), action) {
		apierr.WriteErrorWithContext(w, r, apierr.RateLimitActor(action))
		return false
	}
	return true
}

func (h *CacheAdminHandler) record(r *http.Request, action, resource string, metadata map[string]any) {
	if h.audit == nil {
		return
	}
	h.audit.Record(audit.Event{
		Actor:    actor(r),
		Action:   action,
		Resource: resource,
		Metadata: metadata,
	})
}

// GetAllStats returns statistics for every registered cache.
// GET /api/admin/cache/stats
func (h *CacheAdminHandler) GetAllStats(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]CacheStatsResponse, len(h.caches))
	for name, c := range h.caches {
		out[name] = statsResponse(c.Stats())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(out)
}

// GetStats returns statistics for one cache.
// GET /api/admin/cache/{name}/stats
func (h *CacheAdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	c, ok := h.caches[name]
	if !ok {
		apierr.WriteErrorWithContext(w, r, apierr.CacheUnavailable(name))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(statsResponse(c.Stats()))
}

// InvalidateCache clears all entries from a cache.
// POST /api/admin/cache/{name}/invalidate
func (h *CacheAdminHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.StartSpan(r.Context(), "handlers.InvalidateCache")
	defer span.End()

	name := mux.Vars(r)["name"]
	c, ok := h.caches[name]
	if !ok {
		apierr.WriteErrorWithContext(w, r, apierr.CacheUnavailable(name))
		return
	}

	if !h.allow(w, r, "cache_invalidate") {
		return
	}

	c.Clear()
	h.record(r, "cache_invalidate", "cache:"+name, nil)
	logger.InfoContext(ctx, "Cache invalidated", "cache", name, "actor", actor(r))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"message": "Cache invalidated successfully",
	})
}

// DeleteKey removes a single entry from a cache.
// DELETE /api/admin/cache/{name}/keys/{key}
func (h *CacheAdminHandler) DeleteKey(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name, key := vars["name"], vars["key"]

	c, ok := h.caches[name]
	if !ok {
		apierr.WriteErrorWithContext(w, r, apierr.CacheUnavailable(name))
		return
	}

	if !h.allow(w, r, "cache_delete_key") {
		return
	}

	if !c.Delete(key) {
		apierr.WriteErrorWithContext(w, r, apierr.CacheKeyNotFound(key))
		return
	}

	h.record(r, "cache_delete_key", "cache:"+name, map[string]any{"key": key})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
		"key":    key,
	})
}
