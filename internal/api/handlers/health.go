package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/buildgrid/siteops/backend/internal/health"
)

// HealthHandler serves aggregate health reports.
type HealthHandler struct {
	checker *health.Checker
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(c *health.Checker) *HealthHandler {
	return &HealthHandler{checker: c}
}

// Health runs all probes and reports the result. Degraded still returns
// 200 so load balancers keep routing; down returns 503.
// GET /api/health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	report := h.checker.Check(r.Context())

	status := http.StatusOK
	if report.Status == health.StatusDown {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(report)
}

// Liveness returns a simple JSON payload to indicate the process is alive.
// GET /api/health/live
func Liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
