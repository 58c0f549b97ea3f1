// Package health aggregates named liveness probes into a single report.
package health

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/buildgrid/siteops/backend/internal/metrics"
)

// Status is the outcome of a probe or of the whole report.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// Probe checks one dependency. A nil return means healthy.
type Probe func(ctx context.Context) error

// ProbeResult is the outcome of a single probe run.
type ProbeResult struct {
	Status    Status `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// Report is the aggregate health of the service. Overall status is ok when
// every probe passes, degraded when a non-critical probe fails, and down
// when a critical probe fails.
type Report struct {
	Status Status                 `json:"status"`
	Probes map[string]ProbeResult `json:"probes"`
}

type registeredProbe struct {
	name     string
	probe    Probe
	critical bool
}

// Checker runs registered probes with a per-probe timeout.
type Checker struct {
	mu      sync.Mutex
	probes  []registeredProbe
	timeout time.Duration
}

// NewChecker creates a Checker. timeout bounds each individual probe;
// zero means 2 seconds.
func NewChecker(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Checker{timeout: timeout}
}

// Register adds a probe. Critical probes take the whole report to down on
// failure; non-critical ones only degrade it.
func (c *Checker) Register(name string, critical bool, probe Probe) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probes = append(c.probes, registeredProbe{name: name, probe: probe, critical: critical})
}

// RegisterDB adds a critical database ping probe.
func (c *Checker) RegisterDB(name string, db *sql.DB) {
	c.Register(name, true, func(ctx context.Context) error {
		return db.PingContext(ctx)
	})
}

// Check runs all probes concurrently and aggregates the results.
func (c *Checker) Check(ctx context.Context) Report {
	c.mu.Lock()
	probes := make([]registeredProbe, len(c.probes))
	copy(probes, c.probes)
	c.mu.Unlock()

	report := Report{
		Status: StatusOK,
		Probes: make(map[string]ProbeResult, len(probes)),
	}

	type outcome struct {
		name     string
		critical bool
		result   ProbeResult
	}

	results := make(chan outcome, len(probes))
	for _, rp := range probes {
		go func(rp registeredProbe) {
			pctx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			start := time.Now()
			err := rp.probe(pctx)
			res := ProbeResult{
				Status:    StatusOK,
				LatencyMS: time.Since(start).Milliseconds(),
			}
			if err != nil {
				res.Status = StatusDown
				res.Error = err.Error()
			}
			results <- outcome{name: rp.name, critical: rp.critical, result: res}
		}(rp)
	}

	for range probes {
		out := <-results
		report.Probes[out.name] = out.result

		gauge := 1.0
		if out.result.Status != StatusOK {
			gauge = 0.0
			if out.critical {
				report.Status = StatusDown
			} else if report.Status == StatusOK {
				report.Status = StatusDegraded
			}
		}
		metrics.HealthProbeStatus.WithLabelValues(out.name).Set(gauge)
	}

	return report
}

// ProbeNames returns the registered probe names in sorted order.
func (c *Checker) ProbeNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(c.probes))
	for _, rp := range c.probes {
		names = append(names, rp.name)
	}
	sort.Strings(names)
	return names
}
