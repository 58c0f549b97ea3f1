package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Cache metrics, labeled by cache instance name
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Total number of budget-driven cache evictions",
		},
		[]string{"cache"},
	)

	CacheSizeBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_size_bytes",
			Help: "Current cache size in bytes",
		},
		[]string{"cache"},
	)

	CacheItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_items",
			Help: "Current number of cache entries",
		},
		[]string{"cache"},
	)

	// Persistence metrics
	PersistOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "persist_operation_duration_seconds",
			Help:    "Duration of durable store operations",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"operation"},
	)

	PersistOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "persist_operation_errors_total",
			Help: "Total number of durable store operation errors",
		},
		[]string{"operation"},
	)

	// Audit metrics
	AuditEventsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_events_recorded_total",
			Help: "Total number of audit events accepted",
		},
		[]string{"action"},
	)

	AuditEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_events_dropped_total",
			Help: "Total number of audit events dropped because the queue was full",
		},
	)

	AuditQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "audit_queue_depth",
			Help: "Current number of audit events waiting to be written",
		},
	)

	AuditSinkErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_sink_errors_total",
			Help: "Total number of audit sink write errors",
		},
	)

	// Rate limit metrics
	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_rejections_total",
			Help: "Total number of requests rejected by rate limiting",
		},
		[]string{"scope"}, // scope: global, ip, action
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"component"},
	)

	CircuitBreakerTrips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_trips_total",
			Help: "Total number of circuit breaker trips",
		},
		[]string{"component"},
	)

	// API request metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"endpoint", "method", "status"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Health metrics
	HealthProbeStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "health_probe_status",
			Help: "Health probe status (1=ok, 0=down)",
		},
		[]string{"probe"},
	)

	// Stats feed metrics
	StatsFeedConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stats_feed_connections_active",
			Help: "Number of active stats feed WebSocket connections",
		},
	)

	StatsFeedMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stats_feed_messages_sent_total",
			Help: "Total number of stats feed messages sent to clients",
		},
	)
)
