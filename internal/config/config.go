package config

import (
	"os"
	"strings"
	"time"
)

// Config holds application configuration derived from environment variables.
type Config struct {
	// HTTP server
	ListenAddr string

	// API response cache
	APICacheMaxBytes   int64
	APICacheTTL        time.Duration
	APICacheStrategy   string
	APICacheSweepEvery time.Duration

	// User activity cache
	ActivityCacheMaxBytes int64
	ActivityCacheTTL      time.Duration
	ActivityCacheStrategy string

	// Durable cache store (Postgres); empty DSN disables persistence
	DatabaseURL        string
	DBStatementTimeout time.Duration
	PersistPurgeEvery  time.Duration

	// Audit logging
	AuditQueueSize int

	// Security settings
	RateLimitGlobal      float64  // requests per second globally
	RateLimitGlobalBurst int      // burst size for global rate limit
	RateLimitPerIP       float64  // requests per second per IP
	RateLimitPerIPBurst  int      // burst size for per-IP rate limit
	EnableRateLimit      bool     // enable rate limiting middleware
	CORSAllowedOrigins   []string // allowed CORS origins

	// Per-actor action limits (mutating product actions)
	ActionRate  float64
	ActionBurst int

	// Admin API token for gating admin endpoints (Bearer token)
	AdminAPIToken string

	// Observability settings
	LogLevel          string  // log level: debug, info, warn, error
	OTELEnabled       bool    // enable OpenTelemetry tracing
	OTELEndpoint      string  // OpenTelemetry collector endpoint
	OTELSampleRate    float64 // trace sampling rate (0.0 to 1.0)
	SentryDSN         string  // Sentry DSN for error reporting
	SentryEnvironment string  // Sentry environment (dev, staging, production)
	SentryRelease     string  // Sentry release version
	SentrySampleRate  float64 // Sentry error sampling rate (0.0 to 1.0)
}

var cached *Config

// Load reads env vars once and caches them.
func Load() *Config {
	if cached != nil {
		return cached
	}
	cached = &Config{
		ListenAddr: envString("LISTEN_ADDR", ":8080"),

		APICacheMaxBytes:   envInt64("API_CACHE_MAX_BYTES", 50<<20),
		APICacheTTL:        envDuration("API_CACHE_TTL_MS", 5*time.Minute),
		APICacheStrategy:   strings.ToLower(envString("API_CACHE_STRATEGY", "lru")),
		APICacheSweepEvery: envDuration("API_CACHE_SWEEP_MS", time.Minute),

		ActivityCacheMaxBytes: envInt64("ACTIVITY_CACHE_MAX_BYTES", 10<<20),
		ActivityCacheTTL:      envDuration("ACTIVITY_CACHE_TTL_MS", 30*time.Minute),
		ActivityCacheStrategy: strings.ToLower(envString("ACTIVITY_CACHE_STRATEGY", "lfu")),

		DatabaseURL:        strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBStatementTimeout: envDuration("DB_STATEMENT_TIMEOUT_MS", 25*time.Second),
		PersistPurgeEvery:  envDuration("PERSIST_PURGE_MS", 10*time.Minute),

		AuditQueueSize: envInt("AUDIT_QUEUE_SIZE", 1024),

		RateLimitGlobal:      envFloat("RATE_LIMIT_GLOBAL", 100.0),
		RateLimitGlobalBurst: envInt("RATE_LIMIT_GLOBAL_BURST", 200),
		RateLimitPerIP:       envFloat("RATE_LIMIT_PER_IP", 10.0),
		RateLimitPerIPBurst:  envInt("RATE_LIMIT_PER_IP_BURST", 20),
		EnableRateLimit:      envBool("ENABLE_RATE_LIMIT", true),

		ActionRate:  envFloat("ACTION_RATE", 5.0),
		ActionBurst: envInt("ACTION_BURST", 10),

		AdminAPIToken: strings.TrimSpace(os.Getenv("ADMIN_API_TOKEN")),

		LogLevel:          strings.ToLower(envString("LOG_LEVEL", "info")),
		OTELEnabled:       envBool("OTEL_ENABLED", false),
		OTELEndpoint:      strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		OTELSampleRate:    envFloat("OTEL_TRACE_SAMPLE_RATE", 0.1),
		SentryDSN:         strings.TrimSpace(os.Getenv("SENTRY_DSN")),
		SentryEnvironment: strings.TrimSpace(os.Getenv("SENTRY_ENVIRONMENT")),
		SentryRelease:     strings.TrimSpace(os.Getenv("SENTRY_RELEASE")),
		SentrySampleRate:  envFloat("SENTRY_SAMPLE_RATE", 1.0),
	}

	if cached.SentryEnvironment == "" {
		if env := os.Getenv("ENV"); env != "" {
			cached.SentryEnvironment = env
		} else {
			cached.SentryEnvironment = "development"
		}
	}

	cached.CORSAllowedOrigins = envSlice("CORS_ALLOWED_ORIGINS",
		[]string{"http://localhost:5173", "http://localhost:3000"})

	return cached
}

// ResetForTest clears cached config; for use in tests only.
func ResetForTest() { cached = nil }
