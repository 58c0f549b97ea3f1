package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	ResetForTest()
	// ensure defaults kick in with empty env
	os.Unsetenv("LISTEN_ADDR")
	os.Unsetenv("API_CACHE_MAX_BYTES")
	os.Unsetenv("API_CACHE_STRATEGY")
	os.Unsetenv("RATE_LIMIT_PER_IP")
	os.Unsetenv("AUDIT_QUEUE_SIZE")

	cfg := Load()
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("expected default listen addr, got %q", cfg.ListenAddr)
	}
	if cfg.APICacheMaxBytes != 50<<20 {
		t.Fatalf("expected default api cache budget, got %d", cfg.APICacheMaxBytes)
	}
	if cfg.APICacheStrategy != "lru" || cfg.ActivityCacheStrategy != "lfu" {
		t.Fatalf("unexpected default strategies: api=%q activity=%q",
			cfg.APICacheStrategy, cfg.ActivityCacheStrategy)
	}
	if cfg.RateLimitPerIP != 10.0 || cfg.RateLimitPerIPBurst != 20 {
		t.Fatalf("unexpected rate limit defaults: rate=%f burst=%d",
			cfg.RateLimitPerIP, cfg.RateLimitPerIPBurst)
	}
	if cfg.AuditQueueSize != 1024 {
		t.Fatalf("expected default audit queue size=1024, got %d", cfg.AuditQueueSize)
	}
	if !cfg.EnableRateLimit {
		t.Fatal("expected rate limiting enabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	ResetForTest()
	defer ResetForTest()

	t.Setenv("API_CACHE_MAX_BYTES", "1048576")
	t.Setenv("API_CACHE_STRATEGY", "FIFO")
	t.Setenv("API_CACHE_TTL_MS", "1500")
	t.Setenv("ENABLE_RATE_LIMIT", "false")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, https://staging.example.com")

	cfg := Load()
	if cfg.APICacheMaxBytes != 1<<20 {
		t.Errorf("expected overridden budget, got %d", cfg.APICacheMaxBytes)
	}
	if cfg.APICacheStrategy != "fifo" {
		t.Errorf("expected strategy lowered to fifo, got %q", cfg.APICacheStrategy)
	}
	if cfg.APICacheTTL != 1500*time.Millisecond {
		t.Errorf("expected 1.5s TTL, got %v", cfg.APICacheTTL)
	}
	if cfg.EnableRateLimit {
		t.Error("expected rate limiting disabled")
	}
	want := []string{"https://app.example.com", "https://staging.example.com"}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[0] != want[0] || cfg.CORSAllowedOrigins[1] != want[1] {
		t.Errorf("unexpected CORS origins: %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadCaches(t *testing.T) {
	ResetForTest()
	defer ResetForTest()

	first := Load()
	second := Load()
	if first != second {
		t.Error("expected Load to return the cached config")
	}
}
