package cache

import (
	"testing"
	"time"
)

func TestRistretto_SetAndGet(t *testing.T) {
	c, err := NewRistretto(10<<20, 100, time.Minute)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	defer c.Close()

	c.Set("test-key", "test-value", 0)

	got, found := c.Get("test-key")
	if !found {
		t.Fatal("expected to find cached value")
	}
	if got != "test-value" {
		t.Errorf("expected test-value, got %v", got)
	}
}

func TestRistretto_GetNonExistent(t *testing.T) {
	c, err := NewRistretto(10<<20, 100, time.Minute)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	defer c.Close()

	if _, found := c.Get("nonexistent"); found {
		t.Error("expected not to find nonexistent key")
	}
}

func TestRistretto_Expiration(t *testing.T) {
	c, err := NewRistretto(10<<20, 100, time.Minute)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	defer c.Close()

	c.Set("expiring", "v", 100*time.Millisecond)

	if _, found := c.Get("expiring"); !found {
		t.Error("expected value immediately after set")
	}

	time.Sleep(150 * time.Millisecond)

	if _, found := c.Get("expiring"); found {
		t.Error("expected value to be expired")
	}
}

func TestRistretto_Delete(t *testing.T) {
	c, err := NewRistretto(10<<20, 100, time.Minute)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	defer c.Close()

	c.Set("k", "v", 0)

	if !c.Delete("k") {
		t.Error("expected Delete to report the key was present")
	}
	if _, found := c.Get("k"); found {
		t.Error("expected value to be deleted")
	}
}

func TestRistretto_Clear(t *testing.T) {
	c, err := NewRistretto(10<<20, 100, time.Minute)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	defer c.Close()

	c.Set("k1", "v1", 0)
	c.Set("k2", "v2", 0)

	c.Clear()

	if _, found := c.Get("k1"); found {
		t.Error("expected k1 to be cleared")
	}
	if _, found := c.Get("k2"); found {
		t.Error("expected k2 to be cleared")
	}
}

func TestRistretto_ImplementsCache(t *testing.T) {
	var _ Cache = (*Ristretto)(nil)
	var _ Cache = (*Bounded)(nil)
	var _ Cache = (*Mock)(nil)
}
