package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestActionLimiter_BurstThenReject(t *testing.T) {
	l := NewActionLimiter(1.0, 2)
	defer l.Stop()

	if !l.Allow("user:1", "export") {
		t.Error("expected first call within burst to pass")
	}
	if !l.Allow("user:1", "export") {
		t.Error("expected second call within burst to pass")
	}
	if l.Allow("user:1", "export") {
		t.Error("expected call past burst to be rejected")
	}
}

func TestActionLimiter_ActorsAreIndependent(t *testing.T) {
	l := NewActionLimiter(1.0, 1)
	defer l.Stop()

	if !l.Allow("user:1", "export") {
		t.Fatal("expected user:1 to pass")
	}
	if !l.Allow("user:2", "export") {
		t.Error("expected user:2 to have its own bucket")
	}
}

func TestActionLimiter_ActionsAreIndependent(t *testing.T) {
	l := NewActionLimiter(1.0, 1)
	defer l.Stop()

	if !l.Allow("user:1", "export") {
		t.Fatal("expected export to pass")
	}
	if !l.Allow("user:1", "sync") {
		t.Error("expected sync to have its own bucket")
	}
}

func TestActionLimiter_WaitRefills(t *testing.T) {
	l := NewActionLimiter(20.0, 1)
	defer l.Stop()

	ctx := context.Background()
	start := time.Now()
	if err := l.Wait(ctx, "user:1", "sync"); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	if err := l.Wait(ctx, "user:1", "sync"); err != nil {
		t.Fatalf("second wait: %v", err)
	}

	// At 20 rps the second token arrives after ~50ms.
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("expected wait to enforce refill delay, got %v", elapsed)
	}
}

func TestActionLimiter_WaitHonorsContext(t *testing.T) {
	l := NewActionLimiter(0.1, 1)
	defer l.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	l.Allow("user:1", "export") // drain the bucket

	if err := l.Wait(ctx, "user:1", "export"); err == nil {
		t.Error("expected Wait to fail when context expires first")
	}
}
