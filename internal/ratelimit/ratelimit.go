// Package ratelimit throttles product actions per actor (form
// submissions, exports, sync requests) with token buckets. The HTTP
// layer has its own request-level limiter; this one protects specific
// operations regardless of transport.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/buildgrid/siteops/backend/internal/metrics"
)

// staleAfter is how long an idle actor bucket survives before the sweep
// removes it.
const staleAfter = 3 * time.Minute

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ActionLimiter rate limits (actor, action) pairs.
type ActionLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    rate.Limit
	burst   int
	sweep   *time.Ticker
	done    chan struct{}
}

// NewActionLimiter creates a limiter allowing perSecond sustained
// operations with the given burst for each (actor, action) pair, and
// starts a sweep goroutine that drops idle buckets.
func NewActionLimiter(perSecond float64, burst int) *ActionLimiter {
	l := &ActionLimiter{
		buckets: make(map[string]*bucket),
		rate:    rate.Limit(perSecond),
		burst:   burst,
		sweep:   time.NewTicker(time.Minute),
		done:    make(chan struct{}),
	}
	go l.sweepLoop()
	return l
}

// Allow reports whether the actor may perform the action now.
func (l *ActionLimiter) Allow(actor, action string) bool {
	ok := l.bucketFor(actor, action).Allow()
	if !ok {
		metrics.RateLimitRejections.WithLabelValues("action").Inc()
	}
	return ok
}

// Wait blocks until the actor may perform the action or ctx is done.
func (l *ActionLimiter) Wait(ctx context.Context, actor, action string) error {
	return l.bucketFor(actor, action).Wait(ctx)
}

// Stop ends the sweep goroutine. The limiter remains usable; idle
// buckets just stop being reclaimed.
func (l *ActionLimiter) Stop() {
	close(l.done)
	l.sweep.Stop()
}

func (l *ActionLimiter) bucketFor(actor, action string) *rate.Limiter {
	key := actor + "\x00" + action

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = time.Now()
	return b.limiter
}

func (l *ActionLimiter) sweepLoop() {
	for {
		select {
		case <-l.done:
			return
		case <-l.sweep.C:
			l.mu.Lock()
			for key, b := range l.buckets {
				if time.Since(b.lastSeen) > staleAfter {
					delete(l.buckets, key)
				}
			}
			l.mu.Unlock()
		}
	}
}
