package middleware

import (
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/buildgrid/siteops/backend/internal/apierr"
	"github.com/buildgrid/siteops/backend/internal/metrics"
)

// staleIPAfter is how long an idle per-IP limiter is kept before the
// sweeper discards it.
const staleIPAfter = 3 * time.Minute

// RateLimiter enforces a global request budget plus a per-client-IP budget.
type RateLimiter struct {
	global  *rate.Limiter
	perIP   map[string]*ipLimiter
	mu      sync.Mutex
	ipRate  rate.Limit
	ipBurst int

	cleanup *time.Ticker
	done    chan struct{}
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a rate limiter with global and per-IP token
// buckets. Rates are requests per second.
func NewRateLimiter(globalRate float64, globalBurst int, ipRate float64, ipBurst int) *RateLimiter {
	rl := &RateLimiter{
		global:  rate.NewLimiter(rate.Limit(globalRate), globalBurst),
		perIP:   make(map[string]*ipLimiter),
		ipRate:  rate.Limit(ipRate),
		ipBurst: ipBurst,
		cleanup: time.NewTicker(1 * time.Minute),
		done:    make(chan struct{}),
	}

	go rl.sweepStale()

	return rl
}

// getLimiter returns the token bucket for a client IP, creating it on first
// sight and refreshing its last-seen time.
func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if l, ok := rl.perIP[ip]; ok {
		l.lastSeen = time.Now()
		return l.limiter
	}

	l := &ipLimiter{
		limiter:  rate.NewLimiter(rl.ipRate, rl.ipBurst),
		lastSeen: time.Now(),
	}
	rl.perIP[ip] = l
	return l.limiter
}

func (rl *RateLimiter) sweepStale() {
	for {
		select {
		case <-rl.done:
			return
		case <-rl.cleanup.C:
			rl.mu.Lock()
			for ip, l := range rl.perIP {
				if time.Since(l.lastSeen) > staleIPAfter {
					delete(rl.perIP, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Stop terminates the background sweeper.
func (rl *RateLimiter) Stop() {
	rl.cleanup.Stop()
	close(rl.done)
}

// Limit returns a middleware handler that enforces rate limits.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.global.Allow() {
			metrics.RateLimitRejections.WithLabelValues("global").Inc()
			apierr.WriteErrorWithContext(w, r, apierr.RateLimitGlobal())
			return
		}

		ip := getClientIP(r)
		if !rl.getLimiter(ip).Allow() {
			metrics.RateLimitRejections.WithLabelValues("ip").Inc()
			apierr.WriteErrorWithContext(w, r, apierr.RateLimitIP())
			return
		}

		next.ServeHTTP(w, r)
	})
}

// getClientIP extracts the client IP from the request, checking common
// proxy headers before falling back to the socket address.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// X-Forwarded-For can contain multiple IPs; take the first one
		if i := strings.IndexByte(xff, ','); i >= 0 {
			xff = xff[:i]
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	if addr, err := netip.ParseAddrPort(r.RemoteAddr); err == nil {
		return addr.Addr().String()
	}
	return r.RemoteAddr
}
