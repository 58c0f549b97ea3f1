package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	"github.com/buildgrid/siteops/backend/internal/metrics"
)

// ErrCircuitOpen is returned when the circuit breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the circuit breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// CircuitBreaker fails fast against a dependency that keeps erroring.
// Closed passes everything through; Open rejects immediately; after the
// cooldown a half-open probe decides whether to close again.
type CircuitBreaker struct {
	mu           sync.Mutex
	state        State
	failures     int
	successes    int
	openedAt     time.Time
	name         string
	failLimit    int
	successLimit int
	cooldown     time.Duration
}

// Config holds circuit breaker configuration.
type Config struct {
	Name             string
	FailureThreshold int           // consecutive failures before opening
	SuccessThreshold int           // half-open successes needed to close
	Cooldown         time.Duration // wait before allowing a half-open probe
}

// New creates a new circuit breaker.
func New(cfg Config) *CircuitBreaker {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold == 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.Cooldown == 0 {
		cfg.Cooldown = 60 * time.Second
	}

	metrics.CircuitBreakerState.WithLabelValues(cfg.Name).Set(0)

	return &CircuitBreaker{
		state:        StateClosed,
		name:         cfg.Name,
		failLimit:    cfg.FailureThreshold,
		successLimit: cfg.SuccessThreshold,
		cooldown:     cfg.Cooldown,
	}
}

// Call executes fn unless the breaker is open.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if !cb.allow() {
		return ErrCircuitOpen
	}

	if err := fn(); err != nil {
		cb.onFailure()
		return err
	}
	cb.onSuccess()
	return nil
}

// GetState returns the current state.
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed, StateHalfOpen:
		return true
	case StateOpen:
		if time.Since(cb.openedAt) > cb.cooldown {
			cb.state = StateHalfOpen
			cb.successes = 0
			metrics.CircuitBreakerState.WithLabelValues(cb.name).Set(2)
			return true
		}
		return false
	default:
		return false
	}
}

func (cb *CircuitBreaker) onFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.successes = 0

	switch cb.state {
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.failLimit {
			cb.trip()
		}
	case StateHalfOpen:
		// The probe failed; go straight back to open.
		cb.trip()
	}
}

func (cb *CircuitBreaker) onSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.successLimit {
			cb.state = StateClosed
			cb.failures = 0
			cb.successes = 0
			metrics.CircuitBreakerState.WithLabelValues(cb.name).Set(0)
		}
	}
}

// trip opens the breaker; callers hold the lock.
func (cb *CircuitBreaker) trip() {
	cb.state = StateOpen
	cb.failures = 0
	cb.openedAt = time.Now()
	metrics.CircuitBreakerTrips.WithLabelValues(cb.name).Inc()
	metrics.CircuitBreakerState.WithLabelValues(cb.name).Set(1)
}
