// Package ratelimit provides the process-wide throttling and resilience
// primitives used around external calls: a global plus per-session rate
// limiter, a circuit breaker for flaky providers, and per-call timeouts.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter combines a global rate limit with per-session limits.
type Limiter struct {
	global   *rate.Limiter
	sessions map[string]*rate.Limiter
	mu       sync.RWMutex

	perSecond float64
	burst     int
}

// NewLimiter creates a limiter allowing perSecond requests with the given burst,
// applied both globally and per session.
func NewLimiter(perSecond float64, burst int) *Limiter {
	return &Limiter{
		global:    rate.NewLimiter(rate.Limit(perSecond), burst),
		sessions:  make(map[string]*rate.Limiter),
		perSecond: perSecond,
		burst:     burst,
	}
}

// Allow checks if a request for the session should be admitted.
func (l *Limiter) Allow(sessionID string) bool {
	if !l.global.Allow() {
		return false
	}
	return l.sessionLimiter(sessionID).Allow()
}

// Wait blocks until a request for the session can proceed.
func (l *Limiter) Wait(ctx context.Context, sessionID string) error {
	if err := l.global.Wait(ctx); err != nil {
		return fmt.Errorf("global rate limit: %w", err)
	}
	if err := l.sessionLimiter(sessionID).Wait(ctx); err != nil {
		return fmt.Errorf("session rate limit: %w", err)
	}
	return nil
}

func (l *Limiter) sessionLimiter(sessionID string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.sessions[sessionID]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, exists := l.sessions[sessionID]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(rate.Limit(l.perSecond), l.burst)
	l.sessions[sessionID] = limiter
	return limiter
}

// CircuitBreaker trips after consecutive failures and recovers after a
// cooldown, protecting the turn path from hammering a dead provider.
type CircuitBreaker struct {
	maxFailures  int
	resetTimeout time.Duration

	mu              sync.Mutex
	failures        int
	lastFailureTime time.Time
	state           CircuitState
}

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

// ErrCircuitOpen is returned when the breaker rejects a call.
var ErrCircuitOpen = fmt.Errorf("circuit breaker is open")

// NewCircuitBreaker creates a circuit breaker.
func NewCircuitBreaker(maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		state:        CircuitClosed,
	}
}

// Execute runs fn through the breaker.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()

	if cb.state == CircuitOpen && time.Since(cb.lastFailureTime) > cb.resetTimeout {
		cb.state = CircuitHalfOpen
		cb.failures = 0
	}

	if cb.state == CircuitOpen {
		cb.mu.Unlock()
		return ErrCircuitOpen
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failures++
		cb.lastFailureTime = time.Now()
		if cb.failures >= cb.maxFailures {
			cb.state = CircuitOpen
		}
		return err
	}

	cb.failures = 0
	cb.state = CircuitClosed
	return nil
}

// State returns the current breaker state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset manually closes the breaker.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	cb.state = CircuitClosed
}

// TimeoutManager holds the default and per-operation timeouts for external calls.
type TimeoutManager struct {
	defaultTimeout time.Duration
	timeouts       map[string]time.Duration
	mu             sync.RWMutex
}

// NewTimeoutManager creates a timeout manager.
func NewTimeoutManager(defaultTimeout time.Duration) *TimeoutManager {
	return &TimeoutManager{
		defaultTimeout: defaultTimeout,
		timeouts:       make(map[string]time.Duration),
	}
}

// SetTimeout sets a specific timeout for an operation name.
func (tm *TimeoutManager) SetTimeout(name string, timeout time.Duration) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.timeouts[name] = timeout
}

// Timeout returns the timeout for an operation name.
func (tm *TimeoutManager) Timeout(name string) time.Duration {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	if timeout, exists := tm.timeouts[name]; exists {
		return timeout
	}
	return tm.defaultTimeout
}

// WithTimeout derives a context with the appropriate timeout for an operation.
func (tm *TimeoutManager) WithTimeout(ctx context.Context, name string) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, tm.Timeout(name))
}
