package contextstore

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps contexts in process memory. Suitable for tests and
// single-node deployments; sessions older than MaxAge are evicted by a
// background sweep.
type MemoryStore struct {
	limits   Limits
	maxAge   time.Duration
	mu       sync.RWMutex
	contexts map[string]*Context
	logs     map[string][]Turn
	closed   bool
	stop     chan struct{}
	stopOnce sync.Once
}

// MemoryConfig configures a MemoryStore.
type MemoryConfig struct {
	Limits Limits
	// MaxAge evicts sessions not updated within this duration (0 = keep forever).
	MaxAge time.Duration
	// SweepInterval is how often eviction runs (default: 5m when MaxAge > 0).
	SweepInterval time.Duration
}

// NewMemoryStore creates an in-memory context store.
func NewMemoryStore(cfg MemoryConfig) *MemoryStore {
	s := &MemoryStore{
		limits:   cfg.Limits.withDefaults(),
		maxAge:   cfg.MaxAge,
		contexts: make(map[string]*Context),
		logs:     make(map[string][]Turn),
		stop:     make(chan struct{}),
	}

	if cfg.MaxAge > 0 {
		interval := cfg.SweepInterval
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		go s.sweep(interval)
	}

	return s
}

// Get returns the context for a session, creating one if absent.
func (s *MemoryStore) Get(_ context.Context, sessionID string) (*Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	c, ok := s.contexts[sessionID]
	if !ok {
		c = newContext(sessionID, time.Now().UTC())
		s.contexts[sessionID] = c
	}
	return cloneContext(c), nil
}

// Update merges the update and returns the new state.
func (s *MemoryStore) Update(_ context.Context, sessionID string, upd Update) (*Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	now := time.Now().UTC()
	c, ok := s.contexts[sessionID]
	if !ok {
		c = newContext(sessionID, now)
		s.contexts[sessionID] = c
	}

	applyUpdate(c, upd, s.limits, now)
	s.logs[sessionID] = truncateTurns(append(s.logs[sessionID], upd.Turns...), s.limits.MaxLogTurns)

	return cloneContext(c), nil
}

// Log returns the extended turn record for a session.
func (s *MemoryStore) Log(_ context.Context, sessionID string) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	return append([]Turn(nil), s.logs[sessionID]...), nil
}

// Close stops the sweeper and drops all state.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })

	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.contexts = make(map[string]*Context)
	s.logs = make(map[string][]Turn)
	return nil
}

// Len reports the number of live sessions. Used by tests and health checks.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.contexts)
}

func (s *MemoryStore) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.evictStale()
		}
	}
}

func (s *MemoryStore) evictStale() {
	cutoff := time.Now().UTC().Add(-s.maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.contexts {
		if c.LastUpdated.Before(cutoff) {
			delete(s.contexts, id)
			delete(s.logs, id)
		}
	}
}
