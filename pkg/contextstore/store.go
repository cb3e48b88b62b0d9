package contextstore

import (
	"context"
	"errors"
	"time"
)

// Common errors for store operations.
var (
	// ErrStoreClosed is returned when operating on a closed store.
	ErrStoreClosed = errors.New("context store is closed")
	// ErrStoreUnavailable wraps backend failures (connection loss, timeout).
	ErrStoreUnavailable = errors.New("context store unavailable")
)

// Update carries everything one turn wants to persist, applied atomically:
// the preference delta, the turns to append, and any search records produced
// by tool calls. TotalInteractions is incremented by one per Update.
type Update struct {
	Preferences PreferenceDelta
	Turns       []Turn
	Searches    []SearchRecord
}

// Store is the session context store. Implementations must be safe for
// concurrent use across sessions.
type Store interface {
	// Get returns the context for a session, creating a default-initialized
	// one if absent. It never reports "not found".
	Get(ctx context.Context, sessionID string) (*Context, error)

	// Update merges the update into the session context and returns the new
	// state synchronously. Preferences merge field-locally; histories append
	// with truncation; the interaction counter increments exactly once.
	Update(ctx context.Context, sessionID string, upd Update) (*Context, error)

	// Log returns the extended turn record kept for analytics, which may
	// be longer than the model-facing window in Context.History.
	Log(ctx context.Context, sessionID string) ([]Turn, error)

	// Close releases resources held by the store.
	Close() error
}

// Limits bounds the growth of per-session state.
type Limits struct {
	// MaxHistoryTurns is the model-facing conversation window size.
	MaxHistoryTurns int
	// MaxSearchRecords bounds the search history.
	MaxSearchRecords int
	// MaxLogTurns bounds the analytics turn log.
	MaxLogTurns int
}

// DefaultLimits are applied wherever a limit is zero.
func DefaultLimits() Limits {
	return Limits{
		MaxHistoryTurns:  20,
		MaxSearchRecords: 25,
		MaxLogTurns:      200,
	}
}

func (l Limits) withDefaults() Limits {
	def := DefaultLimits()
	if l.MaxHistoryTurns <= 0 {
		l.MaxHistoryTurns = def.MaxHistoryTurns
	}
	if l.MaxSearchRecords <= 0 {
		l.MaxSearchRecords = def.MaxSearchRecords
	}
	if l.MaxLogTurns <= 0 {
		l.MaxLogTurns = def.MaxLogTurns
	}
	return l
}

// newContext builds the default-initialized context created on first access.
func newContext(sessionID string, now time.Time) *Context {
	return &Context{
		SessionID:   sessionID,
		CreatedAt:   now,
		LastUpdated: now,
	}
}

// applyUpdate merges an update into a context in place.
func applyUpdate(c *Context, upd Update, limits Limits, now time.Time) {
	mergePreferences(&c.Preferences, upd.Preferences)
	c.History = truncateTurns(append(c.History, upd.Turns...), limits.MaxHistoryTurns)
	c.SearchHistory = truncateSearches(append(c.SearchHistory, upd.Searches...), limits.MaxSearchRecords)
	c.TotalInteractions++
	c.LastUpdated = now
}
