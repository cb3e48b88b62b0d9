package contextstore

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStore_GetCreatesDefault(t *testing.T) {
	s := NewMemoryStore(MemoryConfig{})
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	c, err := s.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if c.SessionID != "sess-1" {
		t.Errorf("SessionID = %q, want sess-1", c.SessionID)
	}
	if c.TotalInteractions != 0 {
		t.Errorf("TotalInteractions = %d, want 0", c.TotalInteractions)
	}
}

func TestMemoryStore_UpdateReturnsMergedState(t *testing.T) {
	s := NewMemoryStore(MemoryConfig{})
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	c, err := s.Update(ctx, "sess-1", Update{
		Preferences: PreferenceDelta{
			Flight: FlightDelta{CabinClass: strPtr("business")},
		},
		Turns: []Turn{
			{Role: "user", Content: "business class please", Timestamp: time.Now()},
			{Role: "assistant", Content: "noted", Timestamp: time.Now()},
		},
		Searches: []SearchRecord{{Type: "flight", Destination: "Tokyo"}},
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if c.Preferences.Flight.CabinClass != "business" {
		t.Errorf("CabinClass = %q, want business", c.Preferences.Flight.CabinClass)
	}
	if len(c.History) != 2 {
		t.Errorf("History length = %d, want 2", len(c.History))
	}
	if len(c.SearchHistory) != 1 {
		t.Errorf("SearchHistory length = %d, want 1", len(c.SearchHistory))
	}
	if c.TotalInteractions != 1 {
		t.Errorf("TotalInteractions = %d, want 1", c.TotalInteractions)
	}
}

func TestMemoryStore_CounterOnlyIncreases(t *testing.T) {
	s := NewMemoryStore(MemoryConfig{})
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		c, err := s.Update(ctx, "sess-1", Update{})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if c.TotalInteractions != i {
			t.Errorf("after %d updates TotalInteractions = %d", i, c.TotalInteractions)
		}
	}
}

func TestMemoryStore_HistoryTruncation(t *testing.T) {
	s := NewMemoryStore(MemoryConfig{Limits: Limits{MaxHistoryTurns: 4, MaxLogTurns: 100}})
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if _, err := s.Update(ctx, "sess-1", Update{
			Turns: []Turn{{Role: "user", Content: "msg"}},
		}); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
	}

	c, err := s.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(c.History) != 4 {
		t.Errorf("History length = %d, want 4", len(c.History))
	}

	// The analytics log keeps the longer record.
	log, err := s.Log(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Log() error = %v", err)
	}
	if len(log) != 10 {
		t.Errorf("Log length = %d, want 10", len(log))
	}
}

func TestMemoryStore_CallerCannotAliasState(t *testing.T) {
	s := NewMemoryStore(MemoryConfig{})
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	c1, _ := s.Update(ctx, "sess-1", Update{
		Preferences: PreferenceDelta{Interests: []string{"food"}},
	})
	c1.Preferences.Interests[0] = "mutated"
	c1.Preferences.HomeCity = "nowhere"

	c2, _ := s.Get(ctx, "sess-1")
	if c2.Preferences.Interests[0] != "food" {
		t.Errorf("store state was mutated through a returned copy")
	}
	if c2.Preferences.HomeCity != "" {
		t.Errorf("store state was mutated through a returned copy")
	}
}

func TestMemoryStore_EvictsStaleSessions(t *testing.T) {
	s := NewMemoryStore(MemoryConfig{
		MaxAge:        10 * time.Millisecond,
		SweepInterval: 5 * time.Millisecond,
	})
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	if _, err := s.Update(ctx, "sess-1", Update{}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for s.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s.Len() != 0 {
		t.Errorf("stale session was not evicted")
	}
}

func TestMemoryStore_Closed(t *testing.T) {
	s := NewMemoryStore(MemoryConfig{})
	_ = s.Close()

	if _, err := s.Get(context.Background(), "x"); err != ErrStoreClosed {
		t.Errorf("Get() error = %v, want ErrStoreClosed", err)
	}
	if _, err := s.Update(context.Background(), "x", Update{}); err != ErrStoreClosed {
		t.Errorf("Update() error = %v, want ErrStoreClosed", err)
	}
}
