package ratelimit

import (
	"errors"
	"testing"
	"time"
)

func TestLimiter_PerSessionIsolation(t *testing.T) {
	l := NewLimiter(1000, 2)

	// Session A exhausts its burst; session B is unaffected.
	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("burst should admit two requests")
	}
	if !l.Allow("b") {
		t.Error("session b should have its own bucket")
	}
}

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	cb := NewCircuitBreaker(2, time.Hour)
	boom := errors.New("boom")

	for i := 0; i < 2; i++ {
		if err := cb.Execute(func() error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("Execute() error = %v, want boom", err)
		}
	}

	if cb.State() != CircuitOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}
	if err := cb.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Execute() error = %v, want ErrCircuitOpen", err)
	}
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb := NewCircuitBreaker(1, 10*time.Millisecond)

	_ = cb.Execute(func() error { return errors.New("boom") })
	if cb.State() != CircuitOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}

	time.Sleep(20 * time.Millisecond)

	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("Execute() after cooldown error = %v", err)
	}
	if cb.State() != CircuitClosed {
		t.Errorf("state = %v, want closed after success", cb.State())
	}
}

func TestTimeoutManager(t *testing.T) {
	tm := NewTimeoutManager(5 * time.Second)
	tm.SetTimeout("search_flights", time.Second)

	if got := tm.Timeout("search_flights"); got != time.Second {
		t.Errorf("Timeout(search_flights) = %v, want 1s", got)
	}
	if got := tm.Timeout("unknown"); got != 5*time.Second {
		t.Errorf("Timeout(unknown) = %v, want default 5s", got)
	}
}
