package observability

import (
	"context"
	"sync"
	"time"
)

// HealthCheck probes one dependency.
type HealthCheck struct {
	Name    string
	Check   func(context.Context) error
	Timeout time.Duration
}

// HealthChecker runs named dependency probes for the health endpoint.
type HealthChecker struct {
	mu     sync.RWMutex
	checks []HealthCheck
}

// CheckResult is the outcome of one probe.
type CheckResult struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// HealthReport aggregates probe outcomes.
type HealthReport struct {
	Healthy   bool          `json:"healthy"`
	Timestamp time.Time     `json:"timestamp"`
	Checks    []CheckResult `json:"checks"`
}

// NewHealthChecker creates an empty checker.
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{}
}

// Register adds a probe. A zero timeout defaults to two seconds.
func (h *HealthChecker) Register(check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if check.Timeout <= 0 {
		check.Timeout = 2 * time.Second
	}
	h.checks = append(h.checks, check)
}

// Run executes all probes and aggregates the report. Healthy means every
// probe passed.
func (h *HealthChecker) Run(ctx context.Context) HealthReport {
	h.mu.RLock()
	checks := make([]HealthCheck, len(h.checks))
	copy(checks, h.checks)
	h.mu.RUnlock()

	report := HealthReport{Healthy: true, Timestamp: time.Now().UTC()}
	for _, check := range checks {
		probeCtx, cancel := context.WithTimeout(ctx, check.Timeout)
		err := check.Check(probeCtx)
		cancel()

		result := CheckResult{Name: check.Name, OK: err == nil}
		if err != nil {
			result.Error = err.Error()
			report.Healthy = false
		}
		report.Checks = append(report.Checks, result)
	}
	return report
}
