package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHealthChecker_AllPassing(t *testing.T) {
	checker := NewHealthChecker()
	checker.Register(HealthCheck{
		Name:  "store",
		Check: func(context.Context) error { return nil },
	})

	report := checker.Run(context.Background())
	assert.True(t, report.Healthy)
	assert.Len(t, report.Checks, 1)
	assert.True(t, report.Checks[0].OK)
}

func TestHealthChecker_FailingProbeMarksUnhealthy(t *testing.T) {
	checker := NewHealthChecker()
	checker.Register(HealthCheck{
		Name:  "store",
		Check: func(context.Context) error { return nil },
	})
	checker.Register(HealthCheck{
		Name:  "gateway",
		Check: func(context.Context) error { return errors.New("connection refused") },
	})

	report := checker.Run(context.Background())
	assert.False(t, report.Healthy)
	assert.Len(t, report.Checks, 2)
	assert.Equal(t, "connection refused", report.Checks[1].Error)
}

func TestHealthChecker_ProbeTimeout(t *testing.T) {
	checker := NewHealthChecker()
	checker.Register(HealthCheck{
		Name:    "slow",
		Timeout: 10 * time.Millisecond,
		Check: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	})

	report := checker.Run(context.Background())
	assert.False(t, report.Healthy)
}

func TestTracingConfig_NoneIsNoop(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingConfig{Exporter: "none"})
	assert.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestTracingConfig_UnknownExporterRejected(t *testing.T) {
	_, err := InitTracing(context.Background(), TracingConfig{Exporter: "jaeger"})
	assert.Error(t, err)
}

func TestTracingConfigFromEnv_ParsesHeaders(t *testing.T) {
	t.Setenv("OTEL_TRACES_EXPORTER", "otlp")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "authorization=Basic abc, x-team=travel")

	cfg := TracingConfigFromEnv()
	assert.Equal(t, "otlp", cfg.Exporter)
	assert.Equal(t, "Basic abc", cfg.OTLPHeaders["authorization"])
	assert.Equal(t, "travel", cfg.OTLPHeaders["x-team"])
}
