package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	turnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tripcourier_turns_total",
			Help: "Total conversation turns processed",
		},
		[]string{"mode", "status"},
	)

	turnDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tripcourier_turn_duration_seconds",
			Help:    "End-to-end turn duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	modelCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tripcourier_model_calls_total",
			Help: "Total model backend completions",
		},
		[]string{"provider", "status"},
	)

	modelCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tripcourier_model_call_duration_seconds",
			Help:    "Model completion duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	toolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tripcourier_tool_calls_total",
			Help: "Total tool invocations",
		},
		[]string{"tool", "status"},
	)

	toolCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tripcourier_tool_call_duration_seconds",
			Help:    "Tool invocation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tool"},
	)

	loopIterations = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tripcourier_agent_loop_iterations",
			Help:    "Reasoning loop iterations per agent turn",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 8, 10},
		},
	)
)

func init() {
	prometheus.MustRegister(
		turnsTotal,
		turnDuration,
		modelCallsTotal,
		modelCallDuration,
		toolCallsTotal,
		toolCallDuration,
		loopIterations,
	)
}

// Metrics records turn, model, and tool outcomes into prometheus. It
// satisfies the observer interfaces of the orchestrator and the tool
// invoker.
type Metrics struct{}

// NewMetrics returns the process-wide metrics recorder.
func NewMetrics() *Metrics { return &Metrics{} }

// ObserveTurn records one finished turn.
func (m *Metrics) ObserveTurn(mode, status string, duration time.Duration) {
	turnsTotal.WithLabelValues(mode, status).Inc()
	turnDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// ObserveModelCall records one model completion.
func (m *Metrics) ObserveModelCall(provider, status string, duration time.Duration) {
	modelCallsTotal.WithLabelValues(provider, status).Inc()
	modelCallDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// ObserveToolCall records one tool invocation.
func (m *Metrics) ObserveToolCall(name, status string, duration time.Duration) {
	toolCallsTotal.WithLabelValues(name, status).Inc()
	toolCallDuration.WithLabelValues(name).Observe(duration.Seconds())
}

// ObserveLoopIterations records how many iterations an agent turn used.
func (m *Metrics) ObserveLoopIterations(n int) {
	loopIterations.Observe(float64(n))
}

// MetricsHandler serves the prometheus scrape endpoint.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
