package tools

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/tripcourier/tripcourier/pkg/ratelimit"
)

// Observer receives tool invocation outcomes for metrics recording.
type Observer interface {
	ObserveToolCall(name, status string, duration time.Duration)
}

// Invoker executes registered tools with schema validation, per-call
// timeouts, and per-tool rate limiting. Failures are returned as structured
// results, never as panics or turn-aborting errors.
type Invoker struct {
	registry *Registry
	timeouts *ratelimit.TimeoutManager
	limits   map[string]*rate.Limiter
	observer Observer
	log      *logrus.Logger
}

// InvokerOption configures an Invoker.
type InvokerOption func(*Invoker)

// WithToolRateLimit caps invocations of one tool.
func WithToolRateLimit(name string, perSecond float64, burst int) InvokerOption {
	return func(inv *Invoker) {
		inv.limits[name] = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithObserver wires metrics recording.
func WithObserver(obs Observer) InvokerOption {
	return func(inv *Invoker) {
		inv.observer = obs
	}
}

// WithLogger sets the structured logger.
func WithLogger(log *logrus.Logger) InvokerOption {
	return func(inv *Invoker) {
		inv.log = log
	}
}

// NewInvoker creates an invoker over a sealed registry.
func NewInvoker(registry *Registry, timeouts *ratelimit.TimeoutManager, opts ...InvokerOption) *Invoker {
	inv := &Invoker{
		registry: registry,
		timeouts: timeouts,
		limits:   make(map[string]*rate.Limiter),
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Registry returns the underlying registry.
func (inv *Invoker) Registry() *Registry {
	return inv.registry
}

// Invoke runs one tool call and normalizes the outcome into a Result
// envelope. Unknown names, schema mismatches, and provider failures all
// come back as structured error results.
func (inv *Invoker) Invoke(ctx context.Context, name string, input Args) *Result {
	started := time.Now().UTC()
	result := &Result{
		Name:      name,
		Input:     input,
		Timestamp: started,
	}

	ctx, span := otel.Tracer("tools").Start(ctx, "tools.invoke")
	span.SetAttributes(attribute.String("tool.name", name))
	defer span.End()

	tool, exists := inv.registry.Get(name)
	if !exists {
		result.Err = &InvokeError{Code: ErrCodeToolNotFound, Message: "unknown tool: " + name}
		inv.finish(result, started)
		return result
	}

	if err := tool.Schema.ValidateArgs(input); err != nil {
		result.Err = &InvokeError{Code: ErrCodeInvalidToolInput, Message: err.Error()}
		inv.finish(result, started)
		return result
	}

	if limiter, ok := inv.limits[name]; ok && !limiter.Allow() {
		result.Err = &InvokeError{Code: ErrCodeRateLimited, Message: "tool rate limit exceeded: " + name}
		inv.finish(result, started)
		return result
	}

	callCtx, cancel := inv.timeouts.WithTimeout(ctx, name)
	defer cancel()

	output, err := tool.Handler(callCtx, input)
	if err != nil {
		code := ErrCodeProviderError
		if errors.Is(err, context.DeadlineExceeded) {
			code = ErrCodeProviderTimeout
		}
		result.Err = &InvokeError{Code: code, Message: err.Error()}
		inv.finish(result, started)
		return result
	}

	result.Output = output
	inv.finish(result, started)
	return result
}

func (inv *Invoker) finish(result *Result, started time.Time) {
	result.Duration = time.Since(started)

	status := "ok"
	if result.Err != nil {
		status = result.Err.Code
	}

	if inv.observer != nil {
		inv.observer.ObserveToolCall(result.Name, status, result.Duration)
	}

	entry := inv.log.WithFields(logrus.Fields{
		"tool":        result.Name,
		"status":      status,
		"duration_ms": result.Duration.Milliseconds(),
	})
	if result.Err != nil {
		entry.Warn("tool invocation failed")
	} else {
		entry.Debug("tool invocation complete")
	}
}
