// Package orchestrator drives one conversation turn through the state
// machine: load context, extract preferences, classify, answer directly or
// run the bounded reasoning loop, then assemble the response and persist the
// turn in a single atomic update.
package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tripcourier/tripcourier/internal/classify"
	"github.com/tripcourier/tripcourier/pkg/contextstore"
	"github.com/tripcourier/tripcourier/pkg/llm"
	"github.com/tripcourier/tripcourier/pkg/prefs"
	"github.com/tripcourier/tripcourier/pkg/tools"
)

// Turn modes.
const (
	ModeSimple = "simple"
	ModeAgent  = "agent"
)

// Machine-readable error codes surfaced to API callers. Raw backend errors
// never cross this boundary.
const (
	ErrCodeValidation          = "validation_error"
	ErrCodeToolNotFound        = "tool_not_found"
	ErrCodeInvalidToolInput    = "invalid_tool_input"
	ErrCodeProviderTimeout     = "provider_timeout"
	ErrCodeProviderUnavailable = "provider_unavailable"
	ErrCodeContextStore        = "context_store_error"
	ErrCodeInternal            = "internal_error"
)

// fallbackText is the deterministic user-safe answer for failed turns.
const fallbackText = "I'm having trouble completing that request right now. " +
	"Everything you've told me so far is saved, so please try again in a moment."

// Request is one user turn.
type Request struct {
	SessionID      string
	UserID         string
	Message        string
	ForceAgentMode bool
}

// Response is the assembled outcome of a turn.
type Response struct {
	TurnID           string          `json:"turnId"`
	SessionID        string          `json:"sessionId"`
	Text             string          `json:"text"`
	Mode             string          `json:"mode"`
	Iterations       int             `json:"iterations,omitempty"`
	ToolsUsed        []string        `json:"toolsUsed,omitempty"`
	ToolResults      []*tools.Result `json:"toolResults,omitempty"`
	SuggestedActions []string        `json:"suggestedActions,omitempty"`
	ErrorCode        string          `json:"errorCode,omitempty"`
}

// OK reports whether the turn completed without a terminal failure.
func (r *Response) OK() bool { return r.ErrorCode == "" }

// Observer receives turn-level outcomes for metrics recording.
type Observer interface {
	ObserveTurn(mode, status string, duration time.Duration)
	ObserveModelCall(provider, status string, duration time.Duration)
	ObserveLoopIterations(n int)
}

// Config tunes the turn pipeline.
type Config struct {
	// MaxIterations caps the reasoning loop. Defaults to 8.
	MaxIterations int
	// MaxTokens per completion; zero lets the backend decide.
	MaxTokens int
	// Temperature for completions.
	Temperature float32
	// RetryAttempts for model calls. Defaults to 3.
	RetryAttempts int
	// ModelTimeout bounds each model-call attempt; an expired attempt
	// surfaces as a structured timeout instead of hanging the turn.
	// Defaults to 30s.
	ModelTimeout time.Duration
	// RetryBackoff overrides the delay between model-call retries. Nil
	// uses exponential seconds.
	RetryBackoff func(attempt int) time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxIterations <= 0 {
		c.MaxIterations = 8
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 3
	}
	if c.ModelTimeout <= 0 {
		c.ModelTimeout = 30 * time.Second
	}
	return c
}

// Orchestrator executes turns.
type Orchestrator struct {
	store    contextstore.Store
	provider llm.Provider
	invoker  *tools.Invoker
	cfg      Config
	log      *logrus.Logger
	observer Observer
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the structured logger.
func WithLogger(log *logrus.Logger) Option {
	return func(o *Orchestrator) { o.log = log }
}

// WithObserver wires metrics recording.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// New creates an orchestrator over a context store, a model backend, and a
// tool invoker.
func New(store contextstore.Store, provider llm.Provider, invoker *tools.Invoker, cfg Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:    store,
		provider: provider,
		invoker:  invoker,
		cfg:      cfg.withDefaults(),
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// turnState carries everything a turn accumulates between states.
type turnState struct {
	req       Request
	turnID    string
	sessionID string
	context   *contextstore.Context
	delta     contextstore.PreferenceDelta
	mode      string

	text        string
	iterations  int
	toolResults []*tools.Result
	searches    []contextstore.SearchRecord

	errCode string
}

// Turn runs one conversation turn end to end. It always returns a
// well-formed response; failures surface as ErrorCode plus fallback text.
// The returned error is reserved for request validation.
func (o *Orchestrator) Turn(ctx context.Context, req Request) (*Response, error) {
	started := time.Now()

	ctx, span := otel.Tracer("orchestrator").Start(ctx, "orchestrator.turn")
	defer span.End()

	st := &turnState{
		req:       req,
		turnID:    uuid.NewString(),
		sessionID: req.SessionID,
	}
	if st.sessionID == "" {
		st.sessionID = contextstore.AnonymousSessionID(req.UserID)
	}
	span.SetAttributes(
		attribute.String("session.id", st.sessionID),
		attribute.String("turn.id", st.turnID),
	)

	if req.Message == "" {
		st.errCode = ErrCodeValidation
		resp := o.assemble(st)
		resp.Text = "Please send a message so I can help with your trip."
		o.finish(st, started)
		return resp, nil
	}

	o.start(ctx, st)
	if st.errCode == "" {
		o.classify(st)
		switch st.mode {
		case ModeSimple:
			o.simpleComplete(ctx, st)
		case ModeAgent:
			o.agentLoop(ctx, st)
		}
		o.writeBack(ctx, st)
	}

	resp := o.assemble(st)
	o.finish(st, started)
	return resp, nil
}

// start loads the session context and folds the turn's preference delta into
// the working copy so this turn's model call already sees it. Persistence is
// deferred to writeBack.
func (o *Orchestrator) start(ctx context.Context, st *turnState) {
	loaded, err := o.store.Get(ctx, st.sessionID)
	if err != nil {
		o.log.WithFields(logrus.Fields{
			"session": st.sessionID,
			"turn":    st.turnID,
			"state":   "start",
		}).WithError(err).Error("context load failed")
		st.errCode = ErrCodeContextStore
		return
	}

	st.context = loaded
	st.delta = prefs.Extract(st.req.Message, &loaded.Preferences)
	if !st.delta.IsEmpty() {
		contextstore.ApplyDelta(&st.context.Preferences, st.delta)
	}
}

// classify picks the mode. A forced agent request always wins.
func (o *Orchestrator) classify(st *turnState) {
	if st.req.ForceAgentMode {
		st.mode = ModeAgent
		return
	}
	result := classify.Classify(st.req.Message)
	if result.Complex {
		st.mode = ModeAgent
	} else {
		st.mode = ModeSimple
	}
	o.log.WithFields(logrus.Fields{
		"session": st.sessionID,
		"turn":    st.turnID,
		"state":   "classify",
		"mode":    st.mode,
		"reason":  result.Reason,
	}).Debug("turn classified")
}

// simpleComplete answers with a single completion and no tools attached.
func (o *Orchestrator) simpleComplete(ctx context.Context, st *turnState) {
	req := llm.Request{
		Messages:    buildMessages(st.context, st.req.Message, nil),
		MaxTokens:   o.cfg.MaxTokens,
		Temperature: o.cfg.Temperature,
	}

	resp, err := o.completeWithObservation(ctx, req)
	if err != nil {
		st.errCode = classifyProviderError(err)
		return
	}
	st.text = resp.Text
}

// writeBack persists the whole turn in one atomic update: preference delta,
// both conversation turns, and any search records the tools produced. It
// runs for failed model turns too, so the interaction counter moves exactly
// once per turn.
func (o *Orchestrator) writeBack(ctx context.Context, st *turnState) {
	now := time.Now().UTC()
	assistantText := st.text
	if assistantText == "" {
		assistantText = fallbackText
	}

	upd := contextstore.Update{
		Preferences: st.delta,
		Turns: []contextstore.Turn{
			{Role: "user", Content: st.req.Message, Timestamp: now},
			{Role: "assistant", Content: assistantText, Timestamp: now},
		},
		Searches: st.searches,
	}

	if _, err := o.store.Update(ctx, st.sessionID, upd); err != nil {
		o.log.WithFields(logrus.Fields{
			"session": st.sessionID,
			"turn":    st.turnID,
			"state":   "assemble",
		}).WithError(err).Error("context write-back failed")
		if st.errCode == "" {
			st.errCode = ErrCodeContextStore
		}
	}
}

func (o *Orchestrator) completeWithObservation(ctx context.Context, req llm.Request) (*llm.Response, error) {
	started := time.Now()
	resp, err := llm.CompleteWithRetry(ctx, o.provider, req, llm.RetryConfig{
		MaxAttempts:    o.cfg.RetryAttempts,
		AttemptTimeout: o.cfg.ModelTimeout,
		Backoff:        o.cfg.RetryBackoff,
		Log:            o.log,
	})
	if o.observer != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		o.observer.ObserveModelCall(o.provider.Name(), status, time.Since(started))
	}
	return resp, err
}

func (o *Orchestrator) finish(st *turnState, started time.Time) {
	status := "ok"
	if st.errCode != "" {
		status = st.errCode
	}
	if o.observer != nil {
		o.observer.ObserveTurn(st.mode, status, time.Since(started))
		if st.mode == ModeAgent {
			o.observer.ObserveLoopIterations(st.iterations)
		}
	}
	o.log.WithFields(logrus.Fields{
		"session":    st.sessionID,
		"turn":       st.turnID,
		"state":      "done",
		"mode":       st.mode,
		"status":     status,
		"iterations": st.iterations,
		"tools":      len(st.toolResults),
	}).Info("turn complete")
}

// classifyProviderError maps the provider taxonomy onto API error codes.
func classifyProviderError(err error) string {
	pe := llm.AsProviderError("", err)
	switch pe.Code {
	case llm.ErrCodeTimeout:
		return ErrCodeProviderTimeout
	case llm.ErrCodeUnavailable, llm.ErrCodeRateLimited:
		return ErrCodeProviderUnavailable
	default:
		return ErrCodeInternal
	}
}
