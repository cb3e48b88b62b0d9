// Package llm defines the model-backend interface the orchestrator plans
// with, and its OpenAI, SageMaker, and mock implementations. Backends are
// interchangeable: the orchestrator only sees Provider.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/tripcourier/tripcourier/pkg/tools"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one entry in the model's conversation window.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	Name       string     `json:"name,omitempty"`       // tool name on RoleTool messages
	ToolCallID string     `json:"toolCallId,omitempty"` // links a RoleTool message to its call
	ToolCalls  []ToolCall `json:"toolCalls,omitempty"`  // assistant messages echo their requested calls
}

// ToolCall is a model-requested tool invocation.
type ToolCall struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Arguments tools.Args `json:"arguments"`
}

// Request is a single completion request.
type Request struct {
	Messages    []Message          `json:"messages"`
	Tools       []tools.Descriptor `json:"tools,omitempty"`
	MaxTokens   int                `json:"maxTokens,omitempty"`
	Temperature float32            `json:"temperature,omitempty"`
}

// Usage tracks token accounting when the backend reports it.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
}

// Response is the model's answer: terminal text, or tool calls to run
// before asking again.
type Response struct {
	Text      string     `json:"text"`
	ToolCalls []ToolCall `json:"toolCalls,omitempty"`
	Usage     Usage      `json:"usage"`
}

// Terminal reports whether the response ends the reasoning loop.
func (r *Response) Terminal() bool {
	return len(r.ToolCalls) == 0
}

// Provider is a model backend.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Provider error codes.
const (
	ErrCodeTimeout        = "timeout"
	ErrCodeRateLimited    = "rate_limited"
	ErrCodeUnavailable    = "unavailable"
	ErrCodeInvalidRequest = "invalid_request"
	ErrCodeInternal       = "internal"
)

// ProviderError is a classified backend failure. Retryable errors are worth
// another attempt after backoff; the rest fail the call immediately.
type ProviderError struct {
	Provider  string
	Code      string
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider: %s: %s", e.Provider, e.Code, e.Message)
}

// Unwrap exposes the underlying cause.
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether err is a retryable provider failure.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// AsProviderError extracts a ProviderError, wrapping unclassified errors as
// internal so callers always see the taxonomy.
func AsProviderError(provider string, err error) *ProviderError {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	code := ErrCodeInternal
	retryable := false
	if errors.Is(err, context.DeadlineExceeded) {
		code = ErrCodeTimeout
		retryable = true
	}
	return &ProviderError{
		Provider:  provider,
		Code:      code,
		Message:   err.Error(),
		Retryable: retryable,
		Cause:     err,
	}
}
