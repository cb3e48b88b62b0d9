package llm

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripcourier/tripcourier/pkg/tools"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestCompleteWithRetry_NonRetryableFailsFast(t *testing.T) {
	mock := NewMockProvider().
		QueueError(&ProviderError{Provider: "mock", Code: ErrCodeInvalidRequest, Message: "bad prompt"}).
		QueueText("never reached")

	_, err := CompleteWithRetry(context.Background(), mock, Request{}, RetryConfig{MaxAttempts: 3, Log: quietLogger()})
	require.Error(t, err)
	assert.Equal(t, 1, mock.Calls())

	pe := AsProviderError("mock", err)
	assert.Equal(t, ErrCodeInvalidRequest, pe.Code)
}

func TestCompleteWithRetry_RetryableSucceedsWithinBudget(t *testing.T) {
	// Single attempt so no backoff sleep runs.
	mock := NewMockProvider().QueueText("ok")

	resp, err := CompleteWithRetry(context.Background(), mock, Request{}, RetryConfig{MaxAttempts: 1, Log: quietLogger()})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
}

func TestCompleteWithRetry_RetryExhaustionReportsLastError(t *testing.T) {
	mock := NewMockProvider()
	for i := 0; i < 3; i++ {
		mock.QueueError(&ProviderError{Provider: "mock", Code: ErrCodeTimeout, Message: "deadline", Retryable: true})
	}

	_, err := CompleteWithRetry(context.Background(), mock, Request{}, RetryConfig{
		MaxAttempts: 3,
		Backoff:     func(int) time.Duration { return 0 },
		Log:         quietLogger(),
	})
	require.Error(t, err)
	assert.Equal(t, 3, mock.Calls())
	assert.Equal(t, ErrCodeTimeout, AsProviderError("mock", err).Code)
}

// stallingProvider blocks until its context ends.
type stallingProvider struct{ calls int }

func (s *stallingProvider) Name() string { return "stall" }

func (s *stallingProvider) Complete(ctx context.Context, _ Request) (*Response, error) {
	s.calls++
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestCompleteWithRetry_AttemptTimeoutBoundsStalledBackend(t *testing.T) {
	p := &stallingProvider{}

	_, err := CompleteWithRetry(context.Background(), p, Request{}, RetryConfig{
		MaxAttempts:    2,
		AttemptTimeout: 5 * time.Millisecond,
		Backoff:        func(int) time.Duration { return 0 },
		Log:            quietLogger(),
	})
	require.Error(t, err)

	pe := AsProviderError("stall", err)
	assert.Equal(t, ErrCodeTimeout, pe.Code)
	assert.Equal(t, 2, p.calls, "attempt timeouts are retryable, both attempts ran")
}

func TestCompleteWithRetry_CancelledDuringBackoff(t *testing.T) {
	mock := NewMockProvider().
		QueueError(&ProviderError{Provider: "mock", Code: ErrCodeUnavailable, Message: "down", Retryable: true}).
		QueueText("never reached")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := CompleteWithRetry(ctx, mock, Request{}, RetryConfig{MaxAttempts: 3, Log: quietLogger()})
	require.Error(t, err)
	// First attempt ran before cancellation was observed in the backoff.
	assert.LessOrEqual(t, mock.Calls(), 1)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&ProviderError{Code: ErrCodeUnavailable, Retryable: true}))
	assert.False(t, IsRetryable(&ProviderError{Code: ErrCodeInvalidRequest}))
	assert.False(t, IsRetryable(context.Canceled))
}

func TestAsProviderError_ClassifiesDeadline(t *testing.T) {
	pe := AsProviderError("x", context.DeadlineExceeded)
	assert.Equal(t, ErrCodeTimeout, pe.Code)
	assert.True(t, pe.Retryable)
}

func TestResponseTerminal(t *testing.T) {
	assert.True(t, (&Response{Text: "done"}).Terminal())
	assert.False(t, (&Response{ToolCalls: []ToolCall{{Name: "geocode"}}}).Terminal())
}

func TestSchemaToJSONSchema(t *testing.T) {
	min := 0.0
	schema := schemaToJSONSchema(tools.Schema{
		"city":  {Type: "string", Required: true, Description: "city name"},
		"limit": {Type: "integer", Minimum: &min},
		"tags":  {Type: "array"},
	})

	assert.Equal(t, "object", schema["type"])
	props := schema["properties"].(map[string]any)
	assert.Contains(t, props, "city")
	assert.Equal(t, []string{"city"}, schema["required"])

	tags := props["tags"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "string"}, tags["items"])
}

func TestConversationalPayloadFolding(t *testing.T) {
	payload := toConversationalPayload(Request{
		Messages: []Message{
			{Role: RoleSystem, Content: "You plan trips."},
			{Role: RoleUser, Content: "Hi"},
			{Role: RoleAssistant, Content: "Hello! Where to?"},
			{Role: RoleUser, Content: "Somewhere warm"},
		},
	})

	assert.Equal(t, []string{"Hi"}, payload.Inputs.PastUserInputs)
	assert.Equal(t, []string{"Hello! Where to?"}, payload.Inputs.GeneratedResponses)
	assert.Equal(t, "You plan trips.\n\nSomewhere warm", payload.Inputs.Text)
}

func TestMockProvider_ExhaustedScriptIsTerminal(t *testing.T) {
	mock := NewMockProvider()

	resp, err := mock.Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.True(t, resp.Terminal())
}
