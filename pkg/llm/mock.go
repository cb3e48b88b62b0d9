package llm

import (
	"context"
	"sync"
)

// MockProvider is a scripted backend for tests. Each Complete call consumes
// the next queued step; an exhausted script returns a terminal canned answer.
type MockProvider struct {
	mu       sync.Mutex
	steps    []mockStep
	requests []Request
}

type mockStep struct {
	resp *Response
	err  error
}

// NewMockProvider creates an empty-scripted mock.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// QueueResponse appends a successful step.
func (m *MockProvider) QueueResponse(resp *Response) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, mockStep{resp: resp})
	return m
}

// QueueText appends a terminal text step.
func (m *MockProvider) QueueText(text string) *MockProvider {
	return m.QueueResponse(&Response{Text: text})
}

// QueueToolCalls appends a step requesting the given tool calls.
func (m *MockProvider) QueueToolCalls(calls ...ToolCall) *MockProvider {
	return m.QueueResponse(&Response{ToolCalls: calls})
}

// QueueError appends a failing step.
func (m *MockProvider) QueueError(err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, mockStep{err: err})
	return m
}

// Requests returns the requests seen so far.
func (m *MockProvider) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Calls returns how many times Complete ran.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Name implements Provider.
func (m *MockProvider) Name() string { return "mock" }

// Complete implements Provider.
func (m *MockProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, AsProviderError(m.Name(), err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)

	if len(m.steps) == 0 {
		return &Response{Text: "I have everything I need."}, nil
	}
	step := m.steps[0]
	m.steps = m.steps[1:]
	if step.err != nil {
		return nil, step.err
	}
	return step.resp, nil
}
