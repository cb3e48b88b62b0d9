package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripcourier/tripcourier/internal/providers"
	"github.com/tripcourier/tripcourier/pkg/contextstore"
	"github.com/tripcourier/tripcourier/pkg/llm"
	"github.com/tripcourier/tripcourier/pkg/ratelimit"
	"github.com/tripcourier/tripcourier/pkg/tools"
)

type fixture struct {
	store *contextstore.MemoryStore
	mock  *llm.MockProvider
	orch  *Orchestrator
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	store := contextstore.NewMemoryStore(contextstore.MemoryConfig{})
	t.Cleanup(func() { store.Close() })

	registry, err := providers.BuildRegistry(providers.NewTieredCatalog(nil, quietLogger()))
	require.NoError(t, err)
	invoker := tools.NewInvoker(registry, ratelimit.NewTimeoutManager(time.Second), tools.WithLogger(quietLogger()))

	mock := llm.NewMockProvider()
	orch := New(store, mock, invoker, cfg, WithLogger(quietLogger()))
	return &fixture{store: store, mock: mock, orch: orch}
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func interactions(t *testing.T, store contextstore.Store, sessionID string) int {
	t.Helper()
	c, err := store.Get(context.Background(), sessionID)
	require.NoError(t, err)
	return c.TotalInteractions
}

func TestTurn_SimpleMessageSkipsTools(t *testing.T) {
	f := newFixture(t, Config{})
	f.mock.QueueText("Hello! Where would you like to go?")

	resp, err := f.orch.Turn(context.Background(), Request{
		SessionID: "s1",
		Message:   "hi there",
	})
	require.NoError(t, err)

	assert.True(t, resp.OK())
	assert.Equal(t, ModeSimple, resp.Mode)
	assert.Equal(t, "Hello! Where would you like to go?", resp.Text)
	assert.Empty(t, resp.ToolsUsed)

	require.Equal(t, 1, f.mock.Calls())
	assert.Empty(t, f.mock.Requests()[0].Tools, "simple turns must not attach tool descriptors")
}

func TestTurn_ForceAgentModeAlwaysWins(t *testing.T) {
	f := newFixture(t, Config{})
	f.mock.QueueText("Happy to help plan something!")

	resp, err := f.orch.Turn(context.Background(), Request{
		SessionID:      "s1",
		Message:        "hi there",
		ForceAgentMode: true,
	})
	require.NoError(t, err)

	assert.Equal(t, ModeAgent, resp.Mode)
	require.Equal(t, 1, f.mock.Calls())
	assert.NotEmpty(t, f.mock.Requests()[0].Tools, "agent turns attach tool descriptors")
}

func TestTurn_AgentLoopInvokesToolsAndAnswers(t *testing.T) {
	f := newFixture(t, Config{})
	f.mock.
		QueueToolCalls(llm.ToolCall{
			ID:   "call-1",
			Name: "search_flights",
			Arguments: tools.Args{
				"origin":      "Mumbai",
				"destination": "Dubai",
				"maxPrice":    float64(900),
			},
		}).
		QueueText("Emirates has a good direct option under your budget.")

	resp, err := f.orch.Turn(context.Background(), Request{
		SessionID: "s1",
		Message:   "find me flights from Mumbai to Dubai under $900 departing June 2",
	})
	require.NoError(t, err)

	assert.True(t, resp.OK())
	assert.Equal(t, ModeAgent, resp.Mode)
	assert.Equal(t, 2, resp.Iterations)
	assert.Equal(t, []string{"search_flights"}, resp.ToolsUsed)
	require.Len(t, resp.ToolResults, 1)
	assert.True(t, resp.ToolResults[0].OK())

	// The search lands in the session's search history.
	c, err := f.store.Get(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, c.SearchHistory, 1)
	assert.Equal(t, "flight", c.SearchHistory[0].Type)
	assert.Equal(t, "Dubai", c.SearchHistory[0].Destination)
	assert.Equal(t, 900.0, c.SearchHistory[0].Budget)
}

func TestTurn_LoopCapHonored(t *testing.T) {
	f := newFixture(t, Config{MaxIterations: 3})
	for i := 0; i < 10; i++ {
		f.mock.QueueToolCalls(llm.ToolCall{
			Name:      "geocode",
			Arguments: tools.Args{"place": "paris"},
		})
	}

	resp, err := f.orch.Turn(context.Background(), Request{
		SessionID:      "s1",
		Message:        "plan a trip to Paris",
		ForceAgentMode: true,
	})
	require.NoError(t, err)

	assert.True(t, resp.OK(), "hitting the cap is not a failure")
	assert.Equal(t, 3, resp.Iterations)
	assert.Equal(t, 3, f.mock.Calls())
	assert.NotEmpty(t, resp.Text)
	assert.Len(t, resp.ToolResults, 3)
	assert.Equal(t, 1, interactions(t, f.store, "s1"))
}

func TestTurn_UnknownToolDegradesButCompletes(t *testing.T) {
	f := newFixture(t, Config{})
	f.mock.
		QueueToolCalls(llm.ToolCall{ID: "call-1", Name: "teleport", Arguments: tools.Args{}}).
		QueueText("I can't teleport you, but here is a plan.")

	resp, err := f.orch.Turn(context.Background(), Request{
		SessionID:      "s1",
		Message:        "get me to Rome instantly",
		ForceAgentMode: true,
	})
	require.NoError(t, err)

	assert.True(t, resp.OK())
	assert.Equal(t, "I can't teleport you, but here is a plan.", resp.Text)
	require.Len(t, resp.ToolResults, 1)
	require.NotNil(t, resp.ToolResults[0].Err)
	assert.Equal(t, tools.ErrCodeToolNotFound, resp.ToolResults[0].Err.Code)

	// Nothing lands in search history for the failed call.
	c, err := f.store.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Empty(t, c.SearchHistory)
}

func TestTurn_ModelFailureStillWritesBackOnce(t *testing.T) {
	f := newFixture(t, Config{RetryAttempts: 1})
	f.mock.QueueError(&llm.ProviderError{
		Provider: "mock", Code: llm.ErrCodeTimeout, Message: "deadline", Retryable: true,
	})

	resp, err := f.orch.Turn(context.Background(), Request{
		SessionID: "s1",
		UserID:    "u1",
		Message:   "I'm from Mumbai, prefer business class. Find flights to Tokyo under $2000",
	})
	require.NoError(t, err)

	assert.False(t, resp.OK())
	assert.Equal(t, ErrCodeProviderTimeout, resp.ErrorCode)
	assert.Equal(t, fallbackText, resp.Text)

	c, getErr := f.store.Get(context.Background(), "s1")
	require.NoError(t, getErr)
	assert.Equal(t, 1, c.TotalInteractions, "failed model turn still counts exactly once")
	assert.Equal(t, "Mumbai", c.Preferences.HomeCity, "extracted preferences survive the failure")
	assert.Equal(t, "business", c.Preferences.Flight.CabinClass)
	require.Len(t, c.History, 2)
	assert.Equal(t, fallbackText, c.History[1].Content)
}

func TestTurn_RetryExhaustionDegradesAfterThreeTimeouts(t *testing.T) {
	f := newFixture(t, Config{
		RetryAttempts: 3,
		RetryBackoff:  func(int) time.Duration { return 0 },
	})
	for i := 0; i < 3; i++ {
		f.mock.QueueError(&llm.ProviderError{
			Provider: "mock", Code: llm.ErrCodeTimeout, Message: "deadline", Retryable: true,
		})
	}

	resp, err := f.orch.Turn(context.Background(), Request{
		SessionID: "s1",
		Message:   "find flights from Mumbai to Tokyo under $2000",
	})
	require.NoError(t, err)

	assert.False(t, resp.OK())
	assert.Equal(t, ErrCodeProviderTimeout, resp.ErrorCode)
	assert.Equal(t, fallbackText, resp.Text)
	assert.Equal(t, 3, f.mock.Calls(), "the full retry budget runs before degrading")
	assert.Equal(t, 1, interactions(t, f.store, "s1"))
}

func TestTurn_PreferencesVisibleToSameTurnPrompt(t *testing.T) {
	f := newFixture(t, Config{})
	f.mock.QueueText("Noted!")

	_, err := f.orch.Turn(context.Background(), Request{
		SessionID: "s1",
		Message:   "I'm vegetarian and I love hiking",
	})
	require.NoError(t, err)

	require.Equal(t, 1, f.mock.Calls())
	system := f.mock.Requests()[0].Messages[0]
	assert.Equal(t, llm.RoleSystem, system.Role)
	assert.Contains(t, system.Content, "vegetarian")
	assert.Contains(t, system.Content, "hiking")
}

func TestTurn_EmptyMessageIsValidationErrorWithoutModelCall(t *testing.T) {
	f := newFixture(t, Config{})

	resp, err := f.orch.Turn(context.Background(), Request{SessionID: "s1"})
	require.NoError(t, err)

	assert.Equal(t, ErrCodeValidation, resp.ErrorCode)
	assert.Equal(t, 0, f.mock.Calls())
	assert.Equal(t, 0, interactions(t, f.store, "s1"))
}

func TestTurn_AnonymousSessionDerivedFromUser(t *testing.T) {
	f := newFixture(t, Config{})
	f.mock.QueueText("hi")

	resp, err := f.orch.Turn(context.Background(), Request{
		UserID:  "user-42",
		Message: "hello",
	})
	require.NoError(t, err)

	assert.Equal(t, contextstore.AnonymousSessionID("user-42"), resp.SessionID)
}

func TestTurn_SuggestedActionsFollowToolKinds(t *testing.T) {
	f := newFixture(t, Config{})
	f.mock.
		QueueToolCalls(llm.ToolCall{
			Name:      "search_flights",
			Arguments: tools.Args{"origin": "Delhi", "destination": "Bangkok"},
		}).
		QueueText("Found options.")

	resp, err := f.orch.Turn(context.Background(), Request{
		SessionID:      "s1",
		Message:        "flights Delhi to Bangkok",
		ForceAgentMode: true,
	})
	require.NoError(t, err)

	assert.Contains(t, resp.SuggestedActions, "Find hotels at the destination")
}

func TestTurn_HistoryWindowFeedsNextTurn(t *testing.T) {
	f := newFixture(t, Config{})
	f.mock.QueueText("Sounds good!").QueueText("As I said, sounds good!")

	_, err := f.orch.Turn(context.Background(), Request{SessionID: "s1", Message: "thinking about Portugal"})
	require.NoError(t, err)
	_, err = f.orch.Turn(context.Background(), Request{SessionID: "s1", Message: "what did I mention?"})
	require.NoError(t, err)

	second := f.mock.Requests()[1]
	var sawPriorTurn bool
	for _, m := range second.Messages {
		if m.Role == llm.RoleUser && m.Content == "thinking about Portugal" {
			sawPriorTurn = true
		}
	}
	assert.True(t, sawPriorTurn, "second turn sees the first turn in its window")
}

func TestContextSummary_EmptyContextYieldsNoSummary(t *testing.T) {
	c := &contextstore.Context{SessionID: "s"}
	assert.Empty(t, contextSummary(c))
}

func TestContextSummary_RendersStoredState(t *testing.T) {
	zero := 0
	c := &contextstore.Context{
		Preferences: contextstore.Preferences{
			HomeCity: "Mumbai",
			Flight: contextstore.FlightPreferences{
				CabinClass:        "business",
				MaxStops:          &zero,
				PreferredAirlines: []string{"Emirates"},
			},
		},
		SearchHistory: []contextstore.SearchRecord{
			{Type: "flight", Destination: "Dubai"},
		},
	}

	summary := contextSummary(c)
	assert.Contains(t, summary, "Mumbai")
	assert.Contains(t, summary, "business cabin")
	assert.Contains(t, summary, "direct flights only")
	assert.Contains(t, summary, "Emirates")
	assert.Contains(t, summary, "flight to Dubai")
}
