package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/tripcourier/tripcourier/pkg/contextstore"
	"github.com/tripcourier/tripcourier/pkg/llm"
	"github.com/tripcourier/tripcourier/pkg/tools"
)

// agentLoop runs the bounded reasoning loop: completion with tool
// descriptors attached, requested tools invoked in order, results fed back
// as tool messages, until the model answers in plain text or the iteration
// cap is hit. Tool failures come back as structured results and go into the
// transcript like any other outcome, so a bad call degrades the turn
// instead of ending it.
func (o *Orchestrator) agentLoop(ctx context.Context, st *turnState) {
	messages := buildMessages(st.context, st.req.Message, o.invoker.Registry().List())
	descriptors := o.invoker.Registry().List()

	for st.iterations < o.cfg.MaxIterations {
		if err := ctx.Err(); err != nil {
			st.errCode = classifyProviderError(err)
			return
		}
		st.iterations++

		resp, err := o.completeWithObservation(ctx, llm.Request{
			Messages:    messages,
			Tools:       descriptors,
			MaxTokens:   o.cfg.MaxTokens,
			Temperature: o.cfg.Temperature,
		})
		if err != nil {
			st.errCode = classifyProviderError(err)
			return
		}

		if resp.Terminal() {
			st.text = resp.Text
			return
		}

		messages = append(messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Text,
			ToolCalls: resp.ToolCalls,
		})

		for _, call := range resp.ToolCalls {
			result := o.invoker.Invoke(ctx, call.Name, call.Arguments)
			st.toolResults = append(st.toolResults, result)
			if record, ok := searchRecordFor(result); ok {
				st.searches = append(st.searches, record)
			}

			o.log.WithFields(logrus.Fields{
				"session": st.sessionID,
				"turn":    st.turnID,
				"state":   "agent_loop",
				"tool":    call.Name,
				"ok":      result.OK(),
			}).Debug("tool call finished")

			messages = append(messages, llm.Message{
				Role:       llm.RoleTool,
				Name:       call.Name,
				ToolCallID: call.ID,
				Content:    toolMessageContent(result),
			})
		}
	}

	// Cap reached without a terminal answer: hand back what the tools found.
	st.text = partialAnswer(st)
}

// toolMessageContent renders one invocation outcome for the transcript.
func toolMessageContent(result *tools.Result) string {
	if result.Err != nil {
		return fmt.Sprintf(`{"error":{"code":%q,"message":%q}}`, result.Err.Code, result.Err.Message)
	}
	body, err := json.Marshal(result.Output)
	if err != nil {
		return `{"error":{"code":"internal","message":"unencodable tool output"}}`
	}
	return string(body)
}

// partialAnswer is the best-effort reply when the loop cap fires.
func partialAnswer(st *turnState) string {
	var succeeded []string
	for _, r := range st.toolResults {
		if r.OK() {
			succeeded = append(succeeded, strings.ReplaceAll(r.Name, "_", " "))
		}
	}
	if len(succeeded) == 0 {
		return "I wasn't able to finish researching that. Could you narrow the request, for example to one route or one city?"
	}
	return fmt.Sprintf(
		"I ran out of planning steps before finishing, but I did complete these lookups: %s. The results are attached; ask me to continue from there.",
		strings.Join(dedupeStrings(succeeded), ", "),
	)
}

// searchRecordFor converts a successful search invocation into the
// SearchRecord remembered on the session.
func searchRecordFor(result *tools.Result) (contextstore.SearchRecord, bool) {
	if !result.OK() {
		return contextstore.SearchRecord{}, false
	}
	record := contextstore.SearchRecord{Timestamp: result.Timestamp}
	switch result.Name {
	case "search_flights":
		record.Type = "flight"
		record.Origin = result.Input.String("origin")
		record.Destination = result.Input.String("destination")
		record.Budget = result.Input.Float("maxPrice")
	case "search_hotels":
		record.Type = "hotel"
		record.Destination = result.Input.String("city")
		record.Budget = result.Input.Float("maxNightly")
	case "find_attractions":
		record.Type = "attraction"
		record.Destination = result.Input.String("city")
	case "find_restaurants":
		record.Type = "restaurant"
		record.Destination = result.Input.String("city")
	case "explore_city":
		record.Type = "city_guide"
		record.Destination = result.Input.String("city")
	default:
		return contextstore.SearchRecord{}, false
	}
	return record, true
}

func dedupeStrings(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := items[:0]
	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			out = append(out, item)
		}
	}
	return out
}
