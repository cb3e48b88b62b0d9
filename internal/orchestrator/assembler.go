package orchestrator

// assemble builds the response payload from the finished turn state.
// Successful tool results always travel with the response, whether or not
// the answer text cites them.
func (o *Orchestrator) assemble(st *turnState) *Response {
	text := st.text
	if st.errCode != "" && text == "" {
		text = fallbackText
	}

	resp := &Response{
		TurnID:      st.turnID,
		SessionID:   st.sessionID,
		Text:        text,
		Mode:        st.mode,
		Iterations:  st.iterations,
		ToolResults: st.toolResults,
		ErrorCode:   st.errCode,
	}

	for _, r := range st.toolResults {
		resp.ToolsUsed = append(resp.ToolsUsed, r.Name)
	}
	resp.ToolsUsed = dedupeStrings(resp.ToolsUsed)
	resp.SuggestedActions = suggestActions(st)
	return resp
}

// suggestActions derives follow-up prompts from what the turn looked up.
func suggestActions(st *turnState) []string {
	if st.errCode != "" {
		return nil
	}

	kinds := make(map[string]bool)
	for _, r := range st.toolResults {
		if r.OK() {
			kinds[r.Name] = true
			// A city guide covers both place lookups.
			if r.Name == "explore_city" {
				kinds["find_attractions"] = true
				kinds["find_restaurants"] = true
			}
		}
	}

	var actions []string
	if kinds["search_flights"] && !kinds["search_hotels"] {
		actions = append(actions, "Find hotels at the destination")
	}
	if kinds["search_hotels"] && !kinds["search_flights"] {
		actions = append(actions, "Search flights for these dates")
	}
	if (kinds["search_flights"] || kinds["search_hotels"]) && !kinds["find_attractions"] {
		actions = append(actions, "See top attractions there")
	}
	if kinds["find_attractions"] && !kinds["find_restaurants"] {
		actions = append(actions, "Find restaurants nearby")
	}
	if len(actions) == 0 && st.mode == ModeSimple {
		actions = append(actions, "Plan a trip: tell me where and when")
	}
	return actions
}
