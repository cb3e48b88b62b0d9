package orchestrator

import (
	"fmt"
	"strings"

	"github.com/tripcourier/tripcourier/pkg/contextstore"
	"github.com/tripcourier/tripcourier/pkg/llm"
	"github.com/tripcourier/tripcourier/pkg/tools"
)

// buildMessages assembles the model window for one turn: system prompt with
// the compact context summary, the bounded conversation history, then the
// new user message.
func buildMessages(c *contextstore.Context, userMessage string, descriptors []tools.Descriptor) []llm.Message {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt(c, descriptors)},
	}
	for _, turn := range c.History {
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: userMessage})
	return messages
}

func systemPrompt(c *contextstore.Context, descriptors []tools.Descriptor) string {
	var sb strings.Builder
	sb.WriteString("You are a travel planning assistant. Be concrete and concise; ")
	sb.WriteString("recommend specific flights, hotels, and places when you have them.\n")

	if summary := contextSummary(c); summary != "" {
		sb.WriteString("\nWhat you know about this traveler:\n")
		sb.WriteString(summary)
	}

	if len(descriptors) > 0 {
		sb.WriteString("\nUse the available tools to look up real options before answering. ")
		sb.WriteString("When a tool fails, work with what you have and say what you could not check.")
	}
	return sb.String()
}

// contextSummary renders the stored preferences and recent searches as a
// compact bullet list. Empty context yields an empty string.
func contextSummary(c *contextstore.Context) string {
	var lines []string
	p := c.Preferences

	if p.HomeCity != "" {
		lines = append(lines, "- home city: "+p.HomeCity)
	}
	if p.TravelStyle != "" {
		lines = append(lines, "- travel style: "+p.TravelStyle)
	}
	if p.Budget > 0 {
		lines = append(lines, fmt.Sprintf("- trip budget: %.0f %s", p.Budget, orDefault(p.Currency, "USD")))
	}
	if len(p.Interests) > 0 {
		lines = append(lines, "- interests: "+strings.Join(p.Interests, ", "))
	}
	if len(p.Dietary) > 0 {
		lines = append(lines, "- dietary: "+strings.Join(p.Dietary, ", "))
	}

	if f := p.Flight; f.CabinClass != "" || f.MaxStops != nil || len(f.PreferredAirlines) > 0 || len(f.AvoidedAirlines) > 0 {
		var parts []string
		if f.CabinClass != "" {
			parts = append(parts, f.CabinClass+" cabin")
		}
		if f.MaxStops != nil {
			if *f.MaxStops == 0 {
				parts = append(parts, "direct flights only")
			} else {
				parts = append(parts, fmt.Sprintf("at most %d stops", *f.MaxStops))
			}
		}
		if len(f.PreferredAirlines) > 0 {
			parts = append(parts, "prefers "+strings.Join(f.PreferredAirlines, ", "))
		}
		if len(f.AvoidedAirlines) > 0 {
			parts = append(parts, "avoids "+strings.Join(f.AvoidedAirlines, ", "))
		}
		lines = append(lines, "- flights: "+strings.Join(parts, "; "))
	}

	if h := p.Hotel; h.MinStars > 0 || h.Chain != "" || len(h.Amenities) > 0 || h.NightlyBudget > 0 {
		var parts []string
		if h.MinStars > 0 {
			parts = append(parts, fmt.Sprintf("%d+ stars", h.MinStars))
		}
		if h.Chain != "" {
			parts = append(parts, h.Chain)
		}
		if h.NightlyBudget > 0 {
			parts = append(parts, fmt.Sprintf("up to %.0f/night", h.NightlyBudget))
		}
		if len(h.Amenities) > 0 {
			parts = append(parts, "wants "+strings.Join(h.Amenities, ", "))
		}
		lines = append(lines, "- hotels: "+strings.Join(parts, "; "))
	}

	if n := len(c.SearchHistory); n > 0 {
		last := c.SearchHistory[n-1]
		desc := last.Type
		if last.Destination != "" {
			desc += " to " + last.Destination
		}
		lines = append(lines, "- last search: "+desc)
	}

	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
