// Package classify decides whether a user turn needs tool-augmented
// reasoning or a single direct completion. It is a stateless keyword
// heuristic; ties favor the simple path to keep latency and cost down.
package classify

import (
	"regexp"
	"strings"
)

// Result is the classification outcome for one message.
type Result struct {
	// Complex is true when the turn needs search/tool capability.
	Complex bool
	// Reason names the signal that decided the classification.
	Reason string
}

// searchIntent are phrases that imply an external lookup.
var searchIntent = []string{
	"flight", "flights", "fly to", "airfare", "hotel", "hotels", "stay in",
	"accommodation", "hostel", "resort", "itinerary", "things to do",
	"attractions", "restaurants", "places to eat", "book", "booking",
	"compare", "cheapest", "best deal", "round trip", "one way", "layover",
	"visa", "airport",
}

// smallTalk are openings that never need tools on their own.
var smallTalk = []string{
	"hi", "hello", "hey", "thanks", "thank you", "good morning",
	"good evening", "bye", "goodbye", "ok", "okay", "cool", "great",
	"yes", "no", "sure",
}

var (
	dateRe   = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+\d{1,2}\b|\b\d{1,2}(st|nd|rd|th)?\s+of\s+\w+|\bnext (week|month|weekend)\b|\btomorrow\b`)
	moneyRe  = regexp.MustCompile(`[$€£₹]\s?\d|\b\d+\s?(dollars|euros|pounds|rupees|usd|eur|gbp|inr)\b`)
	cityToRe = regexp.MustCompile(`(?i)\b(to|from|in|via)\s+[A-Z][a-z]+`)
)

// Classify decides whether a message needs agent mode. A forced-mode flag
// is the orchestrator's concern and always wins over this heuristic.
func Classify(message string) Result {
	trimmed := strings.TrimSpace(message)
	lower := strings.ToLower(trimmed)

	if trimmed == "" {
		return Result{Complex: false, Reason: "empty"}
	}

	// Pure greetings and acknowledgements are simple regardless of length.
	if isSmallTalk(lower) {
		return Result{Complex: false, Reason: "small talk"}
	}

	for _, kw := range searchIntent {
		if strings.Contains(lower, kw) {
			return Result{Complex: true, Reason: "search intent: " + kw}
		}
	}

	// A destination plus dates or a budget implies trip planning even
	// without an explicit search keyword.
	signals := 0
	if dateRe.MatchString(trimmed) {
		signals++
	}
	if moneyRe.MatchString(trimmed) {
		signals++
	}
	if cityToRe.MatchString(trimmed) {
		signals++
	}
	if signals >= 2 {
		return Result{Complex: true, Reason: "destination/date/budget combination"}
	}

	return Result{Complex: false, Reason: "conversational"}
}

// filler words allowed inside a small-talk phrase ("hi there", "thanks so much").
var smallTalkFiller = map[string]bool{
	"there": true, "again": true, "so": true, "much": true, "a": true, "lot": true,
}

func isSmallTalk(lower string) bool {
	cleaned := strings.Trim(lower, "!.?, ")
	if cleaned == "" {
		return true
	}

	words := strings.Fields(cleaned)
	if len(words) > 4 {
		return false
	}
	for _, w := range words {
		if smallTalkFiller[w] {
			continue
		}
		known := false
		for _, st := range smallTalk {
			if w == st {
				known = true
				break
			}
		}
		if !known {
			return false
		}
	}
	return true
}
