// Package prefs extracts durable travel preferences from free-text messages.
// Extraction is a pure function over the message plus the currently stored
// preferences: it produces a partial delta and never mutates its inputs.
// The heuristics are deliberately simple pattern families so the extractor
// can be swapped for a schema-constrained model without touching callers.
package prefs

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tripcourier/tripcourier/pkg/contextstore"
)

var (
	// Currency markers are word-anchored so "hours 30" or "offers 2" never
	// read as an rs-prefixed amount.
	budgetRe     = regexp.MustCompile(`(?i)(?:\$|€|£|₹|\busd\s|\beur\s|\bgbp\s|\binr\s|\brs\.\s?|\brs\s)([0-9][0-9,]*(?:\.[0-9]+)?)`)
	budgetWordRe = regexp.MustCompile(`(?i)\b([0-9][0-9,]*(?:\.[0-9]+)?)\s*(dollars|usd|euros?|eur|pounds|gbp|rupees|inr|yen|jpy)\b`)
	// Residence phrasings only. "flying from X" names a departure point for
	// one trip, not where the traveler lives.
	homeCityRe = regexp.MustCompile(`(?:I'?m from|I am from|based in|I live in|living in|my home city is)\s+([A-Z][a-zA-Z]+(?:\s[A-Z][a-zA-Z]+)*)`)
	starsRe    = regexp.MustCompile(`(?i)\b([1-5])[\s-]?star\b`)
	maxStopsRe = regexp.MustCompile(`(?i)\b(?:at most|max(?:imum)?)\s+(one|two|1|2)\s+stops?\b`)
	businessRe = regexp.MustCompile(`\bbusiness\b`)
	economyRe  = regexp.MustCompile(`\beconomy\b`)
)

var currencySymbols = []struct {
	marker   string
	currency string
}{
	{"$", "USD"}, {"usd", "USD"}, {"dollar", "USD"},
	{"€", "EUR"}, {"eur", "EUR"},
	{"£", "GBP"}, {"gbp", "GBP"}, {"pound", "GBP"},
	{"₹", "INR"}, {"inr", "INR"}, {"rupee", "INR"}, {"rs.", "INR"},
	{"yen", "JPY"}, {"jpy", "JPY"},
}

// airlines the extractor recognizes by name.
var knownAirlines = []string{
	"Emirates", "Qatar Airways", "Etihad", "Singapore Airlines", "Cathay Pacific",
	"Lufthansa", "British Airways", "Air France", "KLM", "Turkish Airlines",
	"Swiss", "Delta", "United", "American Airlines", "Air India", "IndiGo",
	"Vistara", "ANA", "Japan Airlines", "Qantas", "Ryanair", "EasyJet",
}

var hotelChains = []string{
	"Marriott", "Hilton", "Hyatt", "Taj", "Oberoi", "Accor", "IHG",
	"Four Seasons", "Radisson", "Sheraton", "Westin", "Ibis", "Novotel",
}

var amenityKeywords = []string{
	"pool", "gym", "spa", "breakfast", "wifi", "parking", "airport shuttle",
	"kitchenette", "beach access",
}

var dietaryKeywords = []string{
	"vegetarian", "vegan", "halal", "kosher", "gluten-free", "gluten free",
	"dairy-free", "dairy free", "nut allergy", "pescatarian",
}

var interestKeywords = []string{
	"museums", "food", "street food", "hiking", "beaches", "nightlife",
	"shopping", "history", "art", "nature", "adventure", "photography",
	"temples", "architecture", "wildlife", "skiing", "diving",
}

var correctiveMarkers = []string{
	"actually", "instead", "changed my mind", "on second thought",
	"scratch that", "forget what i said",
}

// keywordRes holds word-boundary matchers for the keyword families, so
// "art" never matches inside "departing".
var keywordRes = map[string]*regexp.Regexp{}

func init() {
	for _, group := range [][]string{dietaryKeywords, interestKeywords, amenityKeywords} {
		for _, kw := range group {
			keywordRes[kw] = regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`)
		}
	}
}

func containsWord(lower, kw string) bool {
	return keywordRes[kw].MatchString(lower)
}

// Extract maps one user message plus the stored preferences to a partial
// delta. The stored preferences are only read, to suppress re-detection of
// values already on file. An empty delta is a normal outcome.
func Extract(message string, cur *contextstore.Preferences) contextstore.PreferenceDelta {
	var d contextstore.PreferenceDelta
	if strings.TrimSpace(message) == "" {
		return d
	}

	lower := strings.ToLower(message)

	extractBudget(message, lower, cur, &d)
	extractHomeCity(message, cur, &d)
	extractTravelStyle(lower, cur, &d)
	extractFlight(lower, cur, &d)
	extractAirlines(lower, cur, &d)
	extractHotel(message, lower, cur, &d)
	extractLists(lower, &d)

	return d
}

func isCorrective(lower string) bool {
	for _, marker := range correctiveMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func extractBudget(message, lower string, cur *contextstore.Preferences, d *contextstore.PreferenceDelta) {
	m := budgetRe.FindStringSubmatch(message)
	raw := ""
	if m != nil {
		raw = m[1]
	} else if m = budgetWordRe.FindStringSubmatch(message); m != nil {
		raw = m[1]
	}
	if raw == "" {
		return
	}

	amount, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil {
		return
	}

	// Nightly amounts belong to the hotel budget, not the trip budget.
	if strings.Contains(lower, "per night") || strings.Contains(lower, "a night") || strings.Contains(lower, "/night") {
		if cur == nil || cur.Hotel.NightlyBudget != amount {
			d.Hotel.NightlyBudget = &amount
		}
	} else if cur == nil || cur.Budget != amount {
		d.Budget = &amount
	}

	for _, cs := range currencySymbols {
		if strings.Contains(lower, cs.marker) {
			if cur == nil || cur.Currency != cs.currency {
				currency := cs.currency
				d.Currency = &currency
			}
			break
		}
	}
}

func extractHomeCity(message string, cur *contextstore.Preferences, d *contextstore.PreferenceDelta) {
	m := homeCityRe.FindStringSubmatch(message)
	if m == nil {
		return
	}
	city := strings.TrimSpace(m[1])
	if cur != nil && cur.HomeCity == city {
		return
	}
	d.HomeCity = &city
}

func extractTravelStyle(lower string, cur *contextstore.Preferences, d *contextstore.PreferenceDelta) {
	style := ""
	switch {
	case strings.Contains(lower, "luxury") || strings.Contains(lower, "high end") || strings.Contains(lower, "high-end"):
		style = "luxury"
	case strings.Contains(lower, "backpack") || strings.Contains(lower, "on a budget") || strings.Contains(lower, "cheap"):
		style = "budget"
	case strings.Contains(lower, "comfortable") || strings.Contains(lower, "mid-range") || strings.Contains(lower, "mid range"):
		style = "comfort"
	}
	if style == "" || (cur != nil && cur.TravelStyle == style) {
		return
	}
	d.TravelStyle = &style
}

func extractFlight(lower string, cur *contextstore.Preferences, d *contextstore.PreferenceDelta) {
	// Cabin class. Later statements override earlier ones; a corrective
	// message overwrites even an identical stored value's neighbors.
	cabin := ""
	switch {
	case strings.Contains(lower, "premium economy"):
		cabin = "premium_economy"
	case businessRe.MatchString(lower):
		cabin = "business"
	case strings.Contains(lower, "first class"):
		cabin = "first"
	case economyRe.MatchString(lower):
		cabin = "economy"
	}
	if cabin != "" && (cur == nil || cur.Flight.CabinClass != cabin || isCorrective(lower)) {
		d.Flight.CabinClass = &cabin
	}

	// Stop constraints.
	switch {
	case strings.Contains(lower, "any number of stops") ||
		strings.Contains(lower, "stops are fine") ||
		strings.Contains(lower, "don't mind stops") ||
		strings.Contains(lower, "dont mind stops") ||
		strings.Contains(lower, "stops don't matter"):
		d.Flight.ClearMaxStops = true
	case strings.Contains(lower, "direct flight") || strings.Contains(lower, "nonstop") ||
		strings.Contains(lower, "non-stop") || strings.Contains(lower, "direct flights only") ||
		strings.Contains(lower, "no layover") || strings.Contains(lower, "no stops"):
		zero := 0
		if cur == nil || cur.Flight.MaxStops == nil || *cur.Flight.MaxStops != 0 {
			d.Flight.MaxStops = &zero
		}
	default:
		if m := maxStopsRe.FindStringSubmatch(lower); m != nil {
			stops := 1
			if m[1] == "two" || m[1] == "2" {
				stops = 2
			}
			if cur == nil || cur.Flight.MaxStops == nil || *cur.Flight.MaxStops != stops {
				d.Flight.MaxStops = &stops
			}
		}
	}

	// Departure window.
	window := ""
	switch {
	case strings.Contains(lower, "red-eye") || strings.Contains(lower, "red eye") || strings.Contains(lower, "overnight flight"):
		window = "red_eye"
	case strings.Contains(lower, "morning flight") || strings.Contains(lower, "depart in the morning") || strings.Contains(lower, "early flight"):
		window = "morning"
	case strings.Contains(lower, "afternoon flight"):
		window = "afternoon"
	case strings.Contains(lower, "evening flight") || strings.Contains(lower, "night flight"):
		window = "evening"
	}
	if window != "" && (cur == nil || cur.Flight.DepartureWindow != window) {
		d.Flight.DepartureWindow = &window
	}

	// Seat.
	seat := ""
	if strings.Contains(lower, "window seat") {
		seat = "window"
	} else if strings.Contains(lower, "aisle seat") || strings.Contains(lower, "aisle please") {
		seat = "aisle"
	}
	if seat != "" && (cur == nil || cur.Flight.Seat != seat) {
		d.Flight.Seat = &seat
	}

	// In-flight meal.
	meal := ""
	switch {
	case strings.Contains(lower, "vegetarian meal") || strings.Contains(lower, "veg meal"):
		meal = "vegetarian"
	case strings.Contains(lower, "vegan meal"):
		meal = "vegan"
	case strings.Contains(lower, "halal meal"):
		meal = "halal"
	case strings.Contains(lower, "kosher meal"):
		meal = "kosher"
	}
	if meal != "" && (cur == nil || cur.Flight.Meal != meal) {
		d.Flight.Meal = &meal
	}
}

func extractAirlines(lower string, cur *contextstore.Preferences, d *contextstore.PreferenceDelta) {
	for _, airline := range knownAirlines {
		if !strings.Contains(lower, strings.ToLower(airline)) {
			continue
		}

		idx := strings.Index(lower, strings.ToLower(airline))
		window := lower[maxInt(0, idx-25):idx]
		avoided := strings.Contains(window, "avoid") || strings.Contains(window, "never fly") ||
			strings.Contains(window, "not with") || strings.Contains(window, "hate")

		if avoided {
			if cur == nil || !containsString(cur.Flight.AvoidedAirlines, airline) {
				d.Flight.AvoidedAirlines = append(d.Flight.AvoidedAirlines, airline)
			}
		} else if cur == nil || !containsString(cur.Flight.PreferredAirlines, airline) {
			d.Flight.PreferredAirlines = append(d.Flight.PreferredAirlines, airline)
		}
	}
}

func extractHotel(message, lower string, cur *contextstore.Preferences, d *contextstore.PreferenceDelta) {
	if m := starsRe.FindStringSubmatch(message); m != nil {
		stars, _ := strconv.Atoi(m[1])
		if cur == nil || cur.Hotel.MinStars != stars {
			d.Hotel.MinStars = &stars
		}
	}

	for _, chain := range hotelChains {
		if strings.Contains(lower, strings.ToLower(chain)) {
			if cur == nil || cur.Hotel.Chain != chain {
				c := chain
				d.Hotel.Chain = &c
			}
			break
		}
	}

	for _, amenity := range amenityKeywords {
		if containsWord(lower, amenity) {
			if cur == nil || !containsString(cur.Hotel.Amenities, amenity) {
				d.Hotel.Amenities = append(d.Hotel.Amenities, amenity)
			}
		}
	}

	room := ""
	switch {
	case strings.Contains(lower, "suite"):
		room = "suite"
	case strings.Contains(lower, "twin room") || strings.Contains(lower, "twin beds"):
		room = "twin"
	case strings.Contains(lower, "king bed") || strings.Contains(lower, "king room"):
		room = "king"
	case strings.Contains(lower, "double room"):
		room = "double"
	}
	if room != "" && (cur == nil || cur.Hotel.RoomType != room) {
		d.Hotel.RoomType = &room
	}

	view := ""
	switch {
	case strings.Contains(lower, "sea view") || strings.Contains(lower, "ocean view"):
		view = "sea"
	case strings.Contains(lower, "city view"):
		view = "city"
	case strings.Contains(lower, "mountain view"):
		view = "mountain"
	}
	if view != "" && (cur == nil || cur.Hotel.View != view) {
		d.Hotel.View = &view
	}
}

func extractLists(lower string, d *contextstore.PreferenceDelta) {
	for _, kw := range dietaryKeywords {
		if containsWord(lower, kw) {
			d.Dietary = append(d.Dietary, normalizeKeyword(kw))
		}
	}
	d.Dietary = dedupe(d.Dietary)

	for _, kw := range interestKeywords {
		if containsWord(lower, kw) {
			d.Interests = append(d.Interests, normalizeKeyword(kw))
		}
	}
	d.Interests = dedupe(d.Interests)
}

func normalizeKeyword(kw string) string {
	return strings.ReplaceAll(kw, " ", "-")
}

func dedupe(items []string) []string {
	if len(items) < 2 {
		return items
	}
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

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
