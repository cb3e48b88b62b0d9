// Package contextstore persists per-session conversation context for the
// travel assistant: extracted preferences, recent searches, and the rolling
// conversation window the model sees on each turn.
package contextstore

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Context is the full session state for one conversation.
// It is owned by the Store; callers receive copies and feed changes back
// through Update.
type Context struct {
	// SessionID is the unique session identifier.
	SessionID string `json:"sessionId"`
	// UserID identifies the user (optional).
	UserID string `json:"userId,omitempty"`
	// Preferences holds merged durable preferences.
	Preferences Preferences `json:"preferences"`
	// SearchHistory holds the most recent search descriptors, newest last.
	SearchHistory []SearchRecord `json:"searchHistory,omitempty"`
	// History is the bounded conversation window used for model context.
	History []Turn `json:"conversationHistory,omitempty"`
	// TotalInteractions counts turns processed for this session. Never decreases.
	TotalInteractions int `json:"totalInteractions"`
	// CreatedAt is when the session context was first created.
	CreatedAt time.Time `json:"createdAt"`
	// LastUpdated is refreshed on every write.
	LastUpdated time.Time `json:"lastUpdated"`
}

// Turn is one conversation message.
type Turn struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// SearchRecord describes one search the assistant performed for the session.
type SearchRecord struct {
	Type        string    `json:"type"` // "flight", "hotel", "attraction", "restaurant", "geocode"
	Origin      string    `json:"origin,omitempty"`
	Destination string    `json:"destination,omitempty"`
	Budget      float64   `json:"budget,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Preferences is the merged durable preference record for a session.
type Preferences struct {
	HomeCity     string   `json:"homeCity,omitempty"`
	TravelStyle  string   `json:"travelStyle,omitempty"` // "budget", "comfort", "luxury"
	Budget       float64  `json:"budget,omitempty"`
	Currency     string   `json:"currency,omitempty"`
	Interests    []string `json:"interests,omitempty"`
	Dietary      []string `json:"dietaryRestrictions,omitempty"`

	Flight FlightPreferences `json:"flightPreferences"`
	Hotel  HotelPreferences  `json:"hotelPreferences"`
}

// FlightPreferences holds flight-specific preferences.
type FlightPreferences struct {
	CabinClass        string   `json:"cabinClass,omitempty"` // "economy", "premium_economy", "business", "first"
	// MaxStops is nil when the user has expressed no stop constraint.
	MaxStops          *int     `json:"maxStops,omitempty"`
	PreferredAirlines []string `json:"preferredAirlines,omitempty"`
	AvoidedAirlines   []string `json:"avoidedAirlines,omitempty"`
	DepartureWindow   string   `json:"departureWindow,omitempty"` // "morning", "afternoon", "evening", "red_eye"
	Seat              string   `json:"seat,omitempty"`            // "aisle", "window"
	Meal              string   `json:"meal,omitempty"`
}

// HotelPreferences holds hotel-specific preferences.
type HotelPreferences struct {
	Chain         string   `json:"chain,omitempty"`
	MinStars      int      `json:"minStars,omitempty"`
	Amenities     []string `json:"amenities,omitempty"`
	RoomType      string   `json:"roomType,omitempty"`
	View          string   `json:"view,omitempty"`
	NightlyBudget float64  `json:"nightlyBudget,omitempty"`
}

// PreferenceDelta is a partial preference update extracted from a single
// message. Nil pointer fields were not mentioned and must not touch the
// stored value; list fields append de-duplicated.
type PreferenceDelta struct {
	HomeCity    *string
	TravelStyle *string
	Budget      *float64
	Currency    *string
	Interests   []string
	Dietary     []string

	Flight FlightDelta
	Hotel  HotelDelta
}

// FlightDelta is the flight portion of a preference delta.
type FlightDelta struct {
	CabinClass *string
	MaxStops   *int
	// ClearMaxStops relaxes a previously stored stop constraint
	// ("any number of stops is fine").
	ClearMaxStops     bool
	PreferredAirlines []string
	AvoidedAirlines   []string
	DepartureWindow   *string
	Seat              *string
	Meal              *string
}

// HotelDelta is the hotel portion of a preference delta.
type HotelDelta struct {
	Chain         *string
	MinStars      *int
	Amenities     []string
	RoomType      *string
	View          *string
	NightlyBudget *float64
}

// IsEmpty reports whether the delta carries no change at all.
func (d PreferenceDelta) IsEmpty() bool {
	return d.HomeCity == nil && d.TravelStyle == nil && d.Budget == nil &&
		d.Currency == nil && len(d.Interests) == 0 && len(d.Dietary) == 0 &&
		d.Flight.isEmpty() && d.Hotel.isEmpty()
}

func (d FlightDelta) isEmpty() bool {
	return d.CabinClass == nil && d.MaxStops == nil && !d.ClearMaxStops &&
		len(d.PreferredAirlines) == 0 && len(d.AvoidedAirlines) == 0 &&
		d.DepartureWindow == nil && d.Seat == nil && d.Meal == nil
}

func (d HotelDelta) isEmpty() bool {
	return d.Chain == nil && d.MinStars == nil && len(d.Amenities) == 0 &&
		d.RoomType == nil && d.View == nil && d.NightlyBudget == nil
}

// AnonymousSessionID derives a stable session identifier when the caller did
// not supply one: a hash of the user id if known, otherwise a random id.
func AnonymousSessionID(userID string) string {
	if userID == "" {
		return "anon-" + uuid.New().String()
	}
	h := sha256.Sum256([]byte(userID))
	return "anon-" + hex.EncodeToString(h[:8])
}
