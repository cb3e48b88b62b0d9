package prefs

import (
	"reflect"
	"testing"

	"github.com/tripcourier/tripcourier/pkg/contextstore"
)

func TestExtract_FlightPreferenceScenario(t *testing.T) {
	d := Extract("I'm from Mumbai, prefer business class, Emirates, direct flights only", nil)

	if d.HomeCity == nil || *d.HomeCity != "Mumbai" {
		t.Errorf("HomeCity = %v, want Mumbai", d.HomeCity)
	}
	if d.Flight.CabinClass == nil || *d.Flight.CabinClass != "business" {
		t.Errorf("CabinClass = %v, want business", d.Flight.CabinClass)
	}
	if !reflect.DeepEqual(d.Flight.PreferredAirlines, []string{"Emirates"}) {
		t.Errorf("PreferredAirlines = %v, want [Emirates]", d.Flight.PreferredAirlines)
	}
	if d.Flight.MaxStops == nil || *d.Flight.MaxStops != 0 {
		t.Errorf("MaxStops = %v, want 0", d.Flight.MaxStops)
	}
}

func TestExtract_CorrectiveOverride(t *testing.T) {
	zero := 0
	cur := &contextstore.Preferences{
		HomeCity: "Mumbai",
		Flight: contextstore.FlightPreferences{
			CabinClass:        "business",
			MaxStops:          &zero,
			PreferredAirlines: []string{"Emirates"},
		},
	}

	d := Extract("actually economy is fine, any number of stops", cur)

	if d.Flight.CabinClass == nil || *d.Flight.CabinClass != "economy" {
		t.Errorf("CabinClass = %v, want economy", d.Flight.CabinClass)
	}
	if !d.Flight.ClearMaxStops {
		t.Error("ClearMaxStops = false, want true")
	}
	// Fields the message does not mention stay out of the delta.
	if d.HomeCity != nil {
		t.Errorf("HomeCity = %v, want nil", d.HomeCity)
	}
	if len(d.Flight.PreferredAirlines) != 0 {
		t.Errorf("PreferredAirlines = %v, want empty", d.Flight.PreferredAirlines)
	}
}

func TestExtract_Budget(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		budget   float64
		currency string
	}{
		{"dollar sign", "find me flights to Tokyo under $900 departing June 2", 900, "USD"},
		{"word form", "my budget is 1,500 dollars total", 1500, "USD"},
		{"rupees", "keep it under ₹50000 please", 50000, "INR"},
		{"euros", "somewhere around €750", 750, "EUR"},
		{"rupee shorthand", "keep it around Rs. 40000 total", 40000, "INR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Extract(tt.message, nil)
			if d.Budget == nil || *d.Budget != tt.budget {
				t.Errorf("Budget = %v, want %v", d.Budget, tt.budget)
			}
			if d.Currency == nil || *d.Currency != tt.currency {
				t.Errorf("Currency = %v, want %v", d.Currency, tt.currency)
			}
		})
	}
}

func TestExtract_NightlyBudgetGoesToHotel(t *testing.T) {
	d := Extract("hotels should be under $150 per night", nil)

	if d.Hotel.NightlyBudget == nil || *d.Hotel.NightlyBudget != 150 {
		t.Errorf("NightlyBudget = %v, want 150", d.Hotel.NightlyBudget)
	}
	if d.Budget != nil {
		t.Errorf("Budget = %v, want nil for nightly amounts", d.Budget)
	}
}

func TestExtract_HotelPreferences(t *testing.T) {
	d := Extract("I'd like a 4-star Marriott with a pool and spa, sea view suite", nil)

	if d.Hotel.MinStars == nil || *d.Hotel.MinStars != 4 {
		t.Errorf("MinStars = %v, want 4", d.Hotel.MinStars)
	}
	if d.Hotel.Chain == nil || *d.Hotel.Chain != "Marriott" {
		t.Errorf("Chain = %v, want Marriott", d.Hotel.Chain)
	}
	if !reflect.DeepEqual(d.Hotel.Amenities, []string{"pool", "spa"}) {
		t.Errorf("Amenities = %v, want [pool spa]", d.Hotel.Amenities)
	}
	if d.Hotel.RoomType == nil || *d.Hotel.RoomType != "suite" {
		t.Errorf("RoomType = %v, want suite", d.Hotel.RoomType)
	}
	if d.Hotel.View == nil || *d.Hotel.View != "sea" {
		t.Errorf("View = %v, want sea", d.Hotel.View)
	}
}

func TestExtract_DietaryAndInterests(t *testing.T) {
	d := Extract("we're vegetarian and love street food, museums and hiking", nil)

	if !containsString(d.Dietary, "vegetarian") {
		t.Errorf("Dietary = %v, want vegetarian included", d.Dietary)
	}
	for _, want := range []string{"museums", "hiking"} {
		if !containsString(d.Interests, want) {
			t.Errorf("Interests = %v, want %s included", d.Interests, want)
		}
	}
}

func TestExtract_AvoidedAirline(t *testing.T) {
	d := Extract("please avoid Ryanair this time", nil)

	if !containsString(d.Flight.AvoidedAirlines, "Ryanair") {
		t.Errorf("AvoidedAirlines = %v, want Ryanair", d.Flight.AvoidedAirlines)
	}
	if len(d.Flight.PreferredAirlines) != 0 {
		t.Errorf("PreferredAirlines = %v, want empty", d.Flight.PreferredAirlines)
	}
}

func TestExtract_NoMatchIsEmptyDelta(t *testing.T) {
	for _, message := range []string{
		"hi there",
		"thanks, that works",
		"",
		"what time is it over there?",
		"the flight takes 14 hours 30 minutes",
		"it departs 2 hours later on Thursdays",
	} {
		d := Extract(message, nil)
		if !d.IsEmpty() {
			t.Errorf("Extract(%q) = %+v, want empty delta", message, d)
		}
	}
}

func TestExtract_BareNumbersAreNotBudgets(t *testing.T) {
	// Words ending in "rs" next to a number must not read as rupee amounts.
	for _, message := range []string{
		"the flight takes 14 hours 30 minutes",
		"Emirates offers 2 free checked bags",
		"the tour covers 3 cities in 5 days",
	} {
		d := Extract(message, nil)
		if d.Budget != nil {
			t.Errorf("Extract(%q).Budget = %v, want nil", message, *d.Budget)
		}
		if d.Currency != nil {
			t.Errorf("Extract(%q).Currency = %v, want nil", message, *d.Currency)
		}
	}

	// The airline mention still registers on its own.
	d := Extract("Emirates offers 2 free checked bags", nil)
	if !containsString(d.Flight.PreferredAirlines, "Emirates") {
		t.Errorf("PreferredAirlines = %v, want Emirates", d.Flight.PreferredAirlines)
	}
}

func TestExtract_DeparturePointIsNotHomeCity(t *testing.T) {
	d := Extract("flying from Delhi this time", nil)
	if d.HomeCity != nil {
		t.Errorf("HomeCity = %v, want nil for a one-off departure point", *d.HomeCity)
	}

	d = Extract("I live in Delhi", nil)
	if d.HomeCity == nil || *d.HomeCity != "Delhi" {
		t.Errorf("HomeCity = %v, want Delhi for a residence statement", d.HomeCity)
	}
}

func TestExtract_SuppressesRedetection(t *testing.T) {
	budget := 900.0
	cur := &contextstore.Preferences{
		Budget:   budget,
		Currency: "USD",
		HomeCity: "Mumbai",
	}

	d := Extract("as I said, I'm from Mumbai and the budget is $900", cur)

	if d.Budget != nil {
		t.Errorf("Budget re-detected: %v", *d.Budget)
	}
	if d.Currency != nil {
		t.Errorf("Currency re-detected: %v", *d.Currency)
	}
	if d.HomeCity != nil {
		t.Errorf("HomeCity re-detected: %v", *d.HomeCity)
	}
}

func TestExtract_DoesNotMutateCurrent(t *testing.T) {
	cur := &contextstore.Preferences{
		Interests: []string{"food"},
		Flight:    contextstore.FlightPreferences{PreferredAirlines: []string{"Emirates"}},
	}
	before := *cur
	beforeInterests := append([]string(nil), cur.Interests...)

	_ = Extract("I want business class on Qatar Airways and love museums", cur)

	if !reflect.DeepEqual(cur.Interests, beforeInterests) {
		t.Error("Extract mutated current interests")
	}
	if cur.Flight.CabinClass != before.Flight.CabinClass {
		t.Error("Extract mutated current cabin class")
	}
}
