// Package providers contains the search backends the travel tools call into:
// flight and hotel search, attraction/restaurant lookup, and geocoding. Each
// concern is an interface with an HTTP-backed implementation and a static
// fallback dataset used when the upstream degrades.
package providers

import (
	"context"
)

// FlightQuery describes a flight search. Zero values mean "no constraint".
type FlightQuery struct {
	Origin      string   `json:"origin"`
	Destination string   `json:"destination"`
	DepartDate  string   `json:"departDate,omitempty"`
	CabinClass  string   `json:"cabinClass,omitempty"`
	MaxStops    *int     `json:"maxStops,omitempty"`
	MaxPrice    float64  `json:"maxPrice,omitempty"`
	Currency    string   `json:"currency,omitempty"`
	Airlines    []string `json:"airlines,omitempty"`
}

// FlightOffer is a single bookable itinerary option.
type FlightOffer struct {
	Airline     string  `json:"airline"`
	Flight      string  `json:"flight"`
	Origin      string  `json:"origin"`
	Destination string  `json:"destination"`
	Departure   string  `json:"departure"`
	Arrival     string  `json:"arrival"`
	Stops       int     `json:"stops"`
	CabinClass  string  `json:"cabinClass"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`
}

// HotelQuery describes a hotel search in a single city.
type HotelQuery struct {
	City       string   `json:"city"`
	CheckIn    string   `json:"checkIn,omitempty"`
	CheckOut   string   `json:"checkOut,omitempty"`
	MinStars   int      `json:"minStars,omitempty"`
	MaxNightly float64  `json:"maxNightly,omitempty"`
	Currency   string   `json:"currency,omitempty"`
	Chain      string   `json:"chain,omitempty"`
	Amenities  []string `json:"amenities,omitempty"`
}

// HotelOffer is a single property with availability.
type HotelOffer struct {
	Name      string   `json:"name"`
	Chain     string   `json:"chain,omitempty"`
	City      string   `json:"city"`
	Area      string   `json:"area,omitempty"`
	Stars     int      `json:"stars"`
	Nightly   float64  `json:"nightly"`
	Currency  string   `json:"currency"`
	Amenities []string `json:"amenities,omitempty"`
}

// Place categories understood by PlaceProvider.
const (
	CategoryAttraction = "attraction"
	CategoryRestaurant = "restaurant"
)

// PlaceQuery looks up points of interest in a city. Tags narrow results to
// the caller's interests (attractions) or dietary needs (restaurants).
type PlaceQuery struct {
	City     string   `json:"city"`
	Category string   `json:"category"`
	Tags     []string `json:"tags,omitempty"`
	Limit    int      `json:"limit,omitempty"`
}

// Place is a point of interest.
type Place struct {
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Description string   `json:"description,omitempty"`
	Rating      float64  `json:"rating,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// GeoPoint is a resolved location.
type GeoPoint struct {
	Name      string  `json:"name"`
	Country   string  `json:"country,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// FlightProvider searches flight inventory.
type FlightProvider interface {
	SearchFlights(ctx context.Context, q FlightQuery) ([]FlightOffer, error)
}

// HotelProvider searches hotel inventory.
type HotelProvider interface {
	SearchHotels(ctx context.Context, q HotelQuery) ([]HotelOffer, error)
}

// PlaceProvider looks up attractions and restaurants.
type PlaceProvider interface {
	SearchPlaces(ctx context.Context, q PlaceQuery) ([]Place, error)
}

// Geocoder resolves free-text place names to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, place string) (*GeoPoint, error)
}
