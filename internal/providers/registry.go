package providers

import (
	"context"
	"fmt"

	"github.com/tripcourier/tripcourier/pkg/tools"
)

func floatPtr(f float64) *float64 { return &f }

// BuildRegistry registers the travel tools against the catalog and seals the
// registry. Tool names and schemas are the contract the reasoning loop plans
// against.
func BuildRegistry(catalog *Catalog) (*tools.Registry, error) {
	registry := tools.NewRegistry()

	defs := []tools.Tool{
		{
			Name:        "search_flights",
			Description: "Search flight offers between two cities, honoring cabin class, stop and price constraints.",
			Schema: tools.Schema{
				"origin":      {Type: "string", Description: "Departure city", Required: true},
				"destination": {Type: "string", Description: "Arrival city", Required: true},
				"departDate":  {Type: "string", Description: "Departure date, YYYY-MM-DD"},
				"cabinClass":  {Type: "string", Enum: []string{"economy", "premium_economy", "business", "first"}},
				"maxStops":    {Type: "integer", Minimum: floatPtr(0), Maximum: floatPtr(3)},
				"maxPrice":    {Type: "number", Minimum: floatPtr(0)},
				"currency":    {Type: "string", Description: "ISO currency code for maxPrice"},
				"airlines":    {Type: "array", Description: "Preferred airlines, ranked first in results"},
			},
			Handler: func(ctx context.Context, args tools.Args) (any, error) {
				q := FlightQuery{
					Origin:      args.String("origin"),
					Destination: args.String("destination"),
					DepartDate:  args.String("departDate"),
					CabinClass:  args.String("cabinClass"),
					MaxPrice:    args.Float("maxPrice"),
					Currency:    args.String("currency"),
					Airlines:    args.Strings("airlines"),
				}
				if _, ok := args["maxStops"]; ok {
					stops := args.Int("maxStops")
					q.MaxStops = &stops
				}
				return catalog.Flights.SearchFlights(ctx, q)
			},
		},
		{
			Name:        "search_hotels",
			Description: "Search hotels in a city by stars, nightly budget, chain, and amenities.",
			Schema: tools.Schema{
				"city":       {Type: "string", Description: "Destination city", Required: true},
				"checkIn":    {Type: "string", Description: "Check-in date, YYYY-MM-DD"},
				"checkOut":   {Type: "string", Description: "Check-out date, YYYY-MM-DD"},
				"minStars":   {Type: "integer", Minimum: floatPtr(1), Maximum: floatPtr(5)},
				"maxNightly": {Type: "number", Minimum: floatPtr(0)},
				"currency":   {Type: "string"},
				"chain":      {Type: "string", Description: "Preferred hotel chain"},
				"amenities":  {Type: "array", Description: "Required amenities, e.g. pool, spa, wifi"},
			},
			Handler: func(ctx context.Context, args tools.Args) (any, error) {
				return catalog.Hotels.SearchHotels(ctx, HotelQuery{
					City:       args.String("city"),
					CheckIn:    args.String("checkIn"),
					CheckOut:   args.String("checkOut"),
					MinStars:   args.Int("minStars"),
					MaxNightly: args.Float("maxNightly"),
					Currency:   args.String("currency"),
					Chain:      args.String("chain"),
					Amenities:  args.Strings("amenities"),
				})
			},
		},
		{
			Name:        "find_attractions",
			Description: "Find attractions in a city, optionally narrowed to the traveler's interests.",
			Schema: tools.Schema{
				"city":      {Type: "string", Required: true},
				"interests": {Type: "array", Description: "Interest tags, e.g. history, food, hiking"},
				"limit":     {Type: "integer", Minimum: floatPtr(1), Maximum: floatPtr(10)},
			},
			Handler: func(ctx context.Context, args tools.Args) (any, error) {
				return catalog.Places.SearchPlaces(ctx, PlaceQuery{
					City:     args.String("city"),
					Category: CategoryAttraction,
					Tags:     args.Strings("interests"),
					Limit:    args.Int("limit"),
				})
			},
		},
		{
			Name:        "find_restaurants",
			Description: "Find restaurants in a city, optionally narrowed to dietary requirements.",
			Schema: tools.Schema{
				"city":    {Type: "string", Required: true},
				"dietary": {Type: "array", Description: "Dietary tags, e.g. vegetarian, halal, gluten-free"},
				"limit":   {Type: "integer", Minimum: floatPtr(1), Maximum: floatPtr(10)},
			},
			Handler: func(ctx context.Context, args tools.Args) (any, error) {
				return catalog.Places.SearchPlaces(ctx, PlaceQuery{
					City:     args.String("city"),
					Category: CategoryRestaurant,
					Tags:     args.Strings("dietary"),
					Limit:    args.Int("limit"),
				})
			},
		},
		{
			Name:        "explore_city",
			Description: "Build a city guide in one call: attractions and restaurants, looked up concurrently.",
			Schema: tools.Schema{
				"city":      {Type: "string", Required: true},
				"interests": {Type: "array", Description: "Interest tags narrowing attractions"},
				"dietary":   {Type: "array", Description: "Dietary tags narrowing restaurants"},
				"limit":     {Type: "integer", Minimum: floatPtr(1), Maximum: floatPtr(10)},
			},
			Handler: func(ctx context.Context, args tools.Args) (any, error) {
				return Explore(ctx, catalog.Places,
					args.String("city"), args.Strings("interests"), args.Strings("dietary"), args.Int("limit"))
			},
		},
		{
			Name:        "geocode",
			Description: "Resolve a free-text place name to coordinates and a canonical name.",
			Schema: tools.Schema{
				"place": {Type: "string", Description: "City or place name", Required: true},
			},
			Handler: func(ctx context.Context, args tools.Args) (any, error) {
				return catalog.Geo.Geocode(ctx, args.String("place"))
			},
		},
	}

	for _, def := range defs {
		if err := registry.Register(def); err != nil {
			return nil, fmt.Errorf("register %s: %w", def.Name, err)
		}
	}
	registry.Seal()
	return registry, nil
}
