package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticFlights_HonorsConstraints(t *testing.T) {
	p := NewStaticProvider()
	zero := 0

	offers, err := p.SearchFlights(context.Background(), FlightQuery{
		Origin:      "Mumbai",
		Destination: "Dubai",
		CabinClass:  "business",
		MaxStops:    &zero,
		Airlines:    []string{"Emirates"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, offers)

	for _, o := range offers {
		assert.Equal(t, 0, o.Stops)
		assert.Equal(t, "business", o.CabinClass)
	}
}

func TestStaticFlights_PreferredAirlineRanksFirst(t *testing.T) {
	p := NewStaticProvider()

	offers, err := p.SearchFlights(context.Background(), FlightQuery{
		Origin:      "London",
		Destination: "Tokyo",
		Airlines:    []string{"Singapore Airlines"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, offers)
	assert.Equal(t, "Singapore Airlines", offers[0].Airline)
}

func TestStaticFlights_Deterministic(t *testing.T) {
	p := NewStaticProvider()
	q := FlightQuery{Origin: "Paris", Destination: "Rome"}

	a, err := p.SearchFlights(context.Background(), q)
	require.NoError(t, err)
	b, err := p.SearchFlights(context.Background(), q)
	require.NoError(t, err)

	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].Airline, b[i].Airline)
		assert.Equal(t, a[i].Price, b[i].Price)
	}
}

func TestStaticHotels_FiltersByStarsAndBudget(t *testing.T) {
	p := NewStaticProvider()

	offers, err := p.SearchHotels(context.Background(), HotelQuery{
		City:       "Barcelona",
		MinStars:   4,
		MaxNightly: 400,
		Amenities:  []string{"pool"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, offers)

	for _, o := range offers {
		assert.GreaterOrEqual(t, o.Stars, 4)
		assert.LessOrEqual(t, o.Nightly, 400.0)
		assert.Contains(t, o.Amenities, "pool")
	}
}

func TestStaticPlaces_TagNarrowing(t *testing.T) {
	p := NewStaticProvider()

	places, err := p.SearchPlaces(context.Background(), PlaceQuery{
		City:     "Rome",
		Category: CategoryAttraction,
		Tags:     []string{"history"},
		Limit:    2,
	})
	require.NoError(t, err)
	require.Len(t, places, 2)
	for _, pl := range places {
		assert.Contains(t, pl.Tags, "history")
	}
}

func TestStaticGeocode(t *testing.T) {
	p := NewStaticProvider()

	gp, err := p.Geocode(context.Background(), "mumbai")
	require.NoError(t, err)
	assert.Equal(t, "Mumbai", gp.Name)
	assert.InDelta(t, 19.076, gp.Latitude, 0.01)

	unknown, err := p.Geocode(context.Background(), "smallville")
	require.NoError(t, err)
	assert.Equal(t, "Smallville", unknown.Name)
	assert.GreaterOrEqual(t, unknown.Latitude, -90.0)
	assert.LessOrEqual(t, unknown.Latitude, 90.0)

	_, err = p.Geocode(context.Background(), "  ")
	assert.Error(t, err)
}

func TestHTTPProvider_DecodesGatewayResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/flights", r.URL.Path)
		assert.Equal(t, "Delhi", r.URL.Query().Get("origin"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{
			"offers": []FlightOffer{{Airline: "IndiGo", Origin: "Delhi", Destination: "Mumbai", Price: 120, Currency: "USD"}},
		})
	}))
	defer srv.Close()

	p, err := NewHTTPProvider(HTTPConfig{BaseURL: srv.URL, APIKey: "test-key"})
	require.NoError(t, err)

	offers, err := p.SearchFlights(context.Background(), FlightQuery{Origin: "Delhi", Destination: "Mumbai"})
	require.NoError(t, err)
	require.Len(t, offers, 1)
	assert.Equal(t, "IndiGo", offers[0].Airline)
}

func TestHTTPProvider_NonRetryableStatusFailsFast(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	p, err := NewHTTPProvider(HTTPConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = p.Geocode(context.Background(), "nowhere")
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestTiered_FallsBackWhenGatewayFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	primary, err := NewHTTPProvider(HTTPConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	catalog := NewTieredCatalog(primary, log)

	offers, err := catalog.Hotels.SearchHotels(context.Background(), HotelQuery{City: "Lisbon"})
	require.NoError(t, err)
	assert.NotEmpty(t, offers)
}

func TestExplore_FansOutBothCategories(t *testing.T) {
	catalog := NewTieredCatalog(nil, nil)

	guide, err := Explore(context.Background(), catalog.Places, "Bangkok", []string{"food"}, []string{"vegetarian"}, 3)
	require.NoError(t, err)
	assert.NotEmpty(t, guide.Attractions)
	assert.NotEmpty(t, guide.Restaurants)
	for _, r := range guide.Restaurants {
		assert.Equal(t, CategoryRestaurant, r.Category)
	}
}

func TestBuildRegistry_RegistersTravelTools(t *testing.T) {
	registry, err := BuildRegistry(NewTieredCatalog(nil, nil))
	require.NoError(t, err)

	names := []string{}
	for _, d := range registry.List() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"explore_city", "find_attractions", "find_restaurants", "geocode", "search_flights", "search_hotels"}, names)
}

func TestBuildRegistry_ExploreCityHandlerFansOut(t *testing.T) {
	registry, err := BuildRegistry(NewTieredCatalog(nil, nil))
	require.NoError(t, err)

	tool, ok := registry.Get("explore_city")
	require.True(t, ok)

	out, err := tool.Handler(context.Background(), map[string]any{
		"city":      "Bangkok",
		"interests": []any{"food"},
		"dietary":   []any{"vegetarian"},
		"limit":     float64(3),
	})
	require.NoError(t, err)

	guide, ok := out.(*CityGuide)
	require.True(t, ok)
	assert.NotEmpty(t, guide.Attractions)
	assert.NotEmpty(t, guide.Restaurants)
}

func TestBuildRegistry_FlightHandler(t *testing.T) {
	registry, err := BuildRegistry(NewTieredCatalog(nil, nil))
	require.NoError(t, err)

	tool, ok := registry.Get("search_flights")
	require.True(t, ok)

	out, err := tool.Handler(context.Background(), map[string]any{
		"origin":      "Mumbai",
		"destination": "Singapore",
		"cabinClass":  "business",
		"maxStops":    float64(0),
	})
	require.NoError(t, err)

	offers, ok := out.([]FlightOffer)
	require.True(t, ok)
	require.NotEmpty(t, offers)
	assert.Equal(t, 0, offers[0].Stops)
}