package providers

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Catalog bundles all four search concerns. Tiered construction pairs a
// primary (gateway) catalog with the static fallback; nil primaries go
// straight to the fallback.
type Catalog struct {
	Flights FlightProvider
	Hotels  HotelProvider
	Places  PlaceProvider
	Geo     Geocoder
}

// NewTieredCatalog wires every concern through the primary with static
// fallback. primary may be nil when no gateway is configured.
func NewTieredCatalog(primary *HTTPProvider, log *logrus.Logger) *Catalog {
	static := NewStaticProvider()
	if log == nil {
		log = logrus.StandardLogger()
	}
	if primary == nil {
		return &Catalog{Flights: static, Hotels: static, Places: static, Geo: static}
	}
	t := &tiered{primary: primary, fallback: static, log: log}
	return &Catalog{Flights: t, Hotels: t, Places: t, Geo: t}
}

type tiered struct {
	primary  *HTTPProvider
	fallback *StaticProvider
	log      *logrus.Logger
}

func (t *tiered) SearchFlights(ctx context.Context, q FlightQuery) ([]FlightOffer, error) {
	offers, err := t.primary.SearchFlights(ctx, q)
	if err == nil {
		return offers, nil
	}
	t.degraded("flights", err)
	return t.fallback.SearchFlights(ctx, q)
}

func (t *tiered) SearchHotels(ctx context.Context, q HotelQuery) ([]HotelOffer, error) {
	offers, err := t.primary.SearchHotels(ctx, q)
	if err == nil {
		return offers, nil
	}
	t.degraded("hotels", err)
	return t.fallback.SearchHotels(ctx, q)
}

func (t *tiered) SearchPlaces(ctx context.Context, q PlaceQuery) ([]Place, error) {
	places, err := t.primary.SearchPlaces(ctx, q)
	if err == nil {
		return places, nil
	}
	t.degraded("places", err)
	return t.fallback.SearchPlaces(ctx, q)
}

func (t *tiered) Geocode(ctx context.Context, place string) (*GeoPoint, error) {
	gp, err := t.primary.Geocode(ctx, place)
	if err == nil {
		return gp, nil
	}
	t.degraded("geocode", err)
	return t.fallback.Geocode(ctx, place)
}

func (t *tiered) degraded(concern string, err error) {
	t.log.WithFields(logrus.Fields{
		"concern": concern,
		"error":   err.Error(),
	}).Warn("search gateway degraded, using bundled dataset")
}

// CityGuide holds the combined points of interest for a city.
type CityGuide struct {
	Attractions []Place `json:"attractions"`
	Restaurants []Place `json:"restaurants"`
}

// Explore fans out the attraction and restaurant lookups for a city
// concurrently and merges the results. Interests narrow attractions; dietary
// needs narrow restaurants.
func Explore(ctx context.Context, places PlaceProvider, city string, interests, dietary []string, limit int) (*CityGuide, error) {
	guide := &CityGuide{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		res, err := places.SearchPlaces(ctx, PlaceQuery{
			City: city, Category: CategoryAttraction, Tags: interests, Limit: limit,
		})
		if err != nil {
			return err
		}
		guide.Attractions = res
		return nil
	})
	g.Go(func() error {
		res, err := places.SearchPlaces(ctx, PlaceQuery{
			City: city, Category: CategoryRestaurant, Tags: dietary, Limit: limit,
		})
		if err != nil {
			return err
		}
		guide.Restaurants = res
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return guide, nil
}
