package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tripcourier/tripcourier/pkg/ratelimit"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	maxRetries         = 3
)

// HTTPConfig configures the HTTP-backed providers. BaseURL points at the
// upstream travel search gateway; APIKey is sent as a bearer token.
type HTTPConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Logger  *logrus.Logger
}

// HTTPProvider implements FlightProvider, HotelProvider, PlaceProvider and
// Geocoder against a JSON search gateway. Requests retry with exponential
// backoff on 429 and 5xx, and a circuit breaker sheds load once the upstream
// fails repeatedly.
type HTTPProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
	breaker *ratelimit.CircuitBreaker
	log     *logrus.Logger
}

// NewHTTPProvider builds a gateway client. The config's BaseURL is required.
func NewHTTPProvider(cfg HTTPConfig) (*HTTPProvider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("providers: base URL is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &HTTPProvider{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
		breaker: ratelimit.NewCircuitBreaker(5, 30*time.Second),
		log:     log,
	}, nil
}

func (p *HTTPProvider) SearchFlights(ctx context.Context, q FlightQuery) ([]FlightOffer, error) {
	params := url.Values{}
	params.Set("origin", q.Origin)
	params.Set("destination", q.Destination)
	if q.DepartDate != "" {
		params.Set("date", q.DepartDate)
	}
	if q.CabinClass != "" {
		params.Set("cabin", q.CabinClass)
	}
	if q.MaxStops != nil {
		params.Set("max_stops", strconv.Itoa(*q.MaxStops))
	}
	if q.MaxPrice > 0 {
		params.Set("max_price", strconv.FormatFloat(q.MaxPrice, 'f', -1, 64))
	}
	if q.Currency != "" {
		params.Set("currency", q.Currency)
	}
	if len(q.Airlines) > 0 {
		params.Set("airlines", strings.Join(q.Airlines, ","))
	}

	var out struct {
		Offers []FlightOffer `json:"offers"`
	}
	if err := p.getJSON(ctx, "/v1/flights", params, &out); err != nil {
		return nil, err
	}
	return out.Offers, nil
}

func (p *HTTPProvider) SearchHotels(ctx context.Context, q HotelQuery) ([]HotelOffer, error) {
	params := url.Values{}
	params.Set("city", q.City)
	if q.CheckIn != "" {
		params.Set("check_in", q.CheckIn)
	}
	if q.CheckOut != "" {
		params.Set("check_out", q.CheckOut)
	}
	if q.MinStars > 0 {
		params.Set("min_stars", strconv.Itoa(q.MinStars))
	}
	if q.MaxNightly > 0 {
		params.Set("max_nightly", strconv.FormatFloat(q.MaxNightly, 'f', -1, 64))
	}
	if q.Chain != "" {
		params.Set("chain", q.Chain)
	}
	if len(q.Amenities) > 0 {
		params.Set("amenities", strings.Join(q.Amenities, ","))
	}

	var out struct {
		Offers []HotelOffer `json:"offers"`
	}
	if err := p.getJSON(ctx, "/v1/hotels", params, &out); err != nil {
		return nil, err
	}
	return out.Offers, nil
}

func (p *HTTPProvider) SearchPlaces(ctx context.Context, q PlaceQuery) ([]Place, error) {
	params := url.Values{}
	params.Set("city", q.City)
	params.Set("category", q.Category)
	if len(q.Tags) > 0 {
		params.Set("tags", strings.Join(q.Tags, ","))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	var out struct {
		Places []Place `json:"places"`
	}
	if err := p.getJSON(ctx, "/v1/places", params, &out); err != nil {
		return nil, err
	}
	return out.Places, nil
}

func (p *HTTPProvider) Geocode(ctx context.Context, place string) (*GeoPoint, error) {
	params := url.Values{}
	params.Set("q", place)

	var out GeoPoint
	if err := p.getJSON(ctx, "/v1/geocode", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// getJSON performs a GET with bounded retries behind the circuit breaker and
// decodes the JSON response into v.
func (p *HTTPProvider) getJSON(ctx context.Context, path string, params url.Values, v any) error {
	return p.breaker.Execute(func() error {
		return p.doWithRetry(ctx, path, params, v)
	})
}

func (p *HTTPProvider) doWithRetry(ctx context.Context, path string, params url.Values, v any) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			p.log.WithFields(logrus.Fields{
				"path":    path,
				"attempt": attempt,
			}).Debug("retrying gateway request")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := p.doOnce(ctx, path, params, v)
		if err == nil {
			return nil
		}
		lastErr = err
		if !isRetryable(err) {
			return err
		}
	}
	return fmt.Errorf("gateway request failed after %d attempts: %w", maxRetries, lastErr)
}

func (p *HTTPProvider) doOnce(ctx context.Context, path string, params url.Values, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return &gatewayError{status: 0, err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &gatewayError{status: resp.StatusCode, err: fmt.Errorf("gateway status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))}
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

type gatewayError struct {
	status int
	err    error
}

func (e *gatewayError) Error() string { return e.err.Error() }
func (e *gatewayError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	ge, ok := err.(*gatewayError)
	if !ok {
		return false
	}
	// Network-level failures and throttling/server errors are worth retrying.
	return ge.status == 0 || ge.status == http.StatusTooManyRequests || ge.status >= 500
}
