// Package maps adapts the Google Maps Web Services client to the capability
// interface the engine consumes. Error classification happens here, at the
// point of origin: zero results are NOT_FOUND territory for callers, transport
// and configuration failures are errors.
package maps

import (
	"context"
	"fmt"
	"time"

	gmaps "googlemaps.github.io/maps"

	"github.com/tracekit/carbontrace/internal/common"
	"github.com/tracekit/carbontrace/internal/service"
)

// Config holds the adapter configuration.
type Config struct {
	APIKey            string
	RequestsPerMinute int
}

// Client implements service.MapsCapability against the Google Maps APIs.
// Transient transport failures are retried here so the resolver above stays
// retry-free.
type Client struct {
	c         *gmaps.Client
	limiter   *rateLimiter
	retryOpts service.RetryOptions
}

// NewClient creates a new capability adapter. An empty API key is a
// configuration error; the resolver converts it into per-leg ERROR statuses.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: missing API key", common.ErrMissingConfig)
	}

	c, err := gmaps.NewClient(gmaps.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}

	return &Client{
		c:       c,
		limiter: newRateLimiter(cfg.RequestsPerMinute),
		retryOpts: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Multiplier:   2.0,
		},
	}, nil
}

// Geocode resolves a free-text query to coordinate matches. An empty slice
// means the query produced no results.
func (m *Client) Geocode(ctx context.Context, query string) ([]service.GeocodeResult, error) {
	if err := m.limiter.wait(ctx); err != nil {
		return nil, err
	}

	var results []gmaps.GeocodingResult
	err := common.WithRetry(ctx, func() error {
		var callErr error
		results, callErr = m.c.Geocode(ctx, &gmaps.GeocodingRequest{Address: query})
		return callErr
	}, m.retryOpts)
	if err != nil {
		return nil, fmt.Errorf("geocode %q: %w", query, err)
	}

	out := make([]service.GeocodeResult, 0, len(results))
	for _, r := range results {
		out = append(out, service.GeocodeResult{
			FormattedAddress: r.FormattedAddress,
			Location: service.LatLng{
				Lat: r.Geometry.Location.Lat,
				Lng: r.Geometry.Location.Lng,
			},
		})
	}
	return out, nil
}

// DistanceBetween returns the driving distance and duration between two
// addresses in imperial units. The element status is passed through so the
// resolver can split NOT_FOUND from ERROR.
func (m *Client) DistanceBetween(ctx context.Context, origin, destination string) (*service.RouteEstimate, error) {
	if err := m.limiter.wait(ctx); err != nil {
		return nil, err
	}

	var resp *gmaps.DistanceMatrixResponse
	err := common.WithRetry(ctx, func() error {
		var callErr error
		resp, callErr = m.c.DistanceMatrix(ctx, &gmaps.DistanceMatrixRequest{
			Origins:      []string{origin},
			Destinations: []string{destination},
			Mode:         gmaps.TravelModeDriving,
			Units:        gmaps.UnitsImperial,
		})
		return callErr
	}, m.retryOpts)
	if err != nil {
		return nil, fmt.Errorf("distance matrix %q -> %q: %w", origin, destination, err)
	}

	if len(resp.Rows) == 0 || len(resp.Rows[0].Elements) == 0 {
		return &service.RouteEstimate{Status: "ZERO_RESULTS"}, nil
	}

	elem := resp.Rows[0].Elements[0]
	est := &service.RouteEstimate{
		Status:   elem.Status,
		Duration: elem.Duration,
	}
	if elem.Status == "OK" {
		est.DistanceMeters = elem.Distance.Meters
		est.DistanceText = elem.Distance.HumanReadable
	}
	return est, nil
}

// NearbySearch finds places matching a keyword within a radius of a point.
func (m *Client) NearbySearch(ctx context.Context, center service.LatLng, radiusMeters uint, keyword string) ([]service.PlaceCandidate, error) {
	if err := m.limiter.wait(ctx); err != nil {
		return nil, err
	}

	var resp gmaps.PlacesSearchResponse
	err := common.WithRetry(ctx, func() error {
		var callErr error
		resp, callErr = m.c.NearbySearch(ctx, &gmaps.NearbySearchRequest{
			Location: &gmaps.LatLng{Lat: center.Lat, Lng: center.Lng},
			Radius:   radiusMeters,
			Keyword:  keyword,
		})
		return callErr
	}, m.retryOpts)
	if err != nil {
		return nil, fmt.Errorf("nearby search %q: %w", keyword, err)
	}

	return candidatesFromSearch(resp.Results), nil
}

// TextSearch finds places matching a free-text query.
func (m *Client) TextSearch(ctx context.Context, query string) ([]service.PlaceCandidate, error) {
	if err := m.limiter.wait(ctx); err != nil {
		return nil, err
	}

	var resp gmaps.PlacesSearchResponse
	err := common.WithRetry(ctx, func() error {
		var callErr error
		resp, callErr = m.c.TextSearch(ctx, &gmaps.TextSearchRequest{Query: query})
		return callErr
	}, m.retryOpts)
	if err != nil {
		return nil, fmt.Errorf("text search %q: %w", query, err)
	}

	return candidatesFromSearch(resp.Results), nil
}

// PlaceDetails fetches the name, address, and geometry for a place. The field
// mask is limited to what branch disambiguation needs.
func (m *Client) PlaceDetails(ctx context.Context, placeID string) (*service.PlaceInfo, error) {
	if err := m.limiter.wait(ctx); err != nil {
		return nil, err
	}

	var result gmaps.PlaceDetailsResult
	err := common.WithRetry(ctx, func() error {
		var callErr error
		result, callErr = m.c.PlaceDetails(ctx, &gmaps.PlaceDetailsRequest{
			PlaceID: placeID,
			Fields: []gmaps.PlaceDetailsFieldMask{
				gmaps.PlaceDetailsFieldMaskName,
				gmaps.PlaceDetailsFieldMaskFormattedAddress,
				gmaps.PlaceDetailsFieldMaskGeometry,
			},
		})
		return callErr
	}, m.retryOpts)
	if err != nil {
		return nil, fmt.Errorf("place details %q: %w", placeID, err)
	}

	return &service.PlaceInfo{
		Name:             result.Name,
		FormattedAddress: result.FormattedAddress,
		Location: service.LatLng{
			Lat: result.Geometry.Location.Lat,
			Lng: result.Geometry.Location.Lng,
		},
	}, nil
}

// Close stops the rate limiter.
func (m *Client) Close() {
	m.limiter.Close()
}

func candidatesFromSearch(results []gmaps.PlacesSearchResult) []service.PlaceCandidate {
	out := make([]service.PlaceCandidate, 0, len(results))
	for _, r := range results {
		out = append(out, service.PlaceCandidate{
			PlaceID:  r.PlaceID,
			Name:     r.Name,
			Vicinity: r.Vicinity,
			Location: service.LatLng{
				Lat: r.Geometry.Location.Lat,
				Lng: r.Geometry.Location.Lng,
			},
		})
	}
	return out
}
