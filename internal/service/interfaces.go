// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tracekit/carbontrace/internal/model"
)

// LatLng is a coordinate pair in degrees.
type LatLng struct {
	Lat float64
	Lng float64
}

// GeocodeResult is one geocoding match. An empty result slice means the query
// resolved to nothing; transport and configuration failures surface as errors.
type GeocodeResult struct {
	FormattedAddress string
	Location         LatLng
}

// RouteEstimate is the driving-mode distance and duration between two
// addresses. Status is the per-element status reported by the capability and
// is independent of transport success.
type RouteEstimate struct {
	Status         string
	DistanceText   string
	DistanceMeters int
	Duration       time.Duration
}

// PlaceCandidate is one place returned by a nearby or text search.
type PlaceCandidate struct {
	PlaceID  string
	Name     string
	Vicinity string
	Location LatLng
}

// PlaceInfo is the detail record for a single place.
type PlaceInfo struct {
	Name             string
	FormattedAddress string
	Location         LatLng
}

// MapsCapability is the contract the engine requires from the external
// geocoding/routing/places service. It is modeled precisely so tests can
// substitute a deterministic double.
type MapsCapability interface {
	Geocode(ctx context.Context, query string) ([]GeocodeResult, error)
	DistanceBetween(ctx context.Context, origin, destination string) (*RouteEstimate, error)
	NearbySearch(ctx context.Context, center LatLng, radiusMeters uint, keyword string) ([]PlaceCandidate, error)
	TextSearch(ctx context.Context, query string) ([]PlaceCandidate, error)
	PlaceDetails(ctx context.Context, placeID string) (*PlaceInfo, error)
}

// Storage defines the contract for the append-only calculation history. The
// engine itself never touches it; the CLI and HTTP surfaces write results
// after a calculation completes.
type Storage interface {
	SaveCalculation(ctx context.Context, inputs, results json.RawMessage) (*model.Calculation, error)
	ListCalculations(ctx context.Context, limit, offset int) ([]model.Calculation, error)
	GetCalculation(ctx context.Context, id int64) (*model.Calculation, error)
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
