// Package resolve turns partially-specified activity records into distances
// using the external maps capability: geocoding, routed driving legs, and
// nearest-branch disambiguation for multi-location chains.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tracekit/carbontrace/internal/common"
	"github.com/tracekit/carbontrace/internal/geo"
	"github.com/tracekit/carbontrace/internal/model"
	"github.com/tracekit/carbontrace/internal/service"
)

// DefaultLegTimeout bounds every external call made for a single leg. The leg
// is marked ERROR on expiry rather than hanging the batch.
const DefaultLegTimeout = 10 * time.Second

// Locator resolves identifiers to coordinates and address pairs to driving
// distances. It holds the capability handle for its whole lifetime and is
// retry-free: each call classifies its outcome exactly once.
type Locator struct {
	capability service.MapsCapability
	timeout    time.Duration
}

// NewLocator creates a locator with the default per-leg timeout. A nil
// capability is allowed; every resolution then degrades to an ERROR leg.
func NewLocator(capability service.MapsCapability) *Locator {
	return NewLocatorWithTimeout(capability, DefaultLegTimeout)
}

// NewLocatorWithTimeout creates a locator with a custom per-leg timeout.
func NewLocatorWithTimeout(capability service.MapsCapability, timeout time.Duration) *Locator {
	if timeout <= 0 {
		timeout = DefaultLegTimeout
	}
	return &Locator{capability: capability, timeout: timeout}
}

// Geocode resolves a free-text identifier to its best coordinate match.
// Returns common.ErrNotFound when the capability produced zero results and a
// plain error for configuration or transport failures.
func (l *Locator) Geocode(ctx context.Context, query string) (*model.PlaceDetail, error) {
	if l.capability == nil {
		return nil, common.ErrCapabilityUnavailable
	}

	callCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	results, err := l.capability.Geocode(callCtx, query)
	if err != nil {
		return nil, fmt.Errorf("geocoding %q failed: %w", query, err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: no results for %q", common.ErrNotFound, query)
	}

	return &model.PlaceDetail{
		FormattedAddress: results[0].FormattedAddress,
		Lat:              results[0].Location.Lat,
		Lng:              results[0].Location.Lng,
	}, nil
}

// GeocodeAirport resolves an IATA code. The query is biased with "airport" so
// results land on the airfield rather than the surrounding city.
func (l *Locator) GeocodeAirport(ctx context.Context, code string) (*model.PlaceDetail, error) {
	detail, err := l.Geocode(ctx, code+" airport")
	if err != nil {
		return nil, err
	}
	detail.Code = code
	return detail, nil
}

// FlightLeg resolves one itinerary hop to a great-circle distance. Flights are
// billed point-to-point, not routed. If either endpoint fails to geocode the
// leg carries zero distance and a message naming the endpoint(s) that failed.
func (l *Locator) FlightLeg(ctx context.Context, originCode, destinationCode string) model.ResolvedLeg {
	origin, originErr := l.GeocodeAirport(ctx, originCode)
	destination, destErr := l.GeocodeAirport(ctx, destinationCode)

	if originErr != nil || destErr != nil {
		var msgs []string
		notFoundOnly := true
		if originErr != nil {
			msgs = append(msgs, fmt.Sprintf("origin %s: %v", originCode, originErr))
			if !errors.Is(originErr, common.ErrNotFound) {
				notFoundOnly = false
			}
		}
		if destErr != nil {
			msgs = append(msgs, fmt.Sprintf("destination %s: %v", destinationCode, destErr))
			if !errors.Is(destErr, common.ErrNotFound) {
				notFoundOnly = false
			}
		}

		status := model.StatusError
		if notFoundOnly {
			status = model.StatusNotFound
		}
		return model.FailedLeg(status, strings.Join(msgs, "; "))
	}

	return model.ResolvedLeg{
		DistanceMiles: geo.Miles(origin.Lat, origin.Lng, destination.Lat, destination.Lng),
		Status:        model.StatusOK,
		Path:          model.PathGreatCircle,
		Origin:        origin,
		Destination:   destination,
	}
}

// DrivingLeg resolves an address pair to a routed driving distance and a
// human-readable duration. Never panics; every failure mode converts into a
// non-OK leg with zero distance.
func (l *Locator) DrivingLeg(ctx context.Context, origin, destination string) model.ResolvedLeg {
	if l.capability == nil {
		return model.FailedLeg(model.StatusError, common.ErrCapabilityUnavailable.Error())
	}

	callCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	est, err := l.capability.DistanceBetween(callCtx, origin, destination)
	if err != nil {
		return model.FailedLeg(model.StatusError, fmt.Sprintf("distance lookup failed: %v", err))
	}

	if est.Status != "OK" {
		status := model.StatusError
		if est.Status == "NOT_FOUND" || est.Status == "ZERO_RESULTS" {
			status = model.StatusNotFound
		}
		return model.FailedLeg(status, fmt.Sprintf("could not calculate distance: %s", est.Status))
	}

	return model.ResolvedLeg{
		DistanceMiles: geo.MetersToMiles(est.DistanceMeters),
		Status:        model.StatusOK,
		Path:          model.PathDriving,
		Duration:      formatDuration(est.Duration),
	}
}

// formatDuration renders a duration the way routing services phrase it.
func formatDuration(d time.Duration) string {
	if d <= 0 {
		return ""
	}

	total := int(d.Round(time.Minute).Minutes())
	if total < 1 {
		total = 1
	}
	hours := total / 60
	mins := total % 60

	switch {
	case hours == 0:
		return fmt.Sprintf("%d mins", mins)
	case mins == 0:
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	case hours == 1:
		return fmt.Sprintf("1 hour %d mins", mins)
	default:
		return fmt.Sprintf("%d hours %d mins", hours, mins)
	}
}
