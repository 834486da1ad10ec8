package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tracekit/carbontrace/internal/common"
	"github.com/tracekit/carbontrace/internal/geo"
	"github.com/tracekit/carbontrace/internal/model"
	"github.com/tracekit/carbontrace/internal/service"
)

// searchRadii are the expanding nearby-search radii in meters
// (~8.7, ~18.6, ~28.6 miles).
var searchRadii = []uint{14000, 30000, 46000}

// minNameSimilarity filters search candidates whose names are too dissimilar
// to the requested brand. Tuned low: over-filtering silently drops legitimate
// but loosely-matching branches.
const minNameSimilarity = 0.15

// Disambiguator finds the physical branch of a brand nearest a delivery
// address, so the caller can route to a concrete address instead of an
// ambiguous chain name.
type Disambiguator struct {
	capability service.MapsCapability
	timeout    time.Duration
}

// NewDisambiguator creates a disambiguator with the default per-call timeout.
func NewDisambiguator(capability service.MapsCapability) *Disambiguator {
	return NewDisambiguatorWithTimeout(capability, DefaultLegTimeout)
}

// NewDisambiguatorWithTimeout creates a disambiguator with a custom timeout.
func NewDisambiguatorWithTimeout(capability service.MapsCapability, timeout time.Duration) *Disambiguator {
	if timeout <= 0 {
		timeout = DefaultLegTimeout
	}
	return &Disambiguator{capability: capability, timeout: timeout}
}

// NearestBranch locates the most plausible branch of brandName near
// deliveryAddress. Returns an error wrapping common.ErrNotFound when searches
// ran but nothing matched, and a plain error when no reference point could be
// established or the capability is unavailable.
func (d *Disambiguator) NearestBranch(ctx context.Context, brandName, deliveryAddress string) (*model.BranchMatch, error) {
	if d.capability == nil {
		return nil, common.ErrCapabilityUnavailable
	}

	// No branch search is possible without a reference point.
	ref, err := d.geocodeReference(ctx, deliveryAddress)
	if err != nil {
		return nil, fmt.Errorf("could not geocode delivery address %q: %v", deliveryAddress, err)
	}

	candidates, path := d.search(ctx, brandName, deliveryAddress, ref)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no locations found for any variation of %q near %q",
			common.ErrNotFound, brandName, deliveryAddress)
	}

	best := d.selectClosest(brandName, candidates, ref)
	if best == nil {
		return nil, fmt.Errorf("%w: no location matching %q near %q survived name filtering",
			common.ErrNotFound, brandName, deliveryAddress)
	}

	address := d.lookupAddress(ctx, best)

	return &model.BranchMatch{
		BrandName:         brandName,
		FoundName:         best.Name,
		Address:           address,
		PlaceID:           best.PlaceID,
		Path:              path,
		Lat:               best.Lat,
		Lng:               best.Lng,
		StraightLineMiles: best.StraightLineMiles,
	}, nil
}

func (d *Disambiguator) geocodeReference(ctx context.Context, address string) (service.LatLng, error) {
	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	results, err := d.capability.Geocode(callCtx, address)
	if err != nil {
		return service.LatLng{}, err
	}
	if len(results) == 0 {
		return service.LatLng{}, fmt.Errorf("no geocoding results")
	}
	return results[0].Location, nil
}

// search tries each name variation against expanding radii, falling back to a
// free-text search per variation. It stops at the first non-empty candidate
// set; once candidates exist there is nothing to gain from wider searches.
func (d *Disambiguator) search(ctx context.Context, brandName, deliveryAddress string, ref service.LatLng) ([]service.PlaceCandidate, model.ResolutionPath) {
	for _, variation := range nameVariations(brandName) {
		for _, radius := range searchRadii {
			found, err := d.nearby(ctx, ref, radius, variation)
			if err != nil {
				slog.Warn("Nearby search failed",
					"keyword", variation,
					"radius_meters", radius,
					"error", err)
				continue
			}
			if len(found) > 0 {
				slog.Debug("Nearby search matched",
					"keyword", variation,
					"radius_meters", radius,
					"candidates", len(found))
				return found, model.PathBranchSearch
			}
		}

		query := variation + " near " + deliveryAddress
		found, err := d.textSearch(ctx, query)
		if err != nil {
			slog.Warn("Text search failed", "query", query, "error", err)
			continue
		}
		if len(found) > 0 {
			slog.Debug("Text search matched", "query", query, "candidates", len(found))
			return found, model.PathTextSearch
		}
	}

	return nil, model.PathNone
}

func (d *Disambiguator) nearby(ctx context.Context, ref service.LatLng, radius uint, keyword string) ([]service.PlaceCandidate, error) {
	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return d.capability.NearbySearch(callCtx, ref, radius, keyword)
}

func (d *Disambiguator) textSearch(ctx context.Context, query string) ([]service.PlaceCandidate, error) {
	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return d.capability.TextSearch(callCtx, query)
}

// selectClosest filters candidates by name similarity and picks the one with
// the smallest straight-line distance to the reference point. Ties keep the
// first-encountered candidate.
func (d *Disambiguator) selectClosest(brandName string, candidates []service.PlaceCandidate, ref service.LatLng) *model.BranchCandidate {
	var best *model.BranchCandidate

	for _, c := range candidates {
		score := Similarity(brandName, c.Name)
		if score < minNameSimilarity {
			slog.Debug("Skipping dissimilar candidate",
				"candidate", c.Name,
				"brand", brandName,
				"score", score)
			continue
		}

		distance := geo.Miles(ref.Lat, ref.Lng, c.Location.Lat, c.Location.Lng)
		if best == nil || distance < best.StraightLineMiles {
			best = &model.BranchCandidate{
				PlaceID:           c.PlaceID,
				Name:              c.Name,
				Vicinity:          c.Vicinity,
				Lat:               c.Location.Lat,
				Lng:               c.Location.Lng,
				StraightLineMiles: distance,
			}
		}
	}

	return best
}

// lookupAddress fetches the selected candidate's formatted address, falling
// back to the search vicinity when place details are unavailable.
func (d *Disambiguator) lookupAddress(ctx context.Context, candidate *model.BranchCandidate) string {
	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	info, err := d.capability.PlaceDetails(callCtx, candidate.PlaceID)
	if err != nil || info.FormattedAddress == "" {
		if err != nil {
			slog.Warn("Place details lookup failed", "place_id", candidate.PlaceID, "error", err)
		}
		if candidate.Vicinity != "" {
			return candidate.Vicinity
		}
		return "Unknown address"
	}
	return info.FormattedAddress
}
