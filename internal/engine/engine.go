// Package engine implements the core emissions calculation engine. It fans
// activity records out to distance resolution, then reduces resolved distances
// into per-category and overall emissions totals.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tracekit/carbontrace/internal/common"
	"github.com/tracekit/carbontrace/internal/model"
	"github.com/tracekit/carbontrace/internal/normalize"
)

// averageRideSpeedMph is the assumed speed when a ride's distance must be
// estimated from its duration alone.
const averageRideSpeedMph = 30.0

// Engine orchestrates distance resolution and emissions aggregation.
type Engine struct {
	resolver    LegResolver
	branches    BranchFinder
	concurrency int
}

// Config holds configuration options for the emissions engine.
type Config struct {
	// Concurrency bounds the number of records resolved in parallel.
	Concurrency int
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{Concurrency: 8}
}

// New creates an engine with the default configuration.
func New(resolver LegResolver, branches BranchFinder) *Engine {
	return NewWithConfig(resolver, branches, DefaultConfig())
}

// NewWithConfig creates an engine with custom configuration.
func NewWithConfig(resolver LegResolver, branches BranchFinder, config Config) *Engine {
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultConfig().Concurrency
	}
	return &Engine{
		resolver:    resolver,
		branches:    branches,
		concurrency: config.Concurrency,
	}
}

// CalculateRaw decodes a JSON payload and runs the calculation. Accepts either
// the canonical per-category object shape or a flat array of extraction
// records mined from receipts. Unrecognized category keys are skipped, not
// fatal; only payloads that fail to decode as one of the two container shapes
// are malformed.
func (e *Engine) CalculateRaw(ctx context.Context, payload json.RawMessage) (*model.EmissionsResult, error) {
	trimmed := strings.TrimSpace(string(payload))
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty payload", common.ErrMalformedInput)
	}

	if strings.HasPrefix(trimmed, "[") {
		var records []model.Record
		if err := json.Unmarshal(payload, &records); err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrMalformedInput, err)
		}
		return e.Calculate(ctx, normalize.Bucket(records))
	}

	var byCategory map[string][]map[string]any
	if err := json.Unmarshal(payload, &byCategory); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedInput, err)
	}

	input := make(map[model.Category][]map[string]any, len(byCategory))
	for key, entries := range byCategory {
		category := model.Category(key)
		if !category.Valid() {
			slog.Debug("Skipping unrecognized category key", "category", key)
			continue
		}
		input[category] = entries
	}
	return e.Calculate(ctx, input)
}

// Calculate resolves every record's distance and aggregates emissions. Records
// are resolved concurrently but results preserve input order, and every input
// record produces exactly one entry in the detailed output. Per-record
// resolution failures never fail the batch; they surface as failed entries
// contributing zero distance.
func (e *Engine) Calculate(ctx context.Context, input map[model.Category][]map[string]any) (*model.EmissionsResult, error) {
	entries := make(map[model.Category][]model.EntryDetail, len(input))
	for category, categoryEntries := range input {
		if !category.Valid() {
			return nil, fmt.Errorf("%w: unknown category %q", common.ErrMalformedInput, category)
		}
		entries[category] = make([]model.EntryDetail, len(categoryEntries))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for category, categoryEntries := range input {
		category := category
		for i, entry := range categoryEntries {
			i, entry := i, entry
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				record := normalize.Record(category, entry)
				entries[category][i] = e.resolveRecord(gctx, record)
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return e.aggregate(entries), nil
}

// resolveRecord turns one canonical record into a detailed entry. Direct
// distances never touch the maps capability.
func (e *Engine) resolveRecord(ctx context.Context, record model.ActivityRecord) model.EntryDetail {
	switch record.Kind {
	case model.KindDirectDistance:
		return model.EntryDetail{
			Status:          model.StatusOK,
			Path:            model.PathDirect,
			DistanceMiles:   record.DistanceMiles,
			EmissionsKg:     record.DistanceMiles * record.Category.EmissionFactor(),
			DurationMinutes: record.DurationMinutes,
		}

	case model.KindAddressPair:
		return e.resolveAddressPair(ctx, record)

	case model.KindNamedPlacePair:
		return e.resolveNamedPlace(ctx, record)

	case model.KindFlightSegments:
		return e.resolveFlight(ctx, record)

	case model.KindDurationOnly:
		return durationEstimate(record, "")

	default:
		return model.EntryDetail{
			Status: model.StatusUnresolvable,
			Path:   model.PathNone,
			Error:  record.InputError,
		}
	}
}

func (e *Engine) resolveAddressPair(ctx context.Context, record model.ActivityRecord) model.EntryDetail {
	leg := e.resolver.DrivingLeg(ctx, record.Origin, record.Destination)

	detail := model.EntryDetail{
		Status:          leg.Status,
		Error:           leg.Error,
		Path:            leg.Path,
		Duration:        leg.Duration,
		Origin:          record.Origin,
		Destination:     record.Destination,
		DurationMinutes: record.DurationMinutes,
	}

	if leg.Status == model.StatusOK {
		detail.DistanceMiles = leg.DistanceMiles
		detail.EmissionsKg = leg.DistanceMiles * record.Category.EmissionFactor()
		return detail
	}

	// Rides with a known duration degrade to a speed-based estimate instead
	// of contributing zero distance.
	if record.Category.IsRide() && record.DurationMinutes > 0 {
		slog.Debug("Falling back to duration estimate",
			"category", record.Category,
			"origin", record.Origin,
			"destination", record.Destination,
			"error", leg.Error)
		return durationEstimate(record, leg.Error)
	}

	return detail
}

func (e *Engine) resolveNamedPlace(ctx context.Context, record model.ActivityRecord) model.EntryDetail {
	detail := model.EntryDetail{
		Destination:     record.DeliveryAddress,
		DurationMinutes: record.DurationMinutes,
	}

	match, err := e.branches.NearestBranch(ctx, record.BrandName, record.DeliveryAddress)
	if err != nil {
		detail.Path = model.PathNone
		detail.Error = err.Error()
		if errors.Is(err, common.ErrNotFound) {
			detail.Status = model.StatusNotFound
		} else {
			detail.Status = model.StatusError
		}
		return detail
	}

	detail.Branch = match

	leg := e.resolver.DrivingLeg(ctx, match.Address, record.DeliveryAddress)
	detail.Status = leg.Status
	detail.Error = leg.Error
	detail.Path = leg.Path
	detail.Duration = leg.Duration
	if leg.Status == model.StatusOK {
		detail.DistanceMiles = leg.DistanceMiles
		detail.EmissionsKg = leg.DistanceMiles * record.Category.EmissionFactor()
	}
	return detail
}

// resolveFlight resolves each itinerary segment independently. Segments that
// fail contribute zero distance but never discard the distance of segments
// that resolved.
func (e *Engine) resolveFlight(ctx context.Context, record model.ActivityRecord) model.EntryDetail {
	detail := model.EntryDetail{
		Path:         model.PathGreatCircle,
		Segments:     make([]model.ResolvedLeg, 0, len(record.Segments)),
		SegmentCount: len(record.Segments),
	}

	var failures []string
	resolved := 0
	for _, segment := range record.Segments {
		leg := e.resolver.FlightLeg(ctx, segment.OriginCode, segment.DestinationCode)
		detail.Segments = append(detail.Segments, leg)
		if leg.Status == model.StatusOK {
			detail.DistanceMiles += leg.DistanceMiles
			resolved++
		} else {
			failures = append(failures, fmt.Sprintf("%s-%s: %s",
				segment.OriginCode, segment.DestinationCode, leg.Error))
		}
	}

	switch {
	case resolved == len(record.Segments):
		detail.Status = model.StatusOK
	case resolved > 0:
		// Partial itineraries stay OK so the resolved distance still counts.
		detail.Status = model.StatusOK
		detail.Error = "some segments failed: " + strings.Join(failures, "; ")
	default:
		detail.Status = worstSegmentStatus(detail.Segments)
		detail.Error = strings.Join(failures, "; ")
	}

	if detail.Status == model.StatusOK {
		detail.EmissionsKg = detail.DistanceMiles * record.Category.EmissionFactor()
	}
	return detail
}

func worstSegmentStatus(segments []model.ResolvedLeg) model.LegStatus {
	for _, s := range segments {
		if s.Status == model.StatusError {
			return model.StatusError
		}
	}
	return model.StatusNotFound
}

// durationEstimate converts a trip duration to distance at the assumed average
// ride speed. resolutionError preserves the failure that forced the fallback.
func durationEstimate(record model.ActivityRecord, resolutionError string) model.EntryDetail {
	miles := float64(record.DurationMinutes) / 60.0 * averageRideSpeedMph
	detail := model.EntryDetail{
		Status:          model.StatusOK,
		Path:            model.PathDurationEstimate,
		Origin:          record.Origin,
		Destination:     record.Destination,
		DistanceMiles:   miles,
		EmissionsKg:     miles * record.Category.EmissionFactor(),
		DurationMinutes: record.DurationMinutes,
	}
	if resolutionError != "" {
		detail.Error = "estimated from duration after resolution failed: " + resolutionError
	}
	return detail
}

// aggregate reduces per-entry details to category totals and the overall
// result. Category emissions are computed once from the summed distance so the
// total is exactly factor times total miles, not a sum of rounded parts.
func (e *Engine) aggregate(entries map[model.Category][]model.EntryDetail) *model.EmissionsResult {
	result := &model.EmissionsResult{
		PerCategory: make(map[model.Category]model.CategoryTotal, len(entries)),
	}

	for _, category := range model.Categories {
		details, ok := entries[category]
		if !ok {
			continue
		}

		total := model.CategoryTotal{Entries: details}
		for _, d := range details {
			total.DistanceMiles += d.DistanceMiles
		}
		total.EmissionsKg = total.DistanceMiles * category.EmissionFactor()

		result.PerCategory[category] = total
		result.TotalEmissionsKg += total.EmissionsKg
	}

	result.TreesEquivalent = int(math.Round(result.TotalEmissionsKg / model.TreeSequestrationKg))
	result.ReferenceFlightPct = result.TotalEmissionsKg /
		(model.ReferenceFlightMiles * model.FlightEmissionFactor) * 100

	slog.Info("Calculation complete",
		"categories", len(result.PerCategory),
		"total_emissions_kg", result.TotalEmissionsKg,
		"trees_equivalent", result.TreesEquivalent)

	return result
}
