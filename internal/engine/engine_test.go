package engine

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracekit/carbontrace/internal/common"
	"github.com/tracekit/carbontrace/internal/maps"
	"github.com/tracekit/carbontrace/internal/model"
	"github.com/tracekit/carbontrace/internal/resolve"
	"github.com/tracekit/carbontrace/internal/service"
)

const testDeliveryAddr = "1000 SW Broadway, Portland, OR"

func newTestEngine(m *maps.Mock) *Engine {
	return New(resolve.NewLocator(m), resolve.NewDisambiguator(m))
}

func scriptAirports(m *maps.Mock) {
	m.GeocodeResults["JFK airport"] = []service.GeocodeResult{
		{FormattedAddress: "John F. Kennedy International Airport", Location: service.LatLng{Lat: 40.6413, Lng: -73.7781}},
	}
	m.GeocodeResults["LAX airport"] = []service.GeocodeResult{
		{FormattedAddress: "Los Angeles International Airport", Location: service.LatLng{Lat: 33.9416, Lng: -118.4085}},
	}
}

func TestCalculateDirectDistanceSkipsCapability(t *testing.T) {
	m := maps.NewMock()
	e := newTestEngine(m)

	result, err := e.Calculate(context.Background(), map[model.Category][]map[string]any{
		model.CategoryUberRides: {{"distance": 12.5}},
	})
	require.NoError(t, err)

	total := result.PerCategory[model.CategoryUberRides]
	require.Len(t, total.Entries, 1)
	assert.Equal(t, model.StatusOK, total.Entries[0].Status)
	assert.Equal(t, model.PathDirect, total.Entries[0].Path)
	assert.InDelta(t, 5.0, total.EmissionsKg, 1e-9)
	assert.Zero(t, m.CallCount(), "direct distances must not call the maps capability")
}

func TestCalculateAddressPairDriving(t *testing.T) {
	m := maps.NewMock()
	m.Routes[maps.RouteKey("100 Main St", "200 Oak Ave")] = &service.RouteEstimate{
		Status:         "OK",
		DistanceMeters: 16093,
		Duration:       22 * time.Minute,
	}
	e := newTestEngine(m)

	result, err := e.Calculate(context.Background(), map[model.Category][]map[string]any{
		model.CategoryLyft: {{"origin": "100 Main St", "destination": "200 Oak Ave"}},
	})
	require.NoError(t, err)

	entry := result.PerCategory[model.CategoryLyft].Entries[0]
	assert.Equal(t, model.StatusOK, entry.Status)
	assert.Equal(t, model.PathDriving, entry.Path)
	assert.InDelta(t, 10.0, entry.DistanceMiles, 0.01)
	assert.Equal(t, "100 Main St", entry.Origin)
	assert.Equal(t, "22 mins", entry.Duration)
	assert.InDelta(t, 4.0, result.PerCategory[model.CategoryLyft].EmissionsKg, 0.01)
}

func TestCalculateRideFallsBackToDurationEstimate(t *testing.T) {
	// No route scripted, so resolution fails. The ride still has a duration
	// and should be estimated at the assumed average speed.
	e := newTestEngine(maps.NewMock())

	result, err := e.Calculate(context.Background(), map[model.Category][]map[string]any{
		model.CategoryUberRides: {{
			"origin":      "somewhere",
			"destination": "elsewhere",
			"time":        "1 hour",
		}},
	})
	require.NoError(t, err)

	entry := result.PerCategory[model.CategoryUberRides].Entries[0]
	assert.Equal(t, model.StatusOK, entry.Status)
	assert.Equal(t, model.PathDurationEstimate, entry.Path)
	assert.InDelta(t, 30.0, entry.DistanceMiles, 1e-9)
	assert.Contains(t, entry.Error, "estimated from duration")
}

func TestCalculateRideDurationOnly(t *testing.T) {
	e := newTestEngine(maps.NewMock())

	result, err := e.Calculate(context.Background(), map[model.Category][]map[string]any{
		model.CategoryLyft: {{"time": "40 minutes"}},
	})
	require.NoError(t, err)

	entry := result.PerCategory[model.CategoryLyft].Entries[0]
	assert.Equal(t, model.StatusOK, entry.Status)
	assert.Equal(t, model.PathDurationEstimate, entry.Path)
	assert.InDelta(t, 20.0, entry.DistanceMiles, 1e-9)
	assert.Empty(t, entry.Error)
}

func TestCalculateDeliveryFallbackStaysZeroWithoutBranch(t *testing.T) {
	// Deliveries never estimate from duration. A failed branch lookup leaves
	// the entry in the output with zero distance.
	e := newTestEngine(maps.NewMock())

	result, err := e.Calculate(context.Background(), map[model.Category][]map[string]any{
		model.CategoryUberEats: {{
			"restaurant":       "Nonexistent Diner",
			"delivery_address": "unmappable address",
			"time":             "30 minutes",
		}},
	})
	require.NoError(t, err)

	total := result.PerCategory[model.CategoryUberEats]
	require.Len(t, total.Entries, 1)
	assert.Equal(t, model.StatusError, total.Entries[0].Status)
	assert.Zero(t, total.Entries[0].DistanceMiles)
	assert.Zero(t, total.EmissionsKg)
}

func TestCalculateDeliveryBranchFlow(t *testing.T) {
	m := maps.NewMock()
	m.GeocodeResults[testDeliveryAddr] = []service.GeocodeResult{
		{FormattedAddress: testDeliveryAddr, Location: service.LatLng{Lat: 45.5152, Lng: -122.6784}},
	}
	m.NearbyResults["Subway"] = []service.PlaceCandidate{
		{PlaceID: "p1", Name: "Subway", Vicinity: "downtown", Location: service.LatLng{Lat: 45.517, Lng: -122.679}},
	}
	m.Details["p1"] = &service.PlaceInfo{FormattedAddress: "800 SW 6th Ave, Portland, OR"}
	m.Routes[maps.RouteKey("800 SW 6th Ave, Portland, OR", testDeliveryAddr)] = &service.RouteEstimate{
		Status:         "OK",
		DistanceMeters: 3219,
		Duration:       9 * time.Minute,
	}
	e := newTestEngine(m)

	result, err := e.Calculate(context.Background(), map[model.Category][]map[string]any{
		model.CategoryDoordash: {{
			"restaurant":       "Subway",
			"delivery_address": testDeliveryAddr,
		}},
	})
	require.NoError(t, err)

	entry := result.PerCategory[model.CategoryDoordash].Entries[0]
	require.Equal(t, model.StatusOK, entry.Status)
	require.NotNil(t, entry.Branch)
	assert.Equal(t, "800 SW 6th Ave, Portland, OR", entry.Branch.Address)
	assert.Equal(t, "Subway", entry.Branch.BrandName)
	assert.InDelta(t, 2.0, entry.DistanceMiles, 0.01)
	assert.Equal(t, model.PathDriving, entry.Path)
}

func TestCalculateDeliveryBranchNotFound(t *testing.T) {
	m := maps.NewMock()
	m.GeocodeResults[testDeliveryAddr] = []service.GeocodeResult{
		{FormattedAddress: testDeliveryAddr, Location: service.LatLng{Lat: 45.5152, Lng: -122.6784}},
	}
	e := newTestEngine(m)

	result, err := e.Calculate(context.Background(), map[model.Category][]map[string]any{
		model.CategoryDoordash: {{
			"restaurant":       "Ghost Kitchen",
			"delivery_address": testDeliveryAddr,
		}},
	})
	require.NoError(t, err)

	entry := result.PerCategory[model.CategoryDoordash].Entries[0]
	assert.Equal(t, model.StatusNotFound, entry.Status)
	assert.Zero(t, entry.DistanceMiles)
	assert.Nil(t, entry.Branch)
	assert.NotEmpty(t, entry.Error)
}

func TestCalculateFlightItinerary(t *testing.T) {
	m := maps.NewMock()
	scriptAirports(m)
	e := newTestEngine(m)

	result, err := e.Calculate(context.Background(), map[model.Category][]map[string]any{
		model.CategoryFlights: {{
			"segments": []any{
				map[string]any{"origin": "JFK", "destination": "LAX"},
				map[string]any{"origin": "LAX", "destination": "JFK"},
			},
		}},
	})
	require.NoError(t, err)

	entry := result.PerCategory[model.CategoryFlights].Entries[0]
	require.Equal(t, model.StatusOK, entry.Status)
	assert.Equal(t, 2, entry.SegmentCount)
	require.Len(t, entry.Segments, 2)
	assert.InDelta(t, 4938, entry.DistanceMiles, 20)
	assert.InDelta(t, entry.DistanceMiles*0.25,
		result.PerCategory[model.CategoryFlights].EmissionsKg, 1e-9)
}

func TestCalculatePartialFlightKeepsResolvedDistance(t *testing.T) {
	m := maps.NewMock()
	scriptAirports(m)
	e := newTestEngine(m)

	result, err := e.Calculate(context.Background(), map[model.Category][]map[string]any{
		model.CategoryFlights: {{
			"segments": []any{
				map[string]any{"origin": "JFK", "destination": "LAX"},
				map[string]any{"origin": "LAX", "destination": "ZZZ"},
			},
		}},
	})
	require.NoError(t, err)

	entry := result.PerCategory[model.CategoryFlights].Entries[0]
	assert.Equal(t, model.StatusOK, entry.Status)
	assert.Equal(t, 2, entry.SegmentCount)
	assert.InDelta(t, 2469, entry.DistanceMiles, 10)
	assert.Contains(t, entry.Error, "LAX-ZZZ")
	assert.Equal(t, model.StatusNotFound, entry.Segments[1].Status)
}

func TestCalculateFlightAllSegmentsFail(t *testing.T) {
	e := newTestEngine(maps.NewMock())

	result, err := e.Calculate(context.Background(), map[model.Category][]map[string]any{
		model.CategoryFlights: {{"airport_a": "AAA", "airport_b": "BBB"}},
	})
	require.NoError(t, err)

	entry := result.PerCategory[model.CategoryFlights].Entries[0]
	assert.Equal(t, model.StatusNotFound, entry.Status)
	assert.Zero(t, entry.DistanceMiles)
	assert.Zero(t, result.PerCategory[model.CategoryFlights].EmissionsKg)
}

func TestCalculateUnresolvableEntryAppearsExactlyOnce(t *testing.T) {
	e := newTestEngine(maps.NewMock())

	result, err := e.Calculate(context.Background(), map[model.Category][]map[string]any{
		model.CategoryUberRides: {{"distance": 10.0}, {}},
	})
	require.NoError(t, err)

	total := result.PerCategory[model.CategoryUberRides]
	require.Len(t, total.Entries, 2)
	assert.Equal(t, model.StatusOK, total.Entries[0].Status)
	assert.Equal(t, model.StatusUnresolvable, total.Entries[1].Status)
	assert.Equal(t, "no distance or address information provided", total.Entries[1].Error)
	assert.InDelta(t, 10.0, total.DistanceMiles, 1e-9)
}

func TestCalculateCategoryEmissionsFromSummedDistance(t *testing.T) {
	e := newTestEngine(maps.NewMock())

	result, err := e.Calculate(context.Background(), map[model.Category][]map[string]any{
		model.CategoryUberEats: {{"distance": 1.1}, {"distance": 2.2}},
	})
	require.NoError(t, err)

	total := result.PerCategory[model.CategoryUberEats]
	assert.InDelta(t, (1.1+2.2)*0.4, total.EmissionsKg, 1e-12)
}

func TestCalculateEndToEnd(t *testing.T) {
	e := newTestEngine(maps.NewMock())

	input := map[model.Category][]map[string]any{
		model.CategoryUberRides: {{"distance": 5.2}},
		model.CategoryLyft:      {{"distance": 10.0}},
		model.CategoryDoordash:  {{"distance": 2.24}},
		model.CategoryFlights:   {{"distance": 2500.0}},
	}

	result, err := e.Calculate(context.Background(), input)
	require.NoError(t, err)

	groundKg := result.PerCategory[model.CategoryUberRides].EmissionsKg +
		result.PerCategory[model.CategoryLyft].EmissionsKg +
		result.PerCategory[model.CategoryDoordash].EmissionsKg
	assert.InDelta(t, 6.976, groundKg, 1e-9)
	assert.InDelta(t, 625.0, result.PerCategory[model.CategoryFlights].EmissionsKg, 1e-9)
	assert.InDelta(t, 631.976, result.TotalEmissionsKg, 1e-9)
	assert.Equal(t, 29, result.TreesEquivalent)
	assert.InDelta(t, 72.2258, result.ReferenceFlightPct, 1e-3)
}

func TestCalculateIsIdempotent(t *testing.T) {
	m := maps.NewMock()
	m.Routes[maps.RouteKey("A", "B")] = &service.RouteEstimate{Status: "OK", DistanceMeters: 8047}
	e := newTestEngine(m)

	input := map[model.Category][]map[string]any{
		model.CategoryUberRides: {{"origin": "A", "destination": "B"}, {"distance": 3.0}},
	}

	first, err := e.Calculate(context.Background(), input)
	require.NoError(t, err)
	second, err := e.Calculate(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCalculateUnknownCategory(t *testing.T) {
	e := newTestEngine(maps.NewMock())

	_, err := e.Calculate(context.Background(), map[model.Category][]map[string]any{
		model.Category("scooters"): {{"distance": 1.0}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrMalformedInput)
}

func TestCalculateRawObjectShape(t *testing.T) {
	e := newTestEngine(maps.NewMock())

	payload := json.RawMessage(`{"uber_rides": [{"distance": 4.0}]}`)
	result, err := e.CalculateRaw(context.Background(), payload)
	require.NoError(t, err)
	assert.InDelta(t, 1.6, result.TotalEmissionsKg, 1e-9)
}

func TestCalculateRawExtractionArrayShape(t *testing.T) {
	e := newTestEngine(maps.NewMock())

	payload := json.RawMessage(`[
		{"type": "Uber Ride", "distance": 4.0},
		{"type": "Lyft Ride", "time": "30 minutes"},
		{"type": "Mystery Vendor"}
	]`)
	result, err := e.CalculateRaw(context.Background(), payload)
	require.NoError(t, err)

	assert.Len(t, result.PerCategory[model.CategoryUberRides].Entries, 1)
	assert.Len(t, result.PerCategory[model.CategoryLyft].Entries, 1)
	assert.InDelta(t, 15.0, result.PerCategory[model.CategoryLyft].DistanceMiles, 1e-9)
	assert.NotContains(t, result.PerCategory, model.CategoryUberEats)
}

func TestCalculateRawSkipsUnknownCategoryKeys(t *testing.T) {
	e := newTestEngine(maps.NewMock())

	payload := json.RawMessage(`{"uber_rides": [{"distance": 10.0}], "scooters": [{"distance": 5.0}]}`)
	result, err := e.CalculateRaw(context.Background(), payload)
	require.NoError(t, err)

	assert.InDelta(t, 4.0, result.TotalEmissionsKg, 1e-9)
	assert.Contains(t, result.PerCategory, model.CategoryUberRides)
	assert.NotContains(t, result.PerCategory, model.Category("scooters"))
}

func TestCalculateRawOnlyUnknownKeys(t *testing.T) {
	e := newTestEngine(maps.NewMock())

	result, err := e.CalculateRaw(context.Background(), json.RawMessage(`{"scooters": []}`))
	require.NoError(t, err)
	assert.Zero(t, result.TotalEmissionsKg)
	assert.Empty(t, result.PerCategory)
}

func TestCalculateRawMalformed(t *testing.T) {
	e := newTestEngine(maps.NewMock())

	for _, payload := range []string{"", "not json", `{"uber_rides": 5}`} {
		_, err := e.CalculateRaw(context.Background(), json.RawMessage(payload))
		assert.ErrorIs(t, err, common.ErrMalformedInput, "payload %q", payload)
	}
}
