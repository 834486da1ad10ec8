package resolve

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracekit/carbontrace/internal/common"
	"github.com/tracekit/carbontrace/internal/maps"
	"github.com/tracekit/carbontrace/internal/service"
)

const deliveryAddr = "1000 SW Broadway, Portland, OR"

func deliveryMock() *maps.Mock {
	m := maps.NewMock()
	m.GeocodeResults[deliveryAddr] = []service.GeocodeResult{
		{FormattedAddress: deliveryAddr, Location: service.LatLng{Lat: 45.5152, Lng: -122.6784}},
	}
	return m
}

func TestNearestBranchPicksClosest(t *testing.T) {
	m := deliveryMock()
	m.NearbyResults["Burgerville USA"] = []service.PlaceCandidate{
		{PlaceID: "far", Name: "Burgerville", Vicinity: "Vancouver, WA", Location: service.LatLng{Lat: 45.63, Lng: -122.67}},
		{PlaceID: "near", Name: "Burgerville", Vicinity: "SE Hawthorne, Portland", Location: service.LatLng{Lat: 45.512, Lng: -122.65}},
	}
	m.Details["near"] = &service.PlaceInfo{
		Name:             "Burgerville",
		FormattedAddress: "1122 SE Hawthorne Blvd, Portland, OR",
		Location:         service.LatLng{Lat: 45.512, Lng: -122.65},
	}

	d := NewDisambiguator(m)
	match, err := d.NearestBranch(context.Background(), "Burgerville USA", deliveryAddr)
	require.NoError(t, err)
	assert.Equal(t, "near", match.PlaceID)
	assert.Equal(t, "1122 SE Hawthorne Blvd, Portland, OR", match.Address)
	assert.Equal(t, "Burgerville USA", match.BrandName)
	assert.Equal(t, "Burgerville", match.FoundName)
	assert.Positive(t, match.StraightLineMiles)
	assert.Less(t, match.StraightLineMiles, 5.0)
}

func TestNearestBranchNoCandidates(t *testing.T) {
	d := NewDisambiguator(deliveryMock())

	match, err := d.NearestBranch(context.Background(), "Nonexistent Diner", deliveryAddr)
	require.Error(t, err)
	assert.Nil(t, match)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestNearestBranchGeocodeFailureIsFatal(t *testing.T) {
	m := maps.NewMock() // No geocode results scripted at all.
	m.NearbyResults["Subway"] = []service.PlaceCandidate{
		{PlaceID: "p1", Name: "Subway", Location: service.LatLng{Lat: 45.5, Lng: -122.6}},
	}

	d := NewDisambiguator(m)
	_, err := d.NearestBranch(context.Background(), "Subway", "unmappable address")
	require.Error(t, err)
	// A missing reference point is an ERROR, not a NOT_FOUND.
	assert.NotErrorIs(t, err, common.ErrNotFound)
}

func TestNearestBranchFiltersDissimilarNames(t *testing.T) {
	m := deliveryMock()
	m.NearbyResults["Subway"] = []service.PlaceCandidate{
		{PlaceID: "p1", Name: "Jimmy John's", Location: service.LatLng{Lat: 45.51, Lng: -122.66}},
	}

	d := NewDisambiguator(m)
	_, err := d.NearestBranch(context.Background(), "Subway", deliveryAddr)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestNearestBranchNameVariationFallback(t *testing.T) {
	m := deliveryMock()
	// Only the suffix-free variation matches anything.
	m.NearbyResults["Burgerville"] = []service.PlaceCandidate{
		{PlaceID: "p1", Name: "Burgerville", Vicinity: "Portland", Location: service.LatLng{Lat: 45.51, Lng: -122.66}},
	}
	m.Details["p1"] = &service.PlaceInfo{FormattedAddress: "25 SW Yamhill St, Portland, OR"}

	d := NewDisambiguator(m)
	match, err := d.NearestBranch(context.Background(), "Burgerville USA", deliveryAddr)
	require.NoError(t, err)
	assert.Equal(t, "p1", match.PlaceID)
}

func TestNearestBranchTextSearchFallback(t *testing.T) {
	m := deliveryMock()
	m.TextResults["Thai Peacock near "+deliveryAddr] = []service.PlaceCandidate{
		{PlaceID: "p9", Name: "Thai Peacock Restaurant", Vicinity: "SW Oak St", Location: service.LatLng{Lat: 45.52, Lng: -122.67}},
	}
	m.Details["p9"] = &service.PlaceInfo{FormattedAddress: "219 SW 9th Ave, Portland, OR"}

	d := NewDisambiguator(m)
	match, err := d.NearestBranch(context.Background(), "Thai Peacock", deliveryAddr)
	require.NoError(t, err)
	assert.Equal(t, "p9", match.PlaceID)
	assert.Equal(t, "text_search", string(match.Path))
}

func TestNearestBranchDetailsFallbackToVicinity(t *testing.T) {
	m := deliveryMock()
	m.NearbyResults["Subway"] = []service.PlaceCandidate{
		{PlaceID: "p1", Name: "Subway", Vicinity: "800 SW 6th Ave, Portland", Location: service.LatLng{Lat: 45.517, Lng: -122.679}},
	}
	m.DetailErrs["p1"] = errors.New("quota exceeded")

	d := NewDisambiguator(m)
	match, err := d.NearestBranch(context.Background(), "Subway", deliveryAddr)
	require.NoError(t, err)
	assert.Equal(t, "800 SW 6th Ave, Portland", match.Address)
}

func TestNearestBranchSearchErrorsAreNonFatal(t *testing.T) {
	m := deliveryMock()
	m.NearbyErrs["Subway"] = errors.New("transient failure")
	m.TextResults["Subway near "+deliveryAddr] = []service.PlaceCandidate{
		{PlaceID: "p2", Name: "Subway", Vicinity: "downtown", Location: service.LatLng{Lat: 45.516, Lng: -122.677}},
	}
	m.Details["p2"] = &service.PlaceInfo{FormattedAddress: "700 SW 5th Ave, Portland, OR"}

	d := NewDisambiguator(m)
	match, err := d.NearestBranch(context.Background(), "Subway", deliveryAddr)
	require.NoError(t, err)
	assert.Equal(t, "p2", match.PlaceID)
}
