package maps

import (
	"context"
	"sync"

	"github.com/tracekit/carbontrace/internal/service"
)

// Mock is a deterministic in-memory implementation of service.MapsCapability
// for tests. Responses are scripted per query; every call is recorded so tests
// can assert which capability operations fired.
type Mock struct {
	GeocodeResults map[string][]service.GeocodeResult
	GeocodeErrs    map[string]error
	Routes         map[string]*service.RouteEstimate
	RouteErrs      map[string]error
	NearbyResults  map[string][]service.PlaceCandidate
	NearbyErrs     map[string]error
	TextResults    map[string][]service.PlaceCandidate
	Details        map[string]*service.PlaceInfo
	DetailErrs     map[string]error

	calls []string
	mu    sync.Mutex
}

// NewMock creates an empty mock; all lookups miss until scripted.
func NewMock() *Mock {
	return &Mock{
		GeocodeResults: make(map[string][]service.GeocodeResult),
		GeocodeErrs:    make(map[string]error),
		Routes:         make(map[string]*service.RouteEstimate),
		RouteErrs:      make(map[string]error),
		NearbyResults:  make(map[string][]service.PlaceCandidate),
		NearbyErrs:     make(map[string]error),
		TextResults:    make(map[string][]service.PlaceCandidate),
		Details:        make(map[string]*service.PlaceInfo),
		DetailErrs:     make(map[string]error),
	}
}

// RouteKey builds the scripting key for DistanceBetween responses.
func RouteKey(origin, destination string) string {
	return origin + " -> " + destination
}

func (m *Mock) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

// Geocode returns the scripted matches for the query, or an empty slice.
func (m *Mock) Geocode(_ context.Context, query string) ([]service.GeocodeResult, error) {
	m.record("geocode:" + query)
	if err := m.GeocodeErrs[query]; err != nil {
		return nil, err
	}
	return m.GeocodeResults[query], nil
}

// DistanceBetween returns the scripted estimate, or a NOT_FOUND element.
func (m *Mock) DistanceBetween(_ context.Context, origin, destination string) (*service.RouteEstimate, error) {
	key := RouteKey(origin, destination)
	m.record("route:" + key)
	if err := m.RouteErrs[key]; err != nil {
		return nil, err
	}
	if est, ok := m.Routes[key]; ok {
		return est, nil
	}
	return &service.RouteEstimate{Status: "NOT_FOUND"}, nil
}

// NearbySearch returns the scripted candidates for the keyword.
func (m *Mock) NearbySearch(_ context.Context, _ service.LatLng, _ uint, keyword string) ([]service.PlaceCandidate, error) {
	m.record("nearby:" + keyword)
	if err := m.NearbyErrs[keyword]; err != nil {
		return nil, err
	}
	return m.NearbyResults[keyword], nil
}

// TextSearch returns the scripted candidates for the query.
func (m *Mock) TextSearch(_ context.Context, query string) ([]service.PlaceCandidate, error) {
	m.record("text:" + query)
	return m.TextResults[query], nil
}

// PlaceDetails returns the scripted detail for the place ID.
func (m *Mock) PlaceDetails(_ context.Context, placeID string) (*service.PlaceInfo, error) {
	m.record("details:" + placeID)
	if err := m.DetailErrs[placeID]; err != nil {
		return nil, err
	}
	if info, ok := m.Details[placeID]; ok {
		return info, nil
	}
	return &service.PlaceInfo{}, nil
}

// Calls returns a copy of all recorded calls in order.
func (m *Mock) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([]string, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// CallCount returns the number of capability calls made.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Reset clears all recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}
