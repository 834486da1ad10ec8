package model

import (
	"encoding/json"
	"time"
)

// EntryDetail is the per-input-record line of the detailed output. Every input
// record produces exactly one entry, including records that failed to resolve.
type EntryDetail struct {
	Status          LegStatus      `json:"status"`
	Error           string         `json:"error,omitempty"`
	Path            ResolutionPath `json:"resolution_path"`
	Duration        string         `json:"duration,omitempty"`
	Origin          string         `json:"origin,omitempty"`
	Destination     string         `json:"destination,omitempty"`
	Branch          *BranchMatch   `json:"branch,omitempty"`
	Segments        []ResolvedLeg  `json:"segments,omitempty"`
	DistanceMiles   float64        `json:"distance_miles"`
	EmissionsKg     float64        `json:"emissions_kg"`
	DurationMinutes int            `json:"time_minutes,omitempty"`
	SegmentCount    int            `json:"segment_count,omitempty"`
}

// CategoryTotal aggregates one category. Entries preserve input order.
type CategoryTotal struct {
	Entries       []EntryDetail `json:"entries"`
	DistanceMiles float64       `json:"distance_miles"`
	EmissionsKg   float64       `json:"emissions_kg"`
}

// EmissionsResult is the outcome of one calculation call. It is constructed
// fresh per call and never mutated after return.
type EmissionsResult struct {
	PerCategory        map[Category]CategoryTotal `json:"per_category"`
	TotalEmissionsKg   float64                    `json:"total_emissions_kg"`
	TreesEquivalent    int                        `json:"trees_equivalent"`
	ReferenceFlightPct float64                    `json:"reference_flight_percentage"`
}

// Calculation is one row of the append-only calculation history.
type Calculation struct {
	CreatedAt time.Time       `json:"timestamp"`
	Inputs    json.RawMessage `json:"inputs"`
	Results   json.RawMessage `json:"results"`
	ID        int64           `json:"id"`
}
