package model

// LegStatus classifies the outcome of resolving one leg.
type LegStatus string

// Leg status taxonomy. NOT_FOUND means the capability ran but produced no
// matching result; ERROR covers unavailable configuration and transport
// failures; UNRESOLVABLE_INPUT is a normalization-time failure that never
// reaches distance resolution.
const (
	StatusOK           LegStatus = "OK"
	StatusNotFound     LegStatus = "NOT_FOUND"
	StatusError        LegStatus = "ERROR"
	StatusUnresolvable LegStatus = "UNRESOLVABLE_INPUT"
)

// ResolutionPath records which resolution strategy produced a distance, making
// fallback transitions observable instead of silent.
type ResolutionPath string

// Resolution paths.
const (
	PathDirect           ResolutionPath = "direct"
	PathDriving          ResolutionPath = "driving"
	PathGreatCircle      ResolutionPath = "great_circle"
	PathDurationEstimate ResolutionPath = "duration_estimate"
	PathBranchSearch     ResolutionPath = "branch_search"
	PathTextSearch       ResolutionPath = "text_search"
	PathNone             ResolutionPath = "none"
)

// PlaceDetail describes one resolved endpoint.
type PlaceDetail struct {
	FormattedAddress string  `json:"formatted_address"`
	Code             string  `json:"code,omitempty"`
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
}

// ResolvedLeg is the result of resolving one ActivityRecord or one flight
// segment to a distance. A leg that is not OK always carries zero distance.
type ResolvedLeg struct {
	Status        LegStatus      `json:"status"`
	Error         string         `json:"error,omitempty"`
	Path          ResolutionPath `json:"resolution_path"`
	Duration      string         `json:"duration,omitempty"`
	Origin        *PlaceDetail   `json:"origin,omitempty"`
	Destination   *PlaceDetail   `json:"destination,omitempty"`
	DistanceMiles float64        `json:"distance_miles"`
}

// FailedLeg builds a zero-distance leg with the given status and message.
func FailedLeg(status LegStatus, msg string) ResolvedLeg {
	return ResolvedLeg{
		Status: status,
		Error:  msg,
		Path:   PathNone,
	}
}

// BranchCandidate is one physical location considered during branch
// disambiguation. Ephemeral; produced and consumed within a single call.
type BranchCandidate struct {
	PlaceID           string
	Name              string
	Vicinity          string
	Lat               float64
	Lng               float64
	StraightLineMiles float64
}

// BranchMatch is the selected branch for a brand name near a delivery address.
type BranchMatch struct {
	BrandName         string         `json:"brand_name"`
	FoundName         string         `json:"found_name"`
	Address           string         `json:"address"`
	PlaceID           string         `json:"place_id"`
	Path              ResolutionPath `json:"resolution_path"`
	Lat               float64        `json:"lat"`
	Lng               float64        `json:"lng"`
	StraightLineMiles float64        `json:"straight_line_miles"`
}
