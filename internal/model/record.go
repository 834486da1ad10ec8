package model

// RecordKind tags the variant of an ActivityRecord.
type RecordKind int

// ActivityRecord variants, in classification-precedence order.
const (
	// KindDirectDistance carries a distance supplied directly in the input.
	KindDirectDistance RecordKind = iota
	// KindAddressPair carries two already-resolvable address strings.
	KindAddressPair
	// KindNamedPlacePair carries a brand name requiring branch disambiguation.
	KindNamedPlacePair
	// KindFlightSegments carries an ordered flight itinerary.
	KindFlightSegments
	// KindDurationOnly carries only a trip duration; rides may estimate
	// distance from it at an assumed average speed.
	KindDurationOnly
	// KindUnresolvable marks a record whose shape matched no known pattern.
	KindUnresolvable
)

func (k RecordKind) String() string {
	switch k {
	case KindDirectDistance:
		return "direct_distance"
	case KindAddressPair:
		return "address_pair"
	case KindNamedPlacePair:
		return "named_place_pair"
	case KindFlightSegments:
		return "flight_segments"
	case KindDurationOnly:
		return "duration_only"
	case KindUnresolvable:
		return "unresolvable"
	default:
		return "unknown"
	}
}

// FlightSegment is one origin→destination hop of an itinerary.
type FlightSegment struct {
	OriginCode      string `json:"origin"`
	DestinationCode string `json:"destination"`
}

// ActivityRecord is the canonical per-category record every input shape is
// normalized into. Exactly one variant's fields are meaningful, selected by Kind.
type ActivityRecord struct {
	Origin          string
	Destination     string
	BrandName       string
	DeliveryAddress string
	InputError      string
	Segments        []FlightSegment
	Category        Category
	DistanceMiles   float64
	DurationMinutes int
	Kind            RecordKind
}

// Record is one extraction-pipeline record mined from an email receipt. Its
// free-text Type field is matched against known vendors during bucketing;
// unknown types are dropped as extraction noise.
type Record struct {
	Type            string  `json:"type"`
	Time            string  `json:"time,omitempty"`
	Restaurant      string  `json:"restaurant,omitempty"`
	DeliveryAddress string  `json:"delivery_address,omitempty"`
	AirportA        string  `json:"airport_a,omitempty"`
	AirportB        string  `json:"airport_b,omitempty"`
	Distance        float64 `json:"distance,omitempty"`
}
