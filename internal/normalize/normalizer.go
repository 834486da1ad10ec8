// Package normalize converts heterogeneous, loosely-typed input records into
// canonical ActivityRecords, and buckets extraction-pipeline records into
// per-category lists.
package normalize

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/tracekit/carbontrace/internal/model"
)

// Entry buckets mined extraction records by their free-text type field.
// Matching is case-insensitive; unknown types are dropped silently since
// extraction noise is expected, not an error.
var extractionTypes = map[string]model.Category{
	"uber ride":       model.CategoryUberRides,
	"uber":            model.CategoryUberRides,
	"lyft ride":       model.CategoryLyft,
	"lyft":            model.CategoryLyft,
	"uber eats":       model.CategoryUberEats,
	"uber eats order": model.CategoryUberEats,
	"door dash order": model.CategoryDoordash,
	"doordash":        model.CategoryDoordash,
	"doordash order":  model.CategoryDoordash,
	"flight":          model.CategoryFlights,
}

// Record classifies one loosely-typed entry into exactly one ActivityRecord
// variant. Precedence, first match wins: direct distance, category-specific
// endpoint pair, flight segments, legacy airport pair, then the terminal
// unresolvable marker. The unresolvable marker still flows through to the
// detailed output so callers can see what was skipped and why.
func Record(category model.Category, entry map[string]any) model.ActivityRecord {
	rec := model.ActivityRecord{Category: category}
	rec.DurationMinutes = DurationMinutes(entry["time"])

	if miles, ok := numberField(entry, "distance"); ok {
		rec.Kind = model.KindDirectDistance
		rec.DistanceMiles = miles
		return rec
	}

	switch {
	case category.IsFoodDelivery():
		brand, brandOK := firstString(entry, "restaurant", "ordered_from")
		address, addrOK := firstString(entry, "delivery_address", "address")
		if brandOK && addrOK {
			rec.Kind = model.KindNamedPlacePair
			rec.BrandName = brand
			rec.DeliveryAddress = address
			return rec
		}

	case category.IsRide():
		origin, originOK := firstString(entry, "origin", "pickup")
		destination, destOK := firstString(entry, "destination", "dropoff")
		if originOK && destOK {
			rec.Kind = model.KindAddressPair
			rec.Origin = origin
			rec.Destination = destination
			return rec
		}
		if rec.DurationMinutes > 0 {
			rec.Kind = model.KindDurationOnly
			return rec
		}

	case category == model.CategoryFlights:
		if segments, ok := flightSegments(entry); ok {
			rec.Kind = model.KindFlightSegments
			rec.Segments = segments
			return rec
		}
		a, aOK := firstString(entry, "airport_a")
		b, bOK := firstString(entry, "airport_b")
		if aOK && bOK {
			rec.Kind = model.KindFlightSegments
			rec.Segments = []model.FlightSegment{{OriginCode: a, DestinationCode: b}}
			return rec
		}
	}

	rec.Kind = model.KindUnresolvable
	rec.InputError = unresolvableMessage(category)
	return rec
}

func unresolvableMessage(category model.Category) string {
	if category == model.CategoryFlights {
		return "no distance or airport information provided"
	}
	return "no distance or address information provided"
}

// Bucket groups extraction-pipeline records into the canonical per-category
// shape. The output feeds straight into the calculation entry point or is
// returned as-is for callers that only want categorization.
func Bucket(records []model.Record) map[model.Category][]map[string]any {
	buckets := make(map[model.Category][]map[string]any)

	for _, r := range records {
		category, ok := extractionTypes[strings.ToLower(strings.TrimSpace(r.Type))]
		if !ok {
			slog.Debug("Dropping extraction record with unknown type", "type", r.Type)
			continue
		}

		entry := map[string]any{}
		if r.Distance > 0 {
			entry["distance"] = r.Distance
		}
		if r.Time != "" {
			entry["time"] = r.Time
		}
		if r.Restaurant != "" {
			entry["restaurant"] = r.Restaurant
		}
		if r.DeliveryAddress != "" {
			entry["delivery_address"] = r.DeliveryAddress
		}
		if r.AirportA != "" {
			entry["airport_a"] = r.AirportA
		}
		if r.AirportB != "" {
			entry["airport_b"] = r.AirportB
		}

		buckets[category] = append(buckets[category], entry)
	}

	return buckets
}

// DurationMinutes parses a trip duration into whole minutes. Accepts numbers,
// numeral strings, and phrases like "1 hour 20 minutes". Anything unparseable
// yields zero rather than failing the batch.
func DurationMinutes(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		return parseTimeString(t)
	default:
		return 0
	}
}

func parseTimeString(s string) int {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0
	}

	if n, err := strconv.Atoi(s); err == nil {
		return n
	}

	total := 0
	if idx := strings.Index(s, "hour"); idx >= 0 {
		if n, ok := lastNumberBefore(s[:idx]); ok {
			total += n * 60
		}
	}
	if idx := strings.Index(s, "minute"); idx >= 0 {
		if n, ok := lastNumberBefore(s[:idx]); ok {
			total += n
		}
	}
	return total
}

// lastNumberBefore returns the trailing integer of a phrase fragment, e.g.
// "1 hour 20 " -> 20.
func lastNumberBefore(fragment string) (int, bool) {
	fields := strings.Fields(fragment)
	if len(fields) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil {
		return 0, false
	}
	return n, true
}

func numberField(entry map[string]any, key string) (float64, bool) {
	v, ok := entry[key]
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func firstString(entry map[string]any, keys ...string) (string, bool) {
	for _, key := range keys {
		if v, ok := entry[key]; ok {
			if s, isStr := v.(string); isStr && strings.TrimSpace(s) != "" {
				return s, true
			}
		}
	}
	return "", false
}

// flightSegments extracts an ordered itinerary from a "segments" array of
// {origin, destination} objects.
func flightSegments(entry map[string]any) ([]model.FlightSegment, bool) {
	raw, ok := entry["segments"]
	if !ok {
		return nil, false
	}
	list, ok := raw.([]any)
	if !ok || len(list) == 0 {
		return nil, false
	}

	segments := make([]model.FlightSegment, 0, len(list))
	for _, item := range list {
		seg, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		origin, originOK := firstString(seg, "origin", "origin_code")
		destination, destOK := firstString(seg, "destination", "destination_code")
		if !originOK || !destOK {
			return nil, false
		}
		segments = append(segments, model.FlightSegment{
			OriginCode:      origin,
			DestinationCode: destination,
		})
	}
	return segments, true
}
