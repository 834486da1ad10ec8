package gmail

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tracekit/carbontrace/internal/model"
)

// Receipt parsing is deliberately forgiving. Vendors reword their emails
// constantly, so every field is optional; downstream classification decides
// whether enough survived to resolve a distance.
var (
	distanceRe  = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:miles|mi)\b`)
	durationRe  = regexp.MustCompile(`(?i)((?:\d+\s*hours?\s*)?\d+\s*min(?:ute)?s?)`)
	orderFromRe = regexp.MustCompile(`(?i)(?:your order from|order from|receipt from)\s+([^.,\n\r]+)`)
	deliverToRe = regexp.MustCompile(`(?i)deliver(?:ed|ing|y)?\s+to:?\s+([^\n\r]+)`)
	routeRe     = regexp.MustCompile(`\b([A-Z]{3})\s*(?:to|->|→|-)\s*([A-Z]{3})\b`)
)

// ParseReceipt converts one email's subject and body into an extraction
// record. Returns false when the email is not a recognized activity receipt.
func ParseReceipt(subject, body string) (*model.Record, bool) {
	text := subject + "\n" + body
	lower := strings.ToLower(text)

	recordType, ok := classifyReceipt(lower)
	if !ok {
		return nil, false
	}

	record := &model.Record{Type: recordType}

	if m := distanceRe.FindStringSubmatch(text); m != nil {
		if miles, err := strconv.ParseFloat(m[1], 64); err == nil {
			record.Distance = miles
		}
	}
	if m := durationRe.FindStringSubmatch(text); m != nil {
		record.Time = strings.TrimSpace(m[1])
	}
	if m := orderFromRe.FindStringSubmatch(text); m != nil {
		record.Restaurant = strings.TrimSpace(m[1])
	}
	if m := deliverToRe.FindStringSubmatch(text); m != nil {
		record.DeliveryAddress = strings.TrimSpace(m[1])
	}
	if m := routeRe.FindStringSubmatch(text); m != nil {
		record.AirportA = m[1]
		record.AirportB = m[2]
	}

	return record, true
}

// classifyReceipt maps email text to a record type. Order matters: "uber eats"
// must be checked before plain "uber".
func classifyReceipt(lower string) (string, bool) {
	switch {
	case strings.Contains(lower, "uber eats"):
		return "Uber Eats", true
	case strings.Contains(lower, "doordash") || strings.Contains(lower, "door dash"):
		return "Door Dash Order", true
	case strings.Contains(lower, "uber") &&
		(strings.Contains(lower, "trip") || strings.Contains(lower, "receipt")):
		return "Uber Ride", true
	case strings.Contains(lower, "lyft") &&
		(strings.Contains(lower, "ride") || strings.Contains(lower, "receipt")):
		return "Lyft Ride", true
	case strings.Contains(lower, "flight") &&
		(strings.Contains(lower, "confirmation") || strings.Contains(lower, "itinerary") ||
			strings.Contains(lower, "boarding")):
		return "flight", true
	default:
		return "", false
	}
}
