package cli

import (
	"fmt"
	"strings"

	"github.com/tracekit/carbontrace/internal/model"
)

// categoryLabels maps categories to human-friendly names for the summary.
var categoryLabels = map[model.Category]string{
	model.CategoryUberRides: "Uber rides",
	model.CategoryLyft:      "Lyft",
	model.CategoryUberEats:  "Uber Eats",
	model.CategoryDoordash:  "DoorDash",
	model.CategoryFlights:   "Flights",
}

// RenderResult formats a calculation result for the terminal.
func RenderResult(result *model.EmissionsResult) string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("Carbon Footprint Summary"))
	b.WriteString("\n")

	for _, category := range model.Categories {
		total, ok := result.PerCategory[category]
		if !ok {
			continue
		}

		line := fmt.Sprintf("%-12s %8.2f miles  %8.2f kg CO₂",
			categoryLabels[category], total.DistanceMiles, total.EmissionsKg)
		b.WriteString(TableCellStyle.Render(line))
		b.WriteString("\n")

		for _, entry := range total.Entries {
			if entry.Status == model.StatusOK {
				continue
			}
			b.WriteString(WarningStyle.Render(
				fmt.Sprintf("  ⚠ %s: %s", entry.Status, entry.Error)))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(BoldStyle.Render(
		fmt.Sprintf("Total: %.2f kg CO₂", result.TotalEmissionsKg)))
	b.WriteString("\n")
	b.WriteString(SubtleStyle.Render(fmt.Sprintf(
		"≈ %d trees for a year of sequestration, %.1f%% of a London-New York flight",
		result.TreesEquivalent, result.ReferenceFlightPct)))
	b.WriteString("\n")

	return b.String()
}
