// Package model defines the domain types shared across the application.
package model

// Category identifies one transportation category. Categories determine which
// emission factor applies and which distance-resolution strategies are allowed.
type Category string

// Transportation categories, matching the keys of the canonical input shape.
const (
	CategoryUberRides Category = "uber_rides"
	CategoryLyft      Category = "lyft"
	CategoryUberEats  Category = "uber_eats"
	CategoryDoordash  Category = "doordash"
	CategoryFlights   Category = "flights"
)

// Categories lists all categories in canonical processing order.
var Categories = []Category{
	CategoryUberRides,
	CategoryLyft,
	CategoryUberEats,
	CategoryDoordash,
	CategoryFlights,
}

// Emission factors in kg CO₂ per mile.
const (
	RideshareEmissionFactor    = 0.4
	FoodDeliveryEmissionFactor = 0.4
	FlightEmissionFactor       = 0.25

	// TreeSequestrationKg is the CO₂ one mature tree sequesters per year.
	TreeSequestrationKg = 22.0

	// ReferenceFlightMiles is the London-New York distance used for the
	// percentage context metric.
	ReferenceFlightMiles = 3500.0
)

// EmissionFactor returns the kg CO₂ per mile factor for the category.
func (c Category) EmissionFactor() float64 {
	switch c {
	case CategoryUberRides, CategoryLyft:
		return RideshareEmissionFactor
	case CategoryUberEats, CategoryDoordash:
		return FoodDeliveryEmissionFactor
	case CategoryFlights:
		return FlightEmissionFactor
	default:
		return 0
	}
}

// IsRide reports whether the category is a rideshare category. Rides are the
// only category allowed to estimate distance from trip duration.
func (c Category) IsRide() bool {
	return c == CategoryUberRides || c == CategoryLyft
}

// IsFoodDelivery reports whether the category is a food-delivery category.
func (c Category) IsFoodDelivery() bool {
	return c == CategoryUberEats || c == CategoryDoordash
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryUberRides, CategoryLyft, CategoryUberEats, CategoryDoordash, CategoryFlights:
		return true
	}
	return false
}
