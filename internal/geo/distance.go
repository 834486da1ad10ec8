// Package geo provides great-circle distance math for the emissions engine.
package geo

import "github.com/golang/geo/s2"

// EarthRadiusMiles is the single Earth-radius constant used everywhere in the
// engine. 3956 mi keeps flight distances and branch tie-breaks on the same
// scale.
const EarthRadiusMiles = 3956.0

// metersPerMile converts Distance Matrix meters into miles.
const metersPerMile = 1609.34

// Miles returns the great-circle distance in miles between two coordinate
// pairs given in degrees. Pure and total: symmetric, zero for identical
// points, never fails.
func Miles(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusMiles
}

// MetersToMiles converts a routed distance in meters to miles.
func MetersToMiles(meters int) float64 {
	return float64(meters) / metersPerMile
}
