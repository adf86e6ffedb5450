// Package geo provides the great-circle math behind meeting point
// assignment and the geocoder client used when meeting points are edited.
package geo

import (
	"math"

	"tour-booking/models"
)

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371.0

// Distance returns the great-circle distance between two points in
// kilometers (haversine).
func Distance(a, b models.Coordinates) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLng/2)*math.Sin(dLng/2)

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// ValidCoordinates reports whether c is a usable point. CMS imports leave
// coordinates nil or zeroed; neither is a real hotel location.
func ValidCoordinates(c *models.Coordinates) bool {
	if c == nil {
		return false
	}
	if c.Lat == 0 && c.Lng == 0 {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}
