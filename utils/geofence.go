package utils

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"p9e.in/siyana/models"
)

// DefaultArrivalRadiusMeters is how close a technician's captured
// coordinate must be to the branch before arrival is accepted.
const DefaultArrivalRadiusMeters = 300.0

// ValidateCoordinate checks a captured point against WGS84 bounds.
func ValidateCoordinate(p models.GeoPoint) error {
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("latitude %.6f is out of valid range [-90, 90]", p.Lat)
	}
	if p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("longitude %.6f is out of valid range [-180, 180]", p.Lng)
	}
	return nil
}

// DistanceMeters returns the geodesic distance between two points.
func DistanceMeters(a, b models.GeoPoint) float64 {
	return geo.Distance(orb.Point{a.Lng, a.Lat}, orb.Point{b.Lng, b.Lat})
}

// WithinRadius reports whether point lies within radiusMeters of center.
// A non-positive radius falls back to the default arrival radius.
func WithinRadius(point, center models.GeoPoint, radiusMeters float64) bool {
	if radiusMeters <= 0 {
		radiusMeters = DefaultArrivalRadiusMeters
	}
	return DistanceMeters(point, center) <= radiusMeters
}
