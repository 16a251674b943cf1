package utils

import (
	"testing"

	"p9e.in/siyana/models"
)

var (
	// Riyadh branch and two probe points at known distances.
	branch  = models.GeoPoint{Lat: 24.7136, Lng: 46.6753}
	parking = models.GeoPoint{Lat: 24.7144, Lng: 46.6760} // ~115m away
	farAway = models.GeoPoint{Lat: 24.7740, Lng: 46.7386} // ~9km away
)

func TestDistanceMeters(t *testing.T) {
	d := DistanceMeters(branch, parking)
	if d < 80 || d > 150 {
		t.Errorf("distance branch→parking = %.1fm, want roughly 115m", d)
	}

	d = DistanceMeters(branch, farAway)
	if d < 8000 || d > 11000 {
		t.Errorf("distance branch→farAway = %.1fm, want roughly 9km", d)
	}

	if d := DistanceMeters(branch, branch); d != 0 {
		t.Errorf("self distance = %.4fm, want 0", d)
	}
}

func TestWithinRadius(t *testing.T) {
	tests := []struct {
		name   string
		point  models.GeoPoint
		radius float64
		want   bool
	}{
		{"inside default radius", parking, 0, true},
		{"outside default radius", farAway, 0, false},
		{"inside explicit wide radius", farAway, 15000, true},
		{"outside tight radius", parking, 50, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WithinRadius(tt.point, branch, tt.radius); got != tt.want {
				t.Errorf("WithinRadius(%+v, r=%.0f) = %v, want %v", tt.point, tt.radius, got, tt.want)
			}
		})
	}
}

func TestValidateCoordinate(t *testing.T) {
	tests := []struct {
		name    string
		point   models.GeoPoint
		wantErr bool
	}{
		{"valid", branch, false},
		{"zero is valid", models.GeoPoint{}, false},
		{"latitude too high", models.GeoPoint{Lat: 90.1, Lng: 0}, true},
		{"latitude too low", models.GeoPoint{Lat: -90.1, Lng: 0}, true},
		{"longitude too high", models.GeoPoint{Lat: 0, Lng: 180.1}, true},
		{"longitude too low", models.GeoPoint{Lat: 0, Lng: -180.1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCoordinate(tt.point)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCoordinate(%+v) error = %v, wantErr %v", tt.point, err, tt.wantErr)
			}
		})
	}
}
