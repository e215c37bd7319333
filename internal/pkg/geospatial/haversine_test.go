package geospatial_test

import (
	"math"
	"testing"

	"github.com/samirrijal/darshanam/internal/core/domain"
	"github.com/samirrijal/darshanam/internal/pkg/geospatial"
)

var (
	bengaluru = domain.GeoCoordinate{Latitude: 12.9716, Longitude: 77.5946}
	mysuru    = domain.GeoCoordinate{Latitude: 12.3052, Longitude: 76.6552}
)

func TestBearing_BengaluruToMysuru(t *testing.T) {
	b := geospatial.Bearing(bengaluru, mysuru)
	if math.Abs(b-234.09) > 0.1 {
		t.Errorf("expected bearing ~234.09, got %.4f", b)
	}
	if got := geospatial.CardinalDirection(b); got != "SW" {
		t.Errorf("expected SW, got %s", got)
	}
}

func TestDistanceKm_BengaluruToMysuru(t *testing.T) {
	d := geospatial.DistanceKm(bengaluru, mysuru)
	if d < 125 || d > 127 {
		t.Errorf("expected ~126 km, got %.3f", d)
	}
}

func TestBearing_CardinalAxes(t *testing.T) {
	origin := domain.GeoCoordinate{}
	tests := []struct {
		name string
		to   domain.GeoCoordinate
		want float64
	}{
		{"north", domain.GeoCoordinate{Latitude: 1}, 0},
		{"east", domain.GeoCoordinate{Longitude: 1}, 90},
		{"south", domain.GeoCoordinate{Latitude: -1}, 180},
		{"west", domain.GeoCoordinate{Longitude: -1}, 270},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := geospatial.Bearing(origin, tt.to)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("expected %.1f, got %.6f", tt.want, got)
			}
		})
	}
}

func TestBearing_SamePointIsZero(t *testing.T) {
	if b := geospatial.Bearing(bengaluru, bengaluru); b != 0 {
		t.Errorf("expected 0 for identical points, got %v", b)
	}
}

func TestBearing_Deterministic(t *testing.T) {
	first := geospatial.Bearing(bengaluru, mysuru)
	for i := 0; i < 100; i++ {
		if b := geospatial.Bearing(bengaluru, mysuru); b != first {
			t.Fatalf("bearing changed between calls: %v != %v", b, first)
		}
	}
}

func TestBearing_ReverseRoughlyOpposite(t *testing.T) {
	a := geospatial.Bearing(bengaluru, mysuru)
	b := geospatial.Bearing(mysuru, bengaluru)
	if d := geospatial.AbsoluteDelta(a, b); math.Abs(d-180) > 1 {
		t.Errorf("expected reverse bearing ~180 apart for a short hop, got %.3f", d)
	}
}

func TestBearing_Antipodal(t *testing.T) {
	b := geospatial.Bearing(domain.GeoCoordinate{Latitude: 0, Longitude: 0}, domain.GeoCoordinate{Latitude: 0, Longitude: 180})
	if math.IsNaN(b) || b < 0 || b >= 360 {
		t.Errorf("expected a finite bearing in [0,360), got %v", b)
	}
}

func TestDistanceKm_IdentityAndSymmetry(t *testing.T) {
	points := []domain.GeoCoordinate{
		bengaluru, mysuru,
		{Latitude: 90, Longitude: 0},
		{Latitude: -33.8688, Longitude: 151.2093},
		{Latitude: 43.263, Longitude: -2.935},
	}
	for _, a := range points {
		if d := geospatial.DistanceKm(a, a); d != 0 {
			t.Errorf("DistanceKm(%v, %v) = %v, want 0", a, a, d)
		}
		for _, b := range points {
			ab := geospatial.DistanceKm(a, b)
			ba := geospatial.DistanceKm(b, a)
			if ab < 0 {
				t.Errorf("negative distance %v", ab)
			}
			if math.Abs(ab-ba) > 1e-9 {
				t.Errorf("asymmetric distance %v vs %v", ab, ba)
			}
		}
	}
}

func TestHaversine_Meters(t *testing.T) {
	m := geospatial.Haversine(bengaluru.Latitude, bengaluru.Longitude, mysuru.Latitude, mysuru.Longitude)
	km := geospatial.DistanceKm(bengaluru, mysuru)
	if math.Abs(m-km*1000) > 1e-6 {
		t.Errorf("meters %v does not match km %v", m, km)
	}
}
