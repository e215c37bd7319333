package geospatial_test

import (
	"errors"
	"testing"

	"github.com/samirrijal/darshanam/internal/core/domain"
	"github.com/samirrijal/darshanam/internal/pkg/geospatial"
)

func TestParseInput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		lat     float64
		lon     float64
		wantErr bool
	}{
		{"plain pair", "12.3052, 76.6552", 12.3052, 76.6552, false},
		{"at path", "https://www.google.com/maps/place/Mysuru/@12.3052,76.6552,13z", 12.3052, 76.6552, false},
		{"data segment", "https://www.google.com/maps/place/X/data=!3d12.3052!4d76.6552", 12.3052, 76.6552, false},
		{"q param", "https://maps.google.com/?q=12.3052,76.6552", 12.3052, 76.6552, false},
		{"ll param", "https://maps.google.com/?ll=-33.86,151.2", -33.86, 151.2, false},
		{"latitude out of range", "95,10", 0, 0, true},
		{"longitude out of range", "10,190", 0, 0, true},
		{"garbage", "not a place", 0, 0, true},
		{"url without coordinates", "https://maps.google.com/?q=Mysuru", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := geospatial.ParseInput(tt.input)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrInvalidCoordinate) {
					t.Fatalf("expected ErrInvalidCoordinate, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.Latitude != tt.lat || c.Longitude != tt.lon {
				t.Errorf("expected %v,%v got %v", tt.lat, tt.lon, c)
			}
		})
	}
}
