package geospatial

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/samirrijal/darshanam/internal/core/domain"
)

var (
	atPattern    = regexp.MustCompile(`@(-?\d+(?:\.\d+)?),(-?\d+(?:\.\d+)?)`)
	dataPattern  = regexp.MustCompile(`!3d(-?\d+(?:\.\d+)?)[^!]*!4d(-?\d+(?:\.\d+)?)`)
	errNoMatches = fmt.Errorf("%w: no coordinates found", domain.ErrInvalidCoordinate)
)

// ParseCoordinates parses a plain "lat,lng" pair.
func ParseCoordinates(s string) (domain.GeoCoordinate, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return domain.GeoCoordinate{}, fmt.Errorf("%w: expected \"lat,lng\", got %q", domain.ErrInvalidCoordinate, s)
	}
	return parsePair(parts[0], parts[1])
}

// ParseMapsURL extracts coordinates from a Google Maps URL. Supported forms,
// in order: "@lat,lng" in the path, "!3dlat!4dlng" data segments, and the
// q, query or ll query parameters.
func ParseMapsURL(raw string) (domain.GeoCoordinate, error) {
	if m := atPattern.FindStringSubmatch(raw); m != nil {
		return parsePair(m[1], m[2])
	}
	if m := dataPattern.FindStringSubmatch(raw); m != nil {
		return parsePair(m[1], m[2])
	}

	u, err := url.Parse(raw)
	if err != nil {
		return domain.GeoCoordinate{}, fmt.Errorf("%w: %v", domain.ErrInvalidCoordinate, err)
	}
	q := u.Query()
	for _, key := range []string{"q", "query", "ll"} {
		if v := q.Get(key); v != "" {
			if c, err := ParseCoordinates(v); err == nil {
				return c, nil
			}
		}
	}
	return domain.GeoCoordinate{}, errNoMatches
}

// ParseInput accepts either a maps URL or a raw "lat,lng" pair.
func ParseInput(input string) (domain.GeoCoordinate, error) {
	input = strings.TrimSpace(input)
	if strings.HasPrefix(input, "http") {
		return ParseMapsURL(input)
	}
	return ParseCoordinates(input)
}

func parsePair(latStr, lonStr string) (domain.GeoCoordinate, error) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return domain.GeoCoordinate{}, fmt.Errorf("%w: latitude %q", domain.ErrInvalidCoordinate, latStr)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return domain.GeoCoordinate{}, fmt.Errorf("%w: longitude %q", domain.ErrInvalidCoordinate, lonStr)
	}
	return domain.NewGeoCoordinate(lat, lon)
}
