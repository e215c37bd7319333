package geospatial

import "math"

// NormalizeDegrees maps any finite angle into [0,360).
func NormalizeDegrees(deg float64) float64 {
	n := math.Mod(deg, 360)
	if n < 0 {
		n += 360
	}
	// -1e-15 + 360 rounds to 360
	if n >= 360 {
		n = 0
	}
	return n
}

// SignedDelta returns the signed shortest arc from -> to, in (-180,180].
// Positive means clockwise.
func SignedDelta(from, to float64) float64 {
	d := math.Mod(to-from+540, 360)
	if d < 0 {
		d += 360
	}
	d -= 180
	if d == -180 {
		d = 180
	}
	return d
}

// AbsoluteDelta returns the unsigned angular difference in [0,180].
func AbsoluteDelta(a, b float64) float64 {
	d := math.Abs(NormalizeDegrees(a) - NormalizeDegrees(b))
	return math.Min(d, 360-d)
}

var cardinals = [...]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// CardinalDirection maps a bearing to one of the eight compass points.
func CardinalDirection(bearing float64) string {
	idx := int(math.Round(NormalizeDegrees(bearing)/45)) % len(cardinals)
	return cardinals[idx]
}
