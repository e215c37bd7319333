package alignment

import (
	"math"

	"github.com/samirrijal/darshanam/internal/pkg/geospatial"
)

// DefaultSmoothingAlpha trades responsiveness for stability at ~10 Hz sampling.
const DefaultSmoothingAlpha = 0.25

// HeadingFilter smooths raw compass samples with an exponential filter that
// follows the shortest arc, so 350° -> 10° passes through north, not south.
//
// Alpha is applied per sample, not per unit of time: it assumes the host
// delivers samples at a roughly constant rate. A host that changes its rate
// should rescale alpha accordingly.
type HeadingFilter struct {
	alpha float64
	value float64
	set   bool
}

// NewHeadingFilter creates a filter. Alpha outside (0,1) falls back to DefaultSmoothingAlpha.
func NewHeadingFilter(alpha float64) *HeadingFilter {
	if !(alpha > 0 && alpha < 1) {
		alpha = DefaultSmoothingAlpha
	}
	return &HeadingFilter{alpha: alpha}
}

// Alpha returns the smoothing coefficient in use.
func (f *HeadingFilter) Alpha() float64 {
	return f.alpha
}

// Update feeds one raw sample and returns the smoothed heading in [0,360).
// A nil or non-finite sample is a sensor gap: the last value is returned
// unchanged. The bool is false until the first valid sample arrives.
func (f *HeadingFilter) Update(raw *float64) (float64, bool) {
	if raw == nil || math.IsNaN(*raw) || math.IsInf(*raw, 0) {
		return f.value, f.set
	}

	sample := geospatial.NormalizeDegrees(*raw)
	if !f.set {
		f.value = sample
		f.set = true
		return f.value, true
	}

	delta := geospatial.SignedDelta(f.value, sample)
	f.value = geospatial.NormalizeDegrees(f.value + f.alpha*delta)
	return f.value, true
}

// Value returns the current estimate and whether one exists.
func (f *HeadingFilter) Value() (float64, bool) {
	return f.value, f.set
}

// Reset clears the estimate; the next sample bootstraps the filter again.
func (f *HeadingFilter) Reset() {
	f.value = 0
	f.set = false
}
