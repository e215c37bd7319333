package alignment

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/samirrijal/darshanam/internal/core/domain"
)

// Sample is one line of a recorded sensor trace.
type Sample struct {
	At   time.Time `json:"t"`
	Type string    `json:"type"` // heading | observer | target | tilt | threshold

	Heading     *float64 `json:"heading,omitempty"`
	Accuracy    *float64 `json:"accuracy,omitempty"`
	Unavailable bool     `json:"unavailable,omitempty"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Lost      bool     `json:"lost,omitempty"`

	Beta  float64 `json:"beta,omitempty"`
	Gamma float64 `json:"gamma,omitempty"`

	ThresholdDegrees float64 `json:"threshold_degrees,omitempty"`
}

// Apply feeds one sample into the session.
func (s *Session) Apply(sm Sample) error {
	switch sm.Type {
	case "heading":
		switch {
		case sm.Unavailable:
			s.ClearHeading()
		case sm.Accuracy != nil:
			s.UpdateHeadingWithAccuracy(sm.Heading, *sm.Accuracy)
		default:
			s.UpdateHeading(sm.Heading)
		}
	case "observer", "target":
		var c *domain.GeoCoordinate
		if !sm.Lost {
			if sm.Latitude == nil || sm.Longitude == nil {
				return fmt.Errorf("%s sample needs latitude and longitude unless lost is set", sm.Type)
			}
			v, err := domain.NewGeoCoordinate(*sm.Latitude, *sm.Longitude)
			if err != nil {
				return err
			}
			c = &v
		}
		if sm.Type == "observer" {
			s.UpdateObserver(c)
		} else {
			s.SetTarget(c)
		}
	case "tilt":
		s.SetTilt(sm.Beta, sm.Gamma)
	case "threshold":
		if sm.ThresholdDegrees <= 0 || sm.ThresholdDegrees > 180 {
			return fmt.Errorf("threshold %v out of range (0, 180]", sm.ThresholdDegrees)
		}
		s.SetThreshold(sm.ThresholdDegrees)
	default:
		return fmt.Errorf("unknown sample type %q", sm.Type)
	}
	return nil
}

// Replay applies a JSON-lines trace to s in order. Samples carrying a
// timestamp drive the session clock. Blank lines are skipped; the first bad
// line stops the replay with its line number.
func Replay(r io.Reader, s *Session) (int, error) {
	var at time.Time
	clock := s.now
	s.now = func() time.Time {
		if at.IsZero() {
			return clock()
		}
		return at
	}
	defer func() { s.now = clock }()

	sc := bufio.NewScanner(r)
	n := 0
	for line := 1; sc.Scan(); line++ {
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var sm Sample
		if err := json.Unmarshal(raw, &sm); err != nil {
			return n, fmt.Errorf("line %d: %w", line, err)
		}
		if !sm.At.IsZero() {
			at = sm.At
		}
		if err := s.Apply(sm); err != nil {
			return n, fmt.Errorf("line %d: %w", line, err)
		}
		n++
	}
	if err := sc.Err(); err != nil {
		return n, fmt.Errorf("read trace: %w", err)
	}
	return n, nil
}
