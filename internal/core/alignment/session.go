package alignment

import (
	"math"
	"time"

	"github.com/samirrijal/darshanam/internal/core/domain"
	"github.com/samirrijal/darshanam/internal/pkg/geospatial"
)

const (
	// DefaultThresholdDegrees is the half-width of the "facing" cone.
	DefaultThresholdDegrees = 15.0
	// DefaultTiltThreshold is the pitch/roll beyond which the compass reading
	// is unreliable and the user should hold the phone flat.
	DefaultTiltThreshold = 25.0
)

// Listener receives edge-triggered alignment events.
type Listener func(domain.AlignmentEvent)

// Config configures a Session. Zero values select the defaults.
type Config struct {
	SessionID        string
	ThresholdDegrees float64
	// ExitMarginDegrees widens the cone while aligned, so leaving requires
	// diff > threshold+margin. Zero gives plain edge triggering.
	ExitMarginDegrees float64
	SmoothingAlpha    float64
	TiltThreshold     float64
	Now               func() time.Time
}

type listenerEntry struct {
	id int
	fn Listener
}

// Session turns heading samples and coordinate fixes into alignment
// transitions. It is not safe for concurrent use: callers must serialise
// updates, in arrival order per source.
type Session struct {
	id         string
	threshold  float64
	exitMargin float64
	tiltLimit  float64
	now        func() time.Time

	filter   *HeadingFilter
	observer *domain.GeoCoordinate
	target   *domain.GeoCoordinate

	// Last values seen while tracking. They survive the teardown of an
	// endpoint or the heading so a closing Exited reports where it was.
	heading     float64
	bearing     float64
	distanceKm  float64
	haveBearing bool

	tracking      domain.TrackingState
	aligned       bool // re-entry guard
	last          Evaluation
	calibrating   bool
	tiltExcessive bool
	updatedAt     time.Time

	listeners []listenerEntry
	nextID    int
}

// NewSession creates a session in the Idle state.
func NewSession(cfg Config) *Session {
	threshold := cfg.ThresholdDegrees
	if threshold <= 0 || threshold > 180 {
		threshold = DefaultThresholdDegrees
	}
	tilt := cfg.TiltThreshold
	if tilt <= 0 {
		tilt = DefaultTiltThreshold
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Session{
		id:         cfg.SessionID,
		threshold:  threshold,
		exitMargin: math.Max(cfg.ExitMarginDegrees, 0),
		tiltLimit:  tilt,
		now:        now,
		filter:     NewHeadingFilter(cfg.SmoothingAlpha),
		tracking:   domain.TrackingIdle,
		updatedAt:  now(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Subscribe registers a listener and returns a function that removes it.
func (s *Session) Subscribe(l Listener) func() {
	id := s.nextID
	s.nextID++
	s.listeners = append(s.listeners, listenerEntry{id: id, fn: l})
	return func() {
		for i, e := range s.listeners {
			if e.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// UpdateHeading feeds a raw heading sample. nil is a sensor gap.
func (s *Session) UpdateHeading(raw *float64) {
	s.filter.Update(raw)
	s.evaluate()
}

// UpdateHeadingWithAccuracy feeds a sample with the sensor's accuracy report.
// A negative accuracy means the magnetometer needs calibration and the
// sample is dropped.
func (s *Session) UpdateHeadingWithAccuracy(raw *float64, accuracy float64) {
	if accuracy < 0 {
		s.calibrating = true
		s.touch()
		return
	}
	s.calibrating = false
	s.UpdateHeading(raw)
}

// ClearHeading marks the heading source as unavailable (permission revoked,
// sensor unsubscribed). The filter is reset and the session goes Idle.
func (s *Session) ClearHeading() {
	s.filter.Reset()
	s.calibrating = false
	s.evaluate()
}

// UpdateObserver sets the observer position. nil means location was lost.
func (s *Session) UpdateObserver(c *domain.GeoCoordinate) {
	s.observer = copyCoord(c)
	s.recomputeBearing()
	s.evaluate()
}

// SetTarget sets the target position. nil means the target is unknown.
func (s *Session) SetTarget(c *domain.GeoCoordinate) {
	s.target = copyCoord(c)
	s.recomputeBearing()
	s.evaluate()
}

// SetThreshold changes the alignment cone half-width and re-evaluates.
func (s *Session) SetThreshold(deg float64) {
	if deg <= 0 || deg > 180 {
		return
	}
	s.threshold = deg
	s.evaluate()
}

// SetTilt records device pitch (beta) and roll (gamma) in degrees. Tilt is
// advisory only and never changes the alignment state.
func (s *Session) SetTilt(beta, gamma float64) {
	s.tiltExcessive = math.Abs(beta) > s.tiltLimit || math.Abs(gamma) > s.tiltLimit
	s.touch()
}

// State returns a snapshot for rendering.
func (s *Session) State() domain.AlignmentSnapshot {
	snap := domain.AlignmentSnapshot{
		SessionID:     s.id,
		Tracking:      s.tracking,
		State:         domain.AlignmentUnaligned,
		Aligned:       s.aligned,
		Turn:          domain.TurnInstruction{Direction: domain.TurnNone},
		Threshold:     s.threshold,
		Calibrating:   s.calibrating,
		TiltExcessive: s.tiltExcessive,
		Observer:      copyCoord(s.observer),
		Target:        copyCoord(s.target),
		UpdatedAt:     s.updatedAt,
	}
	if s.aligned {
		snap.State = domain.AlignmentAligned
	}
	if h, ok := s.filter.Value(); ok {
		snap.Heading = &h
	}
	if s.haveBearing {
		b, d := s.bearing, s.distanceKm
		snap.Bearing = &b
		snap.DistanceKm = &d
		snap.Cardinal = geospatial.CardinalDirection(b)
	}
	if s.tracking == domain.TrackingActive {
		snap.Turn = s.last.Turn
	}
	return snap
}

func (s *Session) recomputeBearing() {
	if s.observer == nil || s.target == nil {
		s.haveBearing = false
		return
	}
	s.bearing = geospatial.Bearing(*s.observer, *s.target)
	s.distanceKm = geospatial.DistanceKm(*s.observer, *s.target)
	s.haveBearing = true
}

func (s *Session) evaluate() {
	s.touch()

	heading, ok := s.filter.Value()
	if !ok || !s.haveBearing {
		s.goIdle()
		return
	}

	s.tracking = domain.TrackingActive
	s.heading = heading
	ev := Evaluate(heading, s.bearing, s.threshold)
	s.last = ev

	stillAligned := ev.Aligned || (s.aligned && ev.Difference <= s.threshold+s.exitMargin)
	switch {
	case stillAligned && !s.aligned:
		s.aligned = true
		s.emit(domain.EventAlignmentEntered)
	case !stillAligned && s.aligned:
		s.aligned = false
		s.emit(domain.EventAlignmentExited)
	}
}

// goIdle leaves Tracking. The guard is disarmed so a stale Aligned cannot
// survive into the next tracking period; listeners get a closing Exited
// carrying the last heading and bearing seen while tracking.
func (s *Session) goIdle() {
	s.tracking = domain.TrackingIdle
	s.last = Evaluation{Turn: domain.TurnInstruction{Direction: domain.TurnNone}}
	if s.aligned {
		s.aligned = false
		s.emit(domain.EventAlignmentExited)
	}
}

func (s *Session) emit(t domain.AlignmentEventType) {
	ev := domain.AlignmentEvent{
		SessionID:  s.id,
		Type:       t,
		Heading:    s.heading,
		Bearing:    s.bearing,
		DistanceKm: s.distanceKm,
		Time:       s.updatedAt,
	}
	// Listeners may unsubscribe while being notified.
	ls := make([]listenerEntry, len(s.listeners))
	copy(ls, s.listeners)
	for _, l := range ls {
		l.fn(ev)
	}
}

func (s *Session) touch() {
	s.updatedAt = s.now()
}

func copyCoord(c *domain.GeoCoordinate) *domain.GeoCoordinate {
	if c == nil {
		return nil
	}
	v := *c
	return &v
}
