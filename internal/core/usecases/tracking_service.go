package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/darshanam/internal/core/alignment"
	"github.com/samirrijal/darshanam/internal/core/domain"
	"github.com/samirrijal/darshanam/internal/core/ports"
	"github.com/samirrijal/darshanam/internal/pkg/metrics"
)

// TrackingConfig holds defaults applied to new sessions.
type TrackingConfig struct {
	ThresholdDegrees  float64
	ExitMarginDegrees float64
	SmoothingAlpha    float64
	SessionTTL        time.Duration
}

// StartOptions override TrackingConfig for one session.
type StartOptions struct {
	ThresholdDegrees float64
	SmoothingAlpha   float64
	Observer         *domain.GeoCoordinate
	// Target overrides the stored guide location.
	Target *domain.GeoCoordinate
	// Owned marks a session tied to a live connection. Reap skips it and the
	// owner must call Stop.
	Owned bool
	// OnUpdate receives updates the owner did not cause, such as a guide
	// retarget. Without it those transitions are returned by the owner's
	// next ingest call.
	OnUpdate func(*IngestResult)
}

// IngestResult is returned from every update: the new state plus any
// transitions the update caused.
type IngestResult struct {
	Snapshot domain.AlignmentSnapshot `json:"snapshot"`
	Events   []domain.AlignmentEvent  `json:"events"`
}

type trackedSession struct {
	mu          sync.Mutex
	session     *alignment.Session
	pending     []domain.AlignmentEvent
	undelivered []domain.AlignmentEvent
	pinned      bool // target given at start, ignore guide updates
	owned       bool
	onUpdate    func(*IngestResult)
	lastSeen    time.Time

	// dispatchMu is taken before mu is released so transitions are
	// recorded and published in the order the session produced them.
	dispatchMu sync.Mutex
}

// TrackingService hosts alignment sessions for remote clients. Each session
// is single-writer: updates are serialised by a per-session mutex.
type TrackingService struct {
	guide     *GuideService
	events    ports.AlignmentEventRepository
	publisher ports.EventPublisher
	cfg       TrackingConfig
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*trackedSession
}

// NewTrackingService creates a new TrackingService. events and publisher may be nil.
func NewTrackingService(
	guide *GuideService,
	events ports.AlignmentEventRepository,
	publisher ports.EventPublisher,
	cfg TrackingConfig,
) *TrackingService {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 10 * time.Minute
	}
	return &TrackingService{
		guide:     guide,
		events:    events,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
		sessions:  make(map[string]*trackedSession),
	}
}

// WithClock replaces the time source, for tests and replays.
func (s *TrackingService) WithClock(now func() time.Time) *TrackingService {
	s.now = now
	return s
}

// Start creates a session aimed at the current guide location.
func (s *TrackingService) Start(ctx context.Context, opts StartOptions) (*IngestResult, error) {
	threshold := opts.ThresholdDegrees
	if threshold <= 0 {
		threshold = s.cfg.ThresholdDegrees
	}
	alpha := opts.SmoothingAlpha
	if alpha <= 0 {
		alpha = s.cfg.SmoothingAlpha
	}

	target := opts.Target
	if target != nil {
		if err := target.Validate(); err != nil {
			return nil, err
		}
	} else if s.guide != nil {
		loc, err := s.guide.Current(ctx)
		switch {
		case err == nil:
			target = &loc.Location
		case errors.Is(err, domain.ErrGuideLocationNotFound):
			// stays Idle until a guide location arrives
		default:
			return nil, fmt.Errorf("load guide location: %w", err)
		}
	}
	if opts.Observer != nil {
		if err := opts.Observer.Validate(); err != nil {
			return nil, err
		}
	}

	id := uuid.NewString()
	ts := &trackedSession{
		pinned:   opts.Target != nil,
		owned:    opts.Owned,
		onUpdate: opts.OnUpdate,
		lastSeen: s.now(),
	}
	ts.session = alignment.NewSession(alignment.Config{
		SessionID:         id,
		ThresholdDegrees:  threshold,
		ExitMarginDegrees: s.cfg.ExitMarginDegrees,
		SmoothingAlpha:    alpha,
		Now:               s.now,
	})
	ts.session.Subscribe(func(ev domain.AlignmentEvent) {
		ts.pending = append(ts.pending, ev)
	})
	ts.session.SetTarget(target)
	ts.session.UpdateObserver(opts.Observer)

	s.mu.Lock()
	s.sessions[id] = ts
	n := len(s.sessions)
	s.mu.Unlock()
	metrics.ActiveSessions.Set(float64(n))

	slog.InfoContext(ctx, "tracking session started", "session_id", id, "threshold", threshold, "has_target", target != nil)
	return &IngestResult{Snapshot: ts.session.State(), Events: []domain.AlignmentEvent{}}, nil
}

// IngestHeading feeds a raw heading sample (nil is a sensor gap). accuracy
// is the sensor's accuracy report; pass nil when the platform has none.
func (s *TrackingService) IngestHeading(ctx context.Context, id string, raw *float64, accuracy *float64) (*IngestResult, error) {
	kind := "sample"
	if raw == nil {
		kind = "gap"
	}
	metrics.HeadingSamples.WithLabelValues(kind).Inc()

	return s.apply(ctx, id, func(sess *alignment.Session) {
		if accuracy != nil {
			sess.UpdateHeadingWithAccuracy(raw, *accuracy)
			return
		}
		sess.UpdateHeading(raw)
	})
}

// ClearHeading tells the session its heading source went away.
func (s *TrackingService) ClearHeading(ctx context.Context, id string) (*IngestResult, error) {
	return s.apply(ctx, id, func(sess *alignment.Session) { sess.ClearHeading() })
}

// IngestObserver feeds an observer fix. nil means the location was lost.
func (s *TrackingService) IngestObserver(ctx context.Context, id string, c *domain.GeoCoordinate) (*IngestResult, error) {
	if c != nil {
		if err := c.Validate(); err != nil {
			return nil, err
		}
	}
	return s.apply(ctx, id, func(sess *alignment.Session) { sess.UpdateObserver(c) })
}

// IngestTilt records device pitch and roll.
func (s *TrackingService) IngestTilt(ctx context.Context, id string, beta, gamma float64) (*IngestResult, error) {
	return s.apply(ctx, id, func(sess *alignment.Session) { sess.SetTilt(beta, gamma) })
}

// SetThreshold changes a session's alignment cone.
func (s *TrackingService) SetThreshold(ctx context.Context, id string, deg float64) (*IngestResult, error) {
	return s.apply(ctx, id, func(sess *alignment.Session) { sess.SetThreshold(deg) })
}

// Snapshot returns a session's current state.
func (s *TrackingService) Snapshot(ctx context.Context, id string) (*domain.AlignmentSnapshot, error) {
	ts, err := s.get(id)
	if err != nil {
		return nil, err
	}
	ts.mu.Lock()
	defer ts.mu.Unlock()
	snap := ts.session.State()
	return &snap, nil
}

// Stop removes a session.
func (s *TrackingService) Stop(ctx context.Context, id string) error {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	n := len(s.sessions)
	s.mu.Unlock()
	if !ok {
		return domain.ErrSessionNotFound
	}
	metrics.ActiveSessions.Set(float64(n))
	slog.InfoContext(ctx, "tracking session stopped", "session_id", id)
	return nil
}

// Retarget points every unpinned session at a new guide location.
func (s *TrackingService) Retarget(ctx context.Context, loc *domain.GuideLocation) error {
	if loc == nil {
		return nil
	}
	if err := loc.Location.Validate(); err != nil {
		return err
	}

	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id, ts := range s.sessions {
		if !ts.pinned {
			ids = append(ids, id)
		}
	}
	s.mu.RUnlock()

	target := loc.Location
	for _, id := range ids {
		ts, err := s.get(id)
		if err != nil {
			continue // stopped meanwhile
		}
		s.update(ctx, ts, false, func(sess *alignment.Session) { sess.SetTarget(&target) })
	}
	slog.InfoContext(ctx, "sessions retargeted", "count", len(ids), "target", target.String())
	return nil
}

// Reap drops sessions that have not been updated within the session TTL.
// Owned sessions live until their owner stops them.
func (s *TrackingService) Reap(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	reaped := 0
	for id, ts := range s.sessions {
		if ts.owned {
			continue
		}
		ts.mu.Lock()
		expired := now.Sub(ts.lastSeen) > s.cfg.SessionTTL
		ts.mu.Unlock()
		if expired {
			delete(s.sessions, id)
			reaped++
		}
	}
	metrics.SessionsReaped.Add(float64(reaped))
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	return reaped
}

// Count returns the number of live sessions.
func (s *TrackingService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Events returns a page of recorded transitions for a session.
func (s *TrackingService) Events(ctx context.Context, id string, offset, limit int) ([]domain.AlignmentEvent, int, error) {
	if s.events == nil {
		return nil, 0, nil
	}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.events.ListBySession(ctx, id, offset, limit)
}

func (s *TrackingService) get(id string) (*trackedSession, error) {
	s.mu.RLock()
	ts, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return ts, nil
}

// apply runs an owner update on session id.
func (s *TrackingService) apply(ctx context.Context, id string, fn func(*alignment.Session)) (*IngestResult, error) {
	ts, err := s.get(id)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, ts, true, fn), nil
}

// update runs fn under the session lock and dispatches the resulting
// transitions. Owner updates refresh lastSeen and also return transitions
// queued by earlier non-owner updates. Non-owner updates go to the
// session's OnUpdate callback, or are queued when it has none.
func (s *TrackingService) update(ctx context.Context, ts *trackedSession, byOwner bool, fn func(*alignment.Session)) *IngestResult {
	ts.mu.Lock()
	fn(ts.session)
	events := ts.pending
	ts.pending = nil

	res := &IngestResult{Snapshot: ts.session.State(), Events: events}
	notify := false
	switch {
	case byOwner:
		ts.lastSeen = s.now()
		if len(ts.undelivered) > 0 {
			res.Events = append(ts.undelivered, events...)
			ts.undelivered = nil
		}
	case ts.onUpdate != nil:
		notify = true
	default:
		ts.undelivered = append(ts.undelivered, events...)
	}

	ts.dispatchMu.Lock()
	ts.mu.Unlock()
	defer ts.dispatchMu.Unlock()

	for i := range events {
		s.dispatch(ctx, &events[i])
	}
	if res.Events == nil {
		res.Events = []domain.AlignmentEvent{}
	}
	if notify {
		ts.onUpdate(res)
	}
	return res
}

func (s *TrackingService) dispatch(ctx context.Context, ev *domain.AlignmentEvent) {
	metrics.AlignmentTransitions.WithLabelValues(string(ev.Type)).Inc()
	slog.InfoContext(ctx, "alignment transition",
		"session_id", ev.SessionID,
		"type", ev.Type,
		"heading", ev.Heading,
		"bearing", ev.Bearing,
	)

	if s.events != nil {
		if err := s.events.Insert(ctx, ev); err != nil {
			slog.WarnContext(ctx, "record alignment event failed", "session_id", ev.SessionID, "error", err)
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishAlignmentEvent(ctx, ev); err != nil {
			slog.WarnContext(ctx, "publish alignment event failed", "session_id", ev.SessionID, "error", err)
		}
	}
}
