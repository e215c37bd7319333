package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/darshanam/internal/core/domain"
	"github.com/samirrijal/darshanam/internal/core/ports"
	"github.com/samirrijal/darshanam/internal/pkg/metrics"
)

const (
	guideCacheKey = "guide:current"
	guideCacheTTL = 60 // seconds

	// DefaultStaleAfter is how old a guide location may be before it is flagged.
	DefaultStaleAfter = 60 * time.Minute
)

// GuideService manages the guide's location, the target every session aims at.
type GuideService struct {
	locations  ports.GuideLocationRepository
	cache      ports.CacheService
	publisher  ports.EventPublisher
	staleAfter time.Duration
	now        func() time.Time
}

// NewGuideService creates a new GuideService. cache and publisher may be nil.
func NewGuideService(
	locations ports.GuideLocationRepository,
	cache ports.CacheService,
	publisher ports.EventPublisher,
	staleAfter time.Duration,
) *GuideService {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &GuideService{
		locations:  locations,
		cache:      cache,
		publisher:  publisher,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// Current returns the newest guide location.
func (s *GuideService) Current(ctx context.Context) (*domain.GuideLocation, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, guideCacheKey); err == nil {
			var loc domain.GuideLocation
			if err := json.Unmarshal(data, &loc); err == nil {
				metrics.CacheHits.WithLabelValues("guide").Inc()
				return &loc, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("guide").Inc()
	}

	loc, err := s.locations.Latest(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(loc); err == nil {
			_ = s.cache.Set(ctx, guideCacheKey, data, guideCacheTTL)
		}
	}
	return loc, nil
}

// Status reports the current location and whether it is stale.
func (s *GuideService) Status(ctx context.Context) (*domain.GuideLocationStatus, error) {
	loc, err := s.Current(ctx)
	if errors.Is(err, domain.ErrGuideLocationNotFound) {
		return &domain.GuideLocationStatus{
			Stale:   true,
			Message: "The guide's location is not currently available.",
		}, nil
	}
	if err != nil {
		return nil, err
	}

	age := s.now().Sub(loc.UpdatedAt)
	if age > s.staleAfter {
		return &domain.GuideLocationStatus{
			Location: loc,
			Stale:    true,
			Message:  fmt.Sprintf("The guide's location was last updated %d minutes ago and may need an update.", int(math.Round(age.Minutes()))),
		}, nil
	}
	return &domain.GuideLocationStatus{
		Location: loc,
		Message:  "The guide's location is up to date.",
	}, nil
}

// Update stores a new guide location and announces it to running sessions.
func (s *GuideService) Update(ctx context.Context, coord domain.GeoCoordinate, address, mapsURL, source string) (*domain.GuideLocation, error) {
	ctx, span := otel.Tracer("darshanam/guide").Start(ctx, "GuideService.Update")
	defer span.End()
	span.SetAttributes(attribute.String("guide.source", source))

	if err := coord.Validate(); err != nil {
		return nil, err
	}
	if source == "" {
		source = "api"
	}

	loc := &domain.GuideLocation{
		Location:  coord,
		Address:   address,
		MapsURL:   mapsURL,
		Source:    source,
		UpdatedAt: s.now().UTC(),
	}
	if err := s.locations.Insert(ctx, loc); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("insert guide location: %w", err)
	}
	metrics.GuideLocationUpdates.WithLabelValues(source).Inc()

	if s.cache != nil {
		_ = s.cache.Delete(ctx, guideCacheKey)
	}
	if s.publisher != nil {
		if err := s.publisher.PublishGuideLocation(ctx, loc); err != nil {
			slog.WarnContext(ctx, "publish guide location failed", "error", err)
		}
	}
	return loc, nil
}

// History returns recent guide locations, newest first.
func (s *GuideService) History(ctx context.Context, limit int) ([]domain.GuideLocation, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.locations.History(ctx, limit)
}

// WithClock replaces the time source, for tests and replays.
func (s *GuideService) WithClock(now func() time.Time) *GuideService {
	s.now = now
	return s
}
