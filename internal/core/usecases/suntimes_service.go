package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/samirrijal/darshanam/internal/core/domain"
	"github.com/samirrijal/darshanam/internal/core/ports"
	"github.com/samirrijal/darshanam/internal/pkg/metrics"
)

const dateLayout = "2006-01-02"

// SunTimesCache is an in-process cache keyed by coordinate (4 decimals) and
// date. Entries dated before the current day are dropped by Evict.
type SunTimesCache struct {
	mu      sync.Mutex
	entries map[string]domain.SunTimes
}

// NewSunTimesCache creates an empty cache.
func NewSunTimesCache() *SunTimesCache {
	return &SunTimesCache{entries: make(map[string]domain.SunTimes)}
}

// SunTimesKey builds the cache key for a location and day.
func SunTimesKey(loc domain.GeoCoordinate, date string) string {
	return fmt.Sprintf("%.4f,%.4f_%s", loc.Latitude, loc.Longitude, date)
}

func (c *SunTimesCache) Get(loc domain.GeoCoordinate, date string) (*domain.SunTimes, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.entries[SunTimesKey(loc, date)]
	if !ok {
		return nil, false
	}
	return &st, true
}

func (c *SunTimesCache) Put(st *domain.SunTimes) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[SunTimesKey(st.Location, st.Date)] = *st
}

// Evict drops entries dated before today (YYYY-MM-DD) and returns how many went.
func (c *SunTimesCache) Evict(today string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, st := range c.entries {
		if st.Date < today {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of cached entries.
func (c *SunTimesCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// SunTimesService looks up sun times through a memory cache, then the shared
// cache, then the external provider.
type SunTimesService struct {
	provider ports.SunTimesProvider
	memory   *SunTimesCache
	cache    ports.CacheService
	now      func() time.Time
}

// NewSunTimesService creates a new SunTimesService. cache may be nil.
func NewSunTimesService(provider ports.SunTimesProvider, memory *SunTimesCache, cache ports.CacheService) *SunTimesService {
	if memory == nil {
		memory = NewSunTimesCache()
	}
	return &SunTimesService{provider: provider, memory: memory, cache: cache, now: time.Now}
}

// WithClock replaces the time source, for tests.
func (s *SunTimesService) WithClock(now func() time.Time) *SunTimesService {
	s.now = now
	return s
}

// Get returns sun times for a location on the given day.
func (s *SunTimesService) Get(ctx context.Context, loc domain.GeoCoordinate, day time.Time) (*domain.SunTimes, error) {
	ctx, span := otel.Tracer("darshanam/suntimes").Start(ctx, "SunTimesService.Get")
	defer span.End()

	if err := loc.Validate(); err != nil {
		return nil, err
	}
	date := day.Format(dateLayout)

	s.memory.Evict(s.now().Format(dateLayout))
	if st, ok := s.memory.Get(loc, date); ok {
		metrics.SunTimesLookups.WithLabelValues("memory").Inc()
		return st, nil
	}

	key := "suntimes:" + SunTimesKey(loc, date)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil {
			var st domain.SunTimes
			if err := json.Unmarshal(data, &st); err == nil {
				metrics.SunTimesLookups.WithLabelValues("cache").Inc()
				s.memory.Put(&st)
				return &st, nil
			}
		}
	}

	st, err := s.provider.Fetch(ctx, loc, day)
	if err != nil {
		metrics.SunTimesLookups.WithLabelValues("error").Inc()
		span.RecordError(err)
		return nil, fmt.Errorf("fetch sun times: %w", err)
	}
	metrics.SunTimesLookups.WithLabelValues("provider").Inc()
	st.Location = loc
	st.Date = date
	s.memory.Put(st)

	if s.cache != nil {
		if data, err := json.Marshal(st); err == nil {
			_ = s.cache.Set(ctx, key, data, secondsUntilEndOfDay(s.now(), day))
		}
	}
	return st, nil
}

// NextEvent returns the next sunrise or sunset at loc after now.
func (s *SunTimesService) NextEvent(ctx context.Context, loc domain.GeoCoordinate) (*domain.SunEvent, error) {
	now := s.now()
	st, err := s.Get(ctx, loc, now)
	if err != nil {
		return nil, err
	}
	ev := st.NextEvent(now)
	return &ev, nil
}

func secondsUntilEndOfDay(now, day time.Time) int {
	y, m, d := day.Date()
	end := time.Date(y, m, d+1, 0, 0, 0, 0, day.Location())
	secs := int(end.Sub(now).Seconds())
	if secs < 60 {
		return 60
	}
	return secs
}
