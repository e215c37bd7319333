package usecases_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/samirrijal/darshanam/internal/core/domain"
)

// --- Mock GuideLocationRepository ---

type mockGuideRepo struct {
	mu       sync.Mutex
	inserted []domain.GuideLocation
	latestFn func(ctx context.Context) (*domain.GuideLocation, error)
	insertFn func(ctx context.Context, loc *domain.GuideLocation) error
}

func (m *mockGuideRepo) Insert(ctx context.Context, loc *domain.GuideLocation) error {
	if m.insertFn != nil {
		if err := m.insertFn(ctx, loc); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	loc.ID = "loc-1"
	m.inserted = append(m.inserted, *loc)
	return nil
}

func (m *mockGuideRepo) Latest(ctx context.Context) (*domain.GuideLocation, error) {
	if m.latestFn != nil {
		return m.latestFn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.inserted) == 0 {
		return nil, domain.ErrGuideLocationNotFound
	}
	loc := m.inserted[len(m.inserted)-1]
	return &loc, nil
}

func (m *mockGuideRepo) History(ctx context.Context, limit int) ([]domain.GuideLocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inserted, nil
}

// --- Mock AlignmentEventRepository ---

type mockEventRepo struct {
	mu     sync.Mutex
	events []domain.AlignmentEvent
}

func (m *mockEventRepo) Insert(ctx context.Context, ev *domain.AlignmentEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *ev)
	return nil
}

func (m *mockEventRepo) ListBySession(ctx context.Context, sessionID string, offset, limit int) ([]domain.AlignmentEvent, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AlignmentEvent
	for _, ev := range m.events {
		if ev.SessionID == sessionID {
			out = append(out, ev)
		}
	}
	total := len(out)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return out[offset:end], total, nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu        sync.Mutex
	alignment []domain.AlignmentEvent
	guide     []domain.GuideLocation
	err       error
}

func (m *mockPublisher) PublishAlignmentEvent(ctx context.Context, ev *domain.AlignmentEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alignment = append(m.alignment, *ev)
	return m.err
}

func (m *mockPublisher) PublishGuideLocation(ctx context.Context, loc *domain.GuideLocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.guide = append(m.guide, *loc)
	return m.err
}

// --- Mock CacheService ---

var errCacheMiss = errors.New("valkey nil message")

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]int
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte), ttls: make(map[string]int)}
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errCacheMiss
	}
	return v, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttls[key] = ttlSeconds
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// --- Mock SunTimesProvider ---

type mockSunProvider struct {
	calls   int
	fetchFn func(ctx context.Context, loc domain.GeoCoordinate, date time.Time) (*domain.SunTimes, error)
}

func (m *mockSunProvider) Fetch(ctx context.Context, loc domain.GeoCoordinate, date time.Time) (*domain.SunTimes, error) {
	m.calls++
	if m.fetchFn != nil {
		return m.fetchFn(ctx, loc, date)
	}
	y, mo, d := date.Date()
	return &domain.SunTimes{
		Sunrise:   time.Date(y, mo, d, 6, 10, 0, 0, date.Location()),
		Sunset:    time.Date(y, mo, d, 18, 5, 0, 0, date.Location()),
		SolarNoon: time.Date(y, mo, d, 12, 7, 0, 0, date.Location()),
	}, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func ptr(v float64) *float64 { return &v }
