package usecases_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/samirrijal/darshanam/internal/core/domain"
	"github.com/samirrijal/darshanam/internal/core/usecases"
)

var mysuru = domain.GeoCoordinate{Latitude: 12.3052, Longitude: 76.6552}

func TestGuideService_UpdateAndCurrent(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	repo := &mockGuideRepo{}
	cache := newMockCache()
	pub := &mockPublisher{}
	svc := usecases.NewGuideService(repo, cache, pub, time.Hour).WithClock(fixedClock(now))

	loc, err := svc.Update(context.Background(), mysuru, "Mysuru", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.Source != "api" {
		t.Errorf("expected default source api, got %q", loc.Source)
	}
	if !loc.UpdatedAt.Equal(now) {
		t.Errorf("expected updated_at %v, got %v", now, loc.UpdatedAt)
	}
	if len(pub.guide) != 1 {
		t.Fatalf("expected guide location published once, got %d", len(pub.guide))
	}

	cur, err := svc.Current(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cur.Location != mysuru {
		t.Errorf("expected %v, got %v", mysuru, cur.Location)
	}
	if _, err := cache.Get(context.Background(), "guide:current"); err != nil {
		t.Error("expected current location to be cached")
	}
}

func TestGuideService_UpdateInvalidatesCache(t *testing.T) {
	repo := &mockGuideRepo{}
	cache := newMockCache()
	svc := usecases.NewGuideService(repo, cache, nil, time.Hour)

	_, _ = svc.Update(context.Background(), mysuru, "", "", "admin")
	_, _ = svc.Current(context.Background())

	other := domain.GeoCoordinate{Latitude: 13.0827, Longitude: 80.2707}
	_, _ = svc.Update(context.Background(), other, "", "", "telegram")

	cur, err := svc.Current(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cur.Location != other {
		t.Errorf("expected fresh location after update, got %v", cur.Location)
	}
}

func TestGuideService_UpdateRejectsInvalid(t *testing.T) {
	svc := usecases.NewGuideService(&mockGuideRepo{}, nil, nil, time.Hour)
	_, err := svc.Update(context.Background(), domain.GeoCoordinate{Latitude: 91}, "", "", "")
	if !errors.Is(err, domain.ErrInvalidCoordinate) {
		t.Fatalf("expected ErrInvalidCoordinate, got %v", err)
	}
}

func TestGuideService_UpdateRepoError(t *testing.T) {
	repo := &mockGuideRepo{insertFn: func(ctx context.Context, loc *domain.GuideLocation) error {
		return errors.New("db down")
	}}
	pub := &mockPublisher{}
	svc := usecases.NewGuideService(repo, nil, pub, time.Hour)
	if _, err := svc.Update(context.Background(), mysuru, "", "", ""); err == nil {
		t.Fatal("expected error")
	}
	if len(pub.guide) != 0 {
		t.Error("nothing should be published when the insert fails")
	}
}

func TestGuideService_Status(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		updatedAt time.Time
		stale     bool
		contains  string
	}{
		{"fresh", now.Add(-10 * time.Minute), false, "up to date"},
		{"stale", now.Add(-95 * time.Minute), true, "95 minutes ago"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockGuideRepo{latestFn: func(ctx context.Context) (*domain.GuideLocation, error) {
				return &domain.GuideLocation{Location: mysuru, UpdatedAt: tt.updatedAt}, nil
			}}
			svc := usecases.NewGuideService(repo, nil, nil, time.Hour).WithClock(fixedClock(now))
			st, err := svc.Status(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if st.Stale != tt.stale {
				t.Errorf("expected stale=%v, got %v", tt.stale, st.Stale)
			}
			if !strings.Contains(st.Message, tt.contains) {
				t.Errorf("expected message to contain %q, got %q", tt.contains, st.Message)
			}
		})
	}
}

func TestGuideService_StatusMissing(t *testing.T) {
	svc := usecases.NewGuideService(&mockGuideRepo{}, nil, nil, time.Hour)
	st, err := svc.Status(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !st.Stale || st.Location != nil {
		t.Errorf("expected stale status without location, got %+v", st)
	}
}
