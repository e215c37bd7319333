package ports

import (
	"context"
	"time"

	"github.com/samirrijal/darshanam/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishAlignmentEvent(ctx context.Context, ev *domain.AlignmentEvent) error
	PublishGuideLocation(ctx context.Context, loc *domain.GuideLocation) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeGuideLocations(ctx context.Context, handler func(ctx context.Context, loc *domain.GuideLocation) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// NotificationService sends notifications (Telegram, push, etc.).
type NotificationService interface {
	SendPush(ctx context.Context, recipient, title, body string) error
}

// SunTimesProvider looks up sunrise and sunset for a location and day.
type SunTimesProvider interface {
	Fetch(ctx context.Context, loc domain.GeoCoordinate, date time.Time) (*domain.SunTimes, error)
}
