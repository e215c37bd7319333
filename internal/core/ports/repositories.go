package ports

import (
	"context"

	"github.com/samirrijal/darshanam/internal/core/domain"
)

// GuideLocationRepository persists the guide's location history.
type GuideLocationRepository interface {
	Insert(ctx context.Context, loc *domain.GuideLocation) error
	// Latest returns the newest location or domain.ErrGuideLocationNotFound.
	Latest(ctx context.Context) (*domain.GuideLocation, error)
	History(ctx context.Context, limit int) ([]domain.GuideLocation, error)
}

// AlignmentEventRepository persists alignment transitions.
type AlignmentEventRepository interface {
	Insert(ctx context.Context, ev *domain.AlignmentEvent) error
	// ListBySession returns one page of events, newest first, plus the total count.
	ListBySession(ctx context.Context, sessionID string, offset, limit int) ([]domain.AlignmentEvent, int, error)
}
