package postgres

import (
	"context"
	"fmt"

	"github.com/samirrijal/darshanam/internal/core/domain"
)

// AlignmentEventRepo implements ports.AlignmentEventRepository with pgx.
type AlignmentEventRepo struct {
	db *DB
}

// NewAlignmentEventRepo creates a new AlignmentEventRepo.
func NewAlignmentEventRepo(db *DB) *AlignmentEventRepo {
	return &AlignmentEventRepo{db: db}
}

// Insert records one transition.
func (r *AlignmentEventRepo) Insert(ctx context.Context, ev *domain.AlignmentEvent) error {
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO alignment_events (session_id, event_type, heading, bearing, distance_km, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id::text
	`, ev.SessionID, string(ev.Type), ev.Heading, ev.Bearing, ev.DistanceKm, ev.Time,
	).Scan(&ev.ID)
	if err != nil {
		return fmt.Errorf("insert alignment event: %w", err)
	}
	return nil
}

// ListBySession returns one page of a session's events, newest first, and the total.
func (r *AlignmentEventRepo) ListBySession(ctx context.Context, sessionID string, offset, limit int) ([]domain.AlignmentEvent, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx,
		`SELECT count(*) FROM alignment_events WHERE session_id = $1`, sessionID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 || offset >= total {
		return []domain.AlignmentEvent{}, total, nil
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT id::text, session_id, event_type, heading, bearing, distance_km, occurred_at
		FROM alignment_events
		WHERE session_id = $1
		ORDER BY occurred_at DESC, id DESC
		OFFSET $2 LIMIT $3
	`, sessionID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	events := make([]domain.AlignmentEvent, 0, limit)
	for rows.Next() {
		var ev domain.AlignmentEvent
		var typ string
		if err := rows.Scan(&ev.ID, &ev.SessionID, &typ, &ev.Heading, &ev.Bearing, &ev.DistanceKm, &ev.Time); err != nil {
			return nil, 0, err
		}
		ev.Type = domain.AlignmentEventType(typ)
		events = append(events, ev)
	}
	return events, total, rows.Err()
}
