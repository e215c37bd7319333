package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/darshanam/internal/core/domain"
)

// GuideLocationRepo implements ports.GuideLocationRepository with pgx.
type GuideLocationRepo struct {
	db *DB
}

// NewGuideLocationRepo creates a new GuideLocationRepo.
func NewGuideLocationRepo(db *DB) *GuideLocationRepo {
	return &GuideLocationRepo{db: db}
}

// Insert appends a location; the newest row is the current one.
func (r *GuideLocationRepo) Insert(ctx context.Context, loc *domain.GuideLocation) error {
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO guide_locations (latitude, longitude, address, maps_url, source, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id::text
	`, loc.Location.Latitude, loc.Location.Longitude, loc.Address, loc.MapsURL, loc.Source, loc.UpdatedAt,
	).Scan(&loc.ID)
	if err != nil {
		return fmt.Errorf("insert guide location: %w", err)
	}
	return nil
}

// Latest returns the most recent guide location.
func (r *GuideLocationRepo) Latest(ctx context.Context) (*domain.GuideLocation, error) {
	row := r.db.Pool.QueryRow(ctx, `
		SELECT id::text, latitude, longitude, COALESCE(address, ''), COALESCE(maps_url, ''), source, updated_at
		FROM guide_locations
		ORDER BY updated_at DESC, id DESC
		LIMIT 1
	`)
	loc, err := scanGuideLocation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrGuideLocationNotFound
	}
	if err != nil {
		return nil, err
	}
	return loc, nil
}

// History returns up to limit locations, newest first.
func (r *GuideLocationRepo) History(ctx context.Context, limit int) ([]domain.GuideLocation, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id::text, latitude, longitude, COALESCE(address, ''), COALESCE(maps_url, ''), source, updated_at
		FROM guide_locations
		ORDER BY updated_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.GuideLocation
	for rows.Next() {
		loc, err := scanGuideLocation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *loc)
	}
	return out, rows.Err()
}

func scanGuideLocation(row pgx.Row) (*domain.GuideLocation, error) {
	var loc domain.GuideLocation
	err := row.Scan(
		&loc.ID, &loc.Location.Latitude, &loc.Location.Longitude,
		&loc.Address, &loc.MapsURL, &loc.Source, &loc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &loc, nil
}
