package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gocomet/ride-booking/internal/domain/booking"
)

// SearchRepository stores recent searches
type SearchRepository struct {
	db *sql.DB
}

// NewSearchRepository creates a repository over db
func NewSearchRepository(db *sql.DB) *SearchRepository {
	return &SearchRepository{db: db}
}

// Append records a search
func (r *SearchRepository) Append(ctx context.Context, s *booking.RecentSearch) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO recent_searches (id, rider_id, latitude, longitude, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, s.ID, s.RiderID, s.Latitude, s.Longitude, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert recent search: %w", err)
	}
	return nil
}

// Recent returns up to limit searches, newest first
func (r *SearchRepository) Recent(ctx context.Context, riderID string, limit int) ([]*booking.RecentSearch, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, rider_id, latitude, longitude, created_at
		FROM recent_searches
		WHERE rider_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, riderID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent searches: %w", err)
	}
	defer rows.Close()

	out := make([]*booking.RecentSearch, 0, limit)
	for rows.Next() {
		var s booking.RecentSearch
		if err := rows.Scan(&s.ID, &s.RiderID, &s.Latitude, &s.Longitude, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recent search: %w", err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}
