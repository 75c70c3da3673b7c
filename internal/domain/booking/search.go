package booking

import (
	"context"
	"time"
)

// RecentSearchLimit is how many searches are read back per rider
const RecentSearchLimit = 10

// RecentSearch is an append-only record of a rider's searched coordinate
type RecentSearch struct {
	ID        string    `json:"id"`
	RiderID   string    `json:"rider_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt time.Time `json:"created_at"`
}

// SearchRepository stores recent searches
type SearchRepository interface {
	Append(ctx context.Context, s *RecentSearch) error

	// Recent returns up to limit searches for the rider, newest first.
	Recent(ctx context.Context, riderID string, limit int) ([]*RecentSearch, error)
}
