package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/gocomet/ride-booking/internal/domain/booking"
)

// SearchRepository keeps recent searches per rider
type SearchRepository struct {
	mu      sync.RWMutex
	byRider map[string][]*booking.RecentSearch
}

// NewSearchRepository creates an empty store
func NewSearchRepository() *SearchRepository {
	return &SearchRepository{byRider: make(map[string][]*booking.RecentSearch)}
}

// Append records a search
func (r *SearchRepository) Append(ctx context.Context, s *booking.RecentSearch) error {
	c := *s
	r.mu.Lock()
	r.byRider[s.RiderID] = append(r.byRider[s.RiderID], &c)
	r.mu.Unlock()
	return nil
}

// Recent returns up to limit searches, newest first
func (r *SearchRepository) Recent(ctx context.Context, riderID string, limit int) ([]*booking.RecentSearch, error) {
	r.mu.RLock()
	all := r.byRider[riderID]
	out := make([]*booking.RecentSearch, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		c := *all[i]
		out = append(out, &c)
	}
	r.mu.RUnlock()

	// Later appends win ties on CreatedAt
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
