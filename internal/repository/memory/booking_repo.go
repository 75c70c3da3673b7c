// Package memory holds mutex-guarded stores used with STORAGE_DRIVER=memory
// and in tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gocomet/ride-booking/internal/domain/booking"
)

// BookingRepository keeps bookings in a map. Every method runs under one
// mutex, which makes Transition and AdmitExclusive atomic.
type BookingRepository struct {
	mu       sync.Mutex
	bookings map[string]*booking.Booking
	now      func() time.Time
}

// NewBookingRepository creates an empty store
func NewBookingRepository() *BookingRepository {
	return &BookingRepository{
		bookings: make(map[string]*booking.Booking),
		now:      time.Now,
	}
}

func clone(b *booking.Booking) *booking.Booking {
	c := *b
	return &c
}

// Create stores a copy of b
func (r *BookingRepository) Create(ctx context.Context, b *booking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookings[b.ID] = clone(b)
	return nil
}

// GetByID returns a copy of the stored booking
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*booking.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, booking.ErrBookingNotFound
	}
	return clone(b), nil
}

// sorted returns matches newest first; callers hold the lock
func (r *BookingRepository) sorted(f booking.Filter) []*booking.Booking {
	out := make([]*booking.Booking, 0)
	for _, b := range r.bookings {
		if f.Matches(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// FindFirst returns the newest match
func (r *BookingRepository) FindFirst(ctx context.Context, f booking.Filter) (*booking.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matches := r.sorted(f)
	if len(matches) == 0 {
		return nil, booking.ErrBookingNotFound
	}
	return clone(matches[0]), nil
}

// List returns one page of matches and the total count
func (r *BookingRepository) List(ctx context.Context, f booking.Filter, p booking.Pagination) ([]*booking.Booking, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matches := r.sorted(f)
	total := len(matches)

	start := p.Offset()
	if start < 0 || start > total {
		start = total
	}
	end := start + p.Limit
	if end > total {
		end = total
	}

	page := make([]*booking.Booking, 0, end-start)
	for _, b := range matches[start:end] {
		page = append(page, clone(b))
	}
	return page, total, nil
}

// Transition is a compare-and-set on status
func (r *BookingRepository) Transition(ctx context.Context, id string, status booking.Status, patch booking.Patch) (*booking.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transitionLocked(id, status, patch)
}

func (r *BookingRepository) transitionLocked(id string, status booking.Status, patch booking.Patch) (*booking.Booking, error) {
	b, ok := r.bookings[id]
	if !ok {
		return nil, booking.ErrBookingNotFound
	}
	if b.Status == status {
		return nil, booking.ErrSameStatus
	}
	patch.Apply(b)
	b.Status = status
	b.UpdatedAt = r.now()
	return clone(b), nil
}

// AdmitExclusive moves id to IN_PROGRESS and cancels the rest of the scope
func (r *BookingRepository) AdmitExclusive(ctx context.Context, id string, patch booking.Patch, scope booking.CascadeScope) (*booking.Booking, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	admitted, err := r.transitionLocked(id, booking.StatusInProgress, patch)
	if err != nil {
		return nil, 0, err
	}

	var cancelled int64
	now := r.now()
	for otherID, b := range r.bookings {
		if otherID == id || !scope.Cancels(b, admitted.DriverID) {
			continue
		}
		b.Status = booking.StatusCancelled
		b.UpdatedAt = now
		cancelled++
	}
	return admitted, cancelled, nil
}
