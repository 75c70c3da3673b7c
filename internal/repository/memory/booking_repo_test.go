package memory

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/gocomet/ride-booking/internal/domain/booking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, repo *BookingRepository, id, rider, drv string, status booking.Status, at time.Time) {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), &booking.Booking{
		ID: id, RiderID: rider, DriverID: drv, Status: status, CreatedAt: at, UpdatedAt: at,
	}))
}

func TestBookingRepository_ListPagesNewestFirst(t *testing.T) {
	repo := NewBookingRepository()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= 12; i++ {
		seed(t, repo, fmt.Sprintf("b%02d", i), "r1", "d1", booking.StatusCompleted, base.Add(time.Duration(i)*time.Minute))
	}
	seed(t, repo, "other", "r2", "d1", booking.StatusCompleted, base)

	page, total, err := repo.List(context.Background(), booking.Filter{RiderID: "r1"}, booking.Pagination{Page: 2, Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, 12, total)
	require.Len(t, page, 5)
	assert.Equal(t, "b07", page[0].ID)
	assert.Equal(t, "b03", page[4].ID)

	page, _, err = repo.List(context.Background(), booking.Filter{RiderID: "r1"}, booking.Pagination{Page: 9, Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, page)

	page, total, err = repo.List(context.Background(), booking.Filter{RiderID: "r1"}, booking.Pagination{Page: math.MaxInt, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 12, total)
	assert.Empty(t, page)
}

func TestBookingRepository_TransitionRejectsSameStatus(t *testing.T) {
	repo := NewBookingRepository()
	seed(t, repo, "b1", "r1", "d1", booking.StatusWaiting, time.Now())

	_, err := repo.Transition(context.Background(), "b1", booking.StatusWaiting, booking.Patch{})
	assert.ErrorIs(t, err, booking.ErrSameStatus)

	_, err = repo.Transition(context.Background(), "missing", booking.StatusCompleted, booking.Patch{})
	assert.ErrorIs(t, err, booking.ErrBookingNotFound)
}

func TestBookingRepository_AdmitExclusiveScopes(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name      string
		scope     booking.CascadeScope
		want      map[string]booking.Status
		cancelled int64
	}{
		{
			name:  "global",
			scope: booking.CascadeGlobal,
			want: map[string]booking.Status{
				"b1": booking.StatusInProgress,
				"b2": booking.StatusCancelled,
				"b3": booking.StatusCancelled,
				"b4": booking.StatusCancelled,
			},
			cancelled: 3,
		},
		{
			name:  "open",
			scope: booking.CascadeOpen,
			want: map[string]booking.Status{
				"b1": booking.StatusInProgress,
				"b2": booking.StatusCancelled,
				"b3": booking.StatusCancelled,
				"b4": booking.StatusCompleted,
			},
			cancelled: 2,
		},
		{
			name:  "driver",
			scope: booking.CascadeDriver,
			want: map[string]booking.Status{
				"b1": booking.StatusInProgress,
				"b2": booking.StatusCancelled,
				"b3": booking.StatusWaiting,
				"b4": booking.StatusCompleted,
			},
			cancelled: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewBookingRepository()
			seed(t, repo, "b1", "r1", "d1", booking.StatusWaiting, now)
			seed(t, repo, "b2", "r2", "d1", booking.StatusWaiting, now)
			seed(t, repo, "b3", "r3", "d2", booking.StatusWaiting, now)
			seed(t, repo, "b4", "r4", "d2", booking.StatusCompleted, now)

			admitted, n, err := repo.AdmitExclusive(context.Background(), "b1", booking.Patch{}, tt.scope)
			require.NoError(t, err)
			assert.Equal(t, booking.StatusInProgress, admitted.Status)
			assert.Equal(t, tt.cancelled, n)

			for id, status := range tt.want {
				b, err := repo.GetByID(context.Background(), id)
				require.NoError(t, err)
				assert.Equal(t, status, b.Status, id)
			}
		})
	}
}

func TestBookingRepository_ConcurrentAdmitLeavesOneInProgress(t *testing.T) {
	repo := NewBookingRepository()
	for i := 0; i < 20; i++ {
		seed(t, repo, fmt.Sprintf("b%02d", i), "r", fmt.Sprintf("d%d", i), booking.StatusWaiting, time.Now())
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, _ = repo.AdmitExclusive(context.Background(), fmt.Sprintf("b%02d", i), booking.Patch{}, booking.CascadeGlobal)
		}(i)
	}
	wg.Wait()

	_, inProgress, err := repo.List(context.Background(), booking.Filter{Status: booking.StatusInProgress}, booking.Pagination{Page: 1, Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, 1, inProgress)
}

func TestSearchRepository_RecentNewestFirst(t *testing.T) {
	repo := NewSearchRepository()
	base := time.Now()
	for i := 0; i < 12; i++ {
		require.NoError(t, repo.Append(context.Background(), &booking.RecentSearch{
			ID: fmt.Sprintf("s%02d", i), RiderID: "r1", Latitude: float64(i), CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	recent, err := repo.Recent(context.Background(), "r1", booking.RecentSearchLimit)
	require.NoError(t, err)
	require.Len(t, recent, 10)
	assert.Equal(t, "s11", recent[0].ID)
	assert.Equal(t, "s02", recent[9].ID)

	none, err := repo.Recent(context.Background(), "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}
