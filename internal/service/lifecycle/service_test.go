package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/gocomet/ride-booking/internal/domain/booking"
	"github.com/gocomet/ride-booking/internal/repository/memory"
	apperrors "github.com/gocomet/ride-booking/pkg/errors"
	"github.com/gocomet/ride-booking/pkg/logger"
	"github.com/gocomet/ride-booking/pkg/monitoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []booking.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, evt booking.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

func newTestService(t *testing.T, scope booking.CascadeScope) (*Service, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	svc := NewService(memory.NewBookingRepository(), memory.NewSearchRepository(), pub,
		logger.NewNop(), monitoring.Disabled(), Config{CascadeScope: scope, PageLimit: 10})

	clock := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return svc, pub
}

func details() booking.Details {
	return booking.Details{
		PickupLocation: "Dhanmondi 27",
		Destination:    "Uttara Sector 7",
		PickupDate:     "2026-02-01",
		PickupTime:     "08:30",
		Distance:       14.2,
		PersonNo:       2,
		EstimatedCost:  420,
	}
}

func requireCode(t *testing.T, err error, code, message string) {
	t.Helper()
	require.Error(t, err)
	appErr := apperrors.GetAppError(err)
	assert.Equal(t, code, appErr.Code)
	if message != "" {
		assert.Equal(t, message, appErr.Message)
	}
}

func TestCreateBooking_AlwaysWaiting(t *testing.T) {
	svc, pub := newTestService(t, booking.CascadeGlobal)

	b, err := svc.CreateBooking(context.Background(), "rider-1", "driver-1", details())
	require.NoError(t, err)
	assert.Equal(t, booking.StatusWaiting, b.Status)
	assert.NotEmpty(t, b.ID)
	assert.Equal(t, details(), b.Details())

	// A second pending request for the same rider is allowed
	_, err = svc.CreateBooking(context.Background(), "rider-1", "driver-2", details())
	require.NoError(t, err)

	require.Len(t, pub.events, 2)
	assert.Equal(t, booking.EventCreated, pub.events[0].Type)
}

func TestCreateBooking_RequiresParticipants(t *testing.T) {
	svc, _ := newTestService(t, booking.CascadeGlobal)

	_, err := svc.CreateBooking(context.Background(), "", "driver-1", details())
	requireCode(t, err, apperrors.CodeInvalidArgument, "")

	_, err = svc.CreateBooking(context.Background(), "rider-1", " ", details())
	requireCode(t, err, apperrors.CodeInvalidArgument, "")
}

func TestUpdateBookingStatus_SameStatusRejected(t *testing.T) {
	svc, _ := newTestService(t, booking.CascadeGlobal)
	ctx := context.Background()

	b, err := svc.CreateBooking(ctx, "rider-1", "driver-1", details())
	require.NoError(t, err)

	_, err = svc.UpdateBookingStatus(ctx, b.ID, booking.StatusWaiting, booking.Patch{})
	requireCode(t, err, apperrors.CodeInvalidState, "Booking already in progress")

	_, err = svc.UpdateBookingStatus(ctx, b.ID, booking.StatusInProgress, booking.Patch{})
	require.NoError(t, err)
	_, err = svc.UpdateBookingStatus(ctx, b.ID, booking.StatusInProgress, booking.Patch{})
	requireCode(t, err, apperrors.CodeInvalidState, "Booking already in progress")
}

func TestUpdateBookingStatus_PersistsDifferentStatus(t *testing.T) {
	svc, _ := newTestService(t, booking.CascadeGlobal)
	ctx := context.Background()

	b, err := svc.CreateBooking(ctx, "rider-1", "driver-1", details())
	require.NoError(t, err)

	cost := 500.0
	updated, err := svc.UpdateBookingStatus(ctx, b.ID, booking.StatusCompleted, booking.Patch{EstimatedCost: &cost})
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCompleted, updated.Status)
	assert.Equal(t, 500.0, updated.EstimatedCost)

	stored, err := svc.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCompleted, stored.Status)

	// Leaving a terminal state is not blocked
	reopened, err := svc.UpdateBookingStatus(ctx, b.ID, booking.StatusWaiting, booking.Patch{})
	require.NoError(t, err)
	assert.Equal(t, booking.StatusWaiting, reopened.Status)
}

func TestUpdateBookingStatus_Errors(t *testing.T) {
	svc, _ := newTestService(t, booking.CascadeGlobal)
	ctx := context.Background()

	_, err := svc.UpdateBookingStatus(ctx, "missing", booking.StatusCompleted, booking.Patch{})
	requireCode(t, err, apperrors.CodeNotFound, "Booking not found")

	_, err = svc.UpdateBookingStatus(ctx, "missing", booking.StatusInProgress, booking.Patch{})
	requireCode(t, err, apperrors.CodeNotFound, "Booking not found")

	_, err = svc.UpdateBookingStatus(ctx, "b1", booking.Status("ARRIVED"), booking.Patch{})
	requireCode(t, err, apperrors.CodeInvalidArgument, "")
}

func TestAdmitExclusive_GlobalCascade(t *testing.T) {
	svc, pub := newTestService(t, booking.CascadeGlobal)
	ctx := context.Background()

	b1, err := svc.CreateBooking(ctx, "rider-1", "driver-1", details())
	require.NoError(t, err)
	b2, err := svc.CreateBooking(ctx, "rider-2", "driver-2", details())
	require.NoError(t, err)
	b3, err := svc.CreateBooking(ctx, "rider-3", "driver-3", details())
	require.NoError(t, err)
	_, err = svc.UpdateBookingStatus(ctx, b3.ID, booking.StatusCompleted, booking.Patch{})
	require.NoError(t, err)

	admitted, err := svc.UpdateBookingStatus(ctx, b1.ID, booking.StatusInProgress, booking.Patch{})
	require.NoError(t, err)
	assert.Equal(t, booking.StatusInProgress, admitted.Status)

	other, err := svc.GetBooking(ctx, b2.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, other.Status)

	// Completed bookings are cancelled too
	done, err := svc.GetBooking(ctx, b3.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, done.Status)

	last := pub.events[len(pub.events)-1]
	assert.Equal(t, booking.EventStatusChanged, last.Type)
	assert.Equal(t, int64(2), last.Cancelled)
}

func TestAdmitExclusive_OpenScopeKeepsTerminalBookings(t *testing.T) {
	svc, pub := newTestService(t, booking.CascadeOpen)
	ctx := context.Background()

	b1, err := svc.CreateBooking(ctx, "rider-1", "driver-1", details())
	require.NoError(t, err)
	b2, err := svc.CreateBooking(ctx, "rider-2", "driver-2", details())
	require.NoError(t, err)
	b3, err := svc.CreateBooking(ctx, "rider-3", "driver-3", details())
	require.NoError(t, err)
	_, err = svc.UpdateBookingStatus(ctx, b3.ID, booking.StatusCompleted, booking.Patch{})
	require.NoError(t, err)

	_, err = svc.UpdateBookingStatus(ctx, b1.ID, booking.StatusInProgress, booking.Patch{})
	require.NoError(t, err)

	other, err := svc.GetBooking(ctx, b2.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, other.Status)

	done, err := svc.GetBooking(ctx, b3.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCompleted, done.Status)
	assert.Equal(t, int64(1), pub.events[len(pub.events)-1].Cancelled)
}

func TestAdmitExclusive_DriverScope(t *testing.T) {
	svc, _ := newTestService(t, booking.CascadeDriver)
	ctx := context.Background()

	b1, err := svc.CreateBooking(ctx, "rider-1", "driver-1", details())
	require.NoError(t, err)
	sameDriver, err := svc.CreateBooking(ctx, "rider-2", "driver-1", details())
	require.NoError(t, err)
	otherDriver, err := svc.CreateBooking(ctx, "rider-3", "driver-2", details())
	require.NoError(t, err)

	_, err = svc.UpdateBookingStatus(ctx, b1.ID, booking.StatusInProgress, booking.Patch{})
	require.NoError(t, err)

	got, err := svc.GetBooking(ctx, sameDriver.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, got.Status)

	got, err = svc.GetBooking(ctx, otherDriver.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusWaiting, got.Status)
}

func TestRebookFromCompleted(t *testing.T) {
	svc, pub := newTestService(t, booking.CascadeDriver)
	ctx := context.Background()

	src, err := svc.CreateBooking(ctx, "rider-1", "driver-1", details())
	require.NoError(t, err)

	_, err = svc.RebookFromCompleted(ctx, src.ID)
	requireCode(t, err, apperrors.CodeInvalidState, "Booking is not completed")

	for _, status := range []booking.Status{booking.StatusInProgress, booking.StatusCancelled} {
		_, err := svc.UpdateBookingStatus(ctx, src.ID, status, booking.Patch{})
		require.NoError(t, err)
		_, err = svc.RebookFromCompleted(ctx, src.ID)
		requireCode(t, err, apperrors.CodeInvalidState, "Booking is not completed")
	}

	_, err = svc.UpdateBookingStatus(ctx, src.ID, booking.StatusCompleted, booking.Patch{})
	require.NoError(t, err)

	again, err := svc.RebookFromCompleted(ctx, src.ID)
	require.NoError(t, err)
	assert.NotEqual(t, src.ID, again.ID)
	assert.Equal(t, booking.StatusWaiting, again.Status)
	assert.Equal(t, src.RiderID, again.RiderID)
	assert.Equal(t, src.DriverID, again.DriverID)
	assert.Equal(t, src.Details(), again.Details())

	_, err = svc.RebookFromCompleted(ctx, "missing")
	requireCode(t, err, apperrors.CodeNotFound, "Booking not found")

	assert.Equal(t, booking.EventRebooked, pub.events[len(pub.events)-1].Type)
}

func TestListByDriverStatus_Pagination(t *testing.T) {
	svc, _ := newTestService(t, booking.CascadeDriver)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 12; i++ {
		b, err := svc.CreateBooking(ctx, fmt.Sprintf("rider-%d", i), "driver-1", details())
		require.NoError(t, err)
		_, err = svc.UpdateBookingStatus(ctx, b.ID, booking.StatusCompleted, booking.Patch{})
		require.NoError(t, err)
		ids = append(ids, b.ID)
	}

	l, err := svc.ListByDriverStatus(ctx, "driver-1", booking.StatusCompleted, booking.Pagination{Page: 2, Limit: 5})
	require.NoError(t, err)
	require.NotNil(t, l.Page)
	assert.Nil(t, l.Booking)
	assert.Equal(t, 12, l.Page.TotalCount)
	assert.Equal(t, 3, l.Page.TotalPages)
	assert.Equal(t, 2, l.Page.CurrentPage)
	require.Len(t, l.Page.Bookings, 5)

	// Newest first: bookings 6 to 10 counted from the newest
	for i, b := range l.Page.Bookings {
		assert.Equal(t, ids[len(ids)-6-i], b.ID)
	}

	l, err = svc.ListByDriverStatus(ctx, "driver-1", booking.StatusCompleted, booking.Pagination{})
	require.NoError(t, err)
	assert.Len(t, l.Page.Bookings, 10)
	assert.Equal(t, 1, l.Page.CurrentPage)
}

func TestListByRiderStatus_SingleLookups(t *testing.T) {
	svc, _ := newTestService(t, booking.CascadeDriver)
	ctx := context.Background()

	_, err := svc.ListByRiderStatus(ctx, "rider-1", booking.StatusWaiting, booking.Pagination{})
	requireCode(t, err, apperrors.CodeNotFound, "No waiting booking found")

	_, err = svc.ListByRiderStatus(ctx, "rider-1", booking.StatusInProgress, booking.Pagination{})
	requireCode(t, err, apperrors.CodeNotFound, "No progress booking found")

	b, err := svc.CreateBooking(ctx, "rider-1", "driver-1", details())
	require.NoError(t, err)

	l, err := svc.ListByRiderStatus(ctx, "rider-1", booking.StatusWaiting, booking.Pagination{})
	require.NoError(t, err)
	require.NotNil(t, l.Booking)
	assert.Equal(t, b.ID, l.Booking.ID)

	_, err = svc.UpdateBookingStatus(ctx, b.ID, booking.StatusInProgress, booking.Patch{})
	require.NoError(t, err)
	l, err = svc.ListByDriverStatus(ctx, "driver-1", booking.StatusInProgress, booking.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, b.ID, l.Booking.ID)

	l, err = svc.ListByRiderStatus(ctx, "rider-1", booking.StatusCancelled, booking.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, 0, l.Page.TotalCount)
	assert.Empty(t, l.Page.Bookings)
}

func TestListAll(t *testing.T) {
	svc, _ := newTestService(t, booking.CascadeDriver)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := svc.CreateBooking(ctx, "rider", fmt.Sprintf("driver-%d", i), details())
		require.NoError(t, err)
	}

	page, err := svc.ListAll(ctx, booking.Pagination{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalCount)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Bookings, 2)

	page, err = svc.ListAll(ctx, booking.Pagination{Page: math.MaxInt, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalCount)
	assert.Empty(t, page.Bookings)
}

func TestRecentSearches(t *testing.T) {
	svc, _ := newTestService(t, booking.CascadeGlobal)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		_, err := svc.RecordRecentSearch(ctx, "rider-1", 23.7+float64(i)/100, 90.4)
		require.NoError(t, err)
	}

	recent, err := svc.GetRecentSearches(ctx, "rider-1")
	require.NoError(t, err)
	require.Len(t, recent, booking.RecentSearchLimit)
	assert.InDelta(t, 23.81, recent[0].Latitude, 1e-9)

	_, err = svc.RecordRecentSearch(ctx, "rider-1", 123, 90)
	requireCode(t, err, apperrors.CodeInvalidArgument, "Invalid data")
}

type failingRepo struct {
	booking.Repository
}

func (failingRepo) Create(ctx context.Context, b *booking.Booking) error {
	return errors.New("connection refused")
}

func TestCreateBooking_StorageFailureIsInternal(t *testing.T) {
	svc := NewService(failingRepo{}, memory.NewSearchRepository(), nil,
		logger.NewNop(), monitoring.Disabled(), Config{})

	_, err := svc.CreateBooking(context.Background(), "rider-1", "driver-1", details())
	requireCode(t, err, apperrors.CodeInternal, "Failed to create booking")
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	svc, pub := newTestService(t, booking.CascadeGlobal)
	pub.err = errors.New("broker down")

	b, err := svc.CreateBooking(context.Background(), "rider-1", "driver-1", details())
	require.NoError(t, err)
	assert.Equal(t, booking.StatusWaiting, b.Status)
}
