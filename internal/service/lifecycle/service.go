// Package lifecycle implements the booking lifecycle: creation, rebooking,
// status transitions with exclusive admission, listings and recent searches.
package lifecycle

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gocomet/ride-booking/internal/domain/booking"
	apperrors "github.com/gocomet/ride-booking/pkg/errors"
	"github.com/gocomet/ride-booking/pkg/logger"
	"github.com/gocomet/ride-booking/pkg/monitoring"
	"github.com/google/uuid"
)

// Config holds lifecycle configuration
type Config struct {
	CascadeScope booking.CascadeScope
	PageLimit    int
}

// Service manages bookings
type Service struct {
	bookings  booking.Repository
	searches  booking.SearchRepository
	publisher booking.Publisher
	logger    *logger.Logger
	nr        *monitoring.NewRelicApp
	config    Config

	now   func() time.Time
	newID func() string
}

// NewService creates a new lifecycle service. A nil publisher drops events.
func NewService(bookings booking.Repository, searches booking.SearchRepository, publisher booking.Publisher,
	log *logger.Logger, nr *monitoring.NewRelicApp, config Config) *Service {
	if config.CascadeScope == "" {
		config.CascadeScope = booking.CascadeGlobal
	}
	if config.PageLimit <= 0 {
		config.PageLimit = booking.DefaultLimit
	}
	return &Service{
		bookings:  bookings,
		searches:  searches,
		publisher: publisher,
		logger:    log,
		nr:        nr,
		config:    config,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
}

// Listing is the result of a status lookup. Exactly one field is set: Booking
// for single in-flight lookups, Page for paginated ones.
type Listing struct {
	Booking *booking.Booking
	Page    *booking.Page
}

// CreateBooking creates a WAITING booking between rider and driver
func (s *Service) CreateBooking(ctx context.Context, riderID, driverID string, d booking.Details) (*booking.Booking, error) {
	if strings.TrimSpace(riderID) == "" {
		return nil, apperrors.InvalidArgument("Rider ID is required", nil)
	}
	if strings.TrimSpace(driverID) == "" {
		return nil, apperrors.InvalidArgument("Driver ID is required", nil)
	}

	b := s.newBooking(riderID, driverID, d)
	if err := s.bookings.Create(ctx, b); err != nil {
		return nil, s.internal("Failed to create booking", err)
	}

	s.logger.Info("Booking created",
		logger.String("booking_id", b.ID),
		logger.String("rider_id", riderID),
		logger.String("driver_id", driverID),
	)
	s.nr.RecordBookingCreated(false)
	s.publish(ctx, booking.Event{Type: booking.EventCreated, Booking: b})
	return b, nil
}

// RebookFromCompleted creates a fresh WAITING booking copying the trip fields
// of a COMPLETED one. Pickup date and time are copied unchanged.
func (s *Service) RebookFromCompleted(ctx context.Context, bookingID string) (*booking.Booking, error) {
	if strings.TrimSpace(bookingID) == "" {
		return nil, apperrors.ErrInvalidBookingID
	}

	src, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, s.mapErr("Failed to load booking", err)
	}
	if src.Status != booking.StatusCompleted {
		return nil, apperrors.ErrBookingNotCompleted
	}

	b := s.newBooking(src.RiderID, src.DriverID, src.Details())
	if err := s.bookings.Create(ctx, b); err != nil {
		return nil, s.internal("Failed to create booking", err)
	}

	s.logger.Info("Booking rebooked",
		logger.String("booking_id", b.ID),
		logger.String("source_booking_id", src.ID),
	)
	s.nr.RecordBookingCreated(true)
	s.publish(ctx, booking.Event{Type: booking.EventRebooked, Booking: b})
	return b, nil
}

// UpdateBookingStatus moves a booking to status and applies patch. An
// unchanged status is rejected. IN_PROGRESS goes through AdmitExclusive.
func (s *Service) UpdateBookingStatus(ctx context.Context, bookingID string, status booking.Status, patch booking.Patch) (*booking.Booking, error) {
	if strings.TrimSpace(bookingID) == "" {
		return nil, apperrors.ErrInvalidBookingID
	}
	if !status.IsValid() {
		return nil, apperrors.ErrInvalidStatus
	}

	if status == booking.StatusInProgress {
		return s.AdmitExclusive(ctx, bookingID, patch)
	}

	b, err := s.bookings.Transition(ctx, bookingID, status, patch)
	if err != nil {
		return nil, s.mapErr("Failed to update booking status", err)
	}

	s.logger.Info("Booking status updated",
		logger.String("booking_id", b.ID),
		logger.String("status", string(b.Status)),
	)
	s.nr.RecordBookingTransition(b.ID, string(b.Status), 0)
	s.publish(ctx, booking.Event{Type: booking.EventStatusChanged, Booking: b})
	return b, nil
}

// AdmitExclusive moves the booking to IN_PROGRESS and, in the same
// transaction, cancels the other bookings in the configured scope. Global
// scope cancels every other booking of every rider and driver, COMPLETED and
// CANCELLED ones included.
func (s *Service) AdmitExclusive(ctx context.Context, bookingID string, patch booking.Patch) (*booking.Booking, error) {
	b, cancelled, err := s.bookings.AdmitExclusive(ctx, bookingID, patch, s.config.CascadeScope)
	if err != nil {
		return nil, s.mapErr("Failed to admit booking", err)
	}

	s.logger.Info("Booking admitted",
		logger.String("booking_id", b.ID),
		logger.String("driver_id", b.DriverID),
		logger.String("cascade_scope", string(s.config.CascadeScope)),
		logger.Int64("cancelled", cancelled),
	)
	s.nr.RecordBookingTransition(b.ID, string(b.Status), cancelled)
	s.publish(ctx, booking.Event{Type: booking.EventStatusChanged, Booking: b, Cancelled: cancelled})
	return b, nil
}

// GetBooking returns one booking
func (s *Service) GetBooking(ctx context.Context, bookingID string) (*booking.Booking, error) {
	if strings.TrimSpace(bookingID) == "" {
		return nil, apperrors.ErrInvalidBookingID
	}
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, s.mapErr("Failed to load booking", err)
	}
	return b, nil
}

// ListByRiderStatus returns the rider's single WAITING or IN_PROGRESS booking,
// or a page of COMPLETED or CANCELLED ones.
func (s *Service) ListByRiderStatus(ctx context.Context, riderID string, status booking.Status, p booking.Pagination) (*Listing, error) {
	if strings.TrimSpace(riderID) == "" {
		return nil, apperrors.InvalidArgument("Rider ID is required", nil)
	}
	f := booking.Filter{RiderID: riderID, Status: status}
	switch status {
	case booking.StatusWaiting:
		return s.single(ctx, f, apperrors.ErrNoWaitingBooking)
	case booking.StatusInProgress:
		return s.single(ctx, f, apperrors.ErrNoProgressBooking)
	case booking.StatusCompleted, booking.StatusCancelled:
		return s.paged(ctx, f, p)
	}
	return nil, apperrors.ErrInvalidStatus
}

// ListByDriverStatus returns the driver's single IN_PROGRESS booking, or a
// page of WAITING, COMPLETED or CANCELLED ones.
func (s *Service) ListByDriverStatus(ctx context.Context, driverID string, status booking.Status, p booking.Pagination) (*Listing, error) {
	if strings.TrimSpace(driverID) == "" {
		return nil, apperrors.InvalidArgument("Driver ID is required", nil)
	}
	f := booking.Filter{DriverID: driverID, Status: status}
	switch status {
	case booking.StatusInProgress:
		return s.single(ctx, f, apperrors.ErrNoProgressBooking)
	case booking.StatusWaiting, booking.StatusCompleted, booking.StatusCancelled:
		return s.paged(ctx, f, p)
	}
	return nil, apperrors.ErrInvalidStatus
}

// ListAll returns every booking, newest first
func (s *Service) ListAll(ctx context.Context, p booking.Pagination) (*booking.Page, error) {
	l, err := s.paged(ctx, booking.Filter{}, p)
	if err != nil {
		return nil, err
	}
	return l.Page, nil
}

// RecordRecentSearch appends a searched coordinate to the rider's history
func (s *Service) RecordRecentSearch(ctx context.Context, riderID string, lat, lng float64) (*booking.RecentSearch, error) {
	if strings.TrimSpace(riderID) == "" {
		return nil, apperrors.InvalidArgument("Rider ID is required", nil)
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, apperrors.ErrInvalidCoordinates
	}

	search := &booking.RecentSearch{
		ID:        s.newID(),
		RiderID:   riderID,
		Latitude:  lat,
		Longitude: lng,
		CreatedAt: s.now(),
	}
	if err := s.searches.Append(ctx, search); err != nil {
		return nil, s.internal("Failed to record recent search", err)
	}
	return search, nil
}

// GetRecentSearches returns the rider's newest searches
func (s *Service) GetRecentSearches(ctx context.Context, riderID string) ([]*booking.RecentSearch, error) {
	if strings.TrimSpace(riderID) == "" {
		return nil, apperrors.InvalidArgument("Rider ID is required", nil)
	}
	searches, err := s.searches.Recent(ctx, riderID, booking.RecentSearchLimit)
	if err != nil {
		return nil, s.internal("Failed to load recent searches", err)
	}
	return searches, nil
}

func (s *Service) newBooking(riderID, driverID string, d booking.Details) *booking.Booking {
	now := s.now()
	return &booking.Booking{
		ID:             s.newID(),
		RiderID:        riderID,
		DriverID:       driverID,
		Status:         booking.StatusWaiting,
		PickupLocation: d.PickupLocation,
		Destination:    d.Destination,
		PickupDate:     d.PickupDate,
		PickupTime:     d.PickupTime,
		Distance:       d.Distance,
		PersonNo:       d.PersonNo,
		EstimatedCost:  d.EstimatedCost,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (s *Service) single(ctx context.Context, f booking.Filter, notFound *apperrors.AppError) (*Listing, error) {
	b, err := s.bookings.FindFirst(ctx, f)
	if errors.Is(err, booking.ErrBookingNotFound) {
		return nil, notFound
	}
	if err != nil {
		return nil, s.internal("Failed to load booking", err)
	}
	return &Listing{Booking: b}, nil
}

func (s *Service) paged(ctx context.Context, f booking.Filter, p booking.Pagination) (*Listing, error) {
	p = p.Normalize(s.config.PageLimit)
	bookings, total, err := s.bookings.List(ctx, f, p)
	if err != nil {
		return nil, s.internal("Failed to list bookings", err)
	}
	return &Listing{Page: booking.NewPage(bookings, total, p)}, nil
}

// mapErr translates repository sentinels and logs anything else
func (s *Service) mapErr(msg string, err error) error {
	switch {
	case errors.Is(err, booking.ErrBookingNotFound):
		return apperrors.WithCause(apperrors.ErrBookingNotFound, err)
	case errors.Is(err, booking.ErrSameStatus):
		return apperrors.WithCause(apperrors.ErrBookingSameStatus, err)
	}
	return s.internal(msg, err)
}

func (s *Service) internal(msg string, err error) error {
	s.logger.Error(msg, logger.Err(err))
	return apperrors.Internal(msg, err)
}

// publish is best effort; the change is already persisted
func (s *Service) publish(ctx context.Context, evt booking.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Warn("Failed to publish booking event",
			logger.String("event", string(evt.Type)),
			logger.String("booking_id", evt.Booking.ID),
			logger.Err(err),
		)
	}
}
