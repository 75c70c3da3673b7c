package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gocomet/ride-booking/internal/api/dto"
	"github.com/gocomet/ride-booking/internal/domain/booking"
	"github.com/gocomet/ride-booking/internal/service/lifecycle"
	apperrors "github.com/gocomet/ride-booking/pkg/errors"
)

// FindDriver handles POST /v1/bookings/find-driver
func (h *Handlers) FindDriver(c *gin.Context) {
	var req dto.FindDriverRequest
	if !h.bind(c, &req) {
		return
	}

	drivers, err := h.Matching.FindNearbyDrivers(c.Request.Context(), *req.Latitude, *req.Longitude, req.Radius)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Driver location retrieved successfully", drivers)
}

// SingleDriver handles GET /v1/bookings/single-driver/:driverId
func (h *Handlers) SingleDriver(c *gin.Context) {
	d, err := h.Matching.GetDriver(c.Request.Context(), c.Param("driverId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Driver retrieved successfully", d)
}

// CreateBooking handles POST /v1/bookings/create/:driverId
func (h *Handlers) CreateBooking(c *gin.Context) {
	var req dto.CreateBookingRequest
	if !h.bind(c, &req) {
		return
	}

	b, err := h.Bookings.CreateBooking(c.Request.Context(), identity(c).ID, c.Param("driverId"), req.Details())
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Booking created successfully", b)
}

// BookAgain handles POST /v1/bookings/again-booking/:bookingId
func (h *Handlers) BookAgain(c *gin.Context) {
	b, err := h.Bookings.RebookFromCompleted(c.Request.Context(), c.Param("bookingId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Booking created again successfully", b)
}

// UpdateBookingStatus handles PATCH /v1/bookings/booking-status/:bookingId
func (h *Handlers) UpdateBookingStatus(c *gin.Context) {
	var req dto.UpdateBookingStatusRequest
	if !h.bind(c, &req) {
		return
	}

	b, err := h.Bookings.UpdateBookingStatus(c.Request.Context(), c.Param("bookingId"), booking.Status(req.Status), req.Patch())
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Booking updated successfully", b)
}

// SingleBooking handles GET /v1/bookings/single-booking/:bookingId. Riders
// and drivers only see their own bookings.
func (h *Handlers) SingleBooking(c *gin.Context) {
	b, err := h.Bookings.GetBooking(c.Request.Context(), c.Param("bookingId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !canView(identity(c), b) {
		h.respondError(c, apperrors.ErrBookingNotFound)
		return
	}
	respond(c, http.StatusOK, "Booking retrieved successfully", b)
}

// AllBookings handles GET /v1/bookings/bookings
func (h *Handlers) AllBookings(c *gin.Context) {
	p, ok := h.pagination(c)
	if !ok {
		return
	}
	page, err := h.Bookings.ListAll(c.Request.Context(), p)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "All bookings retrieved successfully", page)
}

// RiderBookings serves the rider's listing for status
func (h *Handlers) RiderBookings(status booking.Status, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := h.pagination(c)
		if !ok {
			return
		}
		l, err := h.Bookings.ListByRiderStatus(c.Request.Context(), identity(c).ID, status, p)
		h.respondListing(c, l, err, message)
	}
}

// DriverBookings serves the driver's listing for status
func (h *Handlers) DriverBookings(status booking.Status, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := h.pagination(c)
		if !ok {
			return
		}
		l, err := h.Bookings.ListByDriverStatus(c.Request.Context(), identity(c).ID, status, p)
		h.respondListing(c, l, err, message)
	}
}

// CreateRecentSearch handles POST /v1/bookings/create-recent-search
func (h *Handlers) CreateRecentSearch(c *gin.Context) {
	var req dto.LocationRequest
	if !h.bind(c, &req) {
		return
	}

	if _, err := h.Bookings.RecordRecentSearch(c.Request.Context(), identity(c).ID, *req.Latitude, *req.Longitude); err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Recent search created successfully", nil)
}

// RecentSearches handles GET /v1/auth/recent-searches
func (h *Handlers) RecentSearches(c *gin.Context) {
	searches, err := h.Bookings.GetRecentSearches(c.Request.Context(), identity(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Recent searches retrieved successfully", searches)
}

func (h *Handlers) pagination(c *gin.Context) (booking.Pagination, bool) {
	var q dto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.respondError(c, apperrors.BadRequest("Invalid pagination", err))
		return booking.Pagination{}, false
	}
	return q.Pagination(), true
}

func (h *Handlers) respondListing(c *gin.Context, l *lifecycle.Listing, err error, message string) {
	if err != nil {
		h.respondError(c, err)
		return
	}
	if l.Booking != nil {
		respond(c, http.StatusOK, message, l.Booking)
		return
	}
	respond(c, http.StatusOK, message, l.Page)
}
