package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gocomet/ride-booking/internal/api/dto"
	"github.com/gocomet/ride-booking/internal/auth"
	"github.com/gocomet/ride-booking/internal/domain/booking"
)

// UpdateLocation handles POST /v1/auth/location. The caller's role picks the
// rider or driver index.
func (h *Handlers) UpdateLocation(c *gin.Context) {
	var req dto.LocationRequest
	if !h.bind(c, &req) {
		return
	}

	pos, err := h.Matching.UpdatePosition(c.Request.Context(), identity(c), *req.Latitude, *req.Longitude)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Location updated successfully", pos)
}

// canView reports whether id may read b
func canView(id auth.Identity, b *booking.Booking) bool {
	switch id.Role {
	case auth.RoleAdmin:
		return true
	case auth.RoleUser:
		return b.RiderID == id.ID
	case auth.RoleDriver:
		return b.DriverID == id.ID
	}
	return false
}
