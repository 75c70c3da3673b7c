package dto

import "github.com/gocomet/ride-booking/internal/domain/booking"

// FindDriverRequest is the body of a nearby-driver search. Coordinates are
// pointers so that an absent field is told apart from zero.
type FindDriverRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
	Radius    float64  `json:"radius" binding:"omitempty,gt=0"`
}

// LocationRequest is a position push or a recent search
type LocationRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
}

// CreateBookingRequest carries the trip details of a new booking
type CreateBookingRequest struct {
	PickupLocation string  `json:"pickup_location" binding:"required"`
	Destination    string  `json:"destination" binding:"required"`
	PickupDate     string  `json:"pickup_date"`
	PickupTime     string  `json:"pickup_time"`
	Distance       float64 `json:"distance" binding:"gte=0"`
	PersonNo       int     `json:"person_no" binding:"gte=0"`
	EstimatedCost  float64 `json:"estimated_cost" binding:"gte=0"`
}

// Details converts the request to booking details
func (r CreateBookingRequest) Details() booking.Details {
	return booking.Details{
		PickupLocation: r.PickupLocation,
		Destination:    r.Destination,
		PickupDate:     r.PickupDate,
		PickupTime:     r.PickupTime,
		Distance:       r.Distance,
		PersonNo:       r.PersonNo,
		EstimatedCost:  r.EstimatedCost,
	}
}

// UpdateBookingStatusRequest is a status change with optional field updates
type UpdateBookingStatusRequest struct {
	Status         string   `json:"status" binding:"required"`
	PickupLocation *string  `json:"pickup_location"`
	Destination    *string  `json:"destination"`
	PickupDate     *string  `json:"pickup_date"`
	PickupTime     *string  `json:"pickup_time"`
	Distance       *float64 `json:"distance"`
	PersonNo       *int     `json:"person_no"`
	EstimatedCost  *float64 `json:"estimated_cost"`
}

// Patch converts the optional fields to a booking patch
func (r UpdateBookingStatusRequest) Patch() booking.Patch {
	return booking.Patch{
		PickupLocation: r.PickupLocation,
		Destination:    r.Destination,
		PickupDate:     r.PickupDate,
		PickupTime:     r.PickupTime,
		Distance:       r.Distance,
		PersonNo:       r.PersonNo,
		EstimatedCost:  r.EstimatedCost,
	}
}

// PageQuery is the pagination query string
type PageQuery struct {
	Page  int `form:"page" binding:"omitempty,gte=1,lte=1000000"`
	Limit int `form:"limit" binding:"omitempty,gte=1,lte=100"`
}

// Pagination converts the query to a booking pagination
func (q PageQuery) Pagination() booking.Pagination {
	return booking.Pagination{Page: q.Page, Limit: q.Limit}
}
