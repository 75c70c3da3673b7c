package booking

import (
	"context"
	"errors"
	"math"
	"time"
)

// Status represents booking lifecycle status
type Status string

const (
	StatusWaiting    Status = "WAITING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

// IsValid validates the status
func (s Status) IsValid() bool {
	switch s {
	case StatusWaiting, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is expected from s
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Booking represents a ride request between one rider and one driver
type Booking struct {
	ID             string    `json:"id"`
	RiderID        string    `json:"rider_id"`
	DriverID       string    `json:"driver_id"`
	Status         Status    `json:"status"`
	PickupLocation string    `json:"pickup_location"`
	Destination    string    `json:"destination"`
	PickupDate     string    `json:"pickup_date"`
	PickupTime     string    `json:"pickup_time"`
	Distance       float64   `json:"distance"`
	PersonNo       int       `json:"person_no"`
	EstimatedCost  float64   `json:"estimated_cost"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Details are the rider-supplied trip fields of a booking
type Details struct {
	PickupLocation string
	Destination    string
	PickupDate     string
	PickupTime     string
	Distance       float64
	PersonNo       int
	EstimatedCost  float64
}

// Details returns the trip fields of b
func (b *Booking) Details() Details {
	return Details{
		PickupLocation: b.PickupLocation,
		Destination:    b.Destination,
		PickupDate:     b.PickupDate,
		PickupTime:     b.PickupTime,
		Distance:       b.Distance,
		PersonNo:       b.PersonNo,
		EstimatedCost:  b.EstimatedCost,
	}
}

// Patch carries optional field updates applied together with a status change
type Patch struct {
	PickupLocation *string
	Destination    *string
	PickupDate     *string
	PickupTime     *string
	Distance       *float64
	PersonNo       *int
	EstimatedCost  *float64
}

// Apply copies the set fields of p onto b
func (p Patch) Apply(b *Booking) {
	if p.PickupLocation != nil {
		b.PickupLocation = *p.PickupLocation
	}
	if p.Destination != nil {
		b.Destination = *p.Destination
	}
	if p.PickupDate != nil {
		b.PickupDate = *p.PickupDate
	}
	if p.PickupTime != nil {
		b.PickupTime = *p.PickupTime
	}
	if p.Distance != nil {
		b.Distance = *p.Distance
	}
	if p.PersonNo != nil {
		b.PersonNo = *p.PersonNo
	}
	if p.EstimatedCost != nil {
		b.EstimatedCost = *p.EstimatedCost
	}
}

// CascadeScope limits which bookings are cancelled when one is admitted
type CascadeScope string

const (
	// CascadeGlobal cancels every other booking in the system, including
	// COMPLETED ones.
	CascadeGlobal CascadeScope = "global"
	// CascadeOpen cancels every other WAITING or IN_PROGRESS booking.
	CascadeOpen CascadeScope = "open"
	// CascadeDriver cancels only the admitted driver's other WAITING or
	// IN_PROGRESS bookings.
	CascadeDriver CascadeScope = "driver"
)

// IsValid validates the scope
func (s CascadeScope) IsValid() bool {
	switch s {
	case CascadeGlobal, CascadeOpen, CascadeDriver:
		return true
	}
	return false
}

// Cancels reports whether admitting a booking of driverID cancels other
func (s CascadeScope) Cancels(other *Booking, driverID string) bool {
	switch s {
	case CascadeGlobal:
		return true
	case CascadeDriver:
		return !other.Status.IsTerminal() && other.DriverID == driverID
	}
	return !other.Status.IsTerminal()
}

// Filter selects bookings. Empty fields match everything.
type Filter struct {
	RiderID  string
	DriverID string
	Status   Status
}

// Matches reports whether b satisfies f
func (f Filter) Matches(b *Booking) bool {
	if f.RiderID != "" && b.RiderID != f.RiderID {
		return false
	}
	if f.DriverID != "" && b.DriverID != f.DriverID {
		return false
	}
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	return true
}

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Pagination is a 1-based page request
type Pagination struct {
	Page  int
	Limit int
}

// Normalize fills defaults for missing or non-positive values
func (p Pagination) Normalize(defaultLimit int) Pagination {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = defaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// Offset is the number of rows to skip. It saturates at math.MaxInt instead
// of overflowing.
func (p Pagination) Offset() int {
	if p.Page <= 1 || p.Limit <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Limit
}

// Page is one page of bookings, newest first
type Page struct {
	TotalCount  int        `json:"totalCount"`
	TotalPages  int        `json:"totalPages"`
	CurrentPage int        `json:"currentPage"`
	Bookings    []*Booking `json:"bookings"`
}

// NewPage builds a page and derives TotalPages from the count
func NewPage(bookings []*Booking, total int, p Pagination) *Page {
	if bookings == nil {
		bookings = []*Booking{}
	}
	pages := 0
	if p.Limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(p.Limit)))
	}
	return &Page{
		TotalCount:  total,
		TotalPages:  pages,
		CurrentPage: p.Page,
		Bookings:    bookings,
	}
}

// Errors
var (
	ErrBookingNotFound = errors.New("booking not found")
	ErrSameStatus      = errors.New("booking already has the requested status")
)

// Repository is the durable contract for booking records
type Repository interface {
	// Create inserts b. ID and timestamps are assigned by the caller.
	Create(ctx context.Context, b *Booking) error

	// GetByID returns ErrBookingNotFound when no booking has the id.
	GetByID(ctx context.Context, id string) (*Booking, error)

	// FindFirst returns the newest booking matching f or ErrBookingNotFound.
	FindFirst(ctx context.Context, f Filter) (*Booking, error)

	// List returns one page of matches, newest first, and the total match count.
	List(ctx context.Context, f Filter, p Pagination) ([]*Booking, int, error)

	// Transition sets status and applies patch only if the stored status differs
	// from status. It returns ErrSameStatus when it does not, and
	// ErrBookingNotFound when the booking is missing.
	Transition(ctx context.Context, id string, status Status, patch Patch) (*Booking, error)

	// AdmitExclusive moves id to IN_PROGRESS and cancels the other non-terminal
	// bookings in scope, all in one atomic unit. It returns the admitted booking
	// and how many bookings were cancelled.
	AdmitExclusive(ctx context.Context, id string, patch Patch, scope CascadeScope) (*Booking, int64, error)
}
