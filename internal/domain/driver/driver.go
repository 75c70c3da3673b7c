package driver

import (
	"time"

	"github.com/google/uuid"
)

// Driver represents a driver identity record. The current coordinates are not
// persisted; they are filled from the position index on lookup.
type Driver struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email,omitempty"`
	Phone            string    `json:"phone"`
	Status           string    `json:"status"`
	VehicleType      string    `json:"vehicle_type"`
	Rating           float64   `json:"rating"`
	TotalRides       int       `json:"total_rides"`
	CurrentLatitude  *float64  `json:"current_latitude,omitempty"`
	CurrentLongitude *float64  `json:"current_longitude,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ValidID reports whether id has the identifier format drivers are stored under
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// IsValid checks the identity fields a driver record is seeded with
func (d *Driver) IsValid() error {
	if !ValidID(d.ID) {
		return ErrInvalidDriverID
	}
	if d.Name == "" {
		return ErrInvalidDriverName
	}
	if d.Phone == "" {
		return ErrInvalidDriverPhone
	}
	return nil
}

// SetLocation attaches the driver's current location
func (d *Driver) SetLocation(lat, lng float64) {
	d.CurrentLatitude = &lat
	d.CurrentLongitude = &lng
}
