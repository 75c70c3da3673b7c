// Package location maintains the live position index for riders and drivers
// and answers radius queries against it.
//
// Upserts are last-write-wins per (role, id). There is no timestamp-based
// conflict resolution, so a stale update that arrives after a fresher one
// overwrites it.
package location

import (
	"context"
	"errors"
	"fmt"
)

// Role selects the key-space an entry lives in
type Role string

const (
	RoleRider  Role = "rider"
	RoleDriver Role = "driver"
)

// IsValid validates the role
func (r Role) IsValid() bool {
	return r == RoleRider || r == RoleDriver
}

var (
	ErrPositionNotFound = errors.New("position not found")
	ErrInvalidPosition  = errors.New("invalid position")
	ErrInvalidQuery     = errors.New("invalid nearby query")
	ErrInvalidRole      = errors.New("invalid role")
)

// Position is the last-known coordinate of a rider or driver
type Position struct {
	ID        string  `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Nearby is a radius query hit annotated with its great-circle distance
type Nearby struct {
	ID         string  `json:"user_id"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	DistanceKM float64 `json:"distance"`
}

// Index is the geospatial position index. Implementations must be safe for
// concurrent use.
type Index interface {
	// UpsertPosition overwrites the entry for (role, id).
	UpsertPosition(ctx context.Context, role Role, id string, lat, lng float64) error

	// QueryNearby returns entries within radiusKM of the center, ascending by distance.
	// An empty result is not an error.
	QueryNearby(ctx context.Context, role Role, lat, lng, radiusKM float64) ([]Nearby, error)

	// GetPosition returns ErrPositionNotFound when nothing is indexed for (role, id).
	GetPosition(ctx context.Context, role Role, id string) (*Position, error)
}

// Validator checks index input before it reaches a backend
type Validator struct {
	// AllowZero accepts a latitude or longitude of exactly 0. When false a zero
	// coordinate is treated as missing input.
	AllowZero bool
}

// ValidatePosition validates an upsert
func (v Validator) ValidatePosition(role Role, id string, lat, lng float64) error {
	if !role.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	if id == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidPosition)
	}
	if !v.AllowZero && (lat == 0 || lng == 0) {
		return fmt.Errorf("%w: latitude and longitude are required", ErrInvalidPosition)
	}
	if !inRange(lat, lng) {
		return fmt.Errorf("%w: coordinates out of range", ErrInvalidPosition)
	}
	return nil
}

// ValidateQuery validates a radius query
func (v Validator) ValidateQuery(role Role, lat, lng, radiusKM float64) error {
	if !role.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	if !inRange(lat, lng) {
		return fmt.Errorf("%w: center out of range", ErrInvalidQuery)
	}
	if radiusKM <= 0 {
		return fmt.Errorf("%w: radius must be positive", ErrInvalidQuery)
	}
	return nil
}

func inRange(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
