package driver

import "context"

// Repository defines read access to driver identity records. Registration and
// profile edits belong to the identity service; Create exists for seeding.
type Repository interface {
	// Create creates a new driver
	Create(ctx context.Context, driver *Driver) error

	// GetByID retrieves a driver by ID
	GetByID(ctx context.Context, id string) (*Driver, error)
}
