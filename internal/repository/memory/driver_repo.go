package memory

import (
	"context"
	"sync"

	"github.com/gocomet/ride-booking/internal/domain/driver"
)

// DriverRepository keeps driver records in a map
type DriverRepository struct {
	mu      sync.RWMutex
	drivers map[string]*driver.Driver
}

// NewDriverRepository creates an empty store
func NewDriverRepository() *DriverRepository {
	return &DriverRepository{drivers: make(map[string]*driver.Driver)}
}

// Create validates and stores d
func (r *DriverRepository) Create(ctx context.Context, d *driver.Driver) error {
	if err := d.IsValid(); err != nil {
		return err
	}
	c := *d
	r.mu.Lock()
	r.drivers[d.ID] = &c
	r.mu.Unlock()
	return nil
}

// GetByID retrieves a driver by ID
func (r *DriverRepository) GetByID(ctx context.Context, id string) (*driver.Driver, error) {
	r.mu.RLock()
	d, ok := r.drivers[id]
	r.mu.RUnlock()
	if !ok {
		return nil, driver.ErrDriverNotFound
	}
	c := *d
	return &c, nil
}
