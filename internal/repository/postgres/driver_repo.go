package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gocomet/ride-booking/internal/domain/driver"
)

// DriverRepository reads driver identity records
type DriverRepository struct {
	db *sql.DB
}

// NewDriverRepository creates a repository over db
func NewDriverRepository(db *sql.DB) *DriverRepository {
	return &DriverRepository{db: db}
}

// Create inserts or refreshes a driver record
func (r *DriverRepository) Create(ctx context.Context, d *driver.Driver) error {
	if err := d.IsValid(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO drivers (id, name, email, phone, status, vehicle_type, rating, total_rides, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			status = EXCLUDED.status,
			vehicle_type = EXCLUDED.vehicle_type,
			updated_at = NOW()
	`, d.ID, d.Name, d.Email, d.Phone, d.Status, d.VehicleType, d.Rating, d.TotalRides)
	if err != nil {
		return fmt.Errorf("failed to save driver: %w", err)
	}
	return nil
}

// GetByID retrieves a driver by ID
func (r *DriverRepository) GetByID(ctx context.Context, id string) (*driver.Driver, error) {
	var d driver.Driver
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, phone, status, vehicle_type, rating, total_rides, created_at, updated_at
		FROM drivers WHERE id = $1
	`, id).Scan(&d.ID, &d.Name, &d.Email, &d.Phone, &d.Status, &d.VehicleType,
		&d.Rating, &d.TotalRides, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, driver.ErrDriverNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load driver: %w", err)
	}
	return &d, nil
}
