// Package postgres implements the booking, driver and recent-search stores on
// database/sql with the lib/pq driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS drivers (
		id            UUID PRIMARY KEY,
		name          TEXT NOT NULL,
		email         TEXT NOT NULL DEFAULT '',
		phone         TEXT NOT NULL,
		status        TEXT NOT NULL DEFAULT 'offline',
		vehicle_type  TEXT NOT NULL DEFAULT 'economy',
		rating        DOUBLE PRECISION NOT NULL DEFAULT 5.0,
		total_rides   INTEGER NOT NULL DEFAULT 0,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id               TEXT PRIMARY KEY,
		rider_id         TEXT NOT NULL,
		driver_id        TEXT NOT NULL,
		status           TEXT NOT NULL,
		pickup_location  TEXT NOT NULL DEFAULT '',
		destination      TEXT NOT NULL DEFAULT '',
		pickup_date      TEXT NOT NULL DEFAULT '',
		pickup_time      TEXT NOT NULL DEFAULT '',
		distance         DOUBLE PRECISION NOT NULL DEFAULT 0,
		person_no        INTEGER NOT NULL DEFAULT 0,
		estimated_cost   DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_rider_status ON bookings (rider_id, status, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_driver_status ON bookings (driver_id, status, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS recent_searches (
		id          TEXT PRIMARY KEY,
		rider_id    TEXT NOT NULL,
		latitude    DOUBLE PRECISION NOT NULL,
		longitude   DOUBLE PRECISION NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_recent_searches_rider ON recent_searches (rider_id, created_at DESC)`,
}

// EnsureSchema creates the tables and indexes if they are missing
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
