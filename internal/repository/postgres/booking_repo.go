package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gocomet/ride-booking/internal/domain/booking"
)

const bookingColumns = `id, rider_id, driver_id, status, pickup_location, destination,
	pickup_date, pickup_time, distance, person_no, estimated_cost, created_at, updated_at`

// BookingRepository stores bookings in the bookings table
type BookingRepository struct {
	db *sql.DB
}

// NewBookingRepository creates a repository over db
func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (*booking.Booking, error) {
	var b booking.Booking
	var status string
	err := row.Scan(
		&b.ID, &b.RiderID, &b.DriverID, &status,
		&b.PickupLocation, &b.Destination, &b.PickupDate, &b.PickupTime,
		&b.Distance, &b.PersonNo, &b.EstimatedCost,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.Status = booking.Status(status)
	return &b, nil
}

// Create inserts b
func (r *BookingRepository) Create(ctx context.Context, b *booking.Booking) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, b.ID, b.RiderID, b.DriverID, string(b.Status),
		b.PickupLocation, b.Destination, b.PickupDate, b.PickupTime,
		b.Distance, b.PersonNo, b.EstimatedCost, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}
	return nil
}

// GetByID loads one booking
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*booking.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, booking.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	return b, nil
}

// where renders f as a WHERE clause with positional args
func where(f booking.Filter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	add := func(col, val string) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if f.RiderID != "" {
		add("rider_id", f.RiderID)
	}
	if f.DriverID != "" {
		add("driver_id", f.DriverID)
	}
	if f.Status != "" {
		add("status", string(f.Status))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// FindFirst returns the newest booking matching f
func (r *BookingRepository) FindFirst(ctx context.Context, f booking.Filter) (*booking.Booking, error) {
	clause, args := where(f)
	b, err := scanBooking(r.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings`+clause+` ORDER BY created_at DESC, id DESC LIMIT 1`, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, booking.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	return b, nil
}

// List returns one page of matches and the total count
func (r *BookingRepository) List(ctx context.Context, f booking.Filter, p booking.Pagination) ([]*booking.Booking, int, error) {
	clause, args := where(f)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM bookings%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		bookingColumns, clause, n+1, n+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, p.Limit, p.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	out := make([]*booking.Booking, 0, p.Limit)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan booking: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}
	return out, total, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// transitionSQL only matches when the stored status differs, so the check and
// the write are one statement.
const transitionSQL = `
	UPDATE bookings SET
		status          = $2,
		pickup_location = COALESCE($3, pickup_location),
		destination     = COALESCE($4, destination),
		pickup_date     = COALESCE($5, pickup_date),
		pickup_time     = COALESCE($6, pickup_time),
		distance        = COALESCE($7, distance),
		person_no       = COALESCE($8, person_no),
		estimated_cost  = COALESCE($9, estimated_cost),
		updated_at      = NOW()
	WHERE id = $1 AND status <> $2
	RETURNING ` + bookingColumns

func transition(ctx context.Context, q queryRower, id string, status booking.Status, p booking.Patch) (*booking.Booking, error) {
	b, err := scanBooking(q.QueryRowContext(ctx, transitionSQL, id, string(status),
		p.PickupLocation, p.Destination, p.PickupDate, p.PickupTime,
		p.Distance, p.PersonNo, p.EstimatedCost))
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to update booking status: %w", err)
	}

	// No row: either missing or already in status
	var exists bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	if !exists {
		return nil, booking.ErrBookingNotFound
	}
	return nil, booking.ErrSameStatus
}

// Transition is a compare-and-set on status
func (r *BookingRepository) Transition(ctx context.Context, id string, status booking.Status, patch booking.Patch) (*booking.Booking, error) {
	return transition(ctx, r.db, id, status, patch)
}

const admissionLockKey int64 = 0x626f6f6b

// AdmitExclusive moves id to IN_PROGRESS and cancels the other bookings in
// scope inside one transaction
func (r *BookingRepository) AdmitExclusive(ctx context.Context, id string, patch booking.Patch, scope booking.CascadeScope) (*booking.Booking, int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Admissions are serialised so two concurrent cascades cannot deadlock on
	// each other's rows.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, admissionLockKey); err != nil {
		return nil, 0, fmt.Errorf("failed to acquire admission lock: %w", err)
	}

	admitted, err := transition(ctx, tx, id, booking.StatusInProgress, patch)
	if err != nil {
		return nil, 0, err
	}

	query := `UPDATE bookings SET status = $1, updated_at = NOW() WHERE id <> $2`
	args := []interface{}{string(booking.StatusCancelled), id}
	switch scope {
	case booking.CascadeGlobal:
	case booking.CascadeDriver:
		query += ` AND status IN ($3, $4) AND driver_id = $5`
		args = append(args, string(booking.StatusWaiting), string(booking.StatusInProgress), admitted.DriverID)
	default:
		query += ` AND status IN ($3, $4)`
		args = append(args, string(booking.StatusWaiting), string(booking.StatusInProgress))
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to cancel competing bookings: %w", err)
	}
	cancelled, err := res.RowsAffected()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read cancelled count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("failed to commit admission: %w", err)
	}
	return admitted, cancelled, nil
}
