package repository

import (
	"context"
	"database/sql"

	"github.com/uniaccess/campus-assist/internal/lifecycle"
	"github.com/uniaccess/campus-assist/internal/model"
)

// RideRepo provides data access to the ride_requests table.  It
// implements lifecycle.Store, so the lifecycle controller can drive
// ride transitions through single conditional statements.  All
// timestamps are stored in UTC.
type RideRepo struct {
	db *sql.DB
}

// NewRideRepo returns a new RideRepo bound to the given database.
func NewRideRepo(db *sql.DB) *RideRepo { return &RideRepo{db: db} }

const rideColumns = "id, ride_number, student_id, driver_id, pickup, destination, note, status, created_at, updated_at"

// Create inserts a new PENDING ride request and returns its ID.
func (r *RideRepo) Create(ctx context.Context, ride *model.RideRequest) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO ride_requests (ride_number, student_id, pickup, destination, note, status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ride.RideNumber, ride.StudentID, ride.Pickup, ride.Destination, ride.Note, lifecycle.StatusPending)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	ride.ID = uint64(id)
	return ride.ID, nil
}

// Get returns the lifecycle view of a ride, or lifecycle.ErrNotFound.
func (r *RideRepo) Get(ctx context.Context, id uint64) (lifecycle.Request, error) {
	var req lifecycle.Request
	var driverID sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT id, student_id, driver_id, status FROM ride_requests WHERE id = ?`, id).
		Scan(&req.ID, &req.RequesterID, &driverID, &req.Status)
	if err != nil {
		if err == sql.ErrNoRows {
			return lifecycle.Request{}, lifecycle.ErrNotFound
		}
		return lifecycle.Request{}, err
	}
	if driverID.Valid {
		d := uint64(driverID.Int64)
		req.FulfillerID = &d
	}
	return req, nil
}

// Claim atomically assigns a driver to a still-unclaimed pending
// ride.  The WHERE clause is the whole concurrency story: two drivers
// racing for the same ride produce one matched row and one zero-row
// update.
func (r *RideRepo) Claim(ctx context.Context, id, driverID uint64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE ride_requests
		 SET driver_id = ?, status = ?, updated_at = UTC_TIMESTAMP()
		 WHERE id = ? AND status = ? AND driver_id IS NULL`,
		driverID, lifecycle.StatusAccepted, id, lifecycle.StatusPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// SetStatus conditionally moves a ride from one status to another.
func (r *RideRepo) SetStatus(ctx context.Context, id uint64, from, to string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE ride_requests SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ? AND status = ?`,
		to, id, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// SetStatusByFulfiller is SetStatus additionally constrained to the
// recorded driver.
func (r *RideRepo) SetStatusByFulfiller(ctx context.Context, id uint64, from, to string, driverID uint64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE ride_requests SET status = ?, updated_at = UTC_TIMESTAMP()
		 WHERE id = ? AND status = ? AND driver_id = ?`,
		to, id, from, driverID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// GetByID returns the full ride row.
func (r *RideRepo) GetByID(ctx context.Context, id uint64) (model.RideRequest, error) {
	var ride model.RideRequest
	var driverID sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT `+rideColumns+` FROM ride_requests WHERE id = ?`, id).
		Scan(&ride.ID, &ride.RideNumber, &ride.StudentID, &driverID,
			&ride.Pickup, &ride.Destination, &ride.Note, &ride.Status,
			&ride.CreatedAt, &ride.UpdatedAt)
	if err != nil {
		return model.RideRequest{}, err
	}
	if driverID.Valid {
		d := uint64(driverID.Int64)
		ride.DriverID = &d
	}
	return ride, nil
}

// ListPending returns all unclaimed pending rides, oldest first.
// Drivers poll this collection.
func (r *RideRepo) ListPending(ctx context.Context) ([]model.RideRequest, error) {
	return r.list(ctx,
		`SELECT `+rideColumns+` FROM ride_requests WHERE status = ? ORDER BY created_at`,
		lifecycle.StatusPending)
}

// ListByStudent returns a student's rides, newest first.
func (r *RideRepo) ListByStudent(ctx context.Context, studentID uint64) ([]model.RideRequest, error) {
	return r.list(ctx,
		`SELECT `+rideColumns+` FROM ride_requests WHERE student_id = ? ORDER BY created_at DESC`,
		studentID)
}

// ListByDriver returns rides a driver has claimed, newest first.
func (r *RideRepo) ListByDriver(ctx context.Context, driverID uint64) ([]model.RideRequest, error) {
	return r.list(ctx,
		`SELECT `+rideColumns+` FROM ride_requests WHERE driver_id = ? ORDER BY created_at DESC`,
		driverID)
}

func (r *RideRepo) list(ctx context.Context, query string, args ...interface{}) ([]model.RideRequest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	rides := make([]model.RideRequest, 0)
	for rows.Next() {
		var ride model.RideRequest
		var driverID sql.NullInt64
		if err := rows.Scan(&ride.ID, &ride.RideNumber, &ride.StudentID, &driverID,
			&ride.Pickup, &ride.Destination, &ride.Note, &ride.Status,
			&ride.CreatedAt, &ride.UpdatedAt); err != nil {
			return nil, err
		}
		if driverID.Valid {
			d := uint64(driverID.Int64)
			ride.DriverID = &d
		}
		rides = append(rides, ride)
	}
	return rides, rows.Err()
}
