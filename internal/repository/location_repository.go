package repository

import (
	"context"
	"database/sql"

	"github.com/uniaccess/campus-assist/internal/model"
)

// LocationRepo provides data access to the driver_locations table.
// Each driver holds at most one row, updated in place.
type LocationRepo struct {
	db *sql.DB
}

// NewLocationRepo returns a new LocationRepo bound to the given database.
func NewLocationRepo(db *sql.DB) *LocationRepo { return &LocationRepo{db: db} }

// Upsert records a driver's latest position, replacing any previous fix.
func (r *LocationRepo) Upsert(ctx context.Context, driverID uint64, lat, lng float64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO driver_locations (driver_id, latitude, longitude, reported_at)
		 VALUES (?, ?, ?, UTC_TIMESTAMP())
		 ON DUPLICATE KEY UPDATE latitude = VALUES(latitude), longitude = VALUES(longitude), reported_at = UTC_TIMESTAMP()`,
		driverID, lat, lng)
	return err
}

// Latest returns the most recent fix for a driver, or sql.ErrNoRows
// when the driver has never reported or the fix was pruned.
func (r *LocationRepo) Latest(ctx context.Context, driverID uint64) (*model.DriverLocation, error) {
	var loc model.DriverLocation
	err := r.db.QueryRowContext(ctx,
		`SELECT driver_id, latitude, longitude, reported_at FROM driver_locations WHERE driver_id = ?`,
		driverID).Scan(&loc.DriverID, &loc.Latitude, &loc.Longitude, &loc.ReportedAt)
	if err != nil {
		return nil, err
	}
	return &loc, nil
}

// PruneOlderThan deletes fixes older than the given number of minutes
// and returns how many rows were removed. Stale positions must not be
// served to riders as current.
func (r *LocationRepo) PruneOlderThan(ctx context.Context, minutes int) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM driver_locations WHERE reported_at < UTC_TIMESTAMP() - INTERVAL ? MINUTE`,
		minutes)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
