package model

import "time"

// RideRequest records a student's request for transport.  The driver
// column stays NULL until a driver claims the ride; claiming is an
// atomic conditional update so two drivers can never both win.
//
// Fields:
//  ID          – primary key identifier.
//  RideNumber  – human-facing reference (uuid based).
//  StudentID   – user who requested the ride.
//  DriverID    – driver who accepted, nil while PENDING.
//  Pickup      – free-text pickup location.
//  Destination – free-text destination.
//  Note        – optional note to the driver.
//  Status      – lifecycle status (PENDING/ACCEPTED/REJECTED/COMPLETED).
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type RideRequest struct {
	ID          uint64    // ride_requests.id
	RideNumber  string    // ride_requests.ride_number
	StudentID   uint64    // ride_requests.student_id
	DriverID    *uint64   // ride_requests.driver_id (nullable)
	Pickup      string    // ride_requests.pickup
	Destination string    // ride_requests.destination
	Note        string    // ride_requests.note
	Status      string    // ride_requests.status
	CreatedAt   time.Time // ride_requests.created_at
	UpdatedAt   time.Time // ride_requests.updated_at
}

// DriverLocation is the latest device fix pushed by a driver.  One
// row per driver, overwritten on each push.  Stale fixes are pruned
// by the background sweeper.
//
// Fields:
//  DriverID   – user ID of the driver.
//  Latitude   – device latitude.
//  Longitude  – device longitude.
//  ReportedAt – when the device reported the fix.
type DriverLocation struct {
	DriverID   uint64    // driver_locations.driver_id
	Latitude   float64   // driver_locations.latitude
	Longitude  float64   // driver_locations.longitude
	ReportedAt time.Time // driver_locations.reported_at
}
