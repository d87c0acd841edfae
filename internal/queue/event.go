// Package queue defines message payloads exchanged over the message broker.
package queue

// RideRequestedEvent is published when the dispatch watcher sees a new
// pending ride. Downstream consumers use it to log or notify on-shift
// drivers without querying the primary database.
type RideRequestedEvent struct {
	RideID      uint64 `json:"ride_id"`
	RideNumber  string `json:"ride_number"`
	StudentID   uint64 `json:"student_id"`
	Pickup      string `json:"pickup"`
	Destination string `json:"destination"`
	RequestedAt string `json:"requested_at"`
}

// RideAcceptedEvent is published when a driver claims a pending ride.
type RideAcceptedEvent struct {
	RideID     uint64 `json:"ride_id"`
	RideNumber string `json:"ride_number"`
	StudentID  uint64 `json:"student_id"`
	DriverID   uint64 `json:"driver_id"`
	AcceptedAt string `json:"accepted_at"`
}

// SessionConfirmedEvent is published when a helper completes a help
// session with a valid verification code.
type SessionConfirmedEvent struct {
	SessionID   uint64 `json:"session_id"`
	StudentID   uint64 `json:"student_id"`
	HelperID    uint64 `json:"helper_id"`
	Subject     string `json:"subject"`
	ConfirmedAt string `json:"confirmed_at"`
}
