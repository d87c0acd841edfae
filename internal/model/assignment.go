package model

import "time"

// Assignment statuses.  Deactivation is one-way: an INACTIVE
// assignment never becomes ACTIVE again; admins create a new row
// instead.
const (
	AssignmentActive   = "ACTIVE"
	AssignmentInactive = "INACTIVE"
)

// Assignment binds one helper to one student.  At most one ACTIVE
// assignment may exist per student; the repository enforces this when
// creating.
//
// Fields:
//  ID        – primary key identifier.
//  HelperID  – user ID of the helper.
//  StudentID – user ID of the student.
//  Status    – ACTIVE or INACTIVE.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Assignment struct {
	ID        uint64    // assignments.id
	HelperID  uint64    // assignments.helper_id
	StudentID uint64    // assignments.student_id
	Status    string    // assignments.status
	CreatedAt time.Time // assignments.created_at
	UpdatedAt time.Time // assignments.updated_at
}
