package model

import "time"

// Complaint is a grievance filed by a student, helper or driver.  An
// admin takes ownership by accepting it and closes it by completing
// (resolved) or rejecting (dismissed).
//
// Fields:
//  ID          – primary key identifier.
//  ReporterID  – user who filed the complaint.
//  AdminID     – admin handling it, nil while PENDING.
//  Subject     – short summary.
//  Description – free-text details.
//  Resolution  – note recorded when the complaint is closed.
//  Status      – lifecycle status (PENDING/ACCEPTED/REJECTED/COMPLETED).
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Complaint struct {
	ID          uint64    // complaints.id
	ReporterID  uint64    // complaints.reporter_id
	AdminID     *uint64   // complaints.admin_id (nullable)
	Subject     string    // complaints.subject
	Description string    // complaints.description
	Resolution  string    // complaints.resolution
	Status      string    // complaints.status
	CreatedAt   time.Time // complaints.created_at
	UpdatedAt   time.Time // complaints.updated_at
}
