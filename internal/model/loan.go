package model

import "time"

// GadgetLoan tracks a student borrowing an assistive device.  An
// admin approves the request (accept, device handed out) and closes
// it when the device comes back (complete), or rejects it.
//
// Fields:
//  ID         – primary key identifier.
//  StudentID  – user borrowing the device.
//  AdminID    – admin who approved, nil while PENDING.
//  Gadget     – device name (e.g. "screen reader", "wheelchair").
//  Reason     – why the student needs it.
//  DueAt      – expected return date, nil until approved.
//  ReturnedAt – when the device came back (nullable).
//  Status     – lifecycle status (PENDING/ACCEPTED/REJECTED/COMPLETED).
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last update timestamp.
type GadgetLoan struct {
	ID         uint64     // gadget_loans.id
	StudentID  uint64     // gadget_loans.student_id
	AdminID    *uint64    // gadget_loans.admin_id (nullable)
	Gadget     string     // gadget_loans.gadget
	Reason     string     // gadget_loans.reason
	DueAt      *time.Time // gadget_loans.due_at (nullable)
	ReturnedAt *time.Time // gadget_loans.returned_at (nullable)
	Status     string     // gadget_loans.status
	CreatedAt  time.Time  // gadget_loans.created_at
	UpdatedAt  time.Time  // gadget_loans.updated_at
}
