package repository

import (
	"context"
	"database/sql"

	"github.com/uniaccess/campus-assist/internal/model"
)

// AssignmentRepo provides data access to the assignments table.
// The one-active-assignment-per-student rule lives here: creation
// checks for an existing active row inside a transaction, locking it
// so two admins cannot both slip past the check.
type AssignmentRepo struct {
	db *sql.DB
}

// NewAssignmentRepo returns a new AssignmentRepo bound to the given database.
func NewAssignmentRepo(db *sql.DB) *AssignmentRepo { return &AssignmentRepo{db: db} }

const assignmentColumns = "id, helper_id, student_id, status, created_at, updated_at"

// Create binds a helper to a student.  Returns ErrConflict when the
// student already has an active assignment.
func (r *AssignmentRepo) Create(ctx context.Context, helperID, studentID uint64) (uint64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var existing uint64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM assignments WHERE student_id = ? AND status = ? LIMIT 1 FOR UPDATE`,
		studentID, model.AssignmentActive).Scan(&existing)
	if err == nil {
		return 0, ErrConflict
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO assignments (helper_id, student_id, status) VALUES (?, ?, ?)`,
		helperID, studentID, model.AssignmentActive)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Deactivate moves an active assignment to INACTIVE.  The update is
// conditional on the current status, so an already-inactive row
// reports false and is never resurrected.
func (r *AssignmentRepo) Deactivate(ctx context.Context, id uint64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE assignments SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ? AND status = ?`,
		model.AssignmentInactive, id, model.AssignmentActive)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ActiveForStudent returns the student's active assignment, or
// sql.ErrNoRows when none exists.
func (r *AssignmentRepo) ActiveForStudent(ctx context.Context, studentID uint64) (model.Assignment, error) {
	var a model.Assignment
	err := r.db.QueryRowContext(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE student_id = ? AND status = ? LIMIT 1`,
		studentID, model.AssignmentActive).
		Scan(&a.ID, &a.HelperID, &a.StudentID, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// IsAssigned reports whether helperID currently has an active
// assignment to studentID.
func (r *AssignmentRepo) IsAssigned(ctx context.Context, helperID, studentID uint64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM assignments WHERE helper_id = ? AND student_id = ? AND status = ? LIMIT 1`,
		helperID, studentID, model.AssignmentActive).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListByHelper returns a helper's assignments, active first then
// newest first.
func (r *AssignmentRepo) ListByHelper(ctx context.Context, helperID uint64) ([]model.Assignment, error) {
	return r.list(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE helper_id = ? ORDER BY status, created_at DESC`,
		helperID)
}

// ListAll returns every assignment, newest first, for the admin view.
func (r *AssignmentRepo) ListAll(ctx context.Context) ([]model.Assignment, error) {
	return r.list(ctx,
		`SELECT `+assignmentColumns+` FROM assignments ORDER BY created_at DESC`)
}

func (r *AssignmentRepo) list(ctx context.Context, query string, args ...interface{}) ([]model.Assignment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	assignments := make([]model.Assignment, 0)
	for rows.Next() {
		var a model.Assignment
		if err := rows.Scan(&a.ID, &a.HelperID, &a.StudentID, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}
