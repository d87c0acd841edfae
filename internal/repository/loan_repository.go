package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/uniaccess/campus-assist/internal/lifecycle"
	"github.com/uniaccess/campus-assist/internal/model"
)

// LoanRepo provides data access to the gadget_loans table and
// implements lifecycle.Store with the approving admin as fulfiller.
// Completing a loan (device returned) also stamps returned_at.
type LoanRepo struct {
	db *sql.DB
}

// NewLoanRepo returns a new LoanRepo bound to the given database.
func NewLoanRepo(db *sql.DB) *LoanRepo { return &LoanRepo{db: db} }

const loanColumns = "id, student_id, admin_id, gadget, reason, due_at, returned_at, status, created_at, updated_at"

// Create inserts a new PENDING loan request and returns its ID.
func (r *LoanRepo) Create(ctx context.Context, l *model.GadgetLoan) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO gadget_loans (student_id, gadget, reason, status) VALUES (?, ?, ?, ?)`,
		l.StudentID, l.Gadget, l.Reason, lifecycle.StatusPending)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	l.ID = uint64(id)
	return l.ID, nil
}

// Get returns the lifecycle view of a loan, or lifecycle.ErrNotFound.
func (r *LoanRepo) Get(ctx context.Context, id uint64) (lifecycle.Request, error) {
	var req lifecycle.Request
	var adminID sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT id, student_id, admin_id, status FROM gadget_loans WHERE id = ?`, id).
		Scan(&req.ID, &req.RequesterID, &adminID, &req.Status)
	if err != nil {
		if err == sql.ErrNoRows {
			return lifecycle.Request{}, lifecycle.ErrNotFound
		}
		return lifecycle.Request{}, err
	}
	if adminID.Valid {
		a := uint64(adminID.Int64)
		req.FulfillerID = &a
	}
	return req, nil
}

// Claim atomically assigns an admin to a still-unclaimed pending loan.
func (r *LoanRepo) Claim(ctx context.Context, id, adminID uint64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE gadget_loans
		 SET admin_id = ?, status = ?, updated_at = UTC_TIMESTAMP()
		 WHERE id = ? AND status = ? AND admin_id IS NULL`,
		adminID, lifecycle.StatusAccepted, id, lifecycle.StatusPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// SetStatus conditionally moves a loan from one status to another.
func (r *LoanRepo) SetStatus(ctx context.Context, id uint64, from, to string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE gadget_loans SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ? AND status = ?`,
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

// SetStatusByFulfiller is SetStatus constrained to the approving
// admin.  Moving to COMPLETED also records the return timestamp.
func (r *LoanRepo) SetStatusByFulfiller(ctx context.Context, id uint64, from, to string, adminID uint64) (bool, error) {
	query := `UPDATE gadget_loans SET status = ?, updated_at = UTC_TIMESTAMP()
			  WHERE id = ? AND status = ? AND admin_id = ?`
	if to == lifecycle.StatusCompleted {
		query = `UPDATE gadget_loans SET status = ?, returned_at = UTC_TIMESTAMP(), updated_at = UTC_TIMESTAMP()
				 WHERE id = ? AND status = ? AND admin_id = ?`
	}
	res, err := r.db.ExecContext(ctx, query, to, id, from, adminID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// SetDueDate records the expected return date on an approved loan.
func (r *LoanRepo) SetDueDate(ctx context.Context, id, adminID uint64, dueAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE gadget_loans SET due_at = ?, updated_at = UTC_TIMESTAMP() WHERE id = ? AND admin_id = ?`,
		dueAt.UTC(), id, adminID)
	return err
}

// GetByID returns the full loan row.
func (r *LoanRepo) GetByID(ctx context.Context, id uint64) (model.GadgetLoan, error) {
	var l model.GadgetLoan
	var adminID sql.NullInt64
	var dueAt, returnedAt sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT `+loanColumns+` FROM gadget_loans WHERE id = ?`, id).
		Scan(&l.ID, &l.StudentID, &adminID, &l.Gadget, &l.Reason, &dueAt, &returnedAt,
			&l.Status, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return model.GadgetLoan{}, err
	}
	if adminID.Valid {
		a := uint64(adminID.Int64)
		l.AdminID = &a
	}
	if dueAt.Valid {
		t := dueAt.Time
		l.DueAt = &t
	}
	if returnedAt.Valid {
		t := returnedAt.Time
		l.ReturnedAt = &t
	}
	return l, nil
}

// ListByStudent returns a student's loans, newest first.
func (r *LoanRepo) ListByStudent(ctx context.Context, studentID uint64) ([]model.GadgetLoan, error) {
	return r.list(ctx,
		`SELECT `+loanColumns+` FROM gadget_loans WHERE student_id = ? ORDER BY created_at DESC`,
		studentID)
}

// ListOpen returns loans that are pending approval or still out,
// oldest first, for the admin queue.
func (r *LoanRepo) ListOpen(ctx context.Context) ([]model.GadgetLoan, error) {
	return r.list(ctx,
		`SELECT `+loanColumns+` FROM gadget_loans WHERE status IN (?, ?) ORDER BY created_at`,
		lifecycle.StatusPending, lifecycle.StatusAccepted)
}

func (r *LoanRepo) list(ctx context.Context, query string, args ...interface{}) ([]model.GadgetLoan, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	loans := make([]model.GadgetLoan, 0)
	for rows.Next() {
		var l model.GadgetLoan
		var adminID sql.NullInt64
		var dueAt, returnedAt sql.NullTime
		if err := rows.Scan(&l.ID, &l.StudentID, &adminID, &l.Gadget, &l.Reason,
			&dueAt, &returnedAt, &l.Status, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		if adminID.Valid {
			a := uint64(adminID.Int64)
			l.AdminID = &a
		}
		if dueAt.Valid {
			t := dueAt.Time
			l.DueAt = &t
		}
		if returnedAt.Valid {
			t := returnedAt.Time
			l.ReturnedAt = &t
		}
		loans = append(loans, l)
	}
	return loans, rows.Err()
}
