package repository

import (
	"context"
	"database/sql"

	"github.com/uniaccess/campus-assist/internal/lifecycle"
	"github.com/uniaccess/campus-assist/internal/model"
)

// ComplaintRepo provides data access to the complaints table and
// implements lifecycle.Store with the handling admin as fulfiller.
type ComplaintRepo struct {
	db *sql.DB
}

// NewComplaintRepo returns a new ComplaintRepo bound to the given database.
func NewComplaintRepo(db *sql.DB) *ComplaintRepo { return &ComplaintRepo{db: db} }

const complaintColumns = "id, reporter_id, admin_id, subject, description, resolution, status, created_at, updated_at"

// Create inserts a new PENDING complaint and returns its ID.
func (r *ComplaintRepo) Create(ctx context.Context, c *model.Complaint) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO complaints (reporter_id, subject, description, status) VALUES (?, ?, ?, ?)`,
		c.ReporterID, c.Subject, c.Description, lifecycle.StatusPending)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	c.ID = uint64(id)
	return c.ID, nil
}

// Get returns the lifecycle view of a complaint, or lifecycle.ErrNotFound.
func (r *ComplaintRepo) Get(ctx context.Context, id uint64) (lifecycle.Request, error) {
	var req lifecycle.Request
	var adminID sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT id, reporter_id, admin_id, status FROM complaints WHERE id = ?`, id).
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

// Claim atomically assigns an admin to a still-unclaimed pending complaint.
func (r *ComplaintRepo) Claim(ctx context.Context, id, adminID uint64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE complaints
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

// SetStatus conditionally moves a complaint from one status to another.
func (r *ComplaintRepo) SetStatus(ctx context.Context, id uint64, from, to string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE complaints SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ? AND status = ?`,
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
// handling admin.
func (r *ComplaintRepo) SetStatusByFulfiller(ctx context.Context, id uint64, from, to string, adminID uint64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE complaints SET status = ?, updated_at = UTC_TIMESTAMP()
		 WHERE id = ? AND status = ? AND admin_id = ?`,
		to, id, from, adminID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// SetResolution records the closing note on a complaint handled by
// the given admin.
func (r *ComplaintRepo) SetResolution(ctx context.Context, id, adminID uint64, resolution string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE complaints SET resolution = ?, updated_at = UTC_TIMESTAMP() WHERE id = ? AND admin_id = ?`,
		resolution, id, adminID)
	return err
}

// GetByID returns the full complaint row.
func (r *ComplaintRepo) GetByID(ctx context.Context, id uint64) (model.Complaint, error) {
	var c model.Complaint
	var adminID sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT `+complaintColumns+` FROM complaints WHERE id = ?`, id).
		Scan(&c.ID, &c.ReporterID, &adminID, &c.Subject, &c.Description, &c.Resolution,
			&c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return model.Complaint{}, err
	}
	if adminID.Valid {
		a := uint64(adminID.Int64)
		c.AdminID = &a
	}
	return c, nil
}

// ListByReporter returns complaints a user has filed, newest first.
func (r *ComplaintRepo) ListByReporter(ctx context.Context, reporterID uint64) ([]model.Complaint, error) {
	return r.list(ctx,
		`SELECT `+complaintColumns+` FROM complaints WHERE reporter_id = ? ORDER BY created_at DESC`,
		reporterID)
}

// ListOpen returns complaints that are not yet closed, oldest first,
// for the admin queue.
func (r *ComplaintRepo) ListOpen(ctx context.Context) ([]model.Complaint, error) {
	return r.list(ctx,
		`SELECT `+complaintColumns+` FROM complaints WHERE status IN (?, ?) ORDER BY created_at`,
		lifecycle.StatusPending, lifecycle.StatusAccepted)
}

func (r *ComplaintRepo) list(ctx context.Context, query string, args ...interface{}) ([]model.Complaint, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	complaints := make([]model.Complaint, 0)
	for rows.Next() {
		var c model.Complaint
		var adminID sql.NullInt64
		if err := rows.Scan(&c.ID, &c.ReporterID, &adminID, &c.Subject, &c.Description,
			&c.Resolution, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		if adminID.Valid {
			a := uint64(adminID.Int64)
			c.AdminID = &a
		}
		complaints = append(complaints, c)
	}
	return complaints, rows.Err()
}
