package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/uniaccess/campus-assist/internal/lifecycle"
	"github.com/uniaccess/campus-assist/internal/model"
)

// SessionRepo provides data access to the help_sessions table.  It
// implements lifecycle.Store for accept/reject; completion goes
// through ConfirmWithCode because it must atomically consume the
// verification code along with the status change.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo returns a new SessionRepo bound to the given database.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

const sessionColumns = "id, student_id, helper_id, subject, meeting_place, status, code_hash, code_expires_at, code_used_at, created_at, updated_at"

// Create inserts a new PENDING help session and returns its ID.
func (r *SessionRepo) Create(ctx context.Context, s *model.HelpSession) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO help_sessions (student_id, subject, meeting_place, status) VALUES (?, ?, ?, ?)`,
		s.StudentID, s.Subject, s.MeetingPlace, lifecycle.StatusPending)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	s.ID = uint64(id)
	return s.ID, nil
}

// Get returns the lifecycle view of a session, or lifecycle.ErrNotFound.
func (r *SessionRepo) Get(ctx context.Context, id uint64) (lifecycle.Request, error) {
	var req lifecycle.Request
	var helperID sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT id, student_id, helper_id, status FROM help_sessions WHERE id = ?`, id).
		Scan(&req.ID, &req.RequesterID, &helperID, &req.Status)
	if err != nil {
		if err == sql.ErrNoRows {
			return lifecycle.Request{}, lifecycle.ErrNotFound
		}
		return lifecycle.Request{}, err
	}
	if helperID.Valid {
		h := uint64(helperID.Int64)
		req.FulfillerID = &h
	}
	return req, nil
}

// Claim atomically assigns a helper to a still-unclaimed pending session.
func (r *SessionRepo) Claim(ctx context.Context, id, helperID uint64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE help_sessions
		 SET helper_id = ?, status = ?, updated_at = UTC_TIMESTAMP()
		 WHERE id = ? AND status = ? AND helper_id IS NULL`,
		helperID, lifecycle.StatusAccepted, id, lifecycle.StatusPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// SetStatus conditionally moves a session from one status to another.
func (r *SessionRepo) SetStatus(ctx context.Context, id uint64, from, to string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE help_sessions SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ? AND status = ?`,
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
// recorded helper.
func (r *SessionRepo) SetStatusByFulfiller(ctx context.Context, id uint64, from, to string, helperID uint64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE help_sessions SET status = ?, updated_at = UTC_TIMESTAMP()
		 WHERE id = ? AND status = ? AND helper_id = ?`,
		to, id, from, helperID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// IssueCode stores the hash of a freshly generated verification code
// on an accepted session owned by the helper, replacing any prior
// unused code.  Returns false when the session is not in a state
// where a code may be issued.
func (r *SessionRepo) IssueCode(ctx context.Context, id, helperID uint64, codeHash string, expiresAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE help_sessions
		 SET code_hash = ?, code_expires_at = ?, code_used_at = NULL, updated_at = UTC_TIMESTAMP()
		 WHERE id = ? AND status = ? AND helper_id = ?`,
		codeHash, expiresAt.UTC(), id, lifecycle.StatusAccepted, helperID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ConfirmWithCode completes a session only when the supplied code
// hash matches the issued one, is unexpired and unused, and the
// caller is the recorded helper.  The status change and the code
// consumption happen in one conditional statement so a code can never
// be spent twice.
func (r *SessionRepo) ConfirmWithCode(ctx context.Context, id, helperID uint64, codeHash string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE help_sessions
		 SET status = ?, code_used_at = UTC_TIMESTAMP(), updated_at = UTC_TIMESTAMP()
		 WHERE id = ? AND status = ? AND helper_id = ?
		   AND code_hash = ? AND code_used_at IS NULL AND code_expires_at > UTC_TIMESTAMP()`,
		lifecycle.StatusCompleted, id, lifecycle.StatusAccepted, helperID, codeHash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// GetByID returns the full session row.
func (r *SessionRepo) GetByID(ctx context.Context, id uint64) (model.HelpSession, error) {
	var s model.HelpSession
	var helperID sql.NullInt64
	var codeHash sql.NullString
	var codeExp, codeUsed sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM help_sessions WHERE id = ?`, id).
		Scan(&s.ID, &s.StudentID, &helperID, &s.Subject, &s.MeetingPlace, &s.Status,
			&codeHash, &codeExp, &codeUsed, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return model.HelpSession{}, err
	}
	if helperID.Valid {
		h := uint64(helperID.Int64)
		s.HelperID = &h
	}
	if codeHash.Valid {
		v := codeHash.String
		s.CodeHash = &v
	}
	if codeExp.Valid {
		t := codeExp.Time
		s.CodeExpiresAt = &t
	}
	if codeUsed.Valid {
		t := codeUsed.Time
		s.CodeUsedAt = &t
	}
	return s, nil
}

// ListPending returns unclaimed pending sessions, oldest first.
func (r *SessionRepo) ListPending(ctx context.Context) ([]model.HelpSession, error) {
	return r.list(ctx,
		`SELECT `+sessionColumns+` FROM help_sessions WHERE status = ? ORDER BY created_at`,
		lifecycle.StatusPending)
}

// ListByStudent returns a student's sessions, newest first.
func (r *SessionRepo) ListByStudent(ctx context.Context, studentID uint64) ([]model.HelpSession, error) {
	return r.list(ctx,
		`SELECT `+sessionColumns+` FROM help_sessions WHERE student_id = ? ORDER BY created_at DESC`,
		studentID)
}

// ListByHelper returns sessions a helper has claimed, newest first.
func (r *SessionRepo) ListByHelper(ctx context.Context, helperID uint64) ([]model.HelpSession, error) {
	return r.list(ctx,
		`SELECT `+sessionColumns+` FROM help_sessions WHERE helper_id = ? ORDER BY created_at DESC`,
		helperID)
}

// ExpireCodes clears expired, unused codes on accepted sessions so
// they surface as needing re-issue.  Returns how many were cleared.
func (r *SessionRepo) ExpireCodes(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE help_sessions
		 SET code_hash = NULL, code_expires_at = NULL, updated_at = UTC_TIMESTAMP()
		 WHERE status = ? AND code_hash IS NOT NULL AND code_used_at IS NULL
		   AND code_expires_at <= UTC_TIMESTAMP()`,
		lifecycle.StatusAccepted)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *SessionRepo) list(ctx context.Context, query string, args ...interface{}) ([]model.HelpSession, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	sessions := make([]model.HelpSession, 0)
	for rows.Next() {
		var s model.HelpSession
		var helperID sql.NullInt64
		var codeHash sql.NullString
		var codeExp, codeUsed sql.NullTime
		if err := rows.Scan(&s.ID, &s.StudentID, &helperID, &s.Subject, &s.MeetingPlace, &s.Status,
			&codeHash, &codeExp, &codeUsed, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		if helperID.Valid {
			h := uint64(helperID.Int64)
			s.HelperID = &h
		}
		if codeHash.Valid {
			v := codeHash.String
			s.CodeHash = &v
		}
		if codeExp.Valid {
			t := codeExp.Time
			s.CodeExpiresAt = &t
		}
		if codeUsed.Valid {
			t := codeUsed.Time
			s.CodeUsedAt = &t
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
