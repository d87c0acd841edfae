package repository

import (
	"context"
	"database/sql"

	"github.com/uniaccess/campus-assist/internal/model"
)

// UploadRepo provides data access to the uploads table. Rows point at
// objects held by the storage backend; the bytes themselves never
// touch MySQL.
type UploadRepo struct {
	db *sql.DB
}

// NewUploadRepo returns a new UploadRepo bound to the given database.
func NewUploadRepo(db *sql.DB) *UploadRepo { return &UploadRepo{db: db} }

const uploadColumns = "id, user_id, kind, storage_key, content_type, size_bytes, created_at"

// Create inserts an upload record and returns its ID.
func (r *UploadRepo) Create(ctx context.Context, u *model.Upload) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO uploads (user_id, kind, storage_key, content_type, size_bytes) VALUES (?, ?, ?, ?, ?)`,
		u.UserID, u.Kind, u.StorageKey, u.ContentType, u.SizeBytes)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	u.ID = uint64(id)
	return u.ID, nil
}

// GetByID returns one upload record.
func (r *UploadRepo) GetByID(ctx context.Context, id uint64) (model.Upload, error) {
	var u model.Upload
	err := r.db.QueryRowContext(ctx,
		`SELECT `+uploadColumns+` FROM uploads WHERE id = ?`, id).
		Scan(&u.ID, &u.UserID, &u.Kind, &u.StorageKey, &u.ContentType, &u.SizeBytes, &u.CreatedAt)
	if err != nil {
		return model.Upload{}, err
	}
	return u, nil
}

// GetByKey resolves an upload record from its storage key. Used by
// the file-serving endpoint, whose URL carries the key, not the ID.
func (r *UploadRepo) GetByKey(ctx context.Context, key string) (model.Upload, error) {
	var u model.Upload
	err := r.db.QueryRowContext(ctx,
		`SELECT `+uploadColumns+` FROM uploads WHERE storage_key = ?`, key).
		Scan(&u.ID, &u.UserID, &u.Kind, &u.StorageKey, &u.ContentType, &u.SizeBytes, &u.CreatedAt)
	if err != nil {
		return model.Upload{}, err
	}
	return u, nil
}

// ListByUser returns a user's uploads, newest first.
func (r *UploadRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Upload, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+uploadColumns+` FROM uploads WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	uploads := make([]model.Upload, 0)
	for rows.Next() {
		var u model.Upload
		if err := rows.Scan(&u.ID, &u.UserID, &u.Kind, &u.StorageKey, &u.ContentType, &u.SizeBytes, &u.CreatedAt); err != nil {
			return nil, err
		}
		uploads = append(uploads, u)
	}
	return uploads, rows.Err()
}
