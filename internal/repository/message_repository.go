package repository

import (
	"context"
	"database/sql"

	"github.com/uniaccess/campus-assist/internal/model"
)

// MessageRepo provides data access to the messages table.
type MessageRepo struct {
	db *sql.DB
}

// NewMessageRepo returns a new MessageRepo bound to the given database.
func NewMessageRepo(db *sql.DB) *MessageRepo { return &MessageRepo{db: db} }

const messageColumns = "id, sender_id, receiver_id, body, read_at, created_at"

// Create inserts a message and returns its ID.
func (r *MessageRepo) Create(ctx context.Context, m *model.Message) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO messages (sender_id, receiver_id, body) VALUES (?, ?, ?)`,
		m.SenderID, m.ReceiverID, m.Body)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	m.ID = uint64(id)
	return m.ID, nil
}

// GetByID returns one message row.
func (r *MessageRepo) GetByID(ctx context.Context, id uint64) (model.Message, error) {
	var m model.Message
	err := r.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE id = ?`, id).
		Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Body, &m.ReadAt, &m.CreatedAt)
	if err != nil {
		return model.Message{}, err
	}
	return m, nil
}

// MarkRead sets the read flag on a message, but only for its
// receiver.  Returns ErrForbidden when the caller is not the
// receiver, and false when the message was already read.
func (r *MessageRepo) MarkRead(ctx context.Context, id, readerID uint64) (bool, error) {
	var receiverID uint64
	err := r.db.QueryRowContext(ctx,
		`SELECT receiver_id FROM messages WHERE id = ?`, id).Scan(&receiverID)
	if err != nil {
		return false, err
	}
	if receiverID != readerID {
		return false, ErrForbidden
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE messages SET read_at = UTC_TIMESTAMP() WHERE id = ? AND receiver_id = ? AND read_at IS NULL`,
		id, readerID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Conversation returns all messages between two users, oldest first.
func (r *MessageRepo) Conversation(ctx context.Context, userA, userB uint64) ([]model.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM messages
		 WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)
		 ORDER BY created_at`,
		userA, userB, userB, userA)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

// Inbox returns messages received by a user, newest first.
func (r *MessageRepo) Inbox(ctx context.Context, userID uint64) ([]model.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE receiver_id = ? ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]model.Message, error) {
	messages := make([]model.Message, 0)
	for rows.Next() {
		var m model.Message
		var readAt sql.NullTime
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Body, &readAt, &m.CreatedAt); err != nil {
			return nil, err
		}
		if readAt.Valid {
			t := readAt.Time
			m.ReadAt = &t
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
