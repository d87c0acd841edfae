package model

import "time"

// Message is a text message between two users.  Only the receiver
// may flip the read flag; senders never mutate a delivered message.
//
// Fields:
//  ID         – primary key identifier.
//  SenderID   – user who sent the message.
//  ReceiverID – user who receives it.
//  Body       – message text.
//  ReadAt     – when the receiver marked it read (nullable).
//  CreatedAt  – creation timestamp.
type Message struct {
	ID         uint64     // messages.id
	SenderID   uint64     // messages.sender_id
	ReceiverID uint64     // messages.receiver_id
	Body       string     // messages.body
	ReadAt     *time.Time // messages.read_at (nullable)
	CreatedAt  time.Time  // messages.created_at
}
