package model

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"time"
)

// Verification code errors returned by VerifyCode.
var (
	// ErrCodeMismatch means the supplied code does not match the issued one.
	ErrCodeMismatch = errors.New("verification code mismatch")
	// ErrCodeExpired means the code's time window has passed.
	ErrCodeExpired = errors.New("verification code expired")
	// ErrCodeUsed means the code was already consumed once.
	ErrCodeUsed = errors.New("verification code already used")
	// ErrCodeNotIssued means no code has been issued for the session yet.
	ErrCodeNotIssued = errors.New("no verification code issued")
)

// HelpSession records a student's request for in-person help.  When a
// helper accepts, a single-use numeric code is issued binding that
// helper to that student; completing the session requires the code.
// Only the code's SHA-256 hash is stored.
//
// Fields:
//  ID            – primary key identifier.
//  StudentID     – user who requested help.
//  HelperID      – helper who accepted, nil while PENDING.
//  Subject       – what the student needs help with.
//  MeetingPlace  – where to meet.
//  Status        – lifecycle status (PENDING/ACCEPTED/REJECTED/COMPLETED).
//  CodeHash      – SHA-256 hex digest of the issued code (nullable).
//  CodeExpiresAt – end of the code's validity window (nullable).
//  CodeUsedAt    – when the code was consumed (nullable).
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type HelpSession struct {
	ID            uint64     // help_sessions.id
	StudentID     uint64     // help_sessions.student_id
	HelperID      *uint64    // help_sessions.helper_id (nullable)
	Subject       string     // help_sessions.subject
	MeetingPlace  string     // help_sessions.meeting_place
	Status        string     // help_sessions.status
	CodeHash      *string    // help_sessions.code_hash (nullable)
	CodeExpiresAt *time.Time // help_sessions.code_expires_at (nullable)
	CodeUsedAt    *time.Time // help_sessions.code_used_at (nullable)
	CreatedAt     time.Time  // help_sessions.created_at
	UpdatedAt     time.Time  // help_sessions.updated_at
}

// HashCode returns the SHA-256 hex digest of a verification code.
// Codes are stored hashed so a database leak does not expose live codes.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// VerifyCode checks a supplied code against the session's issued code
// at the given instant.  It returns nil only when a code was issued,
// has not been used, has not expired, and the digests match.  The
// comparison is constant time.
func (s *HelpSession) VerifyCode(code string, now time.Time) error {
	if s.CodeHash == nil || *s.CodeHash == "" {
		return ErrCodeNotIssued
	}
	if s.CodeUsedAt != nil {
		return ErrCodeUsed
	}
	if s.CodeExpiresAt != nil && !now.Before(*s.CodeExpiresAt) {
		return ErrCodeExpired
	}
	supplied := HashCode(code)
	if subtle.ConstantTimeCompare([]byte(supplied), []byte(*s.CodeHash)) != 1 {
		return ErrCodeMismatch
	}
	return nil
}
