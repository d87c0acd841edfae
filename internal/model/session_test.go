package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func issuedSession(code string, expiresIn time.Duration, now time.Time) HelpSession {
	hash := HashCode(code)
	exp := now.Add(expiresIn)
	helperID := uint64(20)
	return HelpSession{
		ID:            1,
		StudentID:     1,
		HelperID:      &helperID,
		Status:        "ACCEPTED",
		CodeHash:      &hash,
		CodeExpiresAt: &exp,
	}
}

func TestVerifyCode(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("valid code passes", func(t *testing.T) {
		s := issuedSession("483920", 10*time.Minute, now)
		assert.NoError(t, s.VerifyCode("483920", now))
	})

	t.Run("mismatch leaves state intact", func(t *testing.T) {
		s := issuedSession("483920", 10*time.Minute, now)
		assert.ErrorIs(t, s.VerifyCode("000000", now), ErrCodeMismatch)
		// A failed attempt must not consume the code.
		assert.Nil(t, s.CodeUsedAt)
		assert.NoError(t, s.VerifyCode("483920", now))
	})

	t.Run("expired", func(t *testing.T) {
		s := issuedSession("483920", 10*time.Minute, now)
		assert.ErrorIs(t, s.VerifyCode("483920", now.Add(10*time.Minute)), ErrCodeExpired)
		assert.ErrorIs(t, s.VerifyCode("483920", now.Add(time.Hour)), ErrCodeExpired)
		// One nanosecond before the boundary still passes.
		assert.NoError(t, s.VerifyCode("483920", now.Add(10*time.Minute-time.Nanosecond)))
	})

	t.Run("single use", func(t *testing.T) {
		s := issuedSession("483920", 10*time.Minute, now)
		used := now.Add(time.Minute)
		s.CodeUsedAt = &used
		assert.ErrorIs(t, s.VerifyCode("483920", now.Add(2*time.Minute)), ErrCodeUsed)
	})

	t.Run("not issued", func(t *testing.T) {
		var s HelpSession
		assert.ErrorIs(t, s.VerifyCode("483920", now), ErrCodeNotIssued)

		empty := ""
		s.CodeHash = &empty
		assert.ErrorIs(t, s.VerifyCode("483920", now), ErrCodeNotIssued)
	})
}

func TestHashCode(t *testing.T) {
	a := HashCode("123456")
	b := HashCode("123456")
	c := HashCode("123457")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64) // sha256 hex
	assert.NotContains(t, a, "123456")
}
