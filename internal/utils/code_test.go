package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVerificationCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := NewVerificationCode(6)
		require.NoError(t, err)
		require.Len(t, code, 6)
		for _, r := range code {
			require.True(t, r >= '0' && r <= '9', "unexpected rune %q in %q", r, code)
		}
	}
}

func TestNewVerificationCodeLengths(t *testing.T) {
	for _, n := range []int{1, 4, 8} {
		code, err := NewVerificationCode(n)
		require.NoError(t, err)
		assert.Len(t, code, n)
	}
}

func TestNewVerificationCodeRejectsBadLength(t *testing.T) {
	_, err := NewVerificationCode(0)
	assert.Error(t, err)
	_, err = NewVerificationCode(-3)
	assert.Error(t, err)
}
