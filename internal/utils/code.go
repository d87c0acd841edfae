package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// NewVerificationCode returns a random numeric code of n digits,
// zero-padded.  Codes come from crypto/rand so they cannot be
// predicted from earlier issuances.
func NewVerificationCode(n int) (string, error) {
	if n < 1 {
		return "", fmt.Errorf("code length must be positive, got %d", n)
	}
	max := big.NewInt(1)
	for i := 0; i < n; i++ {
		max.Mul(max, big.NewInt(10))
	}
	v, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", n, v), nil
}
