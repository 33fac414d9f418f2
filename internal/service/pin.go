package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// GeneratePin returns a random numeric PIN of the given length.
// Leading zeros are allowed.
func GeneratePin(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("pin length must be positive, got %d", length)
	}

	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = '0' + byte(n.Int64())
	}
	return string(digits), nil
}
