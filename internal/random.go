package internal

import (
	"crypto/rand"
	"errors"
	"math/big"

	"github.com/google/uuid"
)

// NewTokenID returns a fresh identifier for a token pair (the access token's
// jti and the refresh payload's token id).
func NewTokenID() string {
	return uuid.NewString()
}

// NewSecurityStamp returns a fresh security stamp. Stamps carry no structure;
// only equality matters.
func NewSecurityStamp() string {
	return uuid.NewString()
}

// RandInt returns a uniform value in [0, max) from crypto/rand.
func RandInt(max int64) (int64, error) {
	if max <= 0 {
		return 0, errors.New("max must be positive")
	}
	n, err := rand.Int(rand.Reader, big.NewInt(max))
	if err != nil {
		return 0, err
	}
	return n.Int64(), nil
}
