// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package otp

import (
	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes codes for storage and checks candidates against a hash.
// Compare must run in constant time with respect to the candidate.
type Hasher interface {
	Hash(code string) (string, error)
	Compare(hash, code string) bool
}

// BcryptHasher hashes codes with bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a bcrypt hasher. Out-of-range costs fall back to
// bcrypt.DefaultCost.
func NewBcryptHasher(cost int) BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return BcryptHasher{cost: cost}
}

func (h BcryptHasher) Hash(code string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (h BcryptHasher) Compare(hash, code string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}
