// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"time"
)

// OTPRequest is one issued one-time password. Only the bcrypt hash of the
// code is stored. IsUsed never goes back to false.
type OTPRequest struct { //nolint:govet // fieldalignment not critical for models
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	CodeHash  string    `db:"code_hash" json:"-"`
	Attempts  int       `db:"attempts" json:"attempts"`
	IsUsed    bool      `db:"is_used" json:"is_used"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
}

// IsExpired reports whether the code is past its expiry at now.
func (o *OTPRequest) IsExpired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

// IsActive reports whether the code can still be verified at now.
func (o *OTPRequest) IsActive(now time.Time) bool {
	return !o.IsUsed && !o.IsExpired(now)
}
