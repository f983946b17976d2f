// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"time"
)

// RevokedToken records a refresh token id that must no longer be accepted.
// Rows can be purged once ExpiresAt has passed.
type RevokedToken struct {
	JTI       string    `db:"jti"`
	UserID    int64     `db:"user_id"`
	ExpiresAt time.Time `db:"expires_at"`
	RevokedAt time.Time `db:"revoked_at"`
}
