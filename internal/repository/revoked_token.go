// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/byteblogger/internal/models"
)

// RevokeToken records a token id as revoked. It reports false if the id
// was already revoked, so two concurrent rotations of one refresh token
// cannot both succeed.
func (r *Repository) RevokeToken(ctx context.Context, token *models.RevokedToken) (bool, error) {
	if token.RevokedAt.IsZero() {
		token.RevokedAt = time.Now().UTC()
	}
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO revoked_tokens (jti, user_id, expires_at, revoked_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (jti) DO NOTHING`,
		token.JTI, token.UserID, token.ExpiresAt.UTC(), token.RevokedAt.UTC())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// IsTokenRevoked checks whether a token id has been revoked.
func (r *Repository) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var count int64
	if err := r.q.GetContext(ctx, &count, `SELECT count(*) FROM revoked_tokens WHERE jti = ?`, jti); err != nil {
		return false, err
	}
	return count > 0, nil
}

// DeleteExpiredRevokedTokens purges revocations whose token has expired anyway.
func (r *Repository) DeleteExpiredRevokedTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at < ?`, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
