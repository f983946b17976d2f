// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/byteblogger/internal/models"
)

const otpColumns = `id, user_id, code_hash, attempts, is_used, created_at, expires_at`

// CreateOTPRequest inserts a new, unused OTP record and sets its ID.
// CreatedAt and ExpiresAt must be set by the caller.
func (r *Repository) CreateOTPRequest(ctx context.Context, otp *models.OTPRequest) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO otp_requests (user_id, code_hash, attempts, is_used, created_at, expires_at)
		 VALUES (?, ?, 0, 0, ?, ?)`,
		otp.UserID, otp.CodeHash, otp.CreatedAt.UTC(), otp.ExpiresAt.UTC())
	if err != nil {
		return wrapError(err)
	}
	otp.ID, err = res.LastInsertId()
	otp.Attempts = 0
	otp.IsUsed = false
	return err
}

// InvalidateActiveOTPRequests marks every unused OTP of a user as used.
func (r *Repository) InvalidateActiveOTPRequests(ctx context.Context, userID int64) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE otp_requests SET is_used = 1 WHERE user_id = ? AND is_used = 0`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ExpireStaleOTPRequests marks unused OTPs of a user that expired before now as used.
func (r *Repository) ExpireStaleOTPRequests(ctx context.Context, userID int64, now time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE otp_requests SET is_used = 1 WHERE user_id = ? AND is_used = 0 AND expires_at < ?`,
		userID, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GetActiveOTPRequest returns the newest unused, unexpired OTP of a user.
func (r *Repository) GetActiveOTPRequest(ctx context.Context, userID int64, now time.Time) (*models.OTPRequest, error) {
	var otp models.OTPRequest
	err := r.q.GetContext(ctx, &otp,
		`SELECT `+otpColumns+` FROM otp_requests
		 WHERE user_id = ? AND is_used = 0 AND expires_at >= ?
		 ORDER BY created_at DESC, id DESC LIMIT 1`,
		userID, now.UTC())
	if err != nil {
		return nil, wrapError(err)
	}
	return &otp, nil
}

// GetOTPRequestByID retrieves an OTP record by ID.
func (r *Repository) GetOTPRequestByID(ctx context.Context, id int64) (*models.OTPRequest, error) {
	var otp models.OTPRequest
	err := r.q.GetContext(ctx, &otp, `SELECT `+otpColumns+` FROM otp_requests WHERE id = ?`, id)
	if err != nil {
		return nil, wrapError(err)
	}
	return &otp, nil
}

// ListOTPRequests returns all OTP records of a user, newest first.
func (r *Repository) ListOTPRequests(ctx context.Context, userID int64) ([]models.OTPRequest, error) {
	var otps []models.OTPRequest
	err := r.q.SelectContext(ctx, &otps,
		`SELECT `+otpColumns+` FROM otp_requests WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	return otps, nil
}

// MarkOTPRequestUsed flips is_used from 0 to 1 if the record is still unused
// and unexpired at now. It reports whether this call won the flip.
func (r *Repository) MarkOTPRequestUsed(ctx context.Context, id int64, now time.Time) (bool, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE otp_requests SET is_used = 1 WHERE id = ? AND is_used = 0 AND expires_at >= ?`,
		id, now.UTC())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// RecordFailedOTPAttempt counts a wrong guess against an unused OTP. The
// record is marked used once maxAttempts wrong guesses have been made.
func (r *Repository) RecordFailedOTPAttempt(ctx context.Context, id int64, maxAttempts int) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE otp_requests
		 SET attempts = attempts + 1,
		     is_used = CASE WHEN attempts + 1 >= ? THEN 1 ELSE is_used END
		 WHERE id = ? AND is_used = 0`,
		maxAttempts, id)
	return err
}

// DeleteOTPRequest removes an OTP record. Only used to roll back an
// issuance whose code could not be delivered.
func (r *Repository) DeleteOTPRequest(ctx context.Context, id int64) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM otp_requests WHERE id = ?`, id)
	return err
}

// CountOTPRequestsSince counts OTPs issued to a user at or after since.
func (r *Repository) CountOTPRequestsSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	var count int
	err := r.q.GetContext(ctx, &count,
		`SELECT count(*) FROM otp_requests WHERE user_id = ? AND created_at >= ?`,
		userID, since.UTC())
	if err != nil {
		return 0, err
	}
	return count, nil
}

// LatestOTPRequestAt returns when the user's newest OTP was issued.
// It returns ErrNotFound if the user has no OTP history.
func (r *Repository) LatestOTPRequestAt(ctx context.Context, userID int64) (time.Time, error) {
	var createdAt time.Time
	err := r.q.GetContext(ctx, &createdAt,
		`SELECT created_at FROM otp_requests WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		userID)
	if err != nil {
		return time.Time{}, wrapError(err)
	}
	return createdAt, nil
}

// OldestOTPRequestSince returns when the user's oldest OTP issued at or
// after since was created, passing over the first skip matches. It returns
// ErrNotFound if fewer than skip+1 issuances fall in range.
func (r *Repository) OldestOTPRequestSince(ctx context.Context, userID int64, since time.Time, skip int) (time.Time, error) {
	var createdAt time.Time
	err := r.q.GetContext(ctx, &createdAt,
		`SELECT created_at FROM otp_requests
		 WHERE user_id = ? AND created_at >= ?
		 ORDER BY created_at ASC, id ASC LIMIT 1 OFFSET ?`,
		userID, since.UTC(), skip)
	if err != nil {
		return time.Time{}, wrapError(err)
	}
	return createdAt, nil
}

// DeleteOTPRequestsBefore purges OTP records issued before cutoff.
func (r *Repository) DeleteOTPRequestsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM otp_requests WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
