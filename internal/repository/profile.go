// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"database/sql"
	"time"

	"codeberg.org/oliverandrich/byteblogger/internal/models"
)

// CreateProfile inserts the profile for a user.
func (r *Repository) CreateProfile(ctx context.Context, profile *models.Profile) error {
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now().UTC()
	}
	profile.UpdatedAt = profile.CreatedAt

	res, err := r.q.ExecContext(ctx,
		`INSERT INTO user_profiles (user_id, full_name, topic_interests, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		profile.UserID, profile.FullName, profile.TopicInterests, profile.CreatedAt, profile.UpdatedAt)
	if err != nil {
		return wrapError(err)
	}
	profile.ID, err = res.LastInsertId()
	return err
}

// GetProfileByUserID retrieves the profile belonging to a user.
func (r *Repository) GetProfileByUserID(ctx context.Context, userID int64) (*models.Profile, error) {
	var profile models.Profile
	err := r.q.GetContext(ctx, &profile,
		`SELECT id, user_id, full_name, topic_interests, created_at, updated_at
		 FROM user_profiles WHERE user_id = ?`, userID)
	if err != nil {
		return nil, wrapError(err)
	}
	return &profile, nil
}

// UpdateProfile saves the editable profile fields.
func (r *Repository) UpdateProfile(ctx context.Context, profile *models.Profile) error {
	profile.UpdatedAt = time.Now().UTC()
	res, err := r.q.ExecContext(ctx,
		`UPDATE user_profiles SET full_name = ?, topic_interests = ?, updated_at = ? WHERE user_id = ?`,
		profile.FullName, profile.TopicInterests, profile.UpdatedAt, profile.UserID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// requireAffected turns an update that matched nothing into ErrNotFound.
func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
