// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"time"
)

// User is an account. Email is the login identifier and is stored lower-case.
type User struct { //nolint:govet // fieldalignment not critical for models
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	IsVerified   bool      `db:"is_verified" json:"is_verified"`
	IsActive     bool      `db:"is_active" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Profile holds the user-editable part of an account. Every user has one.
type Profile struct { //nolint:govet // fieldalignment not critical for models
	ID             int64     `db:"id" json:"-"`
	UserID         int64     `db:"user_id" json:"user_id"`
	FullName       string    `db:"full_name" json:"full_name"`
	TopicInterests string    `db:"topic_interests" json:"topic_interests"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
