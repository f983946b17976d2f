// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models_test

import (
	"encoding/json"
	"testing"
	"time"

	"codeberg.org/oliverandrich/byteblogger/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_JSONHidesPasswordHash(t *testing.T) {
	user := &models.User{ID: 1, Username: "alice", Email: "alice@example.com", PasswordHash: "secret-hash"}

	data, err := json.Marshal(user)

	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret-hash")
	assert.NotContains(t, string(data), "password")
	assert.Contains(t, string(data), `"email":"alice@example.com"`)
}

func TestOTPRequest_JSONHidesCodeHash(t *testing.T) {
	otp := &models.OTPRequest{ID: 7, UserID: 1, CodeHash: "$2a$04$hash"}

	data, err := json.Marshal(otp)

	require.NoError(t, err)
	assert.NotContains(t, string(data), "$2a$04$hash")
	assert.NotContains(t, string(data), "code_hash")
}

func TestOTPRequest_IsExpired(t *testing.T) {
	created := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	otp := &models.OTPRequest{CreatedAt: created, ExpiresAt: created.Add(5 * time.Minute)}

	assert.False(t, otp.IsExpired(created))
	assert.False(t, otp.IsExpired(created.Add(5*time.Minute)), "expiry instant itself is still valid")
	assert.True(t, otp.IsExpired(created.Add(5*time.Minute+time.Second)))
}

func TestOTPRequest_IsActive(t *testing.T) {
	created := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	otp := &models.OTPRequest{CreatedAt: created, ExpiresAt: created.Add(5 * time.Minute)}

	assert.True(t, otp.IsActive(created.Add(time.Minute)))

	otp.IsUsed = true
	assert.False(t, otp.IsActive(created.Add(time.Minute)))

	otp.IsUsed = false
	assert.False(t, otp.IsActive(created.Add(10*time.Minute)))
}
