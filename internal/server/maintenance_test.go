// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server_test

import (
	"context"
	"testing"
	"time"

	"codeberg.org/oliverandrich/byteblogger/internal/config"
	"codeberg.org/oliverandrich/byteblogger/internal/models"
	"codeberg.org/oliverandrich/byteblogger/internal/server"
	"codeberg.org/oliverandrich/byteblogger/internal/services/otp"
	"codeberg.org/oliverandrich/byteblogger/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurge(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "purge")
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	clk := testutil.NewClock(now)

	for _, age := range []time.Duration{40 * 24 * time.Hour, 31 * 24 * time.Hour, time.Hour} {
		created := now.Add(-age)
		require.NoError(t, repo.CreateOTPRequest(ctx, &models.OTPRequest{
			UserID:    user.ID,
			CodeHash:  "hash",
			CreatedAt: created,
			ExpiresAt: created.Add(5 * time.Minute),
		}))
	}
	_, err := repo.RevokeToken(ctx, &models.RevokedToken{JTI: "old", UserID: user.ID, ExpiresAt: now.Add(-time.Hour), RevokedAt: now.Add(-2 * time.Hour)})
	require.NoError(t, err)
	_, err = repo.RevokeToken(ctx, &models.RevokedToken{JTI: "live", UserID: user.ID, ExpiresAt: now.Add(time.Hour), RevokedAt: now})
	require.NoError(t, err)

	res, err := server.Purge(ctx, repo, config.DefaultOTPConfig(), clk, server.DefaultRetention)

	require.NoError(t, err)
	assert.Equal(t, int64(2), res.OTPRequests)
	assert.Equal(t, int64(1), res.RevokedTokens)

	remaining, err := repo.ListOTPRequests(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
	revoked, err := repo.IsTokenRevoked(ctx, "live")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestPurge_RetentionTooShort(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	_, err := server.Purge(context.Background(), repo, config.DefaultOTPConfig(),
		testutil.NewClock(time.Now()), time.Hour)

	assert.ErrorIs(t, err, otp.ErrRetentionTooShort)
}
