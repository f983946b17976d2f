// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"
	"time"

	"codeberg.org/oliverandrich/byteblogger/internal/models"
	"codeberg.org/oliverandrich/byteblogger/internal/repository"
	"codeberg.org/oliverandrich/byteblogger/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newOTP(t *testing.T, repo *repository.Repository, userID int64, createdAt time.Time) *models.OTPRequest {
	t.Helper()
	otp := &models.OTPRequest{
		UserID:    userID,
		CodeHash:  "hash",
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(5 * time.Minute),
	}
	require.NoError(t, repo.CreateOTPRequest(context.Background(), otp))
	return otp
}

func TestCreateOTPRequest(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "testuser")

	otp := newOTP(t, repo, user.ID, t0)

	assert.NotZero(t, otp.ID)
	got, err := repo.GetOTPRequestByID(ctx, otp.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.UserID)
	assert.Equal(t, "hash", got.CodeHash)
	assert.False(t, got.IsUsed)
	assert.Zero(t, got.Attempts)
	assert.True(t, t0.Equal(got.CreatedAt))
	assert.True(t, t0.Add(5*time.Minute).Equal(got.ExpiresAt))
}

func TestCreateOTPRequest_UnknownUser(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	err := repo.CreateOTPRequest(context.Background(), &models.OTPRequest{
		UserID: 999, CodeHash: "hash", CreatedAt: t0, ExpiresAt: t0.Add(time.Minute),
	})

	assert.Error(t, err)
}

func TestGetActiveOTPRequest(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "testuser")
	otp := newOTP(t, repo, user.ID, t0)

	got, err := repo.GetActiveOTPRequest(ctx, user.ID, t0.Add(time.Minute))

	require.NoError(t, err)
	assert.Equal(t, otp.ID, got.ID)
}

func TestGetActiveOTPRequest_AtExpiryInstant(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "testuser")
	otp := newOTP(t, repo, user.ID, t0)

	got, err := repo.GetActiveOTPRequest(ctx, user.ID, otp.ExpiresAt)

	require.NoError(t, err)
	assert.Equal(t, otp.ID, got.ID)
}

func TestGetActiveOTPRequest_Expired(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "testuser")
	newOTP(t, repo, user.ID, t0)

	_, err := repo.GetActiveOTPRequest(ctx, user.ID, t0.Add(5*time.Minute+time.Second))

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGetActiveOTPRequest_NewestWins(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "testuser")
	newOTP(t, repo, user.ID, t0)
	newer := newOTP(t, repo, user.ID, t0.Add(30*time.Second))
	sameInstant := newOTP(t, repo, user.ID, t0.Add(30*time.Second))

	got, err := repo.GetActiveOTPRequest(ctx, user.ID, t0.Add(time.Minute))

	require.NoError(t, err)
	assert.Equal(t, sameInstant.ID, got.ID, "ties on created_at go to the higher id")
	assert.Greater(t, sameInstant.ID, newer.ID)
}

func TestGetActiveOTPRequest_OtherUser(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	alice := testutil.NewTestUser(t, repo, "alice")
	bob := testutil.NewTestUser(t, repo, "bob")
	newOTP(t, repo, alice.ID, t0)

	_, err := repo.GetActiveOTPRequest(ctx, bob.ID, t0)

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestInvalidateActiveOTPRequests(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	alice := testutil.NewTestUser(t, repo, "alice")
	bob := testutil.NewTestUser(t, repo, "bob")
	newOTP(t, repo, alice.ID, t0)
	newOTP(t, repo, alice.ID, t0.Add(time.Minute))
	bobs := newOTP(t, repo, bob.ID, t0)

	n, err := repo.InvalidateActiveOTPRequests(ctx, alice.ID)

	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	_, err = repo.GetActiveOTPRequest(ctx, alice.ID, t0.Add(time.Minute))
	assert.ErrorIs(t, err, repository.ErrNotFound)

	got, err := repo.GetActiveOTPRequest(ctx, bob.ID, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, bobs.ID, got.ID)
}

func TestExpireStaleOTPRequests(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "testuser")
	stale := newOTP(t, repo, user.ID, t0)
	fresh := newOTP(t, repo, user.ID, t0.Add(4*time.Minute))

	n, err := repo.ExpireStaleOTPRequests(ctx, user.ID, t0.Add(6*time.Minute))

	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.GetOTPRequestByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.True(t, got.IsUsed)

	got, err = repo.GetOTPRequestByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.False(t, got.IsUsed)
}

func TestMarkOTPRequestUsed(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "testuser")
	otp := newOTP(t, repo, user.ID, t0)

	won, err := repo.MarkOTPRequestUsed(ctx, otp.ID, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, won)

	won, err = repo.MarkOTPRequestUsed(ctx, otp.ID, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, won, "second flip must lose")
}

func TestMarkOTPRequestUsed_Expired(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "testuser")
	otp := newOTP(t, repo, user.ID, t0)

	won, err := repo.MarkOTPRequestUsed(ctx, otp.ID, t0.Add(10*time.Minute))

	require.NoError(t, err)
	assert.False(t, won)
}

func TestRecordFailedOTPAttempt(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "testuser")
	otp := newOTP(t, repo, user.ID, t0)

	for i := 1; i <= 2; i++ {
		require.NoError(t, repo.RecordFailedOTPAttempt(ctx, otp.ID, 3))
		got, err := repo.GetOTPRequestByID(ctx, otp.ID)
		require.NoError(t, err)
		assert.Equal(t, i, got.Attempts)
		assert.False(t, got.IsUsed)
	}

	require.NoError(t, repo.RecordFailedOTPAttempt(ctx, otp.ID, 3))
	got, err := repo.GetOTPRequestByID(ctx, otp.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Attempts)
	assert.True(t, got.IsUsed, "record is burned once the cap is reached")

	require.NoError(t, repo.RecordFailedOTPAttempt(ctx, otp.ID, 3))
	got, err = repo.GetOTPRequestByID(ctx, otp.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Attempts, "used records are not counted further")
}

func TestDeleteOTPRequest(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "testuser")
	otp := newOTP(t, repo, user.ID, t0)

	require.NoError(t, repo.DeleteOTPRequest(ctx, otp.ID))

	_, err := repo.GetOTPRequestByID(ctx, otp.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCountOTPRequestsSince(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "testuser")
	other := testutil.NewTestUser(t, repo, "other")
	newOTP(t, repo, user.ID, t0)
	newOTP(t, repo, user.ID, t0.Add(time.Hour))
	newOTP(t, repo, user.ID, t0.Add(2*time.Hour))
	newOTP(t, repo, other.ID, t0.Add(2*time.Hour))

	count, err := repo.CountOTPRequestsSince(ctx, user.ID, t0.Add(time.Hour))

	require.NoError(t, err)
	assert.Equal(t, 2, count, "boundary record counts, older ones and other users do not")

	count, err = repo.CountOTPRequestsSince(ctx, user.ID, t0.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestCountOTPRequestsSince_IncludesUsed(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "testuser")
	newOTP(t, repo, user.ID, t0)
	_, err := repo.InvalidateActiveOTPRequests(ctx, user.ID)
	require.NoError(t, err)

	count, err := repo.CountOTPRequestsSince(ctx, user.ID, t0)

	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestLatestOTPRequestAt(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "testuser")

	_, err := repo.LatestOTPRequestAt(ctx, user.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	newOTP(t, repo, user.ID, t0)
	newOTP(t, repo, user.ID, t0.Add(90*time.Second))

	latest, err := repo.LatestOTPRequestAt(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, t0.Add(90*time.Second).Equal(latest))
}

func TestOldestOTPRequestSince(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "testuser")
	other := testutil.NewTestUser(t, repo, "other")
	newOTP(t, repo, other.ID, t0)
	newOTP(t, repo, user.ID, t0)
	newOTP(t, repo, user.ID, t0.Add(time.Hour))
	newOTP(t, repo, user.ID, t0.Add(2*time.Hour))

	oldest, err := repo.OldestOTPRequestSince(ctx, user.ID, t0.Add(time.Minute), 0)
	require.NoError(t, err)
	assert.True(t, t0.Add(time.Hour).Equal(oldest), "records before since are ignored")

	oldest, err = repo.OldestOTPRequestSince(ctx, user.ID, t0, 0)
	require.NoError(t, err)
	assert.True(t, t0.Equal(oldest), "boundary record is included")

	oldest, err = repo.OldestOTPRequestSince(ctx, user.ID, t0, 2)
	require.NoError(t, err)
	assert.True(t, t0.Add(2*time.Hour).Equal(oldest))

	_, err = repo.OldestOTPRequestSince(ctx, user.ID, t0, 3)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestListOTPRequests(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "testuser")
	first := newOTP(t, repo, user.ID, t0)
	second := newOTP(t, repo, user.ID, t0.Add(time.Minute))

	otps, err := repo.ListOTPRequests(ctx, user.ID)

	require.NoError(t, err)
	require.Len(t, otps, 2)
	assert.Equal(t, second.ID, otps[0].ID)
	assert.Equal(t, first.ID, otps[1].ID)
}

func TestDeleteOTPRequestsBefore(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "testuser")
	newOTP(t, repo, user.ID, t0)
	keep := newOTP(t, repo, user.ID, t0.Add(48*time.Hour))

	n, err := repo.DeleteOTPRequestsBefore(ctx, t0.Add(24*time.Hour))

	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	otps, err := repo.ListOTPRequests(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, otps, 1)
	assert.Equal(t, keep.ID, otps[0].ID)
}
