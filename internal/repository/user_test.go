// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"

	"codeberg.org/oliverandrich/byteblogger/internal/models"
	"codeberg.org/oliverandrich/byteblogger/internal/repository"
	"codeberg.org/oliverandrich/byteblogger/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := &models.User{Username: "testuser", Email: "test@example.com", PasswordHash: "hash"}
	err := repo.CreateUser(ctx, user)

	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.NotZero(t, user.CreatedAt)
	assert.True(t, user.IsActive)
	assert.False(t, user.IsVerified)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	testutil.NewTestUser(t, repo, "testuser")

	err := repo.CreateUser(ctx, &models.User{Username: "other", Email: "testuser@example.com", PasswordHash: "hash"})

	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	testutil.NewTestUser(t, repo, "testuser")

	err := repo.CreateUser(ctx, &models.User{Username: "testuser", Email: "other@example.com", PasswordHash: "hash"})

	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestGetUserByID(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	created := testutil.NewTestUser(t, repo, "testuser")

	retrieved, err := repo.GetUserByID(ctx, created.ID)

	require.NoError(t, err)
	assert.Equal(t, created.ID, retrieved.ID)
	assert.Equal(t, created.Username, retrieved.Username)
	assert.Equal(t, created.Email, retrieved.Email)
	assert.Equal(t, "not-a-real-hash", retrieved.PasswordHash)
	assert.WithinDuration(t, created.CreatedAt, retrieved.CreatedAt, 0)
}

func TestGetUserByID_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	_, err := repo.GetUserByID(ctx, 999)

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGetUserByEmail(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	created := testutil.NewTestUser(t, repo, "testuser")

	retrieved, err := repo.GetUserByEmail(ctx, "testuser@example.com")

	require.NoError(t, err)
	assert.Equal(t, created.ID, retrieved.ID)
}

func TestGetUserByEmail_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	_, err := repo.GetUserByEmail(ctx, "nobody@example.com")

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserExists(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	testutil.NewTestUser(t, repo, "testuser")

	byName, err := repo.UserExists(ctx, "testuser", "x@example.com")
	require.NoError(t, err)
	assert.True(t, byName)

	byEmail, err := repo.UserExists(ctx, "someone", "testuser@example.com")
	require.NoError(t, err)
	assert.True(t, byEmail)

	neither, err := repo.UserExists(ctx, "someone", "x@example.com")
	require.NoError(t, err)
	assert.False(t, neither)
}

func TestMarkUserVerified(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "testuser")

	require.NoError(t, repo.MarkUserVerified(ctx, user.ID))

	got, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, got.IsVerified)
}

func TestMarkUserVerified_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	err := repo.MarkUserVerified(context.Background(), 999)

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpdateUserPassword(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "testuser")

	require.NoError(t, repo.UpdateUserPassword(ctx, user.ID, "new-hash"))

	got, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)

	assert.ErrorIs(t, repo.UpdateUserPassword(ctx, 999, "x"), repository.ErrNotFound)
}
