// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"errors"
	"testing"

	"codeberg.org/oliverandrich/byteblogger/internal/models"
	"codeberg.org/oliverandrich/byteblogger/internal/repository"
	"codeberg.org/oliverandrich/byteblogger/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	db, repo := testutil.NewTestDB(t)

	assert.NotNil(t, repo)
	assert.Same(t, db, repo.DB())
}

func TestInTx_Commit(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	var created *models.User
	err := repo.InTx(ctx, func(tx *repository.Repository) error {
		created = &models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x"}
		return tx.CreateUser(ctx, created)
	})

	require.NoError(t, err)
	got, err := repo.GetUserByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
}

func TestInTx_RollbackOnError(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := repo.InTx(ctx, func(tx *repository.Repository) error {
		user := &models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x"}
		require.NoError(t, tx.CreateUser(ctx, user))
		return boom
	})

	require.ErrorIs(t, err, boom)
	_, err = repo.GetUserByEmail(ctx, "alice@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestInTx_Nested(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	err := repo.InTx(ctx, func(tx *repository.Repository) error {
		return tx.InTx(ctx, func(inner *repository.Repository) error {
			return inner.CreateUser(ctx, &models.User{Username: "bob", Email: "bob@example.com", PasswordHash: "x"})
		})
	})

	require.NoError(t, err)
	exists, err := repo.UserExists(ctx, "bob", "")
	require.NoError(t, err)
	assert.True(t, exists)
}
