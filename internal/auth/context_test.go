// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth_test

import (
	"context"
	"testing"

	"codeberg.org/oliverandrich/byteblogger/internal/auth"
	"github.com/stretchr/testify/assert"
)

func TestUserID(t *testing.T) {
	ctx := context.Background()

	_, ok := auth.UserID(ctx)
	assert.False(t, ok)
	assert.False(t, auth.IsAuthenticated(ctx))
	assert.Empty(t, auth.TokenID(ctx))

	ctx = auth.WithUser(ctx, 42, "jti-1")

	id, ok := auth.UserID(ctx)
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)
	assert.True(t, auth.IsAuthenticated(ctx))
	assert.Equal(t, "jti-1", auth.TokenID(ctx))
}
