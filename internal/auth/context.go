// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth provides authentication context helpers.
package auth

import (
	"context"

	"codeberg.org/oliverandrich/byteblogger/internal/ctxkeys"
)

// WithUser stores the authenticated user ID and token ID in ctx.
func WithUser(ctx context.Context, userID int64, tokenID string) context.Context {
	ctx = context.WithValue(ctx, ctxkeys.UserID{}, userID)
	return context.WithValue(ctx, ctxkeys.TokenID{}, tokenID)
}

// UserID returns the authenticated user ID from the context.
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ctxkeys.UserID{}).(int64)
	return id, ok
}

// TokenID returns the JTI of the access token that authenticated the request.
func TokenID(ctx context.Context) string {
	id, _ := ctx.Value(ctxkeys.TokenID{}).(string)
	return id
}

// IsAuthenticated returns true if the context has an authenticated user.
func IsAuthenticated(ctx context.Context) bool {
	_, ok := UserID(ctx)
	return ok
}
