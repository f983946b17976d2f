// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package ctxkeys defines typed context keys used across packages.
package ctxkeys

// UserID is the context key for the authenticated user's ID.
type UserID struct{}

// TokenID is the context key for the JTI of the access token in use.
type TokenID struct{}
