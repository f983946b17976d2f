// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package otp

import (
	"errors"
	"time"
)

var (
	// ErrRateLimited matches every *RateLimitError.
	ErrRateLimited = errors.New("otp rate limited")
	// ErrDeliveryFailed means the code could not be sent. Nothing was persisted.
	ErrDeliveryFailed = errors.New("otp delivery failed")
	// ErrInvalidOrExpired covers no code, a wrong code and an expired code alike.
	ErrInvalidOrExpired = errors.New("invalid or expired otp")
	// ErrUnknownIdentity is returned by Issue when the user does not exist.
	ErrUnknownIdentity = errors.New("unknown identity")
	// ErrRetentionTooShort rejects purges that would erase rate-limit history.
	ErrRetentionTooShort = errors.New("otp retention must cover the rate-limit window")
)

// Reason says which rate-limit rule denied an issuance.
type Reason string

const (
	ReasonCooldown Reason = "cooldown active"
	ReasonLimit    Reason = "limit reached"
)

// RateLimitError is returned when the limiter denies an issuance.
type RateLimitError struct {
	Reason     Reason
	RetryAfter time.Duration // zero when unknown
}

func (e *RateLimitError) Error() string {
	return "otp rate limited: " + string(e.Reason)
}

// Is lets errors.Is(err, ErrRateLimited) match.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}
