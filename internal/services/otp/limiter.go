// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"codeberg.org/oliverandrich/byteblogger/internal/clock"
	"codeberg.org/oliverandrich/byteblogger/internal/config"
	"codeberg.org/oliverandrich/byteblogger/internal/repository"
)

// Window is the rolling period the volume limit is counted over.
const Window = 24 * time.Hour

// History is the persisted issuance log the limiter reads.
type History interface {
	LatestOTPRequestAt(ctx context.Context, userID int64) (time.Time, error)
	CountOTPRequestsSince(ctx context.Context, userID int64, since time.Time) (int, error)
	OldestOTPRequestSince(ctx context.Context, userID int64, since time.Time, skip int) (time.Time, error)
}

// Decision is the outcome of a rate-limit check.
type Decision struct {
	Allowed    bool
	Reason     Reason
	Remaining  int // MaxRequests minus issuances in the window, before this one
	RetryAfter time.Duration
}

// Err returns nil for allowed decisions and a *RateLimitError otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &RateLimitError{Reason: d.Reason, RetryAfter: d.RetryAfter}
}

// Limiter applies the cooldown and the rolling 24h volume limit. It keeps
// no state of its own; every check reads the issuance history.
type Limiter struct {
	history History
	clock   clock.Clock
	cfg     config.OTPConfig
}

// NewLimiter creates a limiter over history.
func NewLimiter(history History, cfg config.OTPConfig, clk clock.Clock) *Limiter {
	return &Limiter{history: history, cfg: cfg, clock: clk}
}

// MayIssue reports whether userID may be sent a new code now.
func (l *Limiter) MayIssue(ctx context.Context, userID int64) (Decision, error) {
	return l.Evaluate(ctx, l.history, userID, l.clock.Now())
}

// Evaluate runs the policy against h at now. The cooldown is checked
// before the volume limit.
func (l *Limiter) Evaluate(ctx context.Context, h History, userID int64, now time.Time) (Decision, error) {
	latest, err := h.LatestOTPRequestAt(ctx, userID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return Decision{Allowed: true, Remaining: l.cfg.MaxRequests}, nil
	case err != nil:
		return Decision{}, fmt.Errorf("load latest issuance: %w", err)
	}

	if since := now.Sub(latest); since < l.cfg.Cooldown() {
		return Decision{Reason: ReasonCooldown, RetryAfter: l.cfg.Cooldown() - since}, nil
	}

	windowStart := now.Add(-Window)
	count, err := h.CountOTPRequestsSince(ctx, userID, windowStart)
	if err != nil {
		return Decision{}, fmt.Errorf("count issuances: %w", err)
	}
	if count >= l.cfg.MaxRequests {
		retryAfter, err := l.limitRetryAfter(ctx, h, userID, windowStart, now, count)
		if err != nil {
			return Decision{}, err
		}
		return Decision{Reason: ReasonLimit, RetryAfter: retryAfter}, nil
	}

	return Decision{Allowed: true, Remaining: l.cfg.MaxRequests - count}, nil
}

// limitRetryAfter is the wait until enough issuances leave the window for
// one more to fit under MaxRequests.
func (l *Limiter) limitRetryAfter(ctx context.Context, h History, userID int64, windowStart, now time.Time, count int) (time.Duration, error) {
	skip := max(count-l.cfg.MaxRequests, 0)
	oldest, err := h.OldestOTPRequestSince(ctx, userID, windowStart, skip)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("load oldest issuance: %w", err)
	}
	return max(oldest.Add(Window).Sub(now), time.Second), nil
}
