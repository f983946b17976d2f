// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package otp issues and verifies one-time passwords that prove control of
// a user's email address.
package otp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"codeberg.org/oliverandrich/byteblogger/internal/clock"
	"codeberg.org/oliverandrich/byteblogger/internal/config"
	"codeberg.org/oliverandrich/byteblogger/internal/models"
	"codeberg.org/oliverandrich/byteblogger/internal/repository"
)

// Sender delivers a plaintext code to an email address.
type Sender interface {
	SendOTP(ctx context.Context, to, code string, validFor time.Duration) error
}

// Issuance describes a delivered code. It never carries the code itself.
type Issuance struct {
	ExpiresAt time.Time
	Remaining int // issuances left in the current window
}

// Manager owns every write to the otp_requests table.
type Manager struct {
	repo      *repository.Repository
	sender    Sender
	limiter   *Limiter
	hasher    Hasher
	clock     clock.Clock
	dummyHash string
	cfg       config.OTPConfig
}

// Option configures a Manager.
type Option func(*Manager)

// WithHasher replaces the bcrypt hasher built from the config.
func WithHasher(h Hasher) Option {
	return func(m *Manager) { m.hasher = h }
}

// WithClock replaces the system clock.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// NewManager creates a Manager using repo as both OTP store and identity store.
// It panics if the hasher cannot hash a code.
func NewManager(repo *repository.Repository, sender Sender, cfg config.OTPConfig, opts ...Option) *Manager {
	m := &Manager{
		repo:   repo,
		sender: sender,
		cfg:    cfg,
		hasher: NewBcryptHasher(cfg.HashCost),
		clock:  clock.New(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.limiter = NewLimiter(repo, cfg, m.clock)
	// Compared against when no active code exists so both paths cost one hash check.
	dummy, err := m.hasher.Hash("000000")
	if err != nil {
		panic("otp: hashing dummy code: " + err.Error())
	}
	m.dummyHash = dummy
	return m
}

// Issue sends a fresh code to the user's email address. All earlier codes
// stop working. Errors match ErrUnknownIdentity, ErrRateLimited or
// ErrDeliveryFailed, or wrap a store failure.
func (m *Manager) Issue(ctx context.Context, userID int64) (*Issuance, error) {
	user, err := m.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnknownIdentity
		}
		return nil, fmt.Errorf("load identity: %w", err)
	}

	// Cheap rejection before paying for a hash; re-checked under the lock below.
	decision, err := m.limiter.MayIssue(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		slog.Info("otp_rate_limited", "user_id", userID, "reason", decision.Reason)
		return nil, decision.Err()
	}

	code, err := GenerateCode()
	if err != nil {
		return nil, err
	}
	hash, err := m.hasher.Hash(code)
	if err != nil {
		return nil, fmt.Errorf("hash otp: %w", err)
	}

	now := m.clock.Now()
	record := &models.OTPRequest{
		UserID:    userID,
		CodeHash:  hash,
		CreatedAt: now,
		ExpiresAt: now.Add(m.cfg.Expiry()),
	}

	err = m.repo.InTx(ctx, func(tx *repository.Repository) error {
		d, err := m.limiter.Evaluate(ctx, tx, userID, now)
		if err != nil {
			return err
		}
		decision = d
		if !decision.Allowed {
			return decision.Err()
		}
		if _, err := tx.InvalidateActiveOTPRequests(ctx, userID); err != nil {
			return fmt.Errorf("invalidate previous otps: %w", err)
		}
		if err := tx.CreateOTPRequest(ctx, record); err != nil {
			return fmt.Errorf("store otp: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrRateLimited) {
			slog.Info("otp_rate_limited", "user_id", userID, "reason", decision.Reason)
		}
		return nil, err
	}

	if err := m.sender.SendOTP(ctx, user.Email, code, m.cfg.Expiry()); err != nil {
		slog.Error("otp_delivery_failed", "user_id", userID, "otp_id", record.ID, "error", err)
		if delErr := m.repo.DeleteOTPRequest(context.WithoutCancel(ctx), record.ID); delErr != nil {
			return nil, errors.Join(ErrDeliveryFailed, fmt.Errorf("roll back undelivered otp: %w", delErr))
		}
		return nil, fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}

	slog.Info("otp_issued", "user_id", userID, "otp_id", record.ID, "expires_at", record.ExpiresAt)

	return &Issuance{
		ExpiresAt: record.ExpiresAt,
		Remaining: decision.Remaining - 1,
	}, nil
}

// Verify consumes the user's active code if code matches it. Every failure
// to verify returns ErrInvalidOrExpired; other errors are store failures.
func (m *Manager) Verify(ctx context.Context, userID int64, code string) error {
	now := m.clock.Now()

	if _, err := m.repo.ExpireStaleOTPRequests(ctx, userID, now); err != nil {
		return fmt.Errorf("expire stale otps: %w", err)
	}

	record, err := m.repo.GetActiveOTPRequest(ctx, userID, now)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			m.hasher.Compare(m.dummyHash, code)
			return ErrInvalidOrExpired
		}
		return fmt.Errorf("load active otp: %w", err)
	}

	if !m.hasher.Compare(record.CodeHash, code) {
		if err := m.repo.RecordFailedOTPAttempt(ctx, record.ID, m.cfg.MaxAttempts); err != nil {
			return fmt.Errorf("record failed attempt: %w", err)
		}
		slog.Info("otp_verify_failed", "user_id", userID, "otp_id", record.ID)
		return ErrInvalidOrExpired
	}

	won, err := m.repo.MarkOTPRequestUsed(ctx, record.ID, now)
	if err != nil {
		return fmt.Errorf("mark otp used: %w", err)
	}
	if !won {
		slog.Info("otp_verify_raced", "user_id", userID, "otp_id", record.ID)
		return ErrInvalidOrExpired
	}

	slog.Info("otp_verified", "user_id", userID, "otp_id", record.ID)
	return nil
}

// Purge deletes OTP records issued more than retention ago. Retention must
// be at least the rate-limit window.
func (m *Manager) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	if retention < Window {
		return 0, ErrRetentionTooShort
	}
	n, err := m.repo.DeleteOTPRequestsBefore(ctx, m.clock.Now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("purge otps: %w", err)
	}
	return n, nil
}
