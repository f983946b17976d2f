// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth implements the account flows: registration, email
// verification, login and profile management.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"codeberg.org/oliverandrich/byteblogger/internal/models"
	"codeberg.org/oliverandrich/byteblogger/internal/repository"
	"codeberg.org/oliverandrich/byteblogger/internal/services/otp"
	"codeberg.org/oliverandrich/byteblogger/internal/services/token"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrNotVerified        = errors.New("account not verified")
	ErrAlreadyVerified    = errors.New("account already verified")
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrInvalidUsername    = errors.New("username is required")
	ErrIncorrectPassword  = errors.New("current password is incorrect")
)

// dummyHash is used for constant-time login to prevent timing attacks
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), bcrypt.DefaultCost)

type Service struct {
	repo         *repository.Repository
	otp          *otp.Manager
	tokens       *token.Service
	policy       PasswordPolicy
	passwordCost int
}

// Option configures a Service.
type Option func(*Service)

// WithPasswordCost sets the bcrypt cost for account passwords.
func WithPasswordCost(cost int) Option {
	return func(s *Service) { s.passwordCost = cost }
}

// WithPasswordPolicy replaces the default password policy.
func WithPasswordPolicy(p PasswordPolicy) Option {
	return func(s *Service) { s.policy = p }
}

func NewService(repo *repository.Repository, otpManager *otp.Manager, tokens *token.Service, opts ...Option) *Service {
	s := &Service{
		repo:         repo,
		otp:          otpManager,
		tokens:       tokens,
		policy:       DefaultPasswordPolicy(),
		passwordCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterParams holds the parameters for user registration
type RegisterParams struct {
	Username string
	Email    string
	Password string
}

// ProfileParams holds the editable profile fields. Nil fields are left unchanged.
type ProfileParams struct {
	FullName       *string
	TopicInterests *string
}

// Account is a user together with its profile.
type Account struct {
	User    *models.User    `json:"user"`
	Profile *models.Profile `json:"profile"`
}

// normalizeEmail lower-cases the address so lookups are case-insensitive.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an unverified account with an empty profile and sends
// the first verification code. If the account was created but the code
// could not be issued, both the user and the issuance error are returned.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*models.User, error) {
	email := normalizeEmail(params.Email)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, ErrInvalidEmail
	}
	username := strings.TrimSpace(params.Username)
	if username == "" {
		return nil, ErrInvalidUsername
	}

	if err := s.policy.Check(params.Password, username, email); err != nil {
		return nil, err
	}

	exists, err := s.repo.UserExists(ctx, username, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if exists {
		return nil, ErrUserExists
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(params.Password), s.passwordCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(passwordHash),
	}

	err = s.repo.InTx(ctx, func(tx *repository.Repository) error {
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}
		return tx.CreateProfile(ctx, &models.Profile{UserID: user.ID, CreatedAt: user.CreatedAt})
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("register_success", "user_id", user.ID)

	if _, err := s.otp.Issue(ctx, user.ID); err != nil {
		slog.Warn("register_otp_failed", "user_id", user.ID, "error", err)
		return user, err
	}

	return user, nil
}

// Login checks the credentials and returns a token pair. Unverified
// accounts get a new code (subject to rate limits) and ErrNotVerified.
func (s *Service) Login(ctx context.Context, email, password string) (*token.Pair, error) {
	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Constant-time: always perform bcrypt comparison to prevent timing attacks
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			slog.Warn("login_failed", "reason", "user_not_found")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		slog.Warn("login_failed", "user_id", user.ID, "reason", "invalid_password")
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		slog.Warn("login_failed", "user_id", user.ID, "reason", "inactive")
		return nil, ErrInvalidCredentials
	}

	if !user.IsVerified {
		if _, err := s.otp.Issue(ctx, user.ID); err != nil {
			slog.Warn("login_otp_failed", "user_id", user.ID, "error", err)
		}
		return nil, ErrNotVerified
	}

	pair, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}

	slog.Info("login_success", "user_id", user.ID)
	return pair, nil
}

// VerifyAccount consumes a verification code and marks the account
// verified. Every verification failure is otp.ErrInvalidOrExpired.
func (s *Service) VerifyAccount(ctx context.Context, userID int64, code string) (*models.User, error) {
	if err := s.otp.Verify(ctx, userID, code); err != nil {
		return nil, err
	}

	if err := s.repo.MarkUserVerified(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, otp.ErrInvalidOrExpired
		}
		return nil, fmt.Errorf("failed to mark user verified: %w", err)
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	slog.Info("account_verified", "user_id", userID)
	return user, nil
}

// ResendOTP issues a new verification code for an unverified account.
func (s *Service) ResendOTP(ctx context.Context, userID int64) (*otp.Issuance, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user.IsVerified {
		return nil, ErrAlreadyVerified
	}

	return s.otp.Issue(ctx, userID)
}

// Profile returns the account of userID.
func (s *Service) Profile(ctx context.Context, userID int64) (*Account, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	profile, err := s.repo.GetProfileByUserID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		// Accounts created before profiles existed get one on first access.
		profile = &models.Profile{UserID: userID}
		err = s.repo.CreateProfile(ctx, profile)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	return &Account{User: user, Profile: profile}, nil
}

// UpdateProfile applies the non-nil fields of params.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, params ProfileParams) (*Account, error) {
	account, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if params.FullName != nil {
		account.Profile.FullName = strings.TrimSpace(*params.FullName)
	}
	if params.TopicInterests != nil {
		account.Profile.TopicInterests = strings.TrimSpace(*params.TopicInterests)
	}

	if err := s.repo.UpdateProfile(ctx, account.Profile); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	slog.Info("profile_updated", "user_id", userID)
	return account, nil
}

// ChangePassword changes a user's password (when they know their current password)
func (s *Service) ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return ErrIncorrectPassword
	}

	if err := s.policy.Check(newPassword, user.Username, user.Email); err != nil {
		return err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.passwordCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.repo.UpdateUserPassword(ctx, userID, string(passwordHash)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	slog.Info("password_changed", "user_id", userID)
	return nil
}
