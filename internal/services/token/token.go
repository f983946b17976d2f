// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package token issues and validates the JWT access and refresh tokens used
// by the API.
package token

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"codeberg.org/oliverandrich/byteblogger/internal/clock"
	"codeberg.org/oliverandrich/byteblogger/internal/config"
	"codeberg.org/oliverandrich/byteblogger/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"

	minSecretLength = 32
)

var (
	// ErrInvalidToken covers malformed, expired, revoked and wrong-type tokens.
	ErrInvalidToken = errors.New("token is invalid or expired")
	// ErrSecretTooShort is returned for HMAC keys below 32 bytes.
	ErrSecretTooShort = errors.New("jwt secret must be at least 32 bytes")
)

// Claims are the JWT claims of both token types. The token id travels in
// RegisteredClaims.ID as "jti".
type Claims struct {
	UserID    int64  `json:"user_id"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Pair is what login and refresh hand back to the client.
type Pair struct {
	Access    string `json:"access_token"`
	Refresh   string `json:"refresh_token"`
	TokenType string `json:"token_type"`
	ExpiresIn int64  `json:"expires_in"`
}

// Store persists revoked refresh token ids.
type Store interface {
	RevokeToken(ctx context.Context, token *models.RevokedToken) (bool, error)
}

type Service struct {
	store      Store
	clock      clock.Clock
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewService creates a token service. An empty secret is replaced by a
// random one, which invalidates all tokens on restart.
func NewService(store Store, cfg config.JWTConfig, clk clock.Clock) (*Service, error) {
	secret := []byte(cfg.Secret)
	if len(secret) == 0 {
		secret = make([]byte, minSecretLength)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		slog.Warn("jwt_secret_generated", "hint", "set JWT_SECRET_KEY to keep tokens valid across restarts")
	}
	if len(secret) < minSecretLength {
		return nil, ErrSecretTooShort
	}

	return &Service{
		store:      store,
		clock:      clk,
		secret:     secret,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
	}, nil
}

// Issue creates a fresh access/refresh pair for userID.
func (s *Service) Issue(userID int64) (*Pair, error) {
	now := s.clock.Now()

	access, err := s.sign(userID, TypeAccess, now, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(userID, TypeRefresh, now, s.refreshTTL)
	if err != nil {
		return nil, err
	}

	return &Pair{
		Access:    access,
		Refresh:   refresh,
		TokenType: "Bearer",
		ExpiresIn: int64(s.accessTTL.Seconds()),
	}, nil
}

// ParseAccess validates an access token and returns its claims.
func (s *Service) ParseAccess(tokenString string) (*Claims, error) {
	return s.parse(tokenString, TypeAccess)
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued. A token can be rotated only once.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Pair, error) {
	claims, err := s.revoke(ctx, refreshToken, 0)
	if err != nil {
		return nil, err
	}
	slog.Info("token_refreshed", "user_id", claims.UserID)
	return s.Issue(claims.UserID)
}

// Revoke invalidates a refresh token owned by userID (logout).
func (s *Service) Revoke(ctx context.Context, userID int64, refreshToken string) error {
	claims, err := s.revoke(ctx, refreshToken, userID)
	if err != nil {
		return err
	}
	slog.Info("token_revoked", "user_id", claims.UserID)
	return nil
}

// revoke marks the refresh token used. A non-zero owner must match the token's user.
func (s *Service) revoke(ctx context.Context, refreshToken string, owner int64) (*Claims, error) {
	claims, err := s.parse(refreshToken, TypeRefresh)
	if err != nil {
		return nil, err
	}
	if owner != 0 && claims.UserID != owner {
		return nil, ErrInvalidToken
	}

	won, err := s.store.RevokeToken(ctx, &models.RevokedToken{
		JTI:       claims.ID,
		UserID:    claims.UserID,
		ExpiresAt: claims.ExpiresAt.Time,
		RevokedAt: s.clock.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("revoke token: %w", err)
	}
	if !won {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *Service) sign(userID int64, tokenType string, now time.Time, ttl time.Duration) (string, error) {
	claims := &Claims{
		UserID:    userID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

func (s *Service) parse(tokenString, wantType string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != wantType || claims.UserID == 0 || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
