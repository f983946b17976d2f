// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"net/http"
	"time"

	"codeberg.org/oliverandrich/byteblogger/internal/i18n"
	"codeberg.org/oliverandrich/byteblogger/internal/services/auth"
	"codeberg.org/oliverandrich/byteblogger/internal/services/otp"
	"codeberg.org/oliverandrich/byteblogger/internal/services/token"
	"github.com/labstack/echo/v4"
)

// RegisterRequest is the request body for registration.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

// RegisterResponse reports the new account and whether a code was sent.
type RegisterResponse struct {
	Message  string `json:"message"`
	UserID   int64  `json:"user_id"`
	Response bool   `json:"response"` // true when the verification code was sent
}

// Register creates an account and sends the first verification code.
func (h *Handlers) Register(c echo.Context) error {
	var req RegisterRequest
	if err := bind(c, &req); err != nil {
		return handleError(c, err)
	}

	ctx := c.Request().Context()
	user, err := h.accounts.Register(ctx, auth.RegisterParams{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if user == nil {
		return handleError(c, err)
	}

	// The account exists even if the code could not be sent; the
	// client can ask for another one.
	return c.JSON(http.StatusCreated, RegisterResponse{
		Message:  i18n.T(ctx, "message_registered"),
		UserID:   user.ID,
		Response: err == nil,
	})
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse carries a freshly issued token pair.
type TokenResponse struct {
	Message string `json:"message"`
	*token.Pair
}

// Login exchanges credentials for a token pair.
func (h *Handlers) Login(c echo.Context) error {
	var req LoginRequest
	if err := bind(c, &req); err != nil {
		return handleError(c, err)
	}

	ctx := c.Request().Context()
	pair, err := h.accounts.Login(ctx, req.Email, req.Password)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(http.StatusOK, TokenResponse{
		Message: i18n.T(ctx, "message_login"),
		Pair:    pair,
	})
}

// VerifyRequest is the request body for account verification.
type VerifyRequest struct {
	UserID int64  `json:"user_id" validate:"required,gt=0"`
	OTP    string `json:"otp" validate:"required,len=6,numeric"`
}

// VerifyResponse reports the verified account.
type VerifyResponse struct {
	Message    string `json:"message"`
	UserID     int64  `json:"user_id"`
	IsVerified bool   `json:"is_verified"`
}

// Verify consumes a verification code.
func (h *Handlers) Verify(c echo.Context) error {
	var req VerifyRequest
	if err := bind(c, &req); err != nil {
		// Malformed codes fail like wrong ones.
		var httpErr *echo.HTTPError
		if req.UserID > 0 && req.OTP != "" && !errors.As(err, &httpErr) {
			return handleError(c, otp.ErrInvalidOrExpired)
		}
		return handleError(c, err)
	}

	ctx := c.Request().Context()
	user, err := h.accounts.VerifyAccount(ctx, req.UserID, req.OTP)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(http.StatusOK, VerifyResponse{
		Message:    i18n.T(ctx, "message_verified"),
		UserID:     user.ID,
		IsVerified: user.IsVerified,
	})
}

// ResendRequest is the request body for requesting another code.
type ResendRequest struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
}

// ResendResponse reports a newly issued code.
type ResendResponse struct {
	Message   string `json:"message"`
	ExpiresAt string `json:"expires_at"`
	Remaining int    `json:"remaining"` // issuances left in the current 24h window
}

// ResendOTP issues another verification code, subject to rate limits.
func (h *Handlers) ResendOTP(c echo.Context) error {
	var req ResendRequest
	if err := bind(c, &req); err != nil {
		return handleError(c, err)
	}

	ctx := c.Request().Context()
	issuance, err := h.accounts.ResendOTP(ctx, req.UserID)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(http.StatusOK, ResendResponse{
		Message:   i18n.T(ctx, "message_otp_sent"),
		ExpiresAt: issuance.ExpiresAt.UTC().Format(time.RFC3339),
		Remaining: issuance.Remaining,
	})
}
