// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"codeberg.org/oliverandrich/byteblogger/internal/auth"
	"codeberg.org/oliverandrich/byteblogger/internal/i18n"
	"github.com/labstack/echo/v4"
)

// RefreshRequest carries a refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshToken rotates a refresh token into a new pair.
func (h *Handlers) RefreshToken(c echo.Context) error {
	var req RefreshRequest
	if err := bind(c, &req); err != nil {
		return handleError(c, err)
	}

	ctx := c.Request().Context()
	pair, err := h.tokens.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(http.StatusOK, TokenResponse{
		Message: i18n.T(ctx, "message_token_refreshed"),
		Pair:    pair,
	})
}

// Logout revokes the caller's refresh token.
func (h *Handlers) Logout(c echo.Context) error {
	userID, ok := auth.UserID(c.Request().Context())
	if !ok {
		return fail(c, http.StatusUnauthorized, "error_unauthorized")
	}

	var req RefreshRequest
	if err := bind(c, &req); err != nil {
		return handleError(c, err)
	}

	ctx := c.Request().Context()
	if err := h.tokens.Revoke(ctx, userID, req.RefreshToken); err != nil {
		return handleError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": i18n.T(ctx, "message_logged_out"),
	})
}
