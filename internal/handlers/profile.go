// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"codeberg.org/oliverandrich/byteblogger/internal/auth"
	"codeberg.org/oliverandrich/byteblogger/internal/i18n"
	authsvc "codeberg.org/oliverandrich/byteblogger/internal/services/auth"
	"github.com/labstack/echo/v4"
)

// ProfileRequest updates profile fields or, with both password fields
// set, the password.
type ProfileRequest struct {
	FullName       *string `json:"full_name" validate:"omitempty,max=255"`
	TopicInterests *string `json:"topic_interests" validate:"omitempty,max=1000"`
	OldPassword    string  `json:"old_password" validate:"required_with=NewPassword"`
	NewPassword    string  `json:"new_password" validate:"required_with=OldPassword,max=128"`
}

// ProfileResponse is the authenticated user's account.
type ProfileResponse struct {
	Message string `json:"message,omitempty"`
	*authsvc.Account
}

// Profile returns the authenticated user's profile.
func (h *Handlers) Profile(c echo.Context) error {
	ctx := c.Request().Context()
	userID, ok := auth.UserID(ctx)
	if !ok {
		return fail(c, http.StatusUnauthorized, "error_unauthorized")
	}

	account, err := h.accounts.Profile(ctx, userID)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(http.StatusOK, ProfileResponse{Account: account})
}

// UpdateProfile partially updates the profile or changes the password.
func (h *Handlers) UpdateProfile(c echo.Context) error {
	ctx := c.Request().Context()
	userID, ok := auth.UserID(ctx)
	if !ok {
		return fail(c, http.StatusUnauthorized, "error_unauthorized")
	}

	var req ProfileRequest
	if err := bind(c, &req); err != nil {
		return handleError(c, err)
	}

	messageID := "message_profile_updated"
	if req.NewPassword != "" {
		if err := h.accounts.ChangePassword(ctx, userID, req.OldPassword, req.NewPassword); err != nil {
			return handleError(c, err)
		}
		messageID = "message_password_changed"
	}

	account, err := h.accounts.UpdateProfile(ctx, userID, authsvc.ProfileParams{
		FullName:       req.FullName,
		TopicInterests: req.TopicInterests,
	})
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(http.StatusOK, ProfileResponse{
		Message: i18n.T(ctx, messageID),
		Account: account,
	})
}
