// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"codeberg.org/oliverandrich/byteblogger/internal/i18n"
	"codeberg.org/oliverandrich/byteblogger/internal/services/auth"
	"codeberg.org/oliverandrich/byteblogger/internal/services/otp"
	"codeberg.org/oliverandrich/byteblogger/internal/services/token"
	"codeberg.org/oliverandrich/byteblogger/internal/validate"
	"github.com/labstack/echo/v4"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error      string            `json:"error"`
	Fields     map[string]string `json:"fields,omitempty"`
	Details    []string          `json:"details,omitempty"`
	RetryAfter int               `json:"retry_after,omitempty"` // seconds
}

// fail writes a localized error body with the given status.
func fail(c echo.Context, status int, messageID string) error {
	return c.JSON(status, ErrorResponse{Error: i18n.T(c.Request().Context(), messageID)})
}

// handleError maps service errors to HTTP responses. Unknown errors are
// logged and answered with a generic 500.
func handleError(c echo.Context, err error) error {
	ctx := c.Request().Context()

	var (
		validationErr validate.ValidationError
		passwordErr   *auth.PasswordValidationError
		rateErr       *otp.RateLimitError
		httpErr       *echo.HTTPError
	)

	switch {
	case errors.As(err, &validationErr):
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:  i18n.T(ctx, "error_invalid_request"),
			Fields: validationErr,
		})
	case errors.As(err, &passwordErr):
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   i18n.T(ctx, "error_password_invalid"),
			Details: passwordErr.Messages(),
		})
	case errors.As(err, &rateErr):
		seconds := int(math.Ceil(rateErr.RetryAfter.Seconds()))
		if seconds > 0 {
			c.Response().Header().Set("Retry-After", strconv.Itoa(seconds))
		}
		messageID := "error_limit"
		if rateErr.Reason == otp.ReasonCooldown {
			messageID = "error_cooldown"
		}
		return c.JSON(http.StatusTooManyRequests, ErrorResponse{
			Error:      i18n.T(ctx, messageID),
			RetryAfter: seconds,
		})
	case errors.As(err, &httpErr):
		return fail(c, httpErr.Code, "error_invalid_request")
	case errors.Is(err, otp.ErrInvalidOrExpired):
		return fail(c, http.StatusBadRequest, "error_invalid_otp")
	case errors.Is(err, otp.ErrDeliveryFailed):
		return fail(c, http.StatusServiceUnavailable, "error_delivery_failed")
	case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrInvalidUsername):
		return fail(c, http.StatusBadRequest, "error_invalid_request")
	case errors.Is(err, auth.ErrIncorrectPassword):
		return fail(c, http.StatusBadRequest, "error_incorrect_password")
	case errors.Is(err, auth.ErrUserExists):
		return fail(c, http.StatusConflict, "error_user_exists")
	case errors.Is(err, auth.ErrInvalidCredentials):
		return fail(c, http.StatusUnauthorized, "error_invalid_credentials")
	case errors.Is(err, auth.ErrNotVerified):
		return fail(c, http.StatusForbidden, "error_not_verified")
	case errors.Is(err, auth.ErrAlreadyVerified):
		return fail(c, http.StatusBadRequest, "error_already_verified")
	case errors.Is(err, auth.ErrUserNotFound), errors.Is(err, otp.ErrUnknownIdentity):
		return fail(c, http.StatusNotFound, "error_user_not_found")
	case errors.Is(err, token.ErrInvalidToken):
		return fail(c, http.StatusUnauthorized, "error_invalid_token")
	default:
		slog.Error("request_failed", "path", c.Path(), "error", err)
		return fail(c, http.StatusInternalServerError, "error_internal")
	}
}
