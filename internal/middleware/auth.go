// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package middleware holds the echo middleware specific to this application.
package middleware

import (
	"net/http"
	"strings"

	"codeberg.org/oliverandrich/byteblogger/internal/auth"
	"codeberg.org/oliverandrich/byteblogger/internal/i18n"
	"codeberg.org/oliverandrich/byteblogger/internal/services/token"
	"github.com/labstack/echo/v4"
)

// TokenParser validates access tokens.
type TokenParser interface {
	ParseAccess(tokenString string) (*token.Claims, error)
}

// RequireAuth rejects requests without a valid Bearer access token and
// stores the token's user in the request context.
func RequireAuth(tokens TokenParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			raw, ok := bearerToken(req.Header.Get(echo.HeaderAuthorization))
			if !ok {
				return unauthorized(c, "error_unauthorized")
			}

			claims, err := tokens.ParseAccess(raw)
			if err != nil {
				return unauthorized(c, "error_invalid_token")
			}

			ctx := auth.WithUser(req.Context(), claims.UserID, claims.ID)
			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	}
}

func bearerToken(header string) (string, bool) {
	scheme, raw, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

func unauthorized(c echo.Context, messageID string) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Bearer realm="api"`)
	return c.JSON(http.StatusUnauthorized, map[string]string{
		"error": i18n.T(c.Request().Context(), messageID),
	})
}
