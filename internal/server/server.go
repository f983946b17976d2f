// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package server wires configuration, storage and services into the echo
// application and runs it.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/oliverandrich/byteblogger/internal/clock"
	"codeberg.org/oliverandrich/byteblogger/internal/config"
	"codeberg.org/oliverandrich/byteblogger/internal/database"
	"codeberg.org/oliverandrich/byteblogger/internal/handlers"
	"codeberg.org/oliverandrich/byteblogger/internal/i18n"
	appmw "codeberg.org/oliverandrich/byteblogger/internal/middleware"
	"codeberg.org/oliverandrich/byteblogger/internal/repository"
	"codeberg.org/oliverandrich/byteblogger/internal/services/auth"
	"codeberg.org/oliverandrich/byteblogger/internal/services/email"
	"codeberg.org/oliverandrich/byteblogger/internal/services/otp"
	"codeberg.org/oliverandrich/byteblogger/internal/services/token"
	"codeberg.org/oliverandrich/byteblogger/internal/validate"
	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"
	"github.com/vinovest/sqlx"
)

// App holds the wired application.
type App struct {
	cfg      *config.Config
	db       *sqlx.DB
	repo     *repository.Repository
	otp      *otp.Manager
	tokens   *token.Service
	accounts *auth.Service
	echo     *echo.Echo
}

// New opens the database and builds services and routes. sender delivers
// verification codes; nil uses SMTP from cfg.
func New(cfg *config.Config, sender otp.Sender, clk clock.Clock) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := i18n.Init(); err != nil {
		return nil, fmt.Errorf("failed to init i18n: %w", err)
	}

	if sender == nil {
		mailer, err := email.NewService(&cfg.SMTP)
		if err != nil {
			return nil, fmt.Errorf("failed to set up email: %w", err)
		}
		sender = mailer
	}

	// Database (migrations run on open)
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	repo := repository.New(db)

	tokens, err := token.NewService(repo, cfg.JWT, clk)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set up tokens: %w", err)
	}

	otpManager := otp.NewManager(repo, sender, cfg.OTP, otp.WithClock(clk))
	accounts := auth.NewService(repo, otpManager, tokens)

	v, err := validate.New()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set up validator: %w", err)
	}

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = v
	e.HTTPErrorHandler = errorHandler

	app := &App{
		cfg:      cfg,
		db:       db,
		repo:     repo,
		otp:      otpManager,
		tokens:   tokens,
		accounts: accounts,
		echo:     e,
	}

	setupMiddleware(e, cfg)
	app.setupRoutes()

	return app, nil
}

// Handler returns the HTTP handler of the application.
func (a *App) Handler() http.Handler {
	return a.echo
}

// Close releases the database.
func (a *App) Close() error {
	return a.db.Close()
}

func (a *App) setupRoutes() {
	h := handlers.New(a.repo, a.accounts, a.tokens)
	requireAuth := appmw.RequireAuth(a.tokens)

	a.echo.GET("/health", h.Health)

	users := a.echo.Group("/api/users")
	users.POST("/register", h.Register)
	users.POST("/login", h.Login)
	users.POST("/verify", h.Verify)
	users.POST("/resend-otp", h.ResendOTP)
	users.POST("/token/refresh", h.RefreshToken)
	users.POST("/logout", h.Logout, requireAuth)
	users.GET("/profile", h.Profile, requireAuth)
	users.PUT("/profile", h.UpdateProfile, requireAuth)
}

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	app, err := New(cfg, nil, clock.New())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := app.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	return app.startWithGracefulShutdown(ctx)
}

func (a *App) startWithGracefulShutdown(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := a.cfg.Server.Addr()
	errChan := make(chan error, 1)
	go func() {
		slog.Info("Server running", "addr", addr)
		if err := a.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := a.echo.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}
