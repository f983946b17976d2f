// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"codeberg.org/oliverandrich/byteblogger/internal/clock"
	"codeberg.org/oliverandrich/byteblogger/internal/config"
	"codeberg.org/oliverandrich/byteblogger/internal/database"
	"codeberg.org/oliverandrich/byteblogger/internal/repository"
	"codeberg.org/oliverandrich/byteblogger/internal/services/otp"
	"github.com/urfave/cli/v3"
)

// DefaultRetention is how long OTP history is kept by purge.
const DefaultRetention = 30 * 24 * time.Hour

// PurgeResult counts the rows removed by a purge.
type PurgeResult struct {
	OTPRequests   int64
	RevokedTokens int64
}

// Purge removes OTP records older than retention and revoked-token rows
// whose tokens have expired anyway.
func Purge(ctx context.Context, repo *repository.Repository, cfg config.OTPConfig, clk clock.Clock, retention time.Duration) (PurgeResult, error) {
	var res PurgeResult

	mgr := otp.NewManager(repo, nil, cfg, otp.WithClock(clk))
	n, err := mgr.Purge(ctx, retention)
	if err != nil {
		return res, err
	}
	res.OTPRequests = n

	n, err = repo.DeleteExpiredRevokedTokens(ctx, clk.Now())
	if err != nil {
		return res, fmt.Errorf("purge revoked tokens: %w", err)
	}
	res.RevokedTokens = n

	return res, nil
}

// RunPurge is the CLI action of the purge command.
func RunPurge(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	res, err := Purge(ctx, repository.New(db), cfg.OTP, clock.New(), cmd.Duration("older-than"))
	if err != nil {
		return err
	}

	slog.Info("purge_completed",
		"otp_requests", res.OTPRequests,
		"revoked_tokens", res.RevokedTokens,
	)
	return nil
}

// RunMigrate is the CLI action of the migrate command.
func RunMigrate(_ context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	// Open applies pending migrations.
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	defer func() { _ = db.Close() }()

	version, err := database.Version(db.DB)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	slog.Info("migrations_applied", "version", version)
	return nil
}
