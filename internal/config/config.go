// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

var configFile = altsrc.StringSourcer("config.toml")

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Server   ServerConfig
	Log      LogConfig
	Database DatabaseConfig
	SMTP     SMTPConfig
	OTP      OTPConfig
	JWT      JWTConfig
}

type ServerConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host        string
	Port        int
	MaxBodySize int // in MB
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type DatabaseConfig struct {
	DSN string
}

type SMTPConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	TLS      bool
}

// OTPConfig holds the one-time-password issuance policy.
type OTPConfig struct {
	ExpiryMinutes   int // lifetime of an issued code
	MaxRequests     int // issuances allowed per rolling 24h
	CooldownSeconds int // minimum spacing between issuances
	MaxAttempts     int // wrong guesses allowed per code
	HashCost        int // bcrypt cost for stored codes
}

// OTP policy defaults.
const (
	DefaultOTPExpiryMinutes   = 5
	DefaultOTPMaxRequests     = 4
	DefaultOTPCooldownSeconds = 60
	DefaultOTPMaxAttempts     = 5
	DefaultOTPHashCost        = 10
)

// DefaultOTPConfig returns the documented defaults.
func DefaultOTPConfig() OTPConfig {
	return OTPConfig{
		ExpiryMinutes:   DefaultOTPExpiryMinutes,
		MaxRequests:     DefaultOTPMaxRequests,
		CooldownSeconds: DefaultOTPCooldownSeconds,
		MaxAttempts:     DefaultOTPMaxAttempts,
		HashCost:        DefaultOTPHashCost,
	}
}

// Expiry returns the code lifetime as a duration.
func (c OTPConfig) Expiry() time.Duration {
	return time.Duration(c.ExpiryMinutes) * time.Minute
}

// Cooldown returns the minimum spacing between issuances.
func (c OTPConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

// Validate rejects policies that cannot work.
func (c OTPConfig) Validate() error {
	if c.ExpiryMinutes <= 0 {
		return errors.New("otp expiry must be positive")
	}
	if c.MaxRequests <= 0 {
		return errors.New("otp max requests must be positive")
	}
	if c.CooldownSeconds < 0 {
		return errors.New("otp cooldown must not be negative")
	}
	if c.MaxAttempts <= 0 {
		return errors.New("otp max attempts must be positive")
	}
	return nil
}

type JWTConfig struct {
	Secret     string // HMAC key, at least 32 bytes; generated if empty
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func NewFromCLI(cmd *cli.Command) *Config {
	return &Config{
		Server: ServerConfig{
			Host:        cmd.String("host"),
			Port:        int(cmd.Int("port")),
			MaxBodySize: int(cmd.Int("max-body-size")),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			DSN: cmd.String("database-dsn"),
		},
		SMTP: SMTPConfig{
			Host:     cmd.String("smtp-host"),
			Port:     int(cmd.Int("smtp-port")),
			Username: cmd.String("smtp-username"),
			Password: cmd.String("smtp-password"),
			From:     cmd.String("smtp-from"),
			FromName: cmd.String("smtp-from-name"),
			TLS:      cmd.Bool("smtp-tls"),
		},
		OTP: OTPConfig{
			ExpiryMinutes:   int(cmd.Int("otp-expiry-minutes")),
			MaxRequests:     int(cmd.Int("otp-max-requests")),
			CooldownSeconds: int(cmd.Int("otp-cooldown-seconds")),
			MaxAttempts:     int(cmd.Int("otp-max-attempts")),
			HashCost:        int(cmd.Int("otp-hash-cost")),
		},
		JWT: JWTConfig{
			Secret:     cmd.String("jwt-secret"),
			AccessTTL:  cmd.Duration("jwt-access-ttl"),
			RefreshTTL: cmd.Duration("jwt-refresh-ttl"),
		},
	}
}

// Validate checks cross-field constraints that flags cannot express.
func (c *Config) Validate() error {
	if err := c.OTP.Validate(); err != nil {
		return err
	}
	if c.JWT.Secret != "" && len(c.JWT.Secret) < 32 {
		return fmt.Errorf("jwt secret must be at least 32 bytes, got %d", len(c.JWT.Secret))
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		return errors.New("jwt token lifetimes must be positive")
	}
	return nil
}

func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "Host to bind to",
			Sources: cli.NewValueSourceChain(cli.EnvVar("HOST"), toml.TOML("server.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "Port to listen on",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PORT"), toml.TOML("server.port", configFile)),
		},
		&cli.IntFlag{
			Name:    "max-body-size",
			Value:   1,
			Usage:   "Maximum request body size in MB",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAX_BODY_SIZE"), toml.TOML("server.max_body_size", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_LEVEL"), toml.TOML("log.level", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_FORMAT"), toml.TOML("log.format", configFile)),
		},
		&cli.StringFlag{
			Name:    "database-dsn",
			Value:   "./data/app.db",
			Usage:   "Database DSN",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DATABASE_DSN"), toml.TOML("database.dsn", configFile)),
		},
		// SMTP flags
		&cli.StringFlag{
			Name:    "smtp-host",
			Value:   "localhost",
			Usage:   "SMTP server host",
			Sources: cli.NewValueSourceChain(cli.EnvVar("EMAIL_HOST"), toml.TOML("smtp.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Usage:   "SMTP server port",
			Sources: cli.NewValueSourceChain(cli.EnvVar("EMAIL_PORT"), toml.TOML("smtp.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Usage:   "SMTP username",
			Sources: cli.NewValueSourceChain(cli.EnvVar("EMAIL_HOST_USER"), toml.TOML("smtp.username", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Usage:   "SMTP password",
			Sources: cli.NewValueSourceChain(cli.EnvVar("EMAIL_HOST_PASSWORD"), toml.TOML("smtp.password", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from",
			Value:   "noreply@localhost",
			Usage:   "Sender address for outgoing mail",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DEFAULT_FROM_EMAIL"), toml.TOML("smtp.from", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from-name",
			Value:   "ByteBlogger",
			Usage:   "Sender display name",
			Sources: cli.NewValueSourceChain(cli.EnvVar("EMAIL_FROM_NAME"), toml.TOML("smtp.from_name", configFile)),
		},
		&cli.BoolFlag{
			Name:    "smtp-tls",
			Value:   true,
			Usage:   "Require TLS for SMTP",
			Sources: cli.NewValueSourceChain(cli.EnvVar("EMAIL_USE_TLS"), toml.TOML("smtp.tls", configFile)),
		},
		// OTP flags
		&cli.IntFlag{
			Name:    "otp-expiry-minutes",
			Value:   DefaultOTPExpiryMinutes,
			Usage:   "Minutes an issued OTP stays valid",
			Sources: cli.NewValueSourceChain(cli.EnvVar("OTP_EXPIRY_MINUTES"), toml.TOML("otp.expiry_minutes", configFile)),
		},
		&cli.IntFlag{
			Name:    "otp-max-requests",
			Value:   DefaultOTPMaxRequests,
			Usage:   "OTP issuances allowed per identity in a rolling 24h window",
			Sources: cli.NewValueSourceChain(cli.EnvVar("OTP_MAX_REQUESTS"), toml.TOML("otp.max_requests", configFile)),
		},
		&cli.IntFlag{
			Name:    "otp-cooldown-seconds",
			Value:   DefaultOTPCooldownSeconds,
			Usage:   "Seconds between two OTP issuances for one identity",
			Sources: cli.NewValueSourceChain(cli.EnvVar("OTP_COOLDOWN_SECONDS"), toml.TOML("otp.cooldown_seconds", configFile)),
		},
		&cli.IntFlag{
			Name:    "otp-max-attempts",
			Value:   DefaultOTPMaxAttempts,
			Usage:   "Wrong guesses allowed against one code before it is burned",
			Sources: cli.NewValueSourceChain(cli.EnvVar("OTP_MAX_ATTEMPTS"), toml.TOML("otp.max_attempts", configFile)),
		},
		&cli.IntFlag{
			Name:    "otp-hash-cost",
			Value:   DefaultOTPHashCost,
			Usage:   "bcrypt cost for stored OTP hashes",
			Sources: cli.NewValueSourceChain(cli.EnvVar("OTP_HASH_COST"), toml.TOML("otp.hash_cost", configFile)),
		},
		// JWT flags
		&cli.StringFlag{
			Name:    "jwt-secret",
			Usage:   "HMAC secret for JWT signing (at least 32 bytes, auto-generated if empty in dev)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("JWT_SECRET_KEY"), toml.TOML("jwt.secret", configFile)),
		},
		&cli.DurationFlag{
			Name:    "jwt-access-ttl",
			Value:   5 * time.Minute,
			Usage:   "Access token lifetime",
			Sources: cli.NewValueSourceChain(cli.EnvVar("JWT_ACCESS_TTL"), toml.TOML("jwt.access_ttl", configFile)),
		},
		&cli.DurationFlag{
			Name:    "jwt-refresh-ttl",
			Value:   7 * 24 * time.Hour,
			Usage:   "Refresh token lifetime",
			Sources: cli.NewValueSourceChain(cli.EnvVar("JWT_REFRESH_TTL"), toml.TOML("jwt.refresh_ttl", configFile)),
		},
	}
}
