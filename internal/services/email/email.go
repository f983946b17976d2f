// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"context"
	"errors"
	"fmt"
	"time"

	"codeberg.org/oliverandrich/byteblogger/internal/config"
	"codeberg.org/oliverandrich/byteblogger/internal/i18n"
	"github.com/wneessen/go-mail"
)

// Transport delivers prepared messages. *mail.Client implements it.
type Transport interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Service renders and sends account emails.
type Service struct {
	cfg       *config.SMTPConfig
	transport Transport
}

// NewService creates a new email service that sends through the configured
// SMTP server.
func NewService(cfg *config.SMTPConfig) (*Service, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}

	client, err := mail.NewClient(cfg.Host, clientOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("creating mail client: %w", err)
	}

	return &Service{cfg: cfg, transport: client}, nil
}

// NewServiceWithTransport creates a service that hands messages to t.
func NewServiceWithTransport(cfg *config.SMTPConfig, t Transport) (*Service, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}
	if t == nil {
		return nil, errors.New("mail transport is required")
	}
	return &Service{cfg: cfg, transport: t}, nil
}

func validate(cfg *config.SMTPConfig) error {
	if cfg.Host == "" {
		return fmt.Errorf("SMTP host is required")
	}
	if cfg.From == "" {
		return fmt.Errorf("SMTP from address is required")
	}
	return nil
}

// SendOTP emails a verification code in the locale carried by ctx.
func (s *Service) SendOTP(ctx context.Context, to, code string, validFor time.Duration) error {
	subject := i18n.T(ctx, "otp_email_subject")
	body := i18n.TData(ctx, "otp_email_body", map[string]any{
		"Code":     code,
		"Validity": i18n.TPlural(ctx, "otp_validity_minutes", int(validFor/time.Minute)),
	})

	return s.send(ctx, to, subject, body)
}

// send sends an email via SMTP using go-mail.
func (s *Service) send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()

	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := msg.To(to); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(subject)
	msg.SetDate()
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := s.transport.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}

func clientOptions(cfg *config.SMTPConfig) []mail.Option {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(10 * time.Second),
	}

	// Implicit TLS on 465, STARTTLS elsewhere
	if cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		if cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	return opts
}
