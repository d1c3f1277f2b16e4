// Copyright 2026 The backersbot authors
// Licensed under the EUPL-1.2

package mailer

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"

	"github.com/crowdward/backersbot/internal/config"
)

// SMTP sends mail through a plain SMTP relay using go-mail.
type SMTP struct {
	cfg *config.MailConfig
}

// NewSMTP creates an SMTP notifier.
func NewSMTP(cfg *config.MailConfig) (*SMTP, error) {
	if cfg.SMTP.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("mail from address is required")
	}
	return &SMTP{cfg: cfg}, nil
}

// SendVerification delivers the verification email over SMTP.
func (s *SMTP) SendVerification(ctx context.Context, to, code string) error {
	subject, html := renderVerification(to, code)

	msg := mail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return fmt.Errorf("setting from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, html)

	opts := []mail.Option{
		mail.WithPort(s.cfg.SMTP.Port),
		mail.WithTimeout(s.cfg.Timeout),
	}

	if s.cfg.SMTP.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		// Use implicit TLS (SSL) for port 465, STARTTLS for others
		if s.cfg.SMTP.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if s.cfg.SMTP.Username != "" && s.cfg.SMTP.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.SMTP.Username),
			mail.WithPassword(s.cfg.SMTP.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.SMTP.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	return nil
}
