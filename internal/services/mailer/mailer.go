// Copyright 2026 The backersbot authors
// Licensed under the EUPL-1.2

// Package mailer delivers the verification email. The default backend talks
// to the Mailgun HTTP API; an SMTP backend is available for deployments
// without a Mailgun account.
package mailer

import (
	"context"
	"fmt"

	"github.com/crowdward/backersbot/internal/config"
	"github.com/crowdward/backersbot/internal/i18n"
)

// Notifier sends a verification code to a backer's email address.
type Notifier interface {
	SendVerification(ctx context.Context, to, code string) error
}

// New selects the backend named by the configuration.
func New(cfg *config.MailConfig) (Notifier, error) {
	switch cfg.Backend {
	case "mailgun":
		return NewMailgun(cfg)
	case "smtp":
		return NewSMTP(cfg)
	default:
		return nil, fmt.Errorf("unknown mail backend %q", cfg.Backend)
	}
}

// renderVerification produces the subject and HTML body for a code.
func renderVerification(to, code string) (subject, html string) {
	subject = i18n.T("email_subject")
	html = i18n.TData("email_body", map[string]any{
		"Email": to,
		"Code":  code,
	})
	return subject, html
}
