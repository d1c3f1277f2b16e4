// Copyright 2026 The backersbot authors
// Licensed under the EUPL-1.2

package mailer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/crowdward/backersbot/internal/config"
)

// DefaultAPIBase is the Mailgun messages endpoint prefix.
const DefaultAPIBase = "https://api.mailgun.net/v2"

// Mailgun sends mail through the Mailgun HTTP API: one form-encoded POST per
// message, basic-auth credentialed.
type Mailgun struct {
	cfg     *config.MailConfig
	client  *http.Client
	apiBase string
}

// MailgunOption customizes the client.
type MailgunOption func(*Mailgun)

// WithAPIBase overrides the API endpoint prefix. Used by tests.
func WithAPIBase(base string) MailgunOption {
	return func(m *Mailgun) {
		m.apiBase = strings.TrimSuffix(base, "/")
	}
}

// NewMailgun creates a Mailgun notifier.
func NewMailgun(cfg *config.MailConfig, opts ...MailgunOption) (*Mailgun, error) {
	if cfg.MailgunKey == "" {
		return nil, fmt.Errorf("mailgun API key is required")
	}
	if cfg.Domain == "" {
		return nil, fmt.Errorf("mailgun sending domain is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("mail from address is required")
	}

	m := &Mailgun{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		apiBase: DefaultAPIBase,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// SendVerification posts the verification email for the given code.
func (m *Mailgun) SendVerification(ctx context.Context, to, code string) error {
	subject, html := renderVerification(to, code)

	form := url.Values{
		"from":    {m.cfg.From},
		"to":      {to},
		"subject": {subject},
		"html":    {html},
	}

	endpoint := fmt.Sprintf("%s/%s/messages", m.apiBase, m.cfg.Domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("building mailgun request: %w", err)
	}
	req.SetBasicAuth("api", m.cfg.MailgunKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling mailgun: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	slog.Debug("mailgun response", "status", resp.StatusCode, "body", string(body))

	if resp.StatusCode >= 300 {
		return fmt.Errorf("mailgun returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
