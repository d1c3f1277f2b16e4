// Copyright 2026 The backersbot authors
// Licensed under the EUPL-1.2

// Package bot routes inbound chat messages to the verification operations.
// It owns prefix handling, argument prompts, the private-channel rule and
// the generic error fallback; the platform connection itself lives in the
// discord package.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/crowdward/backersbot/internal/i18n"
	"github.com/crowdward/backersbot/internal/services/verification"
)

// ChannelKind distinguishes a one-to-one conversation with the bot from a
// shared guild channel. The transport decides the kind; handlers only branch
// on it.
type ChannelKind int

const (
	ChannelDirect ChannelKind = iota
	ChannelGuild
)

// Message is the transport-independent view of an inbound chat message.
type Message struct { //nolint:govet // fieldalignment not critical here
	ID        string
	ChannelID string
	AuthorID  int64
	Mention   string // platform mention string for the author
	Kind      ChannelKind
	Content   string
}

// ErrDMForbidden is returned by Replier.DirectMessage when the recipient's
// privacy settings refuse direct messages.
var ErrDMForbidden = errors.New("direct messages forbidden")

// Replier is the outbound half of the transport.
type Replier interface {
	Reply(m Message, text string) error
	DirectMessage(userID int64, text string) error
	Delete(m Message) error
}

// Dispatcher parses commands and invokes the state machine.
type Dispatcher struct {
	svc     *verification.Service
	replier Replier
	prefix  string
	selfID  string // bot user id, for mention-prefix stripping
	timeout time.Duration
}

// NewDispatcher creates a dispatcher. selfID may be empty until the session
// is ready; SetSelfID fills it in.
func NewDispatcher(svc *verification.Service, replier Replier, prefix string, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		svc:     svc,
		replier: replier,
		prefix:  prefix,
		timeout: timeout,
	}
}

// SetSelfID records the bot's own user id so mentions can act as a prefix.
func (d *Dispatcher) SetSelfID(id string) {
	d.selfID = id
}

// HandleMessage processes one inbound message. Unknown commands are ignored;
// handler failures are logged and answered with a generic failure notice.
func (d *Dispatcher) HandleMessage(m Message) {
	content, ok := d.stripPrefix(m)
	if !ok {
		return
	}

	fields := strings.Fields(content)
	if len(fields) == 0 {
		return
	}
	name, args := fields[0], fields[1:]

	var handler func(ctx context.Context, m Message, args []string) error
	switch name {
	case "backer_help":
		handler = d.handleHelp
	case "backer_mail":
		handler = d.handleMail
	case "backer_verify":
		handler = d.handleVerify
	default:
		return
	}

	logger := slog.With("invocation_id", uuid.NewString(), "command", name, "user_id", m.AuthorID)
	logger.Info("processing command", "args", strings.Join(args, " "))

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := handler(ctx, m, args); err != nil {
		logger.Error("command failed", "error", err)
		if err := d.replier.Reply(m, i18n.T("unknown_error")); err != nil {
			logger.Error("sending failure notice failed", "error", err)
		}
	}
}

// stripPrefix applies the prefix rules: direct messages need none, guild
// messages need the configured prefix or a bot mention.
func (d *Dispatcher) stripPrefix(m Message) (string, bool) {
	content := strings.TrimSpace(m.Content)
	if m.Kind == ChannelDirect {
		return content, true
	}

	if rest, ok := strings.CutPrefix(content, d.prefix); ok {
		return strings.TrimSpace(rest), true
	}
	if d.selfID != "" {
		for _, mention := range []string{"<@" + d.selfID + ">", "<@!" + d.selfID + ">"} {
			if rest, ok := strings.CutPrefix(content, mention); ok {
				return strings.TrimSpace(rest), true
			}
		}
	}
	return "", false
}

func (d *Dispatcher) handleHelp(_ context.Context, m Message, _ []string) error {
	res := d.svc.Help()
	if m.Kind == ChannelDirect {
		return d.replier.Reply(m, res.Message)
	}
	// The help text itself is delivered privately.
	return d.deleteAndDM(m, res.Message)
}

func (d *Dispatcher) handleMail(ctx context.Context, m Message, args []string) error {
	if len(args) < 1 {
		return d.replier.Reply(m, i18n.T("prompt_email"))
	}

	if m.Kind != ChannelDirect {
		return d.deleteAndDM(m, i18n.T("private_only"))
	}

	res, err := d.svc.Request(ctx, args[0])
	if err != nil {
		return err
	}
	return d.replier.Reply(m, res.Message)
}

func (d *Dispatcher) handleVerify(ctx context.Context, m Message, args []string) error {
	if len(args) < 1 {
		return d.replier.Reply(m, i18n.T("prompt_email"))
	}
	if len(args) < 2 {
		return d.replier.Reply(m, i18n.T("prompt_code"))
	}

	if m.Kind != ChannelDirect {
		return d.deleteAndDM(m, i18n.T("private_only"))
	}

	res, err := d.svc.Confirm(ctx, m.AuthorID, args[0], args[1])
	if err != nil {
		return err
	}
	return d.replier.Reply(m, res.Message)
}

// deleteAndDM removes the triggering guild message and notifies the author
// privately, falling back to a public mention when DMs are refused.
func (d *Dispatcher) deleteAndDM(m Message, text string) error {
	if err := d.replier.Delete(m); err != nil {
		slog.Warn("deleting guild message failed", "message_id", m.ID, "error", err)
	}

	err := d.replier.DirectMessage(m.AuthorID, text)
	if errors.Is(err, ErrDMForbidden) {
		fallback := i18n.TData("dm_forbidden", map[string]any{"Mention": m.Mention})
		return d.replier.Reply(m, fallback)
	}
	return err
}
