// Copyright 2026 The backersbot authors
// Licensed under the EUPL-1.2

// Package discord connects the bot to the Discord gateway and implements
// the transport ports consumed by the dispatcher and the state machine.
package discord

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/bwmarrin/discordgo"

	"github.com/crowdward/backersbot/internal/bot"
)

// Adapter wraps a discordgo session for a single guild.
type Adapter struct {
	session *discordgo.Session
	guildID string
}

// New creates the adapter. The session is not opened yet; call Start.
func New(token string, guildID int64) (*Adapter, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent
	session.State.TrackMembers = true
	session.State.TrackRoles = true

	return &Adapter{
		session: session,
		guildID: strconv.FormatInt(guildID, 10),
	}, nil
}

// Start opens the gateway connection and wires inbound messages into the
// dispatcher.
func (a *Adapter) Start(d *bot.Dispatcher) error {
	a.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		d.SetSelfID(r.User.ID)
		if err := s.UpdateStatusComplex(discordgo.UpdateStatusData{Status: string(discordgo.StatusIdle)}); err != nil {
			slog.Warn("setting presence failed", "error", err)
		}
		slog.Info("connected to discord", "user", r.User.Username)
	})

	a.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil || m.Author.Bot || m.Author.ID == s.State.User.ID {
			return
		}
		msg, err := a.toMessage(m)
		if err != nil {
			slog.Warn("dropping unparseable message", "error", err)
			return
		}
		d.HandleMessage(msg)
	})

	return a.session.Open()
}

// Close shuts down the gateway connection.
func (a *Adapter) Close() error {
	return a.session.Close()
}

func (a *Adapter) toMessage(m *discordgo.MessageCreate) (bot.Message, error) {
	authorID, err := strconv.ParseInt(m.Author.ID, 10, 64)
	if err != nil {
		return bot.Message{}, fmt.Errorf("parsing author id %q: %w", m.Author.ID, err)
	}

	kind := bot.ChannelGuild
	if m.GuildID == "" {
		kind = bot.ChannelDirect
	}

	return bot.Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		AuthorID:  authorID,
		Mention:   m.Author.Mention(),
		Kind:      kind,
		Content:   m.Content,
	}, nil
}

// ===== bot.Replier =====

// Reply answers in the channel the message came from.
func (a *Adapter) Reply(m bot.Message, text string) error {
	_, err := a.session.ChannelMessageSendReply(m.ChannelID, text, &discordgo.MessageReference{
		MessageID: m.ID,
		ChannelID: m.ChannelID,
	})
	return err
}

// DirectMessage opens (or reuses) the DM channel with the user and sends
// the text. A privacy refusal maps to bot.ErrDMForbidden.
func (a *Adapter) DirectMessage(userID int64, text string) error {
	channel, err := a.session.UserChannelCreate(strconv.FormatInt(userID, 10))
	if err != nil {
		return err
	}
	_, err = a.session.ChannelMessageSend(channel.ID, text)
	if isForbidden(err) {
		return bot.ErrDMForbidden
	}
	return err
}

// Delete removes a message, e.g. a command posted in a public channel.
func (a *Adapter) Delete(m bot.Message) error {
	return a.session.ChannelMessageDelete(m.ChannelID, m.ID)
}

// ===== verification.Guild =====

// IsMember reports whether the user belongs to the configured guild.
func (a *Adapter) IsMember(userID int64) (bool, error) {
	_, err := a.member(userID)
	if isUnknownMember(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// HasRole reports whether the guild member already holds the role.
func (a *Adapter) HasRole(userID, roleID int64) (bool, error) {
	member, err := a.member(userID)
	if err != nil {
		return false, err
	}
	want := strconv.FormatInt(roleID, 10)
	for _, r := range member.Roles {
		if r == want {
			return true, nil
		}
	}
	return false, nil
}

// RoleName resolves a role id to its display name.
func (a *Adapter) RoleName(roleID int64) (string, error) {
	id := strconv.FormatInt(roleID, 10)
	if role, err := a.session.State.Role(a.guildID, id); err == nil {
		return role.Name, nil
	}

	roles, err := a.session.GuildRoles(a.guildID)
	if err != nil {
		return "", err
	}
	for _, role := range roles {
		if role.ID == id {
			return role.Name, nil
		}
	}
	return "", fmt.Errorf("role %s not found in guild %s", id, a.guildID)
}

// GrantRole adds the role to the guild member.
func (a *Adapter) GrantRole(userID, roleID int64) error {
	return a.session.GuildMemberRoleAdd(a.guildID,
		strconv.FormatInt(userID, 10), strconv.FormatInt(roleID, 10))
}

func (a *Adapter) member(userID int64) (*discordgo.Member, error) {
	id := strconv.FormatInt(userID, 10)
	if member, err := a.session.State.Member(a.guildID, id); err == nil {
		return member, nil
	}
	return a.session.GuildMember(a.guildID, id)
}

func isUnknownMember(err error) bool {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		if restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeUnknownMember {
			return true
		}
		if restErr.Response != nil && restErr.Response.StatusCode == 404 {
			return true
		}
	}
	return false
}

func isForbidden(err error) bool {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		if restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeCannotSendMessagesToThisUser {
			return true
		}
		if restErr.Response != nil && restErr.Response.StatusCode == 403 {
			return true
		}
	}
	return false
}
