// Copyright 2026 The backersbot authors
// Licensed under the EUPL-1.2

// Package verification implements the three-step backer verification flow:
// request a code by email, redeem the code, receive the tier role.
package verification

import (
	"context"
	"errors"
	"log/slog"
	"regexp"

	"github.com/crowdward/backersbot/internal/i18n"
	"github.com/crowdward/backersbot/internal/repository"
	"github.com/crowdward/backersbot/internal/services/mailer"
	"github.com/crowdward/backersbot/internal/token"
)

// Guild is the slice of the chat platform the state machine needs: member
// and role lookups plus the role grant itself.
type Guild interface {
	IsMember(userID int64) (bool, error)
	HasRole(userID, roleID int64) (bool, error)
	RoleName(roleID int64) (string, error)
	GrantRole(userID, roleID int64) error
}

// Outcome classifies what a command invocation amounted to.
type Outcome int

const (
	OutcomeInvalidEmail Outcome = iota
	OutcomeNotRegistered
	OutcomeAlreadySent
	OutcomeCodeIssued
	OutcomeNotMember
	OutcomeNoMatch
	OutcomeAlreadyConfirmed
	OutcomeGranted
	OutcomeClaimedByOther
	OutcomeHelp
)

// Result carries the outcome and the reply to deliver to the user.
type Result struct {
	Outcome Outcome
	Message string
}

var emailRx = regexp.MustCompile(`^[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+$`)

// ValidEmail reports whether the address passes the syntactic check applied
// before any database access.
func ValidEmail(email string) bool {
	return emailRx.MatchString(email)
}

// Service is the verification state machine. Persistence failures and guild
// lookup failures are returned as errors; the dispatch layer turns those
// into a generic failure notice.
type Service struct {
	repo      *repository.Repository
	notifier  mailer.Notifier
	guild     Guild
	inviteURL string
}

// New creates the state machine.
func New(repo *repository.Repository, notifier mailer.Notifier, guild Guild, inviteURL string) *Service {
	return &Service{
		repo:      repo,
		notifier:  notifier,
		guild:     guild,
		inviteURL: inviteURL,
	}
}

// Request issues a verification code for the given email and mails it out.
// Re-requesting while a code is outstanding never rotates the code.
func (s *Service) Request(ctx context.Context, email string) (Result, error) {
	if !ValidEmail(email) {
		return Result{OutcomeInvalidEmail, i18n.T("invalid_email")}, nil
	}

	backer, err := s.repo.GetBackerByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return Result{OutcomeNotRegistered, i18n.T("not_registered")}, nil
	}
	if err != nil {
		return Result{}, err
	}

	if backer.VerificationCode != nil {
		return Result{OutcomeAlreadySent, i18n.T("already_sent")}, nil
	}

	code := token.New(token.IssueLength)
	ok, err := s.repo.SetVerificationCode(ctx, email, code)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		// Lost a race with a concurrent request; the other code stands.
		return Result{OutcomeAlreadySent, i18n.T("already_sent")}, nil
	}

	// The record is already in the token-issued state, so a failed send is
	// logged but never surfaced to the user.
	if err := s.notifier.SendVerification(ctx, email, code); err != nil {
		slog.Error("sending verification email failed", "email", email, "error", err)
	}

	msg := i18n.TData("welcome_check_email", map[string]any{"Email": email})
	return Result{OutcomeCodeIssued, msg}, nil
}

// Confirm redeems a code and grants the backer's tier role. The record is
// claimed by the first redeeming account; redeeming again from the same
// account re-grants the role, any other account is rejected.
func (s *Service) Confirm(ctx context.Context, userID int64, email, code string) (Result, error) {
	member, err := s.guild.IsMember(userID)
	if err != nil {
		return Result{}, err
	}
	if !member {
		msg := i18n.TData("join_server_first", map[string]any{"InviteURL": s.inviteURL})
		return Result{OutcomeNotMember, msg}, nil
	}

	backer, err := s.repo.GetBackerByEmailAndCode(ctx, email, code)
	if errors.Is(err, repository.ErrNotFound) {
		return Result{OutcomeNoMatch, i18n.T("combination_not_found")}, nil
	}
	if err != nil {
		return Result{}, err
	}

	roleName, err := s.guild.RoleName(backer.RoleID)
	if err != nil {
		return Result{}, err
	}

	hasRole, err := s.guild.HasRole(userID, backer.RoleID)
	if err != nil {
		return Result{}, err
	}
	if hasRole {
		return Result{OutcomeAlreadyConfirmed, i18n.T("already_confirmed")}, nil
	}

	owner := backer.DiscordUserID
	if owner == nil {
		ok, err := s.repo.ClaimBacker(ctx, email, code, userID)
		if err != nil {
			return Result{}, err
		}
		if ok {
			owner = &userID
		} else {
			// Lost a race; re-read to learn who claimed the record.
			claimed, err := s.claimOwner(ctx, email, code)
			if err != nil {
				return Result{}, err
			}
			owner = claimed
		}
	}

	if owner != nil && *owner == userID {
		// Covers both the fresh claim and a retry after a failed grant.
		if err := s.guild.GrantRole(userID, backer.RoleID); err != nil {
			return Result{}, err
		}
		msg := i18n.TData("role_granted", map[string]any{"Role": roleName})
		return Result{OutcomeGranted, msg}, nil
	}

	return Result{OutcomeClaimedByOther, i18n.T("email_taken")}, nil
}

// Help returns the static two-step instruction text.
func (s *Service) Help() Result {
	return Result{OutcomeHelp, i18n.T("backer_help")}
}

func (s *Service) claimOwner(ctx context.Context, email, code string) (*int64, error) {
	backer, err := s.repo.GetBackerByEmailAndCode(ctx, email, code)
	if err != nil {
		return nil, err
	}
	return backer.DiscordUserID, nil
}
