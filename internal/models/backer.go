// Copyright 2026 The backersbot authors
// Licensed under the EUPL-1.2

package models

// BackerState describes where a backer record sits in the verification
// lifecycle. Records are seeded externally and only ever move forward.
type BackerState int

const (
	// StateUnclaimed: no outstanding code, no claiming account.
	StateUnclaimed BackerState = iota
	// StateTokenIssued: a code has been mailed out, nobody has redeemed it.
	StateTokenIssued
	// StateClaimed: a Discord account has redeemed the code. The code is
	// intentionally left in place so a re-run after a failed role grant
	// still matches.
	StateClaimed
)

func (s BackerState) String() string {
	switch s {
	case StateUnclaimed:
		return "unclaimed"
	case StateTokenIssued:
		return "token_issued"
	case StateClaimed:
		return "claimed"
	}
	return "unknown"
}

// Backer is one row of the externally seeded backers table.
type Backer struct { //nolint:govet // fieldalignment not critical for models
	Email            string  `db:"email" json:"email"`
	RoleID           int64   `db:"role_id" json:"role_id"`
	VerificationCode *string `db:"verification_code" json:"-"`
	DiscordUserID    *int64  `db:"discord_user_id" json:"discord_user_id"`
}

// State derives the lifecycle state from the nullable columns.
func (b *Backer) State() BackerState {
	switch {
	case b.DiscordUserID != nil:
		return StateClaimed
	case b.VerificationCode != nil:
		return StateTokenIssued
	default:
		return StateUnclaimed
	}
}
