// Copyright 2026 The backersbot authors
// Licensed under the EUPL-1.2

package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crowdward/backersbot/internal/models"
)

func ptr[T any](v T) *T { return &v }

func TestBackerState(t *testing.T) {
	tests := []struct {
		name     string
		backer   models.Backer
		expected models.BackerState
	}{
		{"no code, no account", models.Backer{}, models.StateUnclaimed},
		{"outstanding code", models.Backer{VerificationCode: ptr("CODE")}, models.StateTokenIssued},
		{"claimed with code left set", models.Backer{VerificationCode: ptr("CODE"), DiscordUserID: ptr(int64(7))}, models.StateClaimed},
		{"claimed without code", models.Backer{DiscordUserID: ptr(int64(7))}, models.StateClaimed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.backer.State())
		})
	}
}

func TestBackerStateString(t *testing.T) {
	assert.Equal(t, "unclaimed", models.StateUnclaimed.String())
	assert.Equal(t, "token_issued", models.StateTokenIssued.String())
	assert.Equal(t, "claimed", models.StateClaimed.String())
}
