// Copyright 2026 The backersbot authors
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowdward/backersbot/internal/models"
	"github.com/crowdward/backersbot/internal/repository"
	"github.com/crowdward/backersbot/internal/testutil"
)

func TestGetBackerByEmail(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	testutil.SeedBacker(t, repo, models.Backer{Email: "a@b.com", RoleID: 10})

	backer, err := repo.GetBackerByEmail(ctx, "a@b.com")

	require.NoError(t, err)
	assert.Equal(t, "a@b.com", backer.Email)
	assert.Equal(t, int64(10), backer.RoleID)
	assert.Nil(t, backer.VerificationCode)
	assert.Nil(t, backer.DiscordUserID)
	assert.Equal(t, models.StateUnclaimed, backer.State())
}

func TestGetBackerByEmail_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	_, err := repo.GetBackerByEmail(context.Background(), "nobody@example.com")

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGetBackerByEmailAndCode(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	testutil.SeedBacker(t, repo, models.Backer{
		Email:            "a@b.com",
		RoleID:           10,
		VerificationCode: testutil.Ptr("SECRETCODE"),
	})

	backer, err := repo.GetBackerByEmailAndCode(ctx, "a@b.com", "SECRETCODE")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", backer.Email)

	// The email alone existing is not enough.
	_, err = repo.GetBackerByEmailAndCode(ctx, "a@b.com", "WRONG")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSetVerificationCode(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	testutil.SeedBacker(t, repo, models.Backer{Email: "a@b.com", RoleID: 10})

	ok, err := repo.SetVerificationCode(ctx, "a@b.com", "FIRST")
	require.NoError(t, err)
	assert.True(t, ok)

	backer, err := repo.GetBackerByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	require.NotNil(t, backer.VerificationCode)
	assert.Equal(t, "FIRST", *backer.VerificationCode)
}

func TestSetVerificationCode_NeverRotates(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	testutil.SeedBacker(t, repo, models.Backer{Email: "a@b.com", RoleID: 10})

	ok, err := repo.SetVerificationCode(ctx, "a@b.com", "FIRST")
	require.NoError(t, err)
	require.True(t, ok)

	// The guard refuses to overwrite an outstanding code, so two
	// concurrent requests cannot rotate each other's token.
	ok, err = repo.SetVerificationCode(ctx, "a@b.com", "SECOND")
	require.NoError(t, err)
	assert.False(t, ok)

	backer, err := repo.GetBackerByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "FIRST", *backer.VerificationCode)
}

func TestSetVerificationCode_UnknownEmail(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	ok, err := repo.SetVerificationCode(context.Background(), "nobody@example.com", "CODE")

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClaimBacker(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	testutil.SeedBacker(t, repo, models.Backer{
		Email:            "a@b.com",
		RoleID:           10,
		VerificationCode: testutil.Ptr("CODE"),
	})

	ok, err := repo.ClaimBacker(ctx, "a@b.com", "CODE", 42)
	require.NoError(t, err)
	assert.True(t, ok)

	backer, err := repo.GetBackerByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	require.NotNil(t, backer.DiscordUserID)
	assert.Equal(t, int64(42), *backer.DiscordUserID)
	// The code is intentionally left in place after a claim.
	require.NotNil(t, backer.VerificationCode)
	assert.Equal(t, models.StateClaimed, backer.State())
}

func TestClaimBacker_SecondAccountLoses(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	testutil.SeedBacker(t, repo, models.Backer{
		Email:            "a@b.com",
		RoleID:           10,
		VerificationCode: testutil.Ptr("CODE"),
	})

	ok, err := repo.ClaimBacker(ctx, "a@b.com", "CODE", 42)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.ClaimBacker(ctx, "a@b.com", "CODE", 99)
	require.NoError(t, err)
	assert.False(t, ok)

	backer, err := repo.GetBackerByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, int64(42), *backer.DiscordUserID)
}

func TestClaimBacker_WrongCode(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	testutil.SeedBacker(t, repo, models.Backer{
		Email:            "a@b.com",
		RoleID:           10,
		VerificationCode: testutil.Ptr("CODE"),
	})

	ok, err := repo.ClaimBacker(ctx, "a@b.com", "WRONG", 42)

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCountBackers(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	count, err := repo.CountBackers(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	testutil.SeedBacker(t, repo, models.Backer{Email: "a@b.com", RoleID: 10})
	testutil.SeedBacker(t, repo, models.Backer{Email: "c@d.com", RoleID: 11})

	count, err = repo.CountBackers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
