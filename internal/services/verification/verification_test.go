// Copyright 2026 The backersbot authors
// Licensed under the EUPL-1.2

package verification_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowdward/backersbot/internal/i18n"
	"github.com/crowdward/backersbot/internal/models"
	"github.com/crowdward/backersbot/internal/repository"
	"github.com/crowdward/backersbot/internal/services/verification"
	"github.com/crowdward/backersbot/internal/testutil"
	"github.com/crowdward/backersbot/internal/token"
)

func TestMain(m *testing.M) {
	if err := i18n.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

const inviteURL = "https://discord.gg/backers"

type sentMail struct {
	to   string
	code string
}

type fakeNotifier struct {
	sent []sentMail
	err  error
}

func (f *fakeNotifier) SendVerification(_ context.Context, to, code string) error {
	f.sent = append(f.sent, sentMail{to: to, code: code})
	return f.err
}

type fakeGuild struct {
	members   map[int64]bool
	roles     map[int64]string
	heldRoles map[int64][]int64
	granted   []int64
	err       error
}

func newFakeGuild() *fakeGuild {
	return &fakeGuild{
		members:   map[int64]bool{},
		roles:     map[int64]string{},
		heldRoles: map[int64][]int64{},
	}
}

func (f *fakeGuild) IsMember(userID int64) (bool, error) {
	return f.members[userID], f.err
}

func (f *fakeGuild) HasRole(userID, roleID int64) (bool, error) {
	for _, r := range f.heldRoles[userID] {
		if r == roleID {
			return true, nil
		}
	}
	return false, f.err
}

func (f *fakeGuild) RoleName(roleID int64) (string, error) {
	name, ok := f.roles[roleID]
	if !ok {
		return "", fmt.Errorf("role %d not found", roleID)
	}
	return name, nil
}

func (f *fakeGuild) GrantRole(userID, roleID int64) error {
	if f.err != nil {
		return f.err
	}
	f.heldRoles[userID] = append(f.heldRoles[userID], roleID)
	f.granted = append(f.granted, roleID)
	return nil
}

func newService(t *testing.T) (*verification.Service, *repository.Repository, *fakeNotifier, *fakeGuild) {
	t.Helper()
	_, repo := testutil.NewTestDB(t)
	notifier := &fakeNotifier{}
	guild := newFakeGuild()
	guild.roles[10] = "Gold Backer"
	return verification.New(repo, notifier, guild, inviteURL), repo, notifier, guild
}

func TestValidEmail(t *testing.T) {
	valid := []string{
		"a@b.com",
		"user.name+tag@example.co.uk",
		"UPPER_case-1@host-name.org",
	}
	invalid := []string{
		"",
		"plainstring",
		"@example.com",
		"user@",
		"user@nodot",
		"user name@example.com",
		"user@exa mple.com",
	}

	for _, email := range valid {
		assert.True(t, verification.ValidEmail(email), email)
	}
	for _, email := range invalid {
		assert.False(t, verification.ValidEmail(email), email)
	}
}

func TestRequest_InvalidEmailSkipsDatabase(t *testing.T) {
	svc, repo, notifier, _ := newService(t)

	// Closing the handle proves no persistence access happens for
	// syntactically invalid input.
	require.NoError(t, repo.DB().Close())

	res, err := svc.Request(context.Background(), "not-an-email")

	require.NoError(t, err)
	assert.Equal(t, verification.OutcomeInvalidEmail, res.Outcome)
	assert.Equal(t, i18n.T("invalid_email"), res.Message)
	assert.Empty(t, notifier.sent)
}

func TestRequest_NotRegistered(t *testing.T) {
	svc, repo, notifier, _ := newService(t)
	ctx := context.Background()

	res, err := svc.Request(ctx, "nobody@example.com")

	require.NoError(t, err)
	assert.Equal(t, verification.OutcomeNotRegistered, res.Outcome)
	assert.Empty(t, notifier.sent)

	count, err := repo.CountBackers(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRequest_IssuesCodeAndSendsMail(t *testing.T) {
	svc, repo, notifier, _ := newService(t)
	ctx := context.Background()

	testutil.SeedBacker(t, repo, models.Backer{Email: "a@b.com", RoleID: 10})

	res, err := svc.Request(ctx, "a@b.com")

	require.NoError(t, err)
	assert.Equal(t, verification.OutcomeCodeIssued, res.Outcome)
	assert.Contains(t, res.Message, "a@b.com")

	backer, err := repo.GetBackerByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	require.NotNil(t, backer.VerificationCode)
	assert.Len(t, *backer.VerificationCode, token.IssueLength)
	assert.Equal(t, models.StateTokenIssued, backer.State())

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "a@b.com", notifier.sent[0].to)
	assert.Equal(t, *backer.VerificationCode, notifier.sent[0].code)
}

func TestRequest_Idempotent(t *testing.T) {
	svc, repo, notifier, _ := newService(t)
	ctx := context.Background()

	testutil.SeedBacker(t, repo, models.Backer{Email: "a@b.com", RoleID: 10})

	res, err := svc.Request(ctx, "a@b.com")
	require.NoError(t, err)
	require.Equal(t, verification.OutcomeCodeIssued, res.Outcome)

	first, err := repo.GetBackerByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	firstCode := *first.VerificationCode

	res, err = svc.Request(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, verification.OutcomeAlreadySent, res.Outcome)

	second, err := repo.GetBackerByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, firstCode, *second.VerificationCode)
	assert.Len(t, notifier.sent, 1)
}

func TestRequest_MailFailureNotSurfaced(t *testing.T) {
	svc, repo, notifier, _ := newService(t)
	ctx := context.Background()

	testutil.SeedBacker(t, repo, models.Backer{Email: "a@b.com", RoleID: 10})
	notifier.err = fmt.Errorf("mail provider down")

	res, err := svc.Request(ctx, "a@b.com")

	// The record has already moved to token-issued; the send result is
	// logged only. See DESIGN.md for why this is preserved.
	require.NoError(t, err)
	assert.Equal(t, verification.OutcomeCodeIssued, res.Outcome)

	backer, err := repo.GetBackerByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, models.StateTokenIssued, backer.State())
}

func TestConfirm_NotMemberSkipsDatabase(t *testing.T) {
	svc, repo, _, _ := newService(t)

	require.NoError(t, repo.DB().Close())

	res, err := svc.Confirm(context.Background(), 42, "a@b.com", "CODE")

	require.NoError(t, err)
	assert.Equal(t, verification.OutcomeNotMember, res.Outcome)
	assert.Contains(t, res.Message, inviteURL)
}

func TestConfirm_WrongCode(t *testing.T) {
	svc, repo, _, guild := newService(t)
	ctx := context.Background()

	guild.members[42] = true
	testutil.SeedBacker(t, repo, models.Backer{
		Email:            "a@b.com",
		RoleID:           10,
		VerificationCode: testutil.Ptr("RIGHT"),
	})

	res, err := svc.Confirm(ctx, 42, "a@b.com", "WRONG")

	require.NoError(t, err)
	assert.Equal(t, verification.OutcomeNoMatch, res.Outcome)

	backer, err := repo.GetBackerByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Nil(t, backer.DiscordUserID)
	assert.Empty(t, guild.granted)
}

func TestConfirm_UnknownEmail(t *testing.T) {
	svc, _, _, guild := newService(t)

	guild.members[42] = true

	res, err := svc.Confirm(context.Background(), 42, "nobody@example.com", "CODE")

	require.NoError(t, err)
	assert.Equal(t, verification.OutcomeNoMatch, res.Outcome)
}

func TestConfirm_ClaimsAndGrantsRole(t *testing.T) {
	svc, repo, _, guild := newService(t)
	ctx := context.Background()

	guild.members[42] = true
	testutil.SeedBacker(t, repo, models.Backer{
		Email:            "a@b.com",
		RoleID:           10,
		VerificationCode: testutil.Ptr("CODE"),
	})

	res, err := svc.Confirm(ctx, 42, "a@b.com", "CODE")

	require.NoError(t, err)
	assert.Equal(t, verification.OutcomeGranted, res.Outcome)
	assert.Contains(t, res.Message, "Gold Backer")

	backer, err := repo.GetBackerByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	require.NotNil(t, backer.DiscordUserID)
	assert.Equal(t, int64(42), *backer.DiscordUserID)
	assert.Equal(t, []int64{10}, guild.granted)
}

func TestConfirm_AlreadyConfirmed(t *testing.T) {
	svc, repo, _, guild := newService(t)
	ctx := context.Background()

	guild.members[42] = true
	guild.heldRoles[42] = []int64{10}
	testutil.SeedBacker(t, repo, models.Backer{
		Email:            "a@b.com",
		RoleID:           10,
		VerificationCode: testutil.Ptr("CODE"),
		DiscordUserID:    testutil.Ptr(int64(42)),
	})

	res, err := svc.Confirm(ctx, 42, "a@b.com", "CODE")

	require.NoError(t, err)
	assert.Equal(t, verification.OutcomeAlreadyConfirmed, res.Outcome)
	assert.Empty(t, guild.granted)
}

func TestConfirm_RetryAfterFailedGrant(t *testing.T) {
	svc, repo, _, guild := newService(t)
	ctx := context.Background()

	guild.members[42] = true
	// Claimed earlier, but the role grant never landed.
	testutil.SeedBacker(t, repo, models.Backer{
		Email:            "a@b.com",
		RoleID:           10,
		VerificationCode: testutil.Ptr("CODE"),
		DiscordUserID:    testutil.Ptr(int64(42)),
	})

	res, err := svc.Confirm(ctx, 42, "a@b.com", "CODE")

	require.NoError(t, err)
	assert.Equal(t, verification.OutcomeGranted, res.Outcome)
	assert.Equal(t, []int64{10}, guild.granted)
}

func TestConfirm_ClaimedByAnotherAccount(t *testing.T) {
	svc, repo, _, guild := newService(t)
	ctx := context.Background()

	guild.members[42] = true
	guild.members[99] = true
	testutil.SeedBacker(t, repo, models.Backer{
		Email:            "a@b.com",
		RoleID:           10,
		VerificationCode: testutil.Ptr("CODE"),
		DiscordUserID:    testutil.Ptr(int64(42)),
	})

	res, err := svc.Confirm(ctx, 99, "a@b.com", "CODE")

	require.NoError(t, err)
	assert.Equal(t, verification.OutcomeClaimedByOther, res.Outcome)
	assert.Empty(t, guild.granted)

	backer, err := repo.GetBackerByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, int64(42), *backer.DiscordUserID)
}

func TestConfirm_GuildErrorSurfaces(t *testing.T) {
	svc, _, _, guild := newService(t)

	guild.err = fmt.Errorf("gateway unavailable")

	_, err := svc.Confirm(context.Background(), 42, "a@b.com", "CODE")

	assert.Error(t, err)
}

func TestHelp(t *testing.T) {
	svc, _, _, _ := newService(t)

	res := svc.Help()

	assert.Equal(t, verification.OutcomeHelp, res.Outcome)
	assert.Contains(t, res.Message, "backer_mail")
}
