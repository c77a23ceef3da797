package embedded_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/jrsteele09/dashboard-auth/auth"
	autherrors "github.com/jrsteele09/dashboard-auth/internal/errors"
	"github.com/jrsteele09/dashboard-auth/invitations"
	"github.com/jrsteele09/dashboard-auth/memberships"
	"github.com/stretchr/testify/require"
)

func TestInvitationLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.user(t, "ada@example.com", true)
	org := f.org(t, "Acme", admin.ID, memberships.RoleAdmin)

	inv, err := f.provider.InviteMember(ctx, auth.InviteRequest{OrgID: org.ID, Email: "Bob@Example.com", InviterUserID: admin.ID})
	require.NoError(t, err)
	require.Equal(t, "bob@example.com", inv.Email)
	require.Equal(t, memberships.RoleMember, inv.Role)
	require.Equal(t, invitations.StatePending, inv.State)

	link, ok := f.sender.LastInvitationLink("bob@example.com")
	require.True(t, ok)
	parsed, err := url.Parse(link)
	require.NoError(t, err)
	require.Equal(t, "/auth/sign-up", parsed.Path)
	require.Equal(t, inv.Token, parsed.Query().Get("invitation_token"))

	got, err := f.provider.GetInvitation(ctx, inv.Token)
	require.NoError(t, err)
	require.Equal(t, inv.ID, got.ID)

	// The invitee has not signed up yet.
	_, err = f.provider.AcceptInvitation(ctx, inv.ID)
	require.Equal(t, autherrors.AccountNotFound, autherrors.CodeOf(err))

	bob := f.user(t, "bob@example.com", true)
	accepted, err := f.provider.AcceptInvitation(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, invitations.StateAccepted, accepted.State)
	require.NotNil(t, accepted.AcceptedAt)

	m, err := f.repos.Memberships.GetByUserAndOrg(ctx, bob.ID, org.ID)
	require.NoError(t, err)
	require.True(t, m.IsActive())
	require.Equal(t, memberships.RoleMember, m.Role)

	list, err := f.provider.GetInvitationList(ctx, org.ID)
	require.NoError(t, err)
	require.Empty(t, list)

	_, err = f.provider.RevokeOrgInvitation(ctx, inv.ID)
	require.Error(t, err)
	_, err = f.provider.AcceptInvitation(ctx, inv.ID)
	require.Error(t, err)
}

func TestInviteMemberValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.user(t, "ada@example.com", true)
	org := f.org(t, "Acme", admin.ID, memberships.RoleAdmin)

	_, err := f.provider.InviteMember(ctx, auth.InviteRequest{OrgID: org.ID, Email: "nope"})
	require.Equal(t, autherrors.InvalidEmail, autherrors.CodeOf(err))

	_, err = f.provider.InviteMember(ctx, auth.InviteRequest{OrgID: org.ID, Email: "bob@example.com", Role: "owner"})
	require.Equal(t, autherrors.MissingRequiredFields, autherrors.CodeOf(err))

	_, err = f.provider.InviteMember(ctx, auth.InviteRequest{OrgID: "org_missing", Email: "bob@example.com"})
	require.Equal(t, autherrors.NotFound, autherrors.CodeOf(err))
}

func TestInvitationListShowsPendingAndExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.user(t, "ada@example.com", true)
	org := f.org(t, "Acme", admin.ID, memberships.RoleAdmin)

	old, err := f.provider.InviteMember(ctx, auth.InviteRequest{OrgID: org.ID, Email: "old@example.com"})
	require.NoError(t, err)
	f.clock.Advance(8 * 24 * time.Hour)
	fresh, err := f.provider.InviteMember(ctx, auth.InviteRequest{OrgID: org.ID, Email: "fresh@example.com"})
	require.NoError(t, err)
	revoked, err := f.provider.InviteMember(ctx, auth.InviteRequest{OrgID: org.ID, Email: "revoked@example.com"})
	require.NoError(t, err)

	r, err := f.provider.RevokeOrgInvitation(ctx, revoked.ID)
	require.NoError(t, err)
	require.Equal(t, invitations.StateRevoked, r.State)

	list, err := f.provider.GetInvitationList(ctx, org.ID)
	require.NoError(t, err)
	states := map[string]invitations.State{}
	for _, inv := range list {
		states[inv.ID] = inv.State
	}
	require.Equal(t, map[string]invitations.State{
		old.ID:   invitations.StateExpired,
		fresh.ID: invitations.StatePending,
	}, states)

	got, err := f.provider.GetInvitation(ctx, old.Token)
	require.NoError(t, err)
	require.Equal(t, invitations.StateExpired, got.State)

	f.user(t, "old@example.com", true)
	_, err = f.provider.AcceptInvitation(ctx, old.ID)
	require.Error(t, err)
}

func TestGetInvitationUnknownToken(t *testing.T) {
	f := newFixture(t)
	inv, err := f.provider.GetInvitation(context.Background(), "no-such-token")
	require.NoError(t, err)
	require.Nil(t, inv)
}
