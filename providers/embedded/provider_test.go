package embedded_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/dashboard-auth/auth"
	autherrors "github.com/jrsteele09/dashboard-auth/internal/errors"
	"github.com/jrsteele09/dashboard-auth/memberships"
	"github.com/jrsteele09/dashboard-auth/notify"
	"github.com/jrsteele09/dashboard-auth/providers/embedded"
	"github.com/jrsteele09/dashboard-auth/tenants"
	"github.com/jrsteele09/dashboard-auth/users"
	"github.com/stretchr/testify/require"
)

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fixture struct {
	provider *embedded.Provider
	repos    embedded.Repos
	sender   *notify.LogSender
	clock    *clock
}

func newFixture(t *testing.T, opts ...embedded.Option) *fixture {
	t.Helper()
	f := &fixture{
		repos:  embedded.NewInMemoryRepos(),
		sender: notify.NewLogSender(),
		clock:  &clock{now: time.Now().UTC()},
	}
	opts = append([]embedded.Option{embedded.WithNowTime(f.clock.Now)}, opts...)
	p, err := embedded.New(f.repos, f.sender, embedded.DefaultSettings(), opts...)
	require.NoError(t, err)
	f.provider = p
	return f
}

func (f *fixture) user(t *testing.T, email string, verified bool) *users.User {
	t.Helper()
	u := &users.User{Email: email, EmailVerified: verified}
	require.NoError(t, f.repos.Users.Create(context.Background(), u))
	return u
}

func (f *fixture) org(t *testing.T, name, userID, role string) *tenants.Organization {
	t.Helper()
	org := &tenants.Organization{Name: name}
	require.NoError(t, f.repos.Tenants.Create(context.Background(), org))
	require.NoError(t, f.repos.Memberships.Create(context.Background(), &memberships.Membership{
		UserID:         userID,
		OrganizationID: org.ID,
		Role:           role,
		Status:         memberships.StatusActive,
	}))
	return org
}

// signIn runs an email sign-in and returns the resulting authentication.
func (f *fixture) signIn(t *testing.T, email string) auth.Authentication {
	t.Helper()
	ctx := context.Background()
	_, err := f.provider.SignInViaEmail(ctx, email, auth.RequestMeta{})
	require.NoError(t, err)
	code, ok := f.sender.LastCode(users.NormalizeEmail(email))
	require.True(t, ok)
	authn, err := f.provider.VerifyAuthCode(ctx, email, code, "")
	require.NoError(t, err)
	return authn
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := embedded.New(embedded.Repos{}, notify.NewLogSender(), embedded.DefaultSettings())
	require.Error(t, err)

	_, err = embedded.New(embedded.NewInMemoryRepos(), nil, embedded.DefaultSettings())
	require.Error(t, err)
}

func TestSignUpThenVerifyCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.provider.SignUpViaEmail(ctx, auth.SignUpData{Email: " Ada@Example.com ", FirstName: "Ada", LastName: "Lovelace"}, auth.RequestMeta{})
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", res.Email)

	code, ok := f.sender.LastCode("ada@example.com")
	require.True(t, ok)
	require.Len(t, code, 6)

	authn, err := f.provider.VerifyAuthCode(ctx, "ada@example.com", code, "")
	require.NoError(t, err)
	require.True(t, authn.User.EmailVerified)
	require.Empty(t, authn.Organizations)
	require.Nil(t, authn.Session)
	require.NotNil(t, authn.Pending)

	// The pending token never admits requests.
	v, err := f.provider.ValidateSession(ctx, authn.Pending.Token)
	require.NoError(t, err)
	require.False(t, v.IsValid)

	session, err := f.provider.ExchangePendingSession(ctx, authn.Pending.Token, "")
	require.NoError(t, err)
	require.Equal(t, authn.Pending.Token, session.Token)
	require.Empty(t, session.OrgID)

	v, err = f.provider.ValidateSession(ctx, session.Token)
	require.NoError(t, err)
	require.True(t, v.IsValid)
	require.Equal(t, authn.User.ID, v.UserID)
	require.False(t, v.ShouldRefresh)
}

func TestEmailAuthFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "taken@example.com", true)

	_, err := f.provider.SignUpViaEmail(ctx, auth.SignUpData{Email: "taken@example.com", FirstName: "Ada", LastName: "Lovelace"}, auth.RequestMeta{})
	require.Equal(t, autherrors.EmailAlreadyExists, autherrors.CodeOf(err))

	_, err = f.provider.SignUpViaEmail(ctx, auth.SignUpData{Email: "not-an-email", FirstName: "Ada", LastName: "Lovelace"}, auth.RequestMeta{})
	require.Equal(t, autherrors.InvalidEmail, autherrors.CodeOf(err))

	_, err = f.provider.SignInViaEmail(ctx, "nobody@example.com", auth.RequestMeta{})
	require.Equal(t, autherrors.AccountNotFound, autherrors.CodeOf(err))

	_, err = f.provider.ResendAuthCode(ctx, "nobody@example.com")
	require.Equal(t, autherrors.AccountNotFound, autherrors.CodeOf(err))

	_, err = f.provider.VerifyAuthCode(ctx, "nobody@example.com", "123456", "")
	require.Equal(t, autherrors.InvalidCode, autherrors.CodeOf(err))
}

func TestVerifyCodeAttemptLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "ada@example.com", true)

	_, err := f.provider.SignInViaEmail(ctx, "ada@example.com", auth.RequestMeta{})
	require.NoError(t, err)
	code, _ := f.sender.LastCode("ada@example.com")

	for i := 0; i < 5; i++ {
		_, err := f.provider.VerifyAuthCode(ctx, "ada@example.com", "wrong!", "")
		require.Equal(t, autherrors.InvalidCode, autherrors.CodeOf(err))
	}
	_, err = f.provider.VerifyAuthCode(ctx, "ada@example.com", code, "")
	require.Equal(t, autherrors.InvalidCode, autherrors.CodeOf(err), "challenge is discarded after too many attempts")
}

func TestVerifyCodeExpires(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "ada@example.com", true)

	_, err := f.provider.SignInViaEmail(ctx, "ada@example.com", auth.RequestMeta{})
	require.NoError(t, err)
	code, _ := f.sender.LastCode("ada@example.com")

	f.clock.Advance(11 * time.Minute)
	_, err = f.provider.VerifyAuthCode(ctx, "ada@example.com", code, "")
	require.Equal(t, autherrors.InvalidCode, autherrors.CodeOf(err))
}

func TestCodeIsSingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "ada@example.com", true)

	_, err := f.provider.SignInViaEmail(ctx, "ada@example.com", auth.RequestMeta{})
	require.NoError(t, err)
	code, _ := f.sender.LastCode("ada@example.com")

	_, err = f.provider.VerifyAuthCode(ctx, "ada@example.com", code, "")
	require.NoError(t, err)
	_, err = f.provider.VerifyAuthCode(ctx, "ada@example.com", code, "")
	require.Equal(t, autherrors.InvalidCode, autherrors.CodeOf(err))
}

func TestSendRateLimited(t *testing.T) {
	f := newFixture(t, embedded.WithSendRate(time.Hour, 1))
	ctx := context.Background()
	f.user(t, "ada@example.com", true)

	_, err := f.provider.SignInViaEmail(ctx, "ada@example.com", auth.RequestMeta{})
	require.NoError(t, err)
	_, err = f.provider.ResendAuthCode(ctx, "ada@example.com")
	require.Equal(t, autherrors.RateLimited, autherrors.CodeOf(err))
}

func TestAuthenticationListsActiveOrganizations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "ada@example.com", true)
	first := f.org(t, "First", u.ID, memberships.RoleAdmin)
	second := f.org(t, "Second", u.ID, memberships.RoleMember)
	third := f.org(t, "Third", u.ID, memberships.RoleMember)

	m, err := f.repos.Memberships.GetByUserAndOrg(ctx, u.ID, third.ID)
	require.NoError(t, err)
	_, err = f.repos.Memberships.SetStatus(ctx, m.ID, memberships.StatusInactive)
	require.NoError(t, err)

	authn := f.signIn(t, "ada@example.com")
	ids := []string{}
	for _, org := range authn.Organizations {
		ids = append(ids, org.ID)
	}
	require.ElementsMatch(t, []string{first.ID, second.ID}, ids)

	_, err = f.provider.ExchangePendingSession(ctx, authn.Pending.Token, third.ID)
	require.Equal(t, autherrors.NotFound, autherrors.CodeOf(err))

	session, err := f.provider.ExchangePendingSession(ctx, authn.Pending.Token, second.ID)
	require.NoError(t, err)
	require.Equal(t, second.ID, session.OrgID)
	require.Equal(t, memberships.RoleMember, session.Role)

	// Already exchanged.
	_, err = f.provider.ExchangePendingSession(ctx, authn.Pending.Token, first.ID)
	require.Equal(t, autherrors.PendingSessionExpired, autherrors.CodeOf(err))
}

func TestPendingSessionExpires(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "ada@example.com", true)
	authn := f.signIn(t, "ada@example.com")

	f.clock.Advance(11 * time.Minute)
	_, err := f.provider.ExchangePendingSession(ctx, authn.Pending.Token, "")
	require.Equal(t, autherrors.PendingSessionExpired, autherrors.CodeOf(err))

	_, err = f.provider.ExchangePendingSession(ctx, "", "")
	require.Equal(t, autherrors.PendingSessionExpired, autherrors.CodeOf(err))
}

func TestGetPendingAuthentication(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "ada@example.com", true)
	first := f.org(t, "First", u.ID, memberships.RoleAdmin)
	second := f.org(t, "Second", u.ID, memberships.RoleMember)
	authn := f.signIn(t, "ada@example.com")

	pending, err := f.provider.GetPendingAuthentication(ctx, authn.Pending.Token)
	require.NoError(t, err)
	require.Equal(t, u.ID, pending.User.ID)
	require.Nil(t, pending.Session)
	require.Equal(t, authn.Pending.Token, pending.Pending.Token)
	ids := []string{}
	for _, org := range pending.Organizations {
		ids = append(ids, org.ID)
	}
	require.ElementsMatch(t, []string{first.ID, second.ID}, ids)

	_, err = f.provider.ExchangePendingSession(ctx, authn.Pending.Token, first.ID)
	require.NoError(t, err)
	_, err = f.provider.GetPendingAuthentication(ctx, authn.Pending.Token)
	require.Equal(t, autherrors.PendingSessionExpired, autherrors.CodeOf(err))

	_, err = f.provider.GetPendingAuthentication(ctx, "")
	require.Equal(t, autherrors.PendingSessionExpired, autherrors.CodeOf(err))
}

func TestResendLeavesExistingSessionValid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "ada@example.com", true)
	org := f.org(t, "Acme", u.ID, memberships.RoleAdmin)
	authn := f.signIn(t, "ada@example.com")
	session, err := f.provider.ExchangePendingSession(ctx, authn.Pending.Token, org.ID)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := f.provider.ResendAuthCode(ctx, "ada@example.com")
		require.NoError(t, err)
	}

	v, err := f.provider.ValidateSession(ctx, session.Token)
	require.NoError(t, err)
	require.True(t, v.IsValid)
	require.Equal(t, u.ID, v.UserID)
	require.Equal(t, org.ID, v.OrgID)

	// The latest code still verifies.
	code, ok := f.sender.LastCode("ada@example.com")
	require.True(t, ok)
	_, err = f.provider.VerifyAuthCode(ctx, "ada@example.com", code, "")
	require.NoError(t, err)
}

func TestRefreshSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "ada@example.com", true)
	org := f.org(t, "Acme", u.ID, memberships.RoleAdmin)
	authn := f.signIn(t, "ada@example.com")
	session, err := f.provider.ExchangePendingSession(ctx, authn.Pending.Token, org.ID)
	require.NoError(t, err)

	f.clock.Advance(6*24*time.Hour + time.Hour)
	v, err := f.provider.ValidateSession(ctx, session.Token)
	require.NoError(t, err)
	require.True(t, v.IsValid)
	require.True(t, v.ShouldRefresh)

	refreshed, err := f.provider.RefreshSession(ctx, session.Token)
	require.NoError(t, err)
	require.Equal(t, session.Token, refreshed.NewToken)
	require.Equal(t, f.clock.Now().Add(7*24*time.Hour), refreshed.ExpiresAt)

	v, err = f.provider.ValidateSession(ctx, session.Token)
	require.NoError(t, err)
	require.False(t, v.ShouldRefresh)

	f.clock.Advance(8 * 24 * time.Hour)
	v, err = f.provider.ValidateSession(ctx, session.Token)
	require.NoError(t, err)
	require.False(t, v.IsValid)
	_, err = f.provider.RefreshSession(ctx, session.Token)
	require.Equal(t, autherrors.SessionExpired, autherrors.CodeOf(err))
}

func TestSwitchOrgAndSignOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "ada@example.com", true)
	first := f.org(t, "First", u.ID, memberships.RoleAdmin)
	second := f.org(t, "Second", u.ID, memberships.RoleMember)
	other := f.user(t, "bob@example.com", true)
	foreign := f.org(t, "Foreign", other.ID, memberships.RoleAdmin)

	authn := f.signIn(t, "ada@example.com")
	session, err := f.provider.ExchangePendingSession(ctx, authn.Pending.Token, first.ID)
	require.NoError(t, err)

	switched, err := f.provider.SwitchOrg(ctx, session.Token, second.ID)
	require.NoError(t, err)
	require.Equal(t, session.Token, switched.NewToken)
	require.Equal(t, second.ID, switched.Session.OrgID)

	_, err = f.provider.SwitchOrg(ctx, session.Token, foreign.ID)
	require.Equal(t, autherrors.NotFound, autherrors.CodeOf(err))

	url, err := f.provider.GetSignOutURL(ctx, session.Token)
	require.NoError(t, err)
	require.Empty(t, url)

	require.NoError(t, f.provider.SignOut(ctx, session.Token))
	v, err := f.provider.ValidateSession(ctx, session.Token)
	require.NoError(t, err)
	require.False(t, v.IsValid)
}
