package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/jrsteele09/dashboard-auth/auth"
	"github.com/jrsteele09/dashboard-auth/cookies"
	"github.com/jrsteele09/dashboard-auth/internal/config"
	"github.com/jrsteele09/dashboard-auth/internal/metrics"
	"github.com/jrsteele09/dashboard-auth/memberships"
	"github.com/jrsteele09/dashboard-auth/notify"
	"github.com/jrsteele09/dashboard-auth/providers/embedded"
	"github.com/jrsteele09/dashboard-auth/providers/local"
	"github.com/jrsteele09/dashboard-auth/server"
	"github.com/jrsteele09/dashboard-auth/tenants"
	"github.com/jrsteele09/dashboard-auth/users"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

const browserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_5) AppleWebKit/605.1.15"

type acceptChallenge struct {
	tokens []string
	ips    []string
}

func (a *acceptChallenge) Verify(_ context.Context, token, remoteIP string) error {
	a.tokens = append(a.tokens, token)
	a.ips = append(a.ips, remoteIP)
	if token != "solved" {
		return errors.New("challenge rejected")
	}
	return nil
}

// browser replays cookies between requests the way a user agent would.
type browser struct {
	t       *testing.T
	handler http.Handler
	jar     map[string]string
}

func newBrowser(t *testing.T, opts ...server.Option) *browser {
	t.Helper()
	provider, err := local.New(local.Config{Secret: "test-secret"})
	require.NoError(t, err)
	return newBrowserFor(t, provider, opts...)
}

func newBrowserFor(t *testing.T, provider auth.Provider, opts ...server.Option) *browser {
	t.Helper()
	t.Setenv("ENV", "TEST")
	t.Setenv("BASE_URL", "https://app.example.com")
	t.Setenv("ALLOWED_ORIGINS", "https://docs.example.com")
	t.Setenv("AUTH_PUBLIC_PATHS", "")

	reg, m := metrics.NewRegistry()
	orchestrator := auth.NewOrchestrator(provider, cookies.NewTransport(true), auth.WithMetrics(m))
	opts = append([]server.Option{server.WithMetrics(m, metrics.HandlerFor(reg))}, opts...)
	srv, err := server.New(config.New(), orchestrator, opts...)
	require.NoError(t, err)

	return &browser{t: t, handler: srv, jar: map[string]string{}}
}

func (b *browser) do(method, target string, body any) *httptest.ResponseRecorder {
	b.t.Helper()
	var payload bytes.Buffer
	if body != nil {
		require.NoError(b.t, json.NewEncoder(&payload).Encode(body))
	}
	req := httptest.NewRequest(method, target, &payload)
	req.Header.Set("User-Agent", browserAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for name, value := range b.jar {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	rec := httptest.NewRecorder()
	b.handler.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.jar, c.Name)
			continue
		}
		b.jar[c.Name] = c.Value
	}
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (b *browser) signIn() {
	b.t.Helper()
	rec := b.do(http.MethodPost, server.RouteSignIn, map[string]string{"email": local.UserEmail})
	require.Equal(b.t, http.StatusOK, rec.Code)
	rec = b.do(http.MethodPost, server.RouteVerifyCode, map[string]string{"email": local.UserEmail, "code": local.DefaultCode})
	require.Equal(b.t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestNewRequiresOrchestrator(t *testing.T) {
	_, err := server.New(config.New(), nil)
	require.Error(t, err)
}

func TestEmailSignInFlow(t *testing.T) {
	b := newBrowser(t)

	rec := b.do(http.MethodPost, server.RouteSignIn, map[string]string{"email": " Dev@Example.com "})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, "state_change", body["kind"])
	require.Empty(t, b.jar)

	rec = b.do(http.MethodPost, server.RouteVerifyCode, map[string]string{"email": local.UserEmail, "code": local.DefaultCode})
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	require.Equal(t, "navigation", body["kind"])
	require.Equal(t, auth.DestinationDashboard, body["redirectTo"])

	require.NotEmpty(t, b.jar[cookies.SessionName])
	require.NotContains(t, b.jar, cookies.PendingName)
	require.Equal(t, local.OrgID, b.jar[cookies.LastUsedOrgName])

	session := findCookie(rec, cookies.SessionName)
	require.True(t, session.HttpOnly)
	require.True(t, session.Secure)
	require.Equal(t, http.SameSiteStrictMode, session.SameSite)

	rec = b.do(http.MethodGet, server.RouteSession, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	identity := body["session"].(map[string]any)
	require.Equal(t, local.UserID, identity["userId"])
	require.Equal(t, local.OrgID, identity["orgId"])
	user := body["user"].(map[string]any)
	require.Equal(t, local.UserEmail, user["email"])
}

func TestEmailSignInErrors(t *testing.T) {
	tests := []struct {
		name   string
		route  string
		body   any
		status int
		code   string
	}{
		{"unknown account", server.RouteSignIn, map[string]string{"email": "nobody@example.com"}, http.StatusNotFound, "ACCOUNT_NOT_FOUND"},
		{"invalid email", server.RouteSignIn, map[string]string{"email": "not-an-email"}, http.StatusBadRequest, "INVALID_EMAIL"},
		{"wrong code", server.RouteVerifyCode, map[string]string{"email": local.UserEmail, "code": "123456"}, http.StatusUnauthorized, "INVALID_CODE"},
		{"missing code", server.RouteVerifyCode, map[string]string{"email": local.UserEmail}, http.StatusBadRequest, "MISSING_REQUIRED_FIELDS"},
		{"existing account", server.RouteSignUp, map[string]string{"email": local.UserEmail, "firstName": "Dev", "lastName": "Local"}, http.StatusConflict, "EMAIL_ALREADY_EXISTS"},
		{"org selection without pending session", server.RouteOrgSelection, map[string]string{"organizationId": local.OrgID}, http.StatusUnauthorized, "PENDING_SESSION_EXPIRED"},
		{"switch without session", server.RouteSwitchOrg, map[string]string{"organizationId": local.OrgID}, http.StatusUnauthorized, "SESSION_EXPIRED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBrowser(t)
			rec := b.do(http.MethodPost, tt.route, tt.body)
			require.Equal(t, tt.status, rec.Code)
			body := decodeBody(t, rec)
			require.Equal(t, "error", body["kind"])
			require.Equal(t, tt.code, body["code"])
			require.NotContains(t, b.jar, cookies.SessionName)
		})
	}
}

func TestMalformedBody(t *testing.T) {
	b := newBrowser(t)
	req := httptest.NewRequest(http.MethodPost, server.RouteSignIn, bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	b.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "MISSING_REQUIRED_FIELDS", decodeBody(t, rec)["code"])
}

func TestRiskGate(t *testing.T) {
	t.Run("automation agent is blocked", func(t *testing.T) {
		b := newBrowser(t)
		req := httptest.NewRequest(http.MethodPost, server.RouteSignIn, bytes.NewBufferString(`{"email":"dev@example.com"}`))
		req.Header.Set("User-Agent", "python-requests/2.31")
		rec := httptest.NewRecorder()
		b.handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Equal(t, "RADAR_BLOCKED", decodeBody(t, rec)["code"])
		require.Empty(t, rec.Result().Cookies())
	})

	t.Run("throwaway domain gets a challenge", func(t *testing.T) {
		b := newBrowser(t)
		rec := b.do(http.MethodPost, server.RouteSignIn, map[string]string{"email": "someone@mailinator.com"})
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		require.Equal(t, "pending_turnstile", body["kind"])
		require.Equal(t, "someone@mailinator.com", body["email"])
		require.Empty(t, b.jar)
	})

	t.Run("solved challenge bypasses the gate", func(t *testing.T) {
		verifier := &acceptChallenge{}
		b := newBrowser(t, server.WithChallengeVerifier(verifier))

		rec := b.do(http.MethodPost, server.RouteSignIn, map[string]string{"email": "someone@mailinator.com", "turnstileToken": "bogus"})
		require.Equal(t, "pending_turnstile", decodeBody(t, rec)["kind"])

		rec = b.do(http.MethodPost, server.RouteSignIn, map[string]string{"email": "someone@mailinator.com", "turnstileToken": "solved"})
		// Past the gate, the local backend only knows its one user.
		require.Equal(t, "ACCOUNT_NOT_FOUND", decodeBody(t, rec)["code"])
		require.Equal(t, []string{"bogus", "solved"}, verifier.tokens)
	})
}

// idpStub sends the browser straight back to the callback with a code.
type idpStub struct {
	identity embedded.Identity
}

func (i idpStub) AuthCodeURL(state, _, _, redirectURI string) string {
	return redirectURI + "?" + url.Values{"code": {"idp-code"}, "state": {state}}.Encode()
}

func (i idpStub) Exchange(context.Context, string, string, string, string) (embedded.Identity, error) {
	return i.identity, nil
}

// newEmbeddedBrowser serves an embedded backend whose "github" provider asserts identity.
func newEmbeddedBrowser(t *testing.T, identity embedded.Identity) (*browser, embedded.Repos) {
	t.Helper()
	repos := embedded.NewInMemoryRepos()
	provider, err := embedded.New(repos, notify.NewLogSender(), embedded.DefaultSettings(),
		embedded.WithIdentityProvider("github", idpStub{identity: identity}))
	require.NoError(t, err)
	return newBrowserFor(t, provider), repos
}

func addOrg(t *testing.T, repos embedded.Repos, name, userID string) *tenants.Organization {
	t.Helper()
	ctx := context.Background()
	org := &tenants.Organization{Name: name}
	require.NoError(t, repos.Tenants.Create(ctx, org))
	require.NoError(t, repos.Memberships.Create(ctx, &memberships.Membership{
		UserID: userID, OrganizationID: org.ID, Role: memberships.RoleAdmin, Status: memberships.StatusActive,
	}))
	return org
}

// followOAuth starts a github sign-in and follows it to the callback's redirect.
func (b *browser) followOAuth() *httptest.ResponseRecorder {
	b.t.Helper()
	rec := b.do(http.MethodGet, "/auth/oauth/github", nil)
	require.Equal(b.t, http.StatusFound, rec.Code)
	target, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(b.t, err)
	require.Equal(b.t, "app.example.com", target.Host)
	require.Equal(b.t, server.RouteSSOCallback, target.Path)

	rec = b.do(http.MethodGet, target.RequestURI(), nil)
	require.Equal(b.t, http.StatusFound, rec.Code)
	return rec
}

func TestOAuthRoundTrip(t *testing.T) {
	t.Run("single organization signs straight in", func(t *testing.T) {
		b := newBrowser(t)
		rec := b.followOAuth()
		require.Equal(t, auth.DestinationDashboard, rec.Header().Get("Location"))

		session := findCookie(rec, cookies.SessionName)
		require.NotNil(t, session)
		require.Equal(t, http.SameSiteLaxMode, session.SameSite)

		rec = b.do(http.MethodGet, server.RouteSession, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("several organizations are offered after the redirect", func(t *testing.T) {
		b, repos := newEmbeddedBrowser(t, embedded.Identity{Subject: "gh|1", Email: "ada@example.com", EmailVerified: true, FirstName: "Ada"})
		u := &users.User{Email: "ada@example.com", EmailVerified: true}
		require.NoError(t, repos.Users.Create(context.Background(), u))
		first := addOrg(t, repos, "First", u.ID)
		second := addOrg(t, repos, "Second", u.ID)

		rec := b.followOAuth()
		require.Equal(t, server.PageOrgSelection, rec.Header().Get("Location"))
		require.Equal(t, http.SameSiteLaxMode, findCookie(rec, cookies.PendingName).SameSite)
		require.NotContains(t, b.jar, cookies.SessionName)

		rec = b.do(http.MethodGet, server.RouteOrgSelection, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		require.Equal(t, "pending_org_selection", body["kind"])
		require.Equal(t, "ada@example.com", body["user"].(map[string]any)["email"])
		ids := []string{}
		for _, org := range body["organizations"].([]any) {
			ids = append(ids, org.(map[string]any)["id"].(string))
		}
		require.ElementsMatch(t, []string{first.ID, second.ID}, ids)

		rec = b.do(http.MethodPost, server.RouteOrgSelection, map[string]string{"organizationId": second.ID})
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, auth.DestinationDashboard, decodeBody(t, rec)["redirectTo"])
		require.Equal(t, second.ID, b.jar[cookies.LastUsedOrgName])
		require.NotContains(t, b.jar, cookies.PendingName)

		rec = b.do(http.MethodGet, server.RouteOrgSelection, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "PENDING_SESSION_EXPIRED", decodeBody(t, rec)["code"])
	})

	t.Run("unverified email is described after the redirect", func(t *testing.T) {
		b, _ := newEmbeddedBrowser(t, embedded.Identity{Subject: "gh|2", Email: "carol@example.com", FirstName: "Carol"})

		rec := b.followOAuth()
		require.Equal(t, server.PageVerifyEmail, rec.Header().Get("Location"))

		rec = b.do(http.MethodGet, server.RouteVerifyEmail, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		require.Equal(t, "pending_email_verification", body["kind"])
		require.Equal(t, "carol@example.com", body["user"].(map[string]any)["email"])
		require.Equal(t, false, body["user"].(map[string]any)["emailVerified"])
	})
}

func TestOAuthCallbackErrors(t *testing.T) {
	b := newBrowser(t)

	rec := b.do(http.MethodGet, server.RouteSSOCallback+"?error=access_denied", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, server.PageSignIn+"?error=UNKNOWN_ERROR", rec.Header().Get("Location"))

	rec = b.do(http.MethodGet, server.RouteSSOCallback+"?code=wrong&state=github", nil)
	require.Equal(t, server.PageSignIn+"?error=INVALID_CODE", rec.Header().Get("Location"))
	require.Empty(t, b.jar)
}

func TestSwitchOrgAndSignOut(t *testing.T) {
	b := newBrowser(t)
	b.signIn()
	original := b.jar[cookies.SessionName]

	rec := b.do(http.MethodPost, server.RouteSwitchOrg, map[string]string{"organizationId": "org_other"})
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, original, b.jar[cookies.SessionName])

	rec = b.do(http.MethodPost, server.RouteSwitchOrg, map[string]string{"organizationId": local.OrgID})
	require.Equal(t, http.StatusOK, rec.Code)
	switched := b.jar[cookies.SessionName]
	require.NotEqual(t, original, switched)

	rec = b.do(http.MethodPost, server.RouteSignOut, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, "navigation", body["kind"])
	require.Equal(t, auth.DestinationSignIn, body["redirectTo"])
	require.NotContains(t, b.jar, cookies.SessionName)

	// The signed-out token no longer admits anything.
	b.jar[cookies.SessionName] = switched
	rec = b.do(http.MethodGet, server.RouteSession, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, server.PageSignIn, rec.Header().Get("Location"))
	require.NotContains(t, b.jar, cookies.SessionName)
}

func TestSignOutRequiresPost(t *testing.T) {
	b := newBrowser(t)
	b.signIn()

	rec := b.do(http.MethodGet, server.RouteSignOut, nil)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.NotEmpty(t, b.jar[cookies.SessionName])

	rec = b.do(http.MethodGet, server.RouteSession, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestForwardedAddressNeedsTrustedProxy(t *testing.T) {
	signIn := func(b *browser) {
		req := httptest.NewRequest(http.MethodPost, server.RouteSignIn,
			bytes.NewBufferString(`{"email":"someone@mailinator.com","turnstileToken":"solved"}`))
		req.RemoteAddr = "203.0.113.9:4711"
		req.Header.Set("User-Agent", browserAgent)
		req.Header.Set("X-Forwarded-For", "198.51.100.7")
		b.handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	t.Run("ignored by default", func(t *testing.T) {
		t.Setenv("TRUST_PROXY_HEADERS", "")
		verifier := &acceptChallenge{}
		signIn(newBrowser(t, server.WithChallengeVerifier(verifier)))
		require.Equal(t, []string{"203.0.113.9"}, verifier.ips)
	})

	t.Run("honoured behind a trusted proxy", func(t *testing.T) {
		t.Setenv("TRUST_PROXY_HEADERS", "true")
		verifier := &acceptChallenge{}
		signIn(newBrowser(t, server.WithChallengeVerifier(verifier)))
		require.Equal(t, []string{"198.51.100.7"}, verifier.ips)
	})
}

func TestGatedRoutes(t *testing.T) {
	b := newBrowser(t)

	rec := b.do(http.MethodGet, "/apis/keys?next=https://evil.example.com", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, server.PageSignIn, rec.Header().Get("Location"))

	rec = b.do(http.MethodGet, server.RouteHealth, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, local.Name, decodeBody(t, rec)["provider"])

	b.signIn()
	rec = b.do(http.MethodGet, server.RouteMetrics, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `auth_results_total{kind="navigation"} 1`)
	require.Contains(t, rec.Body.String(), `auth_gate_requests_total{outcome="public"}`)
}

func TestCors(t *testing.T) {
	b := newBrowser(t)

	req := httptest.NewRequest(http.MethodOptions, server.RouteSignIn, nil)
	req.Header.Set("Origin", "https://docs.example.com")
	rec := httptest.NewRecorder()
	b.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "https://docs.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodOptions, server.RouteSignIn, nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	b.handler.ServeHTTP(rec, req)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
