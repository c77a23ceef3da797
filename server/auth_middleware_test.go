package server_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/dashboard-auth/auth"
	"github.com/jrsteele09/dashboard-auth/cookies"
	autherrors "github.com/jrsteele09/dashboard-auth/internal/errors"
	"github.com/jrsteele09/dashboard-auth/internal/metrics"
	"github.com/jrsteele09/dashboard-auth/server"
	"github.com/jrsteele09/dashboard-auth/users"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type fakeSessions struct {
	validate     func(token string) (auth.ValidateResult, error)
	refresh      func(token string) (auth.RefreshResult, error)
	validated    []string
	refreshCalls int
}

func (f *fakeSessions) ValidateSession(_ context.Context, token string) (auth.ValidateResult, error) {
	f.validated = append(f.validated, token)
	return f.validate(token)
}

func (f *fakeSessions) RefreshSession(_ context.Context, token string) (auth.RefreshResult, error) {
	f.refreshCalls++
	return f.refresh(token)
}

func (f *fakeSessions) ExchangePendingSession(context.Context, string, string) (auth.SessionToken, error) {
	return auth.SessionToken{}, autherrors.New(autherrors.Unsupported, "not used")
}

func (f *fakeSessions) SwitchOrg(context.Context, string, string) (auth.RefreshResult, error) {
	return auth.RefreshResult{}, autherrors.New(autherrors.Unsupported, "not used")
}

func (f *fakeSessions) SignOut(context.Context, string) error { return nil }

func (f *fakeSessions) GetSignOutURL(context.Context, string) (string, error) { return "", nil }

type downstream struct {
	called   bool
	header   http.Header
	identity server.Identity
	found    bool
}

func (d *downstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.called = true
	d.header = r.Header.Clone()
	d.identity, d.found = server.IdentityFromContext(r.Context())
	w.WriteHeader(http.StatusOK)
}

func newGate(sessions auth.SessionProvider) (*server.Gate, *metrics.Metrics) {
	_, m := metrics.NewRegistry()
	public := server.NewPathMatcher([]string{"/", "/auth/*", "/healthz"})
	return server.NewGate(sessions, cookies.NewTransport(false), public, m), m
}

func gatedRequest(sessionToken string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/apis/keys?tab=all", nil)
	if sessionToken != "" {
		req.AddCookie(&http.Cookie{Name: cookies.SessionName, Value: sessionToken})
	}
	return req
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func requireSignInRedirect(t *testing.T, rec *httptest.ResponseRecorder, next *downstream) {
	t.Helper()
	require.False(t, next.called)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, server.PageSignIn, rec.Header().Get("Location"))
}

func TestPathMatcher(t *testing.T) {
	m := server.NewPathMatcher([]string{"/", "/auth/*", " /pricing ", ""})

	tests := []struct {
		path string
		want bool
	}{
		{"/", true},
		{"/auth", true},
		{"/auth/sign-in", true},
		{"/auth/sign-in/org-selection", true},
		{"/authors", false},
		{"/pricing", true},
		{"/pricing/enterprise", false},
		{"/apis", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			require.Equal(t, tt.want, m.Match(tt.path))
		})
	}
}

func TestGatePublicPath(t *testing.T) {
	sessions := &fakeSessions{}
	gate, m := newGate(sessions)
	next := &downstream{}

	req := httptest.NewRequest(http.MethodGet, "/auth/sign-in", nil)
	req.Header.Set(server.HeaderUserID, "user_forged")
	rec := httptest.NewRecorder()
	gate.Middleware(next).ServeHTTP(rec, req)

	require.True(t, next.called)
	require.Empty(t, next.header.Get(server.HeaderUserID))
	require.False(t, next.found)
	require.Empty(t, sessions.validated)
	require.Equal(t, 1.0, testutil.ToFloat64(m.GateRequests.WithLabelValues("public")))
}

func TestGateRedirectsWithoutSession(t *testing.T) {
	sessions := &fakeSessions{}
	gate, m := newGate(sessions)
	next := &downstream{}

	req := gatedRequest("")
	// A pending session never admits a request.
	req.AddCookie(&http.Cookie{Name: cookies.PendingName, Value: "pending-token"})
	rec := httptest.NewRecorder()
	gate.Middleware(next).ServeHTTP(rec, req)

	requireSignInRedirect(t, rec, next)
	require.Empty(t, sessions.validated)
	require.Equal(t, 1.0, testutil.ToFloat64(m.GateRequests.WithLabelValues("no_session")))
}

func TestGateAdmitsValidSession(t *testing.T) {
	sessions := &fakeSessions{
		validate: func(string) (auth.ValidateResult, error) {
			return auth.ValidateResult{
				IsValid:      true,
				UserID:       "user_1",
				Role:         "admin",
				Impersonator: &users.Impersonator{Email: "support@example.com", Reason: "ticket 42"},
			}, nil
		},
	}
	gate, m := newGate(sessions)
	next := &downstream{}

	req := gatedRequest("session-token")
	req.Header.Set(server.HeaderUserID, "user_forged")
	req.Header.Set(server.HeaderOrgID, "org_forged")
	req.Header.Set("X-Auth-Anything", "forged")
	rec := httptest.NewRecorder()
	gate.Middleware(next).ServeHTTP(rec, req)

	require.True(t, next.called)
	require.Equal(t, []string{"session-token"}, sessions.validated)
	require.Equal(t, "user_1", next.header.Get(server.HeaderUserID))
	require.Empty(t, next.header.Get(server.HeaderOrgID))
	require.Empty(t, next.header.Get("X-Auth-Anything"))
	require.Equal(t, "admin", next.header.Get(server.HeaderRole))
	require.Equal(t, "support@example.com", next.header.Get(server.HeaderImpersonator))

	require.True(t, next.found)
	require.Equal(t, "user_1", next.identity.UserID)
	require.Nil(t, findCookie(rec, cookies.SessionName))
	require.Equal(t, 1.0, testutil.ToFloat64(m.GateRequests.WithLabelValues("admitted")))
}

func TestGateRefreshesOnce(t *testing.T) {
	expires := time.Now().Add(time.Hour)

	t.Run("refreshed session describes itself", func(t *testing.T) {
		sessions := &fakeSessions{
			validate: func(string) (auth.ValidateResult, error) {
				return auth.ValidateResult{IsValid: true, ShouldRefresh: true, UserID: "user_1"}, nil
			},
			refresh: func(string) (auth.RefreshResult, error) {
				return auth.RefreshResult{
					NewToken:  "fresh-token",
					ExpiresAt: expires,
					Session:   auth.SessionToken{UserID: "user_1", OrgID: "org_1", Role: "member"},
				}, nil
			},
		}
		gate, m := newGate(sessions)
		next := &downstream{}
		rec := httptest.NewRecorder()
		gate.Middleware(next).ServeHTTP(rec, gatedRequest("stale-token"))

		require.True(t, next.called)
		require.Equal(t, 1, sessions.refreshCalls)
		require.Equal(t, "org_1", next.header.Get(server.HeaderOrgID))
		c := findCookie(rec, cookies.SessionName)
		require.NotNil(t, c)
		require.Equal(t, "fresh-token", c.Value)
		require.Equal(t, 1.0, testutil.ToFloat64(m.GateRequests.WithLabelValues("refreshed")))
	})

	t.Run("new token validated once when backend omits session", func(t *testing.T) {
		sessions := &fakeSessions{
			validate: func(token string) (auth.ValidateResult, error) {
				if token == "fresh-token" {
					return auth.ValidateResult{IsValid: true, UserID: "user_2", OrgID: "org_2"}, nil
				}
				return auth.ValidateResult{IsValid: false, ShouldRefresh: true}, nil
			},
			refresh: func(string) (auth.RefreshResult, error) {
				return auth.RefreshResult{NewToken: "fresh-token", ExpiresAt: expires}, nil
			},
		}
		gate, _ := newGate(sessions)
		next := &downstream{}
		rec := httptest.NewRecorder()
		gate.Middleware(next).ServeHTTP(rec, gatedRequest("stale-token"))

		require.True(t, next.called)
		require.Equal(t, []string{"stale-token", "fresh-token"}, sessions.validated)
		require.Equal(t, 1, sessions.refreshCalls)
		require.Equal(t, "user_2", next.identity.UserID)
	})

	t.Run("failed refresh redirects", func(t *testing.T) {
		sessions := &fakeSessions{
			validate: func(string) (auth.ValidateResult, error) {
				return auth.ValidateResult{ShouldRefresh: true}, nil
			},
			refresh: func(string) (auth.RefreshResult, error) {
				return auth.RefreshResult{}, autherrors.New(autherrors.SessionExpired, "refresh token revoked")
			},
		}
		gate, _ := newGate(sessions)
		next := &downstream{}
		rec := httptest.NewRecorder()
		gate.Middleware(next).ServeHTTP(rec, gatedRequest("stale-token"))

		requireSignInRedirect(t, rec, next)
		require.Equal(t, 1, sessions.refreshCalls)
		c := findCookie(rec, cookies.SessionName)
		require.NotNil(t, c)
		require.Less(t, c.MaxAge, 0)
	})
}

func TestGateFailsClosed(t *testing.T) {
	tests := []struct {
		name     string
		validate func(string) (auth.ValidateResult, error)
		outcome  string
	}{
		{
			name: "invalid session",
			validate: func(string) (auth.ValidateResult, error) {
				return auth.ValidateResult{IsValid: false}, nil
			},
			outcome: "invalid",
		},
		{
			name: "backend error",
			validate: func(string) (auth.ValidateResult, error) {
				return auth.ValidateResult{}, autherrors.New(autherrors.NetworkError, "backend down")
			},
			outcome: "error",
		},
		{
			name: "backend panic",
			validate: func(string) (auth.ValidateResult, error) {
				panic("nil map")
			},
			outcome: "error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate, m := newGate(&fakeSessions{validate: tt.validate})
			next := &downstream{}
			rec := httptest.NewRecorder()
			gate.Middleware(next).ServeHTTP(rec, gatedRequest("some-token"))

			requireSignInRedirect(t, rec, next)
			require.Equal(t, 1.0, testutil.ToFloat64(m.GateRequests.WithLabelValues(tt.outcome)))
		})
	}
}
