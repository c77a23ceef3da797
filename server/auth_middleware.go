package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/dashboard-auth/auth"
	"github.com/jrsteele09/dashboard-auth/cookies"
	"github.com/jrsteele09/dashboard-auth/internal/metrics"
	"github.com/jrsteele09/dashboard-auth/users"
	"github.com/rs/zerolog/log"
)

// Headers forwarded on admitted requests. Client-supplied copies are removed first.
const (
	HeaderUserID       = "X-Auth-User-Id"
	HeaderOrgID        = "X-Auth-Org-Id"
	HeaderRole         = "X-Auth-Role"
	HeaderImpersonator = "X-Auth-Impersonator"

	authHeaderPrefix = "X-Auth-"
)

// Gate outcomes, as recorded in auth_gate_requests_total.
const (
	outcomePublic    = "public"
	outcomeAdmitted  = "admitted"
	outcomeRefreshed = "refreshed"
	outcomeNoSession = "no_session"
	outcomeInvalid   = "invalid"
	outcomeError     = "error"
)

type ContextKey string

const sessionContextKey ContextKey = "auth_session"

// Identity is the resolved full session of an admitted request.
type Identity struct {
	UserID       string              `json:"userId"`
	OrgID        string              `json:"orgId,omitempty"`
	Role         string              `json:"role,omitempty"`
	Impersonator *users.Impersonator `json:"impersonator,omitempty"`
}

// IdentityFromContext returns the identity the gate resolved for this request.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(sessionContextKey).(Identity)
	return id, ok
}

// PathMatcher matches request paths against a static allow-list. A pattern ending in
// "/*" matches the prefix itself and everything below it; any other pattern is exact.
type PathMatcher struct {
	exact    map[string]struct{}
	prefixes []string
}

func NewPathMatcher(patterns []string) PathMatcher {
	m := PathMatcher{exact: make(map[string]struct{}, len(patterns))}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if prefix, ok := strings.CutSuffix(p, "/*"); ok {
			m.exact[prefix] = struct{}{}
			m.prefixes = append(m.prefixes, prefix+"/")
			continue
		}
		m.exact[p] = struct{}{}
	}
	return m
}

func (m PathMatcher) Match(path string) bool {
	if _, ok := m.exact[path]; ok {
		return true
	}
	for _, prefix := range m.prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Gate admits requests carrying a valid full session and redirects everything else to
// sign-in. Any failure while resolving the session is a redirect, never an admit.
type Gate struct {
	sessions  auth.SessionProvider
	transport *cookies.Transport
	public    PathMatcher
	metrics   *metrics.Metrics
	signIn    string
}

func NewGate(sessions auth.SessionProvider, transport *cookies.Transport, public PathMatcher, m *metrics.Metrics) *Gate {
	return &Gate{
		sessions:  sessions,
		transport: transport,
		public:    public,
		metrics:   m,
		signIn:    PageSignIn,
	}
}

func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stripAuthHeaders(r.Header)

		if g.public.Match(r.URL.Path) {
			g.metrics.GateRequest(outcomePublic)
			next.ServeHTTP(w, r)
			return
		}

		identity, set, outcome := g.resolve(r)
		cookies.Apply(w, set)
		g.metrics.GateRequest(outcome)

		if identity == nil {
			// The original URL is dropped so the sign-in page cannot be used as an open redirect.
			http.Redirect(w, r, g.signIn, http.StatusSeeOther)
			return
		}

		r.Header.Set(HeaderUserID, identity.UserID)
		if identity.OrgID != "" {
			r.Header.Set(HeaderOrgID, identity.OrgID)
		}
		if identity.Role != "" {
			r.Header.Set(HeaderRole, identity.Role)
		}
		if identity.Impersonator != nil {
			r.Header.Set(HeaderImpersonator, identity.Impersonator.Email)
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionContextKey, *identity)))
	})
}

// resolve validates the session cookie, refreshing at most once.
func (g *Gate) resolve(r *http.Request) (identity *Identity, set []*http.Cookie, outcome string) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("session check panicked")
			identity, set, outcome = nil, nil, outcomeError
		}
	}()

	token, ok := cookies.ReadSession(r)
	if !ok {
		return nil, nil, outcomeNoSession
	}
	drop := []*http.Cookie{g.transport.Delete(cookies.SessionName)}

	ctx := r.Context()
	v, err := g.sessions.ValidateSession(ctx, token)
	if err != nil {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("session validation failed")
		return nil, drop, outcomeError
	}

	if v.ShouldRefresh {
		refreshed, err := g.sessions.RefreshSession(ctx, token)
		if err != nil {
			log.Info().Err(err).Msg("session refresh failed")
			return nil, drop, outcomeInvalid
		}
		set = []*http.Cookie{g.transport.Session(refreshed.NewToken, refreshed.ExpiresAt)}

		s := refreshed.Session
		if s.UserID == "" {
			// Backend did not describe the new session; ask once more.
			v, err = g.sessions.ValidateSession(ctx, refreshed.NewToken)
			if err != nil || !v.IsValid {
				return nil, drop, outcomeInvalid
			}
			return identityFromValidation(v), set, outcomeRefreshed
		}
		imp := refreshed.Impersonator
		if imp == nil {
			imp = s.Impersonator
		}
		return &Identity{UserID: s.UserID, OrgID: s.OrgID, Role: s.Role, Impersonator: imp}, set, outcomeRefreshed
	}

	if !v.IsValid {
		return nil, drop, outcomeInvalid
	}
	return identityFromValidation(v), nil, outcomeAdmitted
}

func identityFromValidation(v auth.ValidateResult) *Identity {
	return &Identity{UserID: v.UserID, OrgID: v.OrgID, Role: v.Role, Impersonator: v.Impersonator}
}

func stripAuthHeaders(h http.Header) {
	for name := range h {
		if strings.HasPrefix(http.CanonicalHeaderKey(name), authHeaderPrefix) {
			h.Del(name)
		}
	}
}
