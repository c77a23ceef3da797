package remote

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/dashboard-auth/auth"
	autherrors "github.com/jrsteele09/dashboard-auth/internal/errors"
	"github.com/jrsteele09/dashboard-auth/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// sealedSession is the cookie payload. Only this provider can open it.
type sealedSession struct {
	AccessToken  string `json:"a"`
	RefreshToken string `json:"r"`
}

// sealedPending is the pending cookie payload: the service's pending token and what the
// next step needs to render.
type sealedPending struct {
	Token         string            `json:"t"`
	Step          string            `json:"s"`
	User          *apiUser          `json:"u,omitempty"`
	Organizations []apiOrganization `json:"o,omitempty"`
	ExpiresAt     time.Time         `json:"e"`
}

// authentication describes the step; token is the sealed cookie value.
func (s sealedPending) authentication(token string) auth.Authentication {
	authn := auth.Authentication{Pending: &auth.PendingSession{Token: token, ExpiresAt: s.ExpiresAt}}
	if s.User != nil {
		authn.User = s.User.toUser()
	}
	switch s.Step {
	case stepOrgSelection:
		authn.User.EmailVerified = true
		for _, org := range s.Organizations {
			authn.Organizations = append(authn.Organizations, org.toOrganization())
		}
	case stepEmailVerification:
		authn.User.EmailVerified = false
	}
	return authn
}

func (p *Provider) sealPending(step sealedPending) (auth.Authentication, error) {
	sealed, err := p.seal.Encode(pendingSealName, step)
	if err != nil {
		return auth.Authentication{}, autherrors.Wrap(err, autherrors.Unknown, "seal pending session")
	}
	return step.authentication(sealed), nil
}

func (p *Provider) openPending(token string) (sealedPending, error) {
	var step sealedPending
	if token == "" {
		return step, autherrors.New(autherrors.PendingSessionExpired, "no pending session")
	}
	if err := p.seal.Decode(pendingSealName, token, &step); err != nil {
		return step, autherrors.Wrap(err, autherrors.PendingSessionExpired, "unreadable pending session")
	}
	if step.Token == "" || !p.now().Before(step.ExpiresAt) {
		return step, autherrors.New(autherrors.PendingSessionExpired, "pending session expired")
	}
	return step, nil
}

type accessClaims struct {
	jwt.RegisteredClaims
	SessionID string              `json:"sid"`
	OrgID     string              `json:"org_id"`
	Role      string              `json:"role"`
	Act       *users.Impersonator `json:"act,omitempty"`
}

func (p *Provider) open(token string) (sealedSession, bool) {
	var s sealedSession
	if token == "" {
		return s, false
	}
	if err := p.seal.Decode(sealName, token, &s); err != nil {
		return s, false
	}
	return s, s.AccessToken != ""
}

// peek reads access token claims without verifying them. Only used on tokens this
// provider sealed itself, to recover the session id and organization.
func peek(accessToken string) accessClaims {
	var claims accessClaims
	_, _, _ = jwt.NewParser().ParseUnverified(accessToken, &claims)
	return claims
}

func (p *Provider) ValidateSession(ctx context.Context, token string) (auth.ValidateResult, error) {
	s, ok := p.open(token)
	if !ok {
		return auth.ValidateResult{}, nil
	}
	idToken, err := p.verifier.Verify(ctx, s.AccessToken)
	var expired *oidc.TokenExpiredError
	if errors.As(err, &expired) {
		return auth.ValidateResult{ShouldRefresh: s.RefreshToken != ""}, nil
	}
	if err != nil {
		log.Debug().Err(err).Msg("access token rejected")
		return auth.ValidateResult{}, nil
	}
	var claims accessClaims
	if err := idToken.Claims(&claims); err != nil {
		return auth.ValidateResult{}, nil
	}
	return auth.ValidateResult{
		IsValid:       true,
		ShouldRefresh: s.RefreshToken != "" && idToken.Expiry.Sub(p.now()) < refreshLeeway,
		UserID:        idToken.Subject,
		OrgID:         claims.OrgID,
		Role:          claims.Role,
		Impersonator:  claims.Act,
	}, nil
}

func (p *Provider) RefreshSession(ctx context.Context, token string) (auth.RefreshResult, error) {
	s, ok := p.open(token)
	if !ok || s.RefreshToken == "" {
		return auth.RefreshResult{}, autherrors.New(autherrors.SessionExpired, "no refreshable session")
	}
	return p.refresh(ctx, s, peek(s.AccessToken).OrgID)
}

// SwitchOrg re-scopes the session by refreshing it into the target organization.
func (p *Provider) SwitchOrg(ctx context.Context, sessionToken, orgID string) (auth.RefreshResult, error) {
	s, ok := p.open(sessionToken)
	if !ok || s.RefreshToken == "" {
		return auth.RefreshResult{}, autherrors.New(autherrors.SessionExpired, "no session")
	}
	if orgID == "" {
		return auth.RefreshResult{}, autherrors.New(autherrors.MissingRequiredFields, "organization is required")
	}
	return p.refresh(ctx, s, orgID)
}

func (p *Provider) refresh(ctx context.Context, s sealedSession, orgID string) (auth.RefreshResult, error) {
	resp, err := p.grant(ctx, authenticateRequest{
		GrantType:      grantRefreshToken,
		RefreshToken:   s.RefreshToken,
		OrganizationID: orgID,
	})
	if err != nil {
		err = translate(err, "refresh session")
		if autherrors.HasCode(err, autherrors.InvalidCode) {
			return auth.RefreshResult{}, autherrors.Wrap(err, autherrors.SessionExpired, "refresh token rejected")
		}
		return auth.RefreshResult{}, err
	}
	session, err := p.sessionFrom(resp)
	if err != nil {
		return auth.RefreshResult{}, err
	}
	return auth.RefreshResult{
		NewToken:     session.Token,
		ExpiresAt:    session.ExpiresAt,
		Session:      session,
		Impersonator: session.Impersonator,
	}, nil
}

func (p *Provider) ExchangePendingSession(ctx context.Context, pendingToken, orgID string) (auth.SessionToken, error) {
	step, err := p.openPending(pendingToken)
	if err != nil {
		return auth.SessionToken{}, err
	}
	if orgID == "" {
		return auth.SessionToken{}, autherrors.New(autherrors.MissingRequiredFields, "organization is required")
	}
	resp, err := p.grant(ctx, authenticateRequest{
		GrantType:                  grantOrgSelection,
		PendingAuthenticationToken: step.Token,
		OrganizationID:             orgID,
	})
	if err != nil {
		return auth.SessionToken{}, translate(err, "select organization")
	}
	return p.sessionFrom(resp)
}

func (p *Provider) SignOut(ctx context.Context, sessionToken string) error {
	s, ok := p.open(sessionToken)
	if !ok {
		return nil
	}
	sid := peek(s.AccessToken).SessionID
	if sid == "" {
		return nil
	}
	err := p.do(ctx, http.MethodPost, "/v1/sessions/revoke", nil, map[string]string{"session_id": sid}, nil)
	return translate(err, "revoke session")
}

// GetSignOutURL points at the service's logout page, which ends its own session too.
func (p *Provider) GetSignOutURL(_ context.Context, sessionToken string) (string, error) {
	s, ok := p.open(sessionToken)
	if !ok {
		return "", nil
	}
	sid := peek(s.AccessToken).SessionID
	if sid == "" {
		return "", nil
	}
	return p.cfg.APIURL + "/v1/sessions/logout?" + url.Values{"session_id": {sid}}.Encode(), nil
}

// sessionFrom seals the tokens of a successful authentication into a cookie value.
func (p *Provider) sessionFrom(resp authenticateResponse) (auth.SessionToken, error) {
	sealed, err := p.seal.Encode(sealName, sealedSession{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken})
	if err != nil {
		return auth.SessionToken{}, autherrors.Wrap(err, autherrors.Unknown, "seal session")
	}
	claims := peek(resp.AccessToken)
	orgID := resp.OrganizationID
	if orgID == "" {
		orgID = claims.OrgID
	}
	impersonator := resp.Impersonator
	if impersonator == nil {
		impersonator = claims.Act
	}
	return auth.SessionToken{
		Token:        sealed,
		SessionID:    claims.SessionID,
		UserID:       resp.User.ID,
		OrgID:        orgID,
		Role:         claims.Role,
		ExpiresAt:    p.now().Add(p.cfg.SessionTTL),
		Impersonator: impersonator,
	}, nil
}
