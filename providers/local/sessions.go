package local

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/dashboard-auth/auth"
	autherrors "github.com/jrsteele09/dashboard-auth/internal/errors"
	"github.com/jrsteele09/dashboard-auth/memberships"
	"github.com/jrsteele09/dashboard-auth/token"
	"github.com/pkg/errors"
)

const refreshWindow = 24 * time.Hour

type claims struct {
	jti   string
	kind  string
	orgID string
	exp   time.Time
}

func (p *Provider) issue(kind, orgID string, ttl time.Duration) (string, claims, error) {
	c := claims{jti: uuid.NewString(), kind: kind, orgID: orgID, exp: p.now().Add(ttl)}
	mapClaims := jwt.MapClaims{
		"sub":  UserID,
		"kind": kind,
		"jti":  c.jti,
		"iat":  p.now().Unix(),
		"exp":  c.exp.Unix(),
	}
	if orgID != "" {
		mapClaims["org_id"] = orgID
		mapClaims["role"] = memberships.RoleAdmin
	}
	signed, err := p.signer.Sign(mapClaims)
	if err != nil {
		return "", claims{}, autherrors.Wrap(err, autherrors.Unknown, "sign token")
	}
	return signed, c, nil
}

// parse verifies a token of the given kind. expired reports a genuine token whose exp
// has passed; ok is false for anything else that is not usable.
func (p *Provider) parse(raw, kind string) (c claims, expired, ok bool) {
	if raw == "" {
		return claims{}, false, false
	}
	mapClaims, err := p.signer.Verify(raw)
	expired = errors.Is(err, token.ErrExpired)
	if err != nil && !expired {
		return claims{}, false, false
	}
	c.jti, _ = mapClaims["jti"].(string)
	c.kind, _ = mapClaims["kind"].(string)
	c.orgID, _ = mapClaims["org_id"].(string)
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		c.exp = exp.Time
	}
	sub, _ := mapClaims["sub"].(string)
	if sub != UserID || c.kind != kind || c.jti == "" || p.revoked.IsRevoked(c.jti) {
		return claims{}, false, false
	}
	return c, expired, true
}

func (p *Provider) session(orgID string) (auth.SessionToken, error) {
	signed, c, err := p.issue(kindSession, orgID, p.cfg.SessionTTL)
	if err != nil {
		return auth.SessionToken{}, err
	}
	session := auth.SessionToken{
		Token:     signed,
		SessionID: c.jti,
		UserID:    UserID,
		OrgID:     orgID,
		ExpiresAt: c.exp,
	}
	if orgID != "" {
		session.Role = memberships.RoleAdmin
	}
	return session, nil
}

// ValidateSession asks for a refresh once a session enters its last refreshWindow.
// Expired sessions are not renewed.
func (p *Provider) ValidateSession(_ context.Context, raw string) (auth.ValidateResult, error) {
	c, expired, ok := p.parse(raw, kindSession)
	if !ok || expired {
		return auth.ValidateResult{}, nil
	}
	result := auth.ValidateResult{
		IsValid:       true,
		ShouldRefresh: c.exp.Sub(p.now()) < refreshWindow,
		UserID:        UserID,
		OrgID:         c.orgID,
	}
	if c.orgID != "" {
		result.Role = memberships.RoleAdmin
	}
	return result, nil
}

func (p *Provider) RefreshSession(_ context.Context, raw string) (auth.RefreshResult, error) {
	c, expired, ok := p.parse(raw, kindSession)
	if !ok || expired {
		return auth.RefreshResult{}, autherrors.New(autherrors.SessionExpired, "no refreshable session")
	}
	return p.replace(c, c.orgID)
}

func (p *Provider) SwitchOrg(_ context.Context, raw, orgID string) (auth.RefreshResult, error) {
	c, expired, ok := p.parse(raw, kindSession)
	if !ok || expired {
		return auth.RefreshResult{}, autherrors.New(autherrors.SessionExpired, "no session")
	}
	if orgID != OrgID {
		return auth.RefreshResult{}, autherrors.New(autherrors.NotFound, "organization not found")
	}
	return p.replace(c, orgID)
}

// replace issues a new session and revokes the one it supersedes.
func (p *Provider) replace(old claims, orgID string) (auth.RefreshResult, error) {
	session, err := p.session(orgID)
	if err != nil {
		return auth.RefreshResult{}, err
	}
	p.revoked.Add(old.jti, old.exp)
	return auth.RefreshResult{NewToken: session.Token, ExpiresAt: session.ExpiresAt, Session: session}, nil
}

func (p *Provider) ExchangePendingSession(_ context.Context, pendingToken, orgID string) (auth.SessionToken, error) {
	c, expired, ok := p.parse(pendingToken, kindPending)
	if !ok || expired {
		return auth.SessionToken{}, autherrors.New(autherrors.PendingSessionExpired, "pending session expired")
	}
	if orgID != OrgID {
		return auth.SessionToken{}, autherrors.New(autherrors.NotFound, "organization not found")
	}
	session, err := p.session(orgID)
	if err != nil {
		return auth.SessionToken{}, err
	}
	p.revoked.Add(c.jti, c.exp)
	return session, nil
}

func (p *Provider) SignOut(_ context.Context, raw string) error {
	c, _, ok := p.parse(raw, kindSession)
	if !ok {
		return nil
	}
	p.revoked.Add(c.jti, c.exp)
	return nil
}

func (p *Provider) GetSignOutURL(context.Context, string) (string, error) {
	return "", nil
}
