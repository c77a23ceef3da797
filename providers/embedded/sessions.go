package embedded

import (
	"context"

	"github.com/google/uuid"
	"github.com/jrsteele09/dashboard-auth/auth"
	autherrors "github.com/jrsteele09/dashboard-auth/internal/errors"
	"github.com/jrsteele09/dashboard-auth/memberships"
	"github.com/jrsteele09/dashboard-auth/sessions"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

func (p *Provider) ValidateSession(ctx context.Context, token string) (auth.ValidateResult, error) {
	if token == "" {
		return auth.ValidateResult{}, nil
	}
	s, err := p.repos.Sessions.Get(ctx, sessions.HashToken(token))
	if errors.Is(err, sessions.ErrNotFound) {
		return auth.ValidateResult{}, nil
	}
	if err != nil {
		return auth.ValidateResult{}, translate(err, "load session")
	}
	now := p.now()
	if s.IsPending() || s.Expired(now) {
		return auth.ValidateResult{}, nil
	}
	return auth.ValidateResult{
		IsValid:       true,
		ShouldRefresh: s.ExpiresAt.Sub(now) < p.settings.RefreshWindow,
		UserID:        s.UserID,
		OrgID:         s.OrganizationID,
		Role:          s.Role,
		Impersonator:  s.Impersonator,
	}, nil
}

// RefreshSession extends a live full session in place. The token does not change.
func (p *Provider) RefreshSession(ctx context.Context, token string) (auth.RefreshResult, error) {
	s, err := p.fullSession(ctx, token)
	if err != nil {
		return auth.RefreshResult{}, err
	}
	if s.OrganizationID != "" {
		m, err := p.activeMembership(ctx, s.UserID, s.OrganizationID)
		if err != nil {
			_ = p.repos.Sessions.Delete(ctx, s.TokenHash)
			return auth.RefreshResult{}, autherrors.Wrap(err, autherrors.SessionExpired, "membership no longer active")
		}
		s.Role = m.Role
	}
	s.ExpiresAt = p.now().Add(p.settings.SessionTTL)
	if err := p.repos.Sessions.Update(ctx, s); err != nil {
		return auth.RefreshResult{}, translate(err, "refresh session")
	}
	return refreshResult(token, s), nil
}

// ExchangePendingSession promotes the pending record to a full session. The pending
// token stays the cookie value; only the record's kind, scope and expiry change.
func (p *Provider) ExchangePendingSession(ctx context.Context, pendingToken, orgID string) (auth.SessionToken, error) {
	s, err := p.pendingSession(ctx, pendingToken)
	if err != nil {
		return auth.SessionToken{}, err
	}
	user, err := p.repos.Users.GetByID(ctx, s.UserID)
	if err != nil {
		return auth.SessionToken{}, translate(err, "load session user")
	}
	if !user.EmailVerified {
		return auth.SessionToken{}, autherrors.New(autherrors.EmailVerificationRequired, "email not verified")
	}

	s.Role = ""
	if orgID != "" {
		m, err := p.activeMembership(ctx, s.UserID, orgID)
		if err != nil {
			return auth.SessionToken{}, err
		}
		s.Role = m.Role
	}
	s.Kind = sessions.KindFull
	s.OrganizationID = orgID
	s.ExpiresAt = p.now().Add(p.settings.SessionTTL)
	if err := p.repos.Sessions.Update(ctx, s); err != nil {
		return auth.SessionToken{}, translate(err, "promote pending session")
	}
	return sessionToken(pendingToken, s), nil
}

func (p *Provider) SwitchOrg(ctx context.Context, sessionToken, orgID string) (auth.RefreshResult, error) {
	s, err := p.fullSession(ctx, sessionToken)
	if err != nil {
		return auth.RefreshResult{}, err
	}
	m, err := p.activeMembership(ctx, s.UserID, orgID)
	if err != nil {
		return auth.RefreshResult{}, err
	}
	s.OrganizationID = orgID
	s.Role = m.Role
	s.ExpiresAt = p.now().Add(p.settings.SessionTTL)
	if err := p.repos.Sessions.Update(ctx, s); err != nil {
		return auth.RefreshResult{}, translate(err, "switch organization")
	}
	return refreshResult(sessionToken, s), nil
}

func (p *Provider) SignOut(ctx context.Context, sessionToken string) error {
	if sessionToken == "" {
		return nil
	}
	return translate(p.repos.Sessions.Delete(ctx, sessions.HashToken(sessionToken)), "delete session")
}

func (p *Provider) GetSignOutURL(context.Context, string) (string, error) {
	return "", nil
}

// createPendingSession issues a new pending session for userID and returns its token.
func (p *Provider) createPendingSession(ctx context.Context, userID string) (*auth.PendingSession, error) {
	token, err := sessions.NewToken()
	if err != nil {
		return nil, translate(err, "generate session token")
	}
	now := p.now()
	s := &sessions.Session{
		ID:        "sess_" + uuid.New().String(),
		TokenHash: sessions.HashToken(token),
		Kind:      sessions.KindPending,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(p.settings.PendingTTL),
	}
	if err := p.repos.Sessions.Create(ctx, s); err != nil {
		return nil, translate(err, "store pending session")
	}
	log.Debug().Str("session", s.ID).Str("user", userID).Msg("pending session issued")
	return &auth.PendingSession{Token: token, ExpiresAt: s.ExpiresAt}, nil
}

func (p *Provider) pendingSession(ctx context.Context, token string) (*sessions.Session, error) {
	if token == "" {
		return nil, autherrors.New(autherrors.PendingSessionExpired, "no pending session")
	}
	s, err := p.repos.Sessions.Get(ctx, sessions.HashToken(token))
	if errors.Is(err, sessions.ErrNotFound) {
		return nil, autherrors.Wrap(err, autherrors.PendingSessionExpired, "pending session not found")
	}
	if err != nil {
		return nil, translate(err, "load pending session")
	}
	if !s.IsPending() || s.Expired(p.now()) {
		return nil, autherrors.New(autherrors.PendingSessionExpired, "pending session expired")
	}
	return s, nil
}

func (p *Provider) fullSession(ctx context.Context, token string) (*sessions.Session, error) {
	if token == "" {
		return nil, autherrors.New(autherrors.SessionExpired, "no session")
	}
	s, err := p.repos.Sessions.Get(ctx, sessions.HashToken(token))
	if err != nil {
		return nil, translate(err, "load session")
	}
	if s.IsPending() || s.Expired(p.now()) {
		return nil, autherrors.New(autherrors.SessionExpired, "session expired")
	}
	return s, nil
}

func (p *Provider) activeMembership(ctx context.Context, userID, orgID string) (*memberships.Membership, error) {
	m, err := p.repos.Memberships.GetByUserAndOrg(ctx, userID, orgID)
	if err != nil {
		return nil, translate(err, "not a member of the organization")
	}
	if !m.IsActive() {
		return nil, autherrors.New(autherrors.NotFound, "membership is not active")
	}
	return m, nil
}

func sessionToken(token string, s *sessions.Session) auth.SessionToken {
	return auth.SessionToken{
		Token:        token,
		SessionID:    s.ID,
		UserID:       s.UserID,
		OrgID:        s.OrganizationID,
		Role:         s.Role,
		ExpiresAt:    s.ExpiresAt,
		Impersonator: s.Impersonator,
	}
}

func refreshResult(token string, s *sessions.Session) auth.RefreshResult {
	return auth.RefreshResult{
		NewToken:     token,
		ExpiresAt:    s.ExpiresAt,
		Session:      sessionToken(token, s),
		Impersonator: s.Impersonator,
	}
}
