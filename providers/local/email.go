package local

import (
	"context"
	"net/url"

	"github.com/jrsteele09/dashboard-auth/auth"
	autherrors "github.com/jrsteele09/dashboard-auth/internal/errors"
	"github.com/jrsteele09/dashboard-auth/tenants"
	"github.com/jrsteele09/dashboard-auth/users"
	"github.com/rs/zerolog/log"
)

// SignUpViaEmail never creates anyone: the only account already exists.
func (p *Provider) SignUpViaEmail(_ context.Context, data auth.SignUpData, _ auth.RequestMeta) (auth.EmailAuthResult, error) {
	data = auth.NormalizeSignUp(data)
	if err := auth.ValidateSignUp(data); err != nil {
		return auth.EmailAuthResult{}, err
	}
	if data.Email == UserEmail {
		return auth.EmailAuthResult{}, autherrors.New(autherrors.EmailAlreadyExists, "local user already exists")
	}
	return auth.EmailAuthResult{}, autherrors.New(autherrors.Unsupported, "local backend has a single user")
}

func (p *Provider) SignInViaEmail(_ context.Context, email string, _ auth.RequestMeta) (auth.EmailAuthResult, error) {
	return p.sendCode(email)
}

func (p *Provider) ResendAuthCode(_ context.Context, email string) (auth.EmailAuthResult, error) {
	return p.sendCode(email)
}

func (p *Provider) sendCode(email string) (auth.EmailAuthResult, error) {
	email = users.NormalizeEmail(email)
	if err := auth.ValidateEmail(email); err != nil {
		return auth.EmailAuthResult{}, err
	}
	if email != UserEmail {
		return auth.EmailAuthResult{}, autherrors.New(autherrors.AccountNotFound, "no account for email")
	}
	log.Info().Str("email", email).Str("code", p.cfg.Code).Msg("local sign-in code")
	return auth.EmailAuthResult{UserID: UserID, Email: UserEmail}, nil
}

// VerifyAuthCode ignores invitation tokens; the local backend has no invitations.
func (p *Provider) VerifyAuthCode(_ context.Context, email, code, _ string) (auth.Authentication, error) {
	if users.NormalizeEmail(email) != UserEmail || code != p.cfg.Code {
		return auth.Authentication{}, autherrors.New(autherrors.InvalidCode, "invalid code")
	}
	return p.pendingAuthentication()
}

// VerifyEmail fails with Unsupported for a live pending token because the local user is
// always verified.
func (p *Provider) VerifyEmail(_ context.Context, _, pendingToken string) (auth.Authentication, error) {
	if _, expired, ok := p.parse(pendingToken, kindPending); !ok || expired {
		return auth.Authentication{}, autherrors.New(autherrors.PendingSessionExpired, "pending session expired")
	}
	return auth.Authentication{}, autherrors.New(autherrors.Unsupported, "local user is already verified")
}

func (p *Provider) GetPendingAuthentication(_ context.Context, pendingToken string) (auth.Authentication, error) {
	c, expired, ok := p.parse(pendingToken, kindPending)
	if !ok || expired {
		return auth.Authentication{}, autherrors.New(autherrors.PendingSessionExpired, "pending session expired")
	}
	return auth.Authentication{
		User:          p.user,
		Organizations: []tenants.Organization{p.org},
		Pending:       &auth.PendingSession{Token: pendingToken, ExpiresAt: c.exp},
	}, nil
}

// SignInViaOAuth skips any identity provider and sends the browser straight back to the
// callback with the fixed code.
func (p *Provider) SignInViaOAuth(_ context.Context, options auth.OAuthOptions) (string, error) {
	if options.RedirectURI == "" {
		return "", autherrors.New(autherrors.MissingRequiredFields, "redirect uri is required")
	}
	target, err := url.Parse(options.RedirectURI)
	if err != nil {
		return "", autherrors.Wrap(err, autherrors.MissingRequiredFields, "invalid redirect uri")
	}
	query := target.Query()
	query.Set("code", p.cfg.Code)
	query.Set("state", options.Provider)
	target.RawQuery = query.Encode()
	return target.String(), nil
}

func (p *Provider) CompleteOAuthSignIn(_ context.Context, callback auth.OAuthCallback) (auth.Authentication, error) {
	if callback.Error != "" {
		return auth.Authentication{}, autherrors.New(autherrors.Unknown, callback.Error)
	}
	if callback.Code != p.cfg.Code {
		return auth.Authentication{}, autherrors.New(autherrors.InvalidCode, "invalid code")
	}
	return p.pendingAuthentication()
}

// pendingAuthentication leaves the organization open so the caller picks it.
func (p *Provider) pendingAuthentication() (auth.Authentication, error) {
	signed, c, err := p.issue(kindPending, "", p.cfg.PendingTTL)
	if err != nil {
		return auth.Authentication{}, err
	}
	return auth.Authentication{
		User:          p.user,
		Organizations: []tenants.Organization{p.org},
		Pending:       &auth.PendingSession{Token: signed, ExpiresAt: c.exp},
	}, nil
}
