package embedded

import (
	"context"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/dashboard-auth/internal/config"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// OIDCExchanger is an IdentityExchanger for any OpenID Connect provider.
type OIDCExchanger struct {
	oauth2Config *oauth2.Config
	verifier     *oidc.IDTokenVerifier
}

// NewOIDCExchanger discovers the provider's endpoints from its issuer URL.
func NewOIDCExchanger(ctx context.Context, cfg config.OAuthProvider, redirectURL string) (*OIDCExchanger, error) {
	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, errors.Wrapf(err, "discover %s", cfg.Name)
	}
	return &OIDCExchanger{
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  redirectURL,
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

func (e *OIDCExchanger) config(redirectURI string) *oauth2.Config {
	if redirectURI == "" {
		return e.oauth2Config
	}
	c := *e.oauth2Config
	c.RedirectURL = redirectURI
	return &c
}

func (e *OIDCExchanger) AuthCodeURL(state, nonce, verifier, redirectURI string) string {
	return e.config(redirectURI).AuthCodeURL(state, oidc.Nonce(nonce), oauth2.S256ChallengeOption(verifier))
}

func (e *OIDCExchanger) Exchange(ctx context.Context, code, verifier, nonce, redirectURI string) (Identity, error) {
	token, err := e.config(redirectURI).Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return Identity{}, err
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return Identity{}, errors.New("no id_token in token response")
	}
	idToken, err := e.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return Identity{}, errors.Wrap(err, "verify id token")
	}

	var claims struct {
		Nonce         string `json:"nonce"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		GivenName     string `json:"given_name"`
		FamilyName    string `json:"family_name"`
		Picture       string `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return Identity{}, errors.Wrap(err, "decode id token claims")
	}
	if claims.Nonce != nonce {
		return Identity{}, errors.New("id token nonce mismatch")
	}
	return Identity{
		Subject:       idToken.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		FirstName:     claims.GivenName,
		LastName:      claims.FamilyName,
		AvatarURL:     claims.Picture,
	}, nil
}
