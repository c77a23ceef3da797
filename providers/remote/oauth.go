package remote

import (
	"context"
	"net/url"

	"github.com/jrsteele09/dashboard-auth/auth"
	autherrors "github.com/jrsteele09/dashboard-auth/internal/errors"
)

// SignInViaOAuth returns the service's hosted authorization URL for options.Provider.
func (p *Provider) SignInViaOAuth(_ context.Context, options auth.OAuthOptions) (string, error) {
	if options.Provider == "" || options.RedirectURI == "" {
		return "", autherrors.New(autherrors.MissingRequiredFields, "provider and redirect uri are required")
	}
	query := url.Values{
		"client_id":     {p.cfg.ClientID},
		"provider":      {options.Provider},
		"redirect_uri":  {options.RedirectURI},
		"response_type": {"code"},
	}
	return p.cfg.APIURL + "/v1/auth/authorize?" + query.Encode(), nil
}

func (p *Provider) CompleteOAuthSignIn(ctx context.Context, callback auth.OAuthCallback) (auth.Authentication, error) {
	if callback.Error != "" {
		return auth.Authentication{}, autherrors.New(autherrors.Unknown, callback.Error+": "+callback.ErrorDescription)
	}
	if callback.Code == "" {
		return auth.Authentication{}, autherrors.New(autherrors.MissingRequiredFields, "code is required")
	}
	return p.authenticate(ctx, authenticateRequest{GrantType: grantAuthorizationCode, Code: callback.Code})
}
