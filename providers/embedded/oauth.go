package embedded

import (
	"context"
	"net"
	"time"

	"github.com/jrsteele09/dashboard-auth/auth"
	"github.com/jrsteele09/dashboard-auth/authflow"
	autherrors "github.com/jrsteele09/dashboard-auth/internal/errors"
	"github.com/jrsteele09/dashboard-auth/sessions"
	"github.com/jrsteele09/dashboard-auth/users"
	"github.com/jrsteele09/dashboard-auth/verification"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const oauthStateTTL = 10 * time.Minute

// Identity is what an identity provider asserts about the user after a code exchange.
type Identity struct {
	Subject       string
	Email         string
	EmailVerified bool
	FirstName     string
	LastName      string
	AvatarURL     string
}

// IdentityExchanger runs the authorization-code flow against one identity provider.
type IdentityExchanger interface {
	AuthCodeURL(state, nonce, verifier, redirectURI string) string
	Exchange(ctx context.Context, code, verifier, nonce, redirectURI string) (Identity, error)
}

func (p *Provider) SignInViaOAuth(ctx context.Context, options auth.OAuthOptions) (string, error) {
	exchanger, ok := p.exchanger[options.Provider]
	if !ok {
		return "", autherrors.New(autherrors.Unsupported, "identity provider not configured: "+options.Provider)
	}
	state, err := sessions.NewToken()
	if err != nil {
		return "", translate(err, "generate state")
	}
	nonce, err := sessions.NewToken()
	if err != nil {
		return "", translate(err, "generate nonce")
	}
	flow := &authflow.State{
		Provider:     options.Provider,
		CodeVerifier: oauth2.GenerateVerifier(),
		Nonce:        nonce,
		RedirectURI:  options.RedirectURI,
		CreatedAt:    p.now(),
	}
	if err := p.repos.OAuthFlows.Put(ctx, state, flow, oauthStateTTL); err != nil {
		return "", translate(err, "store oauth state")
	}
	return exchanger.AuthCodeURL(state, flow.Nonce, flow.CodeVerifier, flow.RedirectURI), nil
}

// CompleteOAuthSignIn links the asserted identity to a user by email, creating one on
// first sign-in. An unverified address gets a verification code and a pending session.
func (p *Provider) CompleteOAuthSignIn(ctx context.Context, callback auth.OAuthCallback) (auth.Authentication, error) {
	if callback.Error != "" {
		return auth.Authentication{}, autherrors.New(autherrors.Unknown, callback.Error+": "+callback.ErrorDescription)
	}
	if callback.Code == "" || callback.State == "" {
		return auth.Authentication{}, autherrors.New(autherrors.MissingRequiredFields, "code and state are required")
	}
	flow, err := p.repos.OAuthFlows.Take(ctx, callback.State)
	if errors.Is(err, authflow.ErrNotFound) {
		return auth.Authentication{}, autherrors.Wrap(err, autherrors.PendingSessionExpired, "oauth state expired")
	}
	if err != nil {
		return auth.Authentication{}, translate(err, "load oauth state")
	}
	exchanger, ok := p.exchanger[flow.Provider]
	if !ok {
		return auth.Authentication{}, autherrors.New(autherrors.Unsupported, "identity provider not configured: "+flow.Provider)
	}
	identity, err := exchanger.Exchange(ctx, callback.Code, flow.CodeVerifier, flow.Nonce, flow.RedirectURI)
	if err != nil {
		return auth.Authentication{}, translateExchange(err)
	}
	if identity.Email == "" {
		return auth.Authentication{}, autherrors.New(autherrors.MissingRequiredFields, "identity provider returned no email")
	}

	user, err := p.linkIdentity(ctx, identity)
	if err != nil {
		return auth.Authentication{}, err
	}
	if user.EmailVerified {
		return p.authenticate(ctx, user)
	}

	pending, err := p.createPendingSession(ctx, user.ID)
	if err != nil {
		return auth.Authentication{}, err
	}
	if err := p.issueCode(ctx, verification.PurposeEmailVerification, user.ID, user); err != nil {
		return auth.Authentication{}, err
	}
	return auth.Authentication{User: *user, Pending: pending}, nil
}

func (p *Provider) linkIdentity(ctx context.Context, identity Identity) (*users.User, error) {
	email := users.NormalizeEmail(identity.Email)
	user, err := p.repos.Users.GetByEmail(ctx, email)
	if errors.Is(err, users.ErrNotFound) {
		user = &users.User{
			Email:         email,
			FirstName:     identity.FirstName,
			LastName:      identity.LastName,
			AvatarURL:     identity.AvatarURL,
			EmailVerified: identity.EmailVerified,
		}
		if err := p.repos.Users.Create(ctx, user); err != nil {
			return nil, translate(err, "create user")
		}
		log.Info().Str("user", user.ID).Msg("user created from identity provider")
		return user, nil
	}
	if err != nil {
		return nil, translate(err, "load user")
	}
	if identity.EmailVerified && !user.EmailVerified {
		if err := p.repos.Users.SetEmailVerified(ctx, user.ID, true); err != nil {
			return nil, translate(err, "mark email verified")
		}
		user.EmailVerified = true
	}
	return user, nil
}

func translateExchange(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return autherrors.Wrap(err, autherrors.Unknown, "identity provider rejected the code: "+retrieveErr.ErrorCode)
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return autherrors.Wrap(err, autherrors.NetworkError, "identity provider unreachable")
	}
	return autherrors.Wrap(err, autherrors.Unknown, "identity provider exchange failed")
}
