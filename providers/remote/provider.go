// Package remote adapts a hosted identity service's REST API to the provider contract.
// Full sessions are the service's access and refresh tokens sealed into one cookie value,
// pending sessions the service's pending token with the step it asked for. Access tokens are verified locally against the service's published keys.
package remote

import (
	"context"
	"crypto/sha256"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gorilla/securecookie"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/jrsteele09/dashboard-auth/auth"
	"github.com/pkg/errors"
)

const (
	Name = "remote"

	// pendingTTL is how long the service honours a pending authentication token.
	pendingTTL = 10 * time.Minute
	// refreshLeeway is how close to expiry an access token is renewed.
	refreshLeeway = time.Minute
	sealName        = "session"
	pendingSealName = "pending"

	stepOrgSelection      = "organization_selection_required"
	stepEmailVerification = "email_verification_required"
)

var _ auth.Provider = (*Provider)(nil)

// Config carries the hosted service's coordinates and credentials.
type Config struct {
	APIURL   string
	APIKey   string
	ClientID string
	// Issuer is the iss claim of access tokens. Defaults to APIURL.
	Issuer string
	// JWKSURL defaults to APIURL + "/sso/jwks/" + ClientID.
	JWKSURL        string
	CookiePassword string
	SessionTTL     time.Duration
}

// ConfigSource is satisfied by the application config.
type ConfigSource interface {
	GetRemoteAPIURL() string
	GetRemoteAPIKey() string
	GetRemoteClientID() string
	GetRemoteIssuer() string
	GetCookiePassword() string
	GetSessionTTL() time.Duration
}

func ConfigFrom(src ConfigSource) Config {
	return Config{
		APIURL:         src.GetRemoteAPIURL(),
		APIKey:         src.GetRemoteAPIKey(),
		ClientID:       src.GetRemoteClientID(),
		Issuer:         src.GetRemoteIssuer(),
		CookiePassword: src.GetCookiePassword(),
		SessionTTL:     src.GetSessionTTL(),
	}
}

type Provider struct {
	cfg      Config
	client   *retryablehttp.Client
	seal     *securecookie.SecureCookie
	verifier *oidc.IDTokenVerifier
	nowTime  func() time.Time
}

type Option func(*Provider)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(now func() time.Time) Option {
	return func(p *Provider) {
		p.nowTime = now
	}
}

// WithRetry overrides the retry policy of the API client.
func WithRetry(max int, waitMin, waitMax time.Duration) Option {
	return func(p *Provider) {
		p.client.RetryMax = max
		p.client.RetryWaitMin = waitMin
		p.client.RetryWaitMax = waitMax
	}
}

func New(ctx context.Context, cfg Config, opts ...Option) (*Provider, error) {
	if cfg.APIURL == "" || cfg.APIKey == "" || cfg.ClientID == "" {
		return nil, errors.New("[remote.New] api url, api key and client id are required")
	}
	if len(cfg.CookiePassword) < 32 {
		return nil, errors.New("[remote.New] cookie password must be at least 32 characters")
	}
	if cfg.Issuer == "" {
		cfg.Issuer = cfg.APIURL
	}
	if cfg.JWKSURL == "" {
		cfg.JWKSURL = cfg.APIURL + "/sso/jwks/" + cfg.ClientID
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 7 * 24 * time.Hour
	}

	p := &Provider{
		cfg:     cfg,
		client:  newAPIClient(),
		seal:    newSeal(cfg.CookiePassword, cfg.SessionTTL),
		nowTime: time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	keys := oidc.NewRemoteKeySet(oidc.ClientContext(ctx, p.client.StandardClient()), cfg.JWKSURL)
	p.verifier = oidc.NewVerifier(cfg.Issuer, keys, &oidc.Config{
		SkipClientIDCheck: true,
		Now:               p.now,
	})
	return p, nil
}

func newSeal(password string, ttl time.Duration) *securecookie.SecureCookie {
	hashKey := sha256.Sum256([]byte("hash:" + password))
	blockKey := sha256.Sum256([]byte("block:" + password))
	s := securecookie.New(hashKey[:], blockKey[:])
	s.SetSerializer(securecookie.JSONEncoder{})
	s.MaxAge(int(ttl.Seconds()))
	return s
}

func (p *Provider) Name() string {
	return Name
}

func (p *Provider) now() time.Time {
	return p.nowTime()
}
