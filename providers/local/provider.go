// Package local is a single-user identity backend for local development. It knows one
// user and one organization, accepts one fixed code and signs its sessions with HMAC.
package local

import (
	"time"

	"github.com/jrsteele09/dashboard-auth/auth"
	"github.com/jrsteele09/dashboard-auth/memberships"
	"github.com/jrsteele09/dashboard-auth/tenants"
	"github.com/jrsteele09/dashboard-auth/token"
	"github.com/jrsteele09/dashboard-auth/users"
	"github.com/pkg/errors"
)

const (
	Name = "local"

	UserID    = "user_local"
	UserEmail = "dev@example.com"
	OrgID     = "org_local"
	OrgName   = "Local Workspace"

	DefaultCode = "000000"

	kindSession = "session"
	kindPending = "pending"
)

var _ auth.Provider = (*Provider)(nil)

type Config struct {
	Secret     string
	Code       string
	SessionTTL time.Duration
	PendingTTL time.Duration
}

// ConfigSource is satisfied by the application config.
type ConfigSource interface {
	GetLocalAuthSecret() string
	GetLocalAuthCode() string
	GetSessionTTL() time.Duration
	GetPendingSessionTTL() time.Duration
}

func ConfigFrom(src ConfigSource) Config {
	return Config{
		Secret:     src.GetLocalAuthSecret(),
		Code:       src.GetLocalAuthCode(),
		SessionTTL: src.GetSessionTTL(),
		PendingTTL: src.GetPendingSessionTTL(),
	}
}

type Provider struct {
	cfg     Config
	signer  token.Signer
	revoked token.RevokedTokenCache
	user    users.User
	org     tenants.Organization
	nowTime func() time.Time
}

type Option func(*Provider)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(now func() time.Time) Option {
	return func(p *Provider) {
		p.nowTime = now
	}
}

func WithRevokedTokenCache(cache token.RevokedTokenCache) Option {
	return func(p *Provider) {
		p.revoked = cache
	}
}

func New(cfg Config, opts ...Option) (*Provider, error) {
	if cfg.Secret == "" {
		return nil, errors.New("[local.New] secret is required")
	}
	if cfg.Code == "" {
		cfg.Code = DefaultCode
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 7 * 24 * time.Hour
	}
	if cfg.PendingTTL <= 0 {
		cfg.PendingTTL = 10 * time.Minute
	}
	p := &Provider{
		cfg:     cfg,
		revoked: token.NewInMemoryRevokedTokenCache(),
		nowTime: time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.signer = token.NewHMACSigner(cfg.Secret, token.WithNowTime(p.now))

	created := p.now()
	p.user = users.User{
		ID:            UserID,
		Email:         UserEmail,
		FirstName:     "Local",
		LastName:      "Developer",
		EmailVerified: true,
		CreatedAt:     created,
		UpdatedAt:     created,
	}
	p.org = tenants.Organization{ID: OrgID, Name: OrgName, CreatedAt: created, UpdatedAt: created}
	return p, nil
}

func (p *Provider) Name() string {
	return Name
}

func (p *Provider) now() time.Time {
	return p.nowTime()
}

func (p *Provider) membership() memberships.Membership {
	return memberships.Membership{
		ID:             "om_local",
		UserID:         UserID,
		OrganizationID: OrgID,
		Role:           memberships.RoleAdmin,
		Status:         memberships.StatusActive,
		CreatedAt:      p.user.CreatedAt,
		UpdatedAt:      p.user.UpdatedAt,
	}
}
