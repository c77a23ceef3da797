// Package embedded implements the identity backend on top of this service's own stores:
// users, organizations, memberships and invitations in a relational store, sessions and
// one-time codes in Redis, and social sign-in through OpenID Connect.
package embedded

import (
	"time"

	"github.com/jrsteele09/dashboard-auth/auth"
	"github.com/jrsteele09/dashboard-auth/authflow"
	"github.com/jrsteele09/dashboard-auth/invitations"
	"github.com/jrsteele09/dashboard-auth/memberships"
	"github.com/jrsteele09/dashboard-auth/notify"
	"github.com/jrsteele09/dashboard-auth/sessions"
	"github.com/jrsteele09/dashboard-auth/tenants"
	"github.com/jrsteele09/dashboard-auth/users"
	"github.com/jrsteele09/dashboard-auth/verification"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

const Name = "embedded"

var _ auth.Provider = (*Provider)(nil)

// Repos holds all repository dependencies for the Provider
type Repos struct {
	Users       users.UserRepo
	Tenants     tenants.Repo
	Memberships memberships.Repo
	Invitations invitations.Repo
	Sessions    sessions.Repo
	Challenges  verification.Repo
	OAuthFlows  authflow.Repo
}

// Settings are the lifetimes the provider enforces.
type Settings struct {
	SessionTTL    time.Duration
	RefreshWindow time.Duration
	PendingTTL    time.Duration
	CodeTTL       time.Duration
	InvitationTTL time.Duration
	// BaseURL prefixes invitation links.
	BaseURL string
}

// SettingsSource is satisfied by the application config.
type SettingsSource interface {
	GetSessionTTL() time.Duration
	GetSessionRefreshWindow() time.Duration
	GetPendingSessionTTL() time.Duration
	GetAuthCodeTTL() time.Duration
	GetInvitationTTL() time.Duration
	GetBaseURL() string
}

func SettingsFrom(src SettingsSource) Settings {
	return Settings{
		SessionTTL:    src.GetSessionTTL(),
		RefreshWindow: src.GetSessionRefreshWindow(),
		PendingTTL:    src.GetPendingSessionTTL(),
		CodeTTL:       src.GetAuthCodeTTL(),
		InvitationTTL: src.GetInvitationTTL(),
		BaseURL:       src.GetBaseURL(),
	}
}

type Provider struct {
	repos     Repos
	sender    notify.Sender
	settings  Settings
	exchanger map[string]IdentityExchanger
	limiter   *sendLimiter
	nowTime   func() time.Time
}

type Option func(*Provider)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(now func() time.Time) Option {
	return func(p *Provider) {
		p.nowTime = now
	}
}

// WithIdentityProvider registers a social sign-in provider under name.
func WithIdentityProvider(name string, exchanger IdentityExchanger) Option {
	return func(p *Provider) {
		p.exchanger[name] = exchanger
	}
}

// WithSendRate sets how often a single address may be sent a code.
func WithSendRate(every time.Duration, burst int) Option {
	return func(p *Provider) {
		p.limiter = newSendLimiter(rate.Every(every), burst)
	}
}

func New(repos Repos, sender notify.Sender, settings Settings, opts ...Option) (*Provider, error) {
	if repos.Users == nil || repos.Tenants == nil || repos.Memberships == nil || repos.Invitations == nil {
		return nil, errors.New("[embedded.New] user, tenant, membership and invitation repos are required")
	}
	if repos.Sessions == nil || repos.Challenges == nil || repos.OAuthFlows == nil {
		return nil, errors.New("[embedded.New] session, challenge and oauth flow repos are required")
	}
	if sender == nil {
		return nil, errors.New("[embedded.New] notification sender is required")
	}
	p := &Provider{
		repos:     repos,
		sender:    sender,
		settings:  settings,
		exchanger: make(map[string]IdentityExchanger),
		limiter:   newSendLimiter(rate.Every(20*time.Second), 5),
		nowTime:   time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Provider) Name() string {
	return Name
}

func (p *Provider) now() time.Time {
	return p.nowTime().UTC()
}
