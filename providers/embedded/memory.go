package embedded

import (
	"time"

	"github.com/jrsteele09/dashboard-auth/authflow"
	invitationrepofakes "github.com/jrsteele09/dashboard-auth/invitations/repofakes"
	membershiprepofakes "github.com/jrsteele09/dashboard-auth/memberships/repofakes"
	sessionrepofakes "github.com/jrsteele09/dashboard-auth/sessions/repofakes"
	tenantrepofakes "github.com/jrsteele09/dashboard-auth/tenants/repofakes"
	fakeuserrepo "github.com/jrsteele09/dashboard-auth/users/repofake"
	verificationrepofakes "github.com/jrsteele09/dashboard-auth/verification/repofakes"
)

// NewInMemoryRepos returns process-local stores. State is lost on restart, so this is
// for development and tests only.
func NewInMemoryRepos() Repos {
	return Repos{
		Users:       fakeuserrepo.NewFakeUserRepo(),
		Tenants:     tenantrepofakes.NewFakeTenantRepo(),
		Memberships: membershiprepofakes.NewFakeMembershipRepo(),
		Invitations: invitationrepofakes.NewFakeInvitationRepo(),
		Sessions:    sessionrepofakes.NewFakeSessionRepo(),
		Challenges:  verificationrepofakes.NewFakeChallengeRepo(),
		OAuthFlows:  authflow.NewInMemoryRepo(),
	}
}

// DefaultSettings mirrors the configuration defaults.
func DefaultSettings() Settings {
	return Settings{
		SessionTTL:    7 * 24 * time.Hour,
		RefreshWindow: 24 * time.Hour,
		PendingTTL:    10 * time.Minute,
		CodeTTL:       10 * time.Minute,
		InvitationTTL: 7 * 24 * time.Hour,
		BaseURL:       "http://localhost:8080",
	}
}
