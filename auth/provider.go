package auth

import (
	"context"
	"time"

	"github.com/jrsteele09/dashboard-auth/invitations"
	"github.com/jrsteele09/dashboard-auth/memberships"
	"github.com/jrsteele09/dashboard-auth/tenants"
	"github.com/jrsteele09/dashboard-auth/users"
)

// RequestMeta is what the caller knows about the request that started an email sign-in.
type RequestMeta struct {
	IPAddress   string
	UserAgent   string
	BypassRadar bool
}

type SignUpData struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// EmailAuthResult reports that a one-time code was sent.
type EmailAuthResult struct {
	UserID string
	Email  string
}

type ValidateResult struct {
	IsValid       bool
	ShouldRefresh bool
	UserID        string
	OrgID         string
	Role          string
	Impersonator  *users.Impersonator
}

// SessionToken is a full session as issued by a backend. Token is the cookie value;
// SessionID is the backend's own identifier and must not be used in its place.
type SessionToken struct {
	Token        string
	SessionID    string
	UserID       string
	OrgID        string
	Role         string
	ExpiresAt    time.Time
	Impersonator *users.Impersonator
}

type RefreshResult struct {
	NewToken     string
	ExpiresAt    time.Time
	Session      SessionToken
	Impersonator *users.Impersonator
}

// PendingSession carries identity between sign-in steps. It never admits requests.
type PendingSession struct {
	Token     string
	ExpiresAt time.Time
}

// Authentication is the outcome of a successful identity proof. Backends set Session when
// they already resolved the organization and Pending when a further step is needed or the
// organization is still open. Organizations lists the user's candidate organizations.
type Authentication struct {
	User          users.User
	Organizations []tenants.Organization
	Session       *SessionToken
	Pending       *PendingSession
}

type OAuthOptions struct {
	Provider    string
	RedirectURI string
}

type OAuthCallback struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

type InviteRequest struct {
	OrgID         string
	Email         string
	Role          string
	InviterUserID string
}

type SessionProvider interface {
	ValidateSession(ctx context.Context, token string) (ValidateResult, error)
	RefreshSession(ctx context.Context, token string) (RefreshResult, error)
	ExchangePendingSession(ctx context.Context, pendingToken, orgID string) (SessionToken, error)
	SwitchOrg(ctx context.Context, sessionToken, orgID string) (RefreshResult, error)
	SignOut(ctx context.Context, sessionToken string) error
	// GetSignOutURL returns "" when the backend has no hosted sign-out page.
	GetSignOutURL(ctx context.Context, sessionToken string) (string, error)
}

type EmailAuthProvider interface {
	SignUpViaEmail(ctx context.Context, data SignUpData, meta RequestMeta) (EmailAuthResult, error)
	SignInViaEmail(ctx context.Context, email string, meta RequestMeta) (EmailAuthResult, error)
	VerifyAuthCode(ctx context.Context, email, code, invitationToken string) (Authentication, error)
	VerifyEmail(ctx context.Context, code, pendingToken string) (Authentication, error)
	ResendAuthCode(ctx context.Context, email string) (EmailAuthResult, error)
}

// PendingProvider reads back an unfinished sign-in so the caller can render its next step.
type PendingProvider interface {
	// GetPendingAuthentication fails with PendingSessionExpired when the token is unknown,
	// expired or already exchanged. Session is never set on the result.
	GetPendingAuthentication(ctx context.Context, pendingToken string) (Authentication, error)
}

type OAuthProvider interface {
	SignInViaOAuth(ctx context.Context, options OAuthOptions) (string, error)
	CompleteOAuthSignIn(ctx context.Context, callback OAuthCallback) (Authentication, error)
}

type TenantProvider interface {
	CreateTenant(ctx context.Context, name, userID string) (string, error)
	// GetOrg fails with NotFound when the organization is absent or userID is not a member.
	GetOrg(ctx context.Context, orgID, userID string) (*tenants.Organization, error)
	UpdateOrg(ctx context.Context, orgID, name string) (*tenants.Organization, error)
	// GetUser returns nil, nil when no such user exists.
	GetUser(ctx context.Context, userID string) (*users.User, error)
}

type MembershipProvider interface {
	ListMemberships(ctx context.Context, userID string) ([]memberships.Membership, error)
	GetOrganizationMemberList(ctx context.Context, orgID string) ([]memberships.Membership, error)
	UpdateMembership(ctx context.Context, id, role string) (*memberships.Membership, error)
	RemoveMembership(ctx context.Context, id string) error
	DeactivateMembership(ctx context.Context, id string) (*memberships.Membership, error)
}

type InvitationProvider interface {
	InviteMember(ctx context.Context, req InviteRequest) (*invitations.Invitation, error)
	// GetInvitationList returns pending and expired invitations only.
	GetInvitationList(ctx context.Context, orgID string) ([]invitations.Invitation, error)
	// GetInvitation returns nil, nil when no invitation carries the token.
	GetInvitation(ctx context.Context, token string) (*invitations.Invitation, error)
	RevokeOrgInvitation(ctx context.Context, id string) (*invitations.Invitation, error)
	AcceptInvitation(ctx context.Context, id string) (*invitations.Invitation, error)
}

// Provider is the full capability set every identity backend implements. Operations a
// backend cannot support fail with the Unsupported code. Every error returned carries a
// canonical code from internal/errors.
type Provider interface {
	Name() string
	SessionProvider
	EmailAuthProvider
	PendingProvider
	OAuthProvider
	TenantProvider
	MembershipProvider
	InvitationProvider
}
