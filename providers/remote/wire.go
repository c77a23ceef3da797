package remote

import (
	"time"

	"github.com/jrsteele09/dashboard-auth/invitations"
	"github.com/jrsteele09/dashboard-auth/memberships"
	"github.com/jrsteele09/dashboard-auth/tenants"
	"github.com/jrsteele09/dashboard-auth/users"
)

type apiUser struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	FirstName         string    `json:"first_name"`
	LastName          string    `json:"last_name"`
	ProfilePictureURL string    `json:"profile_picture_url"`
	EmailVerified     bool      `json:"email_verified"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (u apiUser) toUser() users.User {
	return users.User{
		ID:            u.ID,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		AvatarURL:     u.ProfilePictureURL,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

type apiOrganization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (o apiOrganization) toOrganization() tenants.Organization {
	return tenants.Organization{ID: o.ID, Name: o.Name, CreatedAt: o.CreatedAt, UpdatedAt: o.UpdatedAt}
}

type apiRole struct {
	Slug string `json:"slug"`
}

type apiMembership struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	OrganizationID   string    `json:"organization_id"`
	OrganizationName string    `json:"organization_name"`
	Role             apiRole   `json:"role"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (m apiMembership) toMembership() memberships.Membership {
	out := memberships.Membership{
		ID:             m.ID,
		UserID:         m.UserID,
		OrganizationID: m.OrganizationID,
		Role:           m.Role.Slug,
		Status:         memberships.Status(m.Status),
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	if m.OrganizationName != "" {
		out.Organization = &tenants.Organization{ID: m.OrganizationID, Name: m.OrganizationName}
	}
	return out
}

type apiInvitation struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	State          string     `json:"state"`
	RoleSlug       string     `json:"role_slug"`
	OrganizationID string     `json:"organization_id"`
	InviterUserID  string     `json:"inviter_user_id"`
	Token          string     `json:"token"`
	ExpiresAt      time.Time  `json:"expires_at"`
	AcceptedAt     *time.Time `json:"accepted_at"`
	RevokedAt      *time.Time `json:"revoked_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (i apiInvitation) toInvitation(now time.Time) invitations.Invitation {
	inv := invitations.Invitation{
		ID:             i.ID,
		Email:          i.Email,
		State:          invitations.State(i.State),
		Role:           i.RoleSlug,
		OrganizationID: i.OrganizationID,
		InviterUserID:  i.InviterUserID,
		Token:          i.Token,
		ExpiresAt:      i.ExpiresAt,
		AcceptedAt:     i.AcceptedAt,
		RevokedAt:      i.RevokedAt,
		CreatedAt:      i.CreatedAt,
		UpdatedAt:      i.UpdatedAt,
	}
	inv.State = inv.EffectiveState(now)
	return inv
}

type list[T any] struct {
	Data []T `json:"data"`
}

// authenticateRequest is the body of POST /v1/auth/authenticate for every grant type.
type authenticateRequest struct {
	ClientID                   string `json:"client_id"`
	ClientSecret               string `json:"client_secret"`
	GrantType                  string `json:"grant_type"`
	Code                       string `json:"code,omitempty"`
	Email                      string `json:"email,omitempty"`
	RefreshToken               string `json:"refresh_token,omitempty"`
	OrganizationID             string `json:"organization_id,omitempty"`
	PendingAuthenticationToken string `json:"pending_authentication_token,omitempty"`
	InvitationToken            string `json:"invitation_token,omitempty"`
}

const (
	grantEmailCode         = "urn:identity:oauth:grant-type:email-code"
	grantEmailVerification = "urn:identity:oauth:grant-type:email-verification:code"
	grantOrgSelection      = "urn:identity:oauth:grant-type:organization-selection"
	grantRefreshToken      = "refresh_token"
	grantAuthorizationCode = "authorization_code"
)

type authenticateResponse struct {
	User           apiUser             `json:"user"`
	OrganizationID string              `json:"organization_id"`
	AccessToken    string              `json:"access_token"`
	RefreshToken   string              `json:"refresh_token"`
	Impersonator   *users.Impersonator `json:"impersonator"`
}
