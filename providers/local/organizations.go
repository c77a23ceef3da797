package local

import (
	"context"

	"github.com/jrsteele09/dashboard-auth/auth"
	autherrors "github.com/jrsteele09/dashboard-auth/internal/errors"
	"github.com/jrsteele09/dashboard-auth/invitations"
	"github.com/jrsteele09/dashboard-auth/memberships"
	"github.com/jrsteele09/dashboard-auth/tenants"
	"github.com/jrsteele09/dashboard-auth/users"
)

func unsupported(operation string) error {
	return autherrors.New(autherrors.Unsupported, operation+" is not available on the local backend")
}

func (p *Provider) CreateTenant(context.Context, string, string) (string, error) {
	return "", unsupported("creating organizations")
}

func (p *Provider) GetOrg(_ context.Context, orgID, userID string) (*tenants.Organization, error) {
	if orgID != OrgID || (userID != "" && userID != UserID) {
		return nil, autherrors.New(autherrors.NotFound, "organization not found")
	}
	org := p.org
	return &org, nil
}

func (p *Provider) UpdateOrg(context.Context, string, string) (*tenants.Organization, error) {
	return nil, unsupported("renaming organizations")
}

func (p *Provider) GetUser(_ context.Context, userID string) (*users.User, error) {
	if userID != UserID {
		return nil, nil
	}
	user := p.user
	return &user, nil
}

func (p *Provider) ListMemberships(_ context.Context, userID string) ([]memberships.Membership, error) {
	if userID != UserID {
		return []memberships.Membership{}, nil
	}
	m := p.membership()
	org := p.org
	m.Organization = &org
	return []memberships.Membership{m}, nil
}

func (p *Provider) GetOrganizationMemberList(_ context.Context, orgID string) ([]memberships.Membership, error) {
	if orgID != OrgID {
		return []memberships.Membership{}, nil
	}
	m := p.membership()
	user := p.user
	m.User = &user
	return []memberships.Membership{m}, nil
}

func (p *Provider) UpdateMembership(context.Context, string, string) (*memberships.Membership, error) {
	return nil, unsupported("changing roles")
}

func (p *Provider) RemoveMembership(context.Context, string) error {
	return unsupported("removing members")
}

func (p *Provider) DeactivateMembership(context.Context, string) (*memberships.Membership, error) {
	return nil, unsupported("deactivating members")
}

func (p *Provider) InviteMember(context.Context, auth.InviteRequest) (*invitations.Invitation, error) {
	return nil, unsupported("inviting members")
}

func (p *Provider) GetInvitationList(context.Context, string) ([]invitations.Invitation, error) {
	return []invitations.Invitation{}, nil
}

func (p *Provider) GetInvitation(context.Context, string) (*invitations.Invitation, error) {
	return nil, nil
}

func (p *Provider) RevokeOrgInvitation(context.Context, string) (*invitations.Invitation, error) {
	return nil, unsupported("revoking invitations")
}

func (p *Provider) AcceptInvitation(context.Context, string) (*invitations.Invitation, error) {
	return nil, unsupported("accepting invitations")
}
