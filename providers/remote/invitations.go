package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jrsteele09/dashboard-auth/auth"
	"github.com/jrsteele09/dashboard-auth/invitations"
	"github.com/jrsteele09/dashboard-auth/memberships"
	"github.com/jrsteele09/dashboard-auth/users"
)

type inviteRequest struct {
	Email          string `json:"email"`
	OrganizationID string `json:"organization_id"`
	RoleSlug       string `json:"role_slug"`
	InviterUserID  string `json:"inviter_user_id,omitempty"`
}

// InviteMember creates the invitation; the service delivers the email itself.
func (p *Provider) InviteMember(ctx context.Context, req auth.InviteRequest) (*invitations.Invitation, error) {
	email := users.NormalizeEmail(req.Email)
	if err := auth.ValidateEmail(email); err != nil {
		return nil, err
	}
	role := req.Role
	if role == "" {
		role = memberships.RoleMember
	}
	return p.invitationCall(ctx, http.MethodPost, "/v1/invitations", inviteRequest{
		Email:          email,
		OrganizationID: req.OrgID,
		RoleSlug:       role,
		InviterUserID:  req.InviterUserID,
	})
}

func (p *Provider) GetInvitationList(ctx context.Context, orgID string) ([]invitations.Invitation, error) {
	var found list[apiInvitation]
	if err := p.do(ctx, http.MethodGet, "/v1/invitations", url.Values{"organization_id": {orgID}}, nil, &found); err != nil {
		return nil, translate(err, "list invitations")
	}
	now := p.now()
	out := make([]invitations.Invitation, 0, len(found.Data))
	for _, i := range found.Data {
		inv := i.toInvitation(now)
		if inv.State == invitations.StatePending || inv.State == invitations.StateExpired {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (p *Provider) GetInvitation(ctx context.Context, token string) (*invitations.Invitation, error) {
	if token == "" {
		return nil, nil
	}
	var found apiInvitation
	err := p.do(ctx, http.MethodGet, "/v1/invitations/by_token/"+url.PathEscape(token), nil, nil, &found)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err, "load invitation")
	}
	inv := found.toInvitation(p.now())
	return &inv, nil
}

func (p *Provider) RevokeOrgInvitation(ctx context.Context, id string) (*invitations.Invitation, error) {
	return p.invitationCall(ctx, http.MethodPost, "/v1/invitations/"+url.PathEscape(id)+"/revoke", nil)
}

func (p *Provider) AcceptInvitation(ctx context.Context, id string) (*invitations.Invitation, error) {
	return p.invitationCall(ctx, http.MethodPost, "/v1/invitations/"+url.PathEscape(id)+"/accept", nil)
}

func (p *Provider) invitationCall(ctx context.Context, method, path string, body any) (*invitations.Invitation, error) {
	var found apiInvitation
	if err := p.do(ctx, method, path, nil, body, &found); err != nil {
		return nil, translate(err, "invitation request")
	}
	inv := found.toInvitation(p.now())
	return &inv, nil
}
