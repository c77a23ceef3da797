package embedded

import (
	"context"
	"net/url"

	"github.com/jrsteele09/dashboard-auth/auth"
	autherrors "github.com/jrsteele09/dashboard-auth/internal/errors"
	"github.com/jrsteele09/dashboard-auth/invitations"
	"github.com/jrsteele09/dashboard-auth/memberships"
	"github.com/jrsteele09/dashboard-auth/sessions"
	"github.com/jrsteele09/dashboard-auth/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

func (p *Provider) InviteMember(ctx context.Context, req auth.InviteRequest) (*invitations.Invitation, error) {
	email := users.NormalizeEmail(req.Email)
	if err := auth.ValidateEmail(email); err != nil {
		return nil, err
	}
	role := req.Role
	if role == "" {
		role = memberships.RoleMember
	}
	if !memberships.ValidRole(role) {
		return nil, autherrors.New(autherrors.MissingRequiredFields, "role must be admin or basic_member")
	}
	org, err := p.repos.Tenants.Get(ctx, req.OrgID)
	if err != nil {
		return nil, translate(err, "organization not found")
	}
	inviterEmail := ""
	if req.InviterUserID != "" {
		inviter, err := p.repos.Users.GetByID(ctx, req.InviterUserID)
		if err != nil {
			return nil, translate(err, "load inviter")
		}
		inviterEmail = inviter.Email
	}

	token, err := sessions.NewToken()
	if err != nil {
		return nil, translate(err, "generate invitation token")
	}
	now := p.now()
	inv := &invitations.Invitation{
		Email:          email,
		State:          invitations.StatePending,
		Role:           role,
		OrganizationID: org.ID,
		InviterUserID:  req.InviterUserID,
		Token:          token,
		ExpiresAt:      now.Add(p.settings.InvitationTTL),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := p.repos.Invitations.Create(ctx, inv); err != nil {
		return nil, translate(err, "create invitation")
	}
	if err := p.sender.SendInvitation(ctx, email, org.Name, inviterEmail, p.invitationLink(token)); err != nil {
		return nil, autherrors.Wrap(err, autherrors.NetworkError, "deliver invitation")
	}
	log.Info().Str("invitation", inv.ID).Str("org", org.ID).Msg("invitation sent")
	return inv, nil
}

func (p *Provider) invitationLink(token string) string {
	return p.settings.BaseURL + "/auth/sign-up?" + url.Values{"invitation_token": {token}}.Encode()
}

// GetInvitationList hides accepted and revoked invitations.
func (p *Provider) GetInvitationList(ctx context.Context, orgID string) ([]invitations.Invitation, error) {
	all, err := p.repos.Invitations.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, translate(err, "list invitations")
	}
	now := p.now()
	out := make([]invitations.Invitation, 0, len(all))
	for _, inv := range all {
		inv.State = inv.EffectiveState(now)
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
	inv, err := p.repos.Invitations.GetByToken(ctx, token)
	if errors.Is(err, invitations.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err, "load invitation")
	}
	inv.State = inv.EffectiveState(p.now())
	return inv, nil
}

func (p *Provider) RevokeOrgInvitation(ctx context.Context, id string) (*invitations.Invitation, error) {
	inv, err := p.repos.Invitations.Get(ctx, id)
	if err != nil {
		return nil, translate(err, "invitation not found")
	}
	if err := inv.Transition(invitations.StateRevoked, p.now()); err != nil {
		return nil, translate(err, "invitation is no longer pending")
	}
	if err := p.repos.Invitations.Update(ctx, inv); err != nil {
		return nil, translate(err, "revoke invitation")
	}
	return inv, nil
}

// AcceptInvitation activates (or creates) the invitee's membership. The invitee must
// already have an account under the invited address.
func (p *Provider) AcceptInvitation(ctx context.Context, id string) (*invitations.Invitation, error) {
	inv, err := p.repos.Invitations.Get(ctx, id)
	if err != nil {
		return nil, translate(err, "invitation not found")
	}
	now := p.now()
	if state := inv.EffectiveState(now); state != invitations.StatePending {
		return nil, autherrors.New(autherrors.Unknown, "invitation is "+string(state))
	}
	user, err := p.repos.Users.GetByEmail(ctx, inv.Email)
	if err != nil {
		return nil, translate(err, "invitee has no account")
	}

	m, err := p.repos.Memberships.GetByUserAndOrg(ctx, user.ID, inv.OrganizationID)
	switch {
	case errors.Is(err, memberships.ErrNotFound):
		m = &memberships.Membership{
			UserID:         user.ID,
			OrganizationID: inv.OrganizationID,
			Role:           inv.Role,
			Status:         memberships.StatusActive,
		}
		if err := p.repos.Memberships.Create(ctx, m); err != nil {
			return nil, translate(err, "create membership")
		}
	case err != nil:
		return nil, translate(err, "load membership")
	default:
		if _, err := p.repos.Memberships.SetStatus(ctx, m.ID, memberships.StatusActive); err != nil {
			return nil, translate(err, "activate membership")
		}
		if _, err := p.repos.Memberships.UpdateRole(ctx, m.ID, inv.Role); err != nil {
			return nil, translate(err, "update membership role")
		}
	}

	if err := inv.Transition(invitations.StateAccepted, now); err != nil {
		return nil, translate(err, "accept invitation")
	}
	if err := p.repos.Invitations.Update(ctx, inv); err != nil {
		return nil, translate(err, "accept invitation")
	}
	log.Info().Str("invitation", inv.ID).Str("user", user.ID).Msg("invitation accepted")
	return inv, nil
}
