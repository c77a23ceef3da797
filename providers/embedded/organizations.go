package embedded

import (
	"context"
	"strings"

	autherrors "github.com/jrsteele09/dashboard-auth/internal/errors"
	"github.com/jrsteele09/dashboard-auth/memberships"
	"github.com/jrsteele09/dashboard-auth/tenants"
	"github.com/jrsteele09/dashboard-auth/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// CreateTenant creates an organization with userID as its first admin.
func (p *Provider) CreateTenant(ctx context.Context, name, userID string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || userID == "" {
		return "", autherrors.New(autherrors.MissingRequiredFields, "organization name and user are required")
	}
	if _, err := p.repos.Users.GetByID(ctx, userID); err != nil {
		return "", translate(err, "load user")
	}
	org := &tenants.Organization{Name: name}
	if err := p.repos.Tenants.Create(ctx, org); err != nil {
		return "", translate(err, "create organization")
	}
	m := &memberships.Membership{
		UserID:         userID,
		OrganizationID: org.ID,
		Role:           memberships.RoleAdmin,
		Status:         memberships.StatusActive,
	}
	if err := p.repos.Memberships.Create(ctx, m); err != nil {
		if delErr := p.repos.Tenants.Delete(ctx, org.ID); delErr != nil {
			log.Err(delErr).Str("org", org.ID).Msg("failed to roll back organization")
		}
		return "", translate(err, "create admin membership")
	}
	log.Info().Str("org", org.ID).Str("user", userID).Msg("organization created")
	return org.ID, nil
}

func (p *Provider) GetOrg(ctx context.Context, orgID, userID string) (*tenants.Organization, error) {
	org, err := p.repos.Tenants.Get(ctx, orgID)
	if err != nil {
		return nil, translate(err, "organization not found")
	}
	if userID != "" {
		if _, err := p.activeMembership(ctx, userID, orgID); err != nil {
			return nil, autherrors.Wrap(err, autherrors.NotFound, "organization not found")
		}
	}
	return org, nil
}

func (p *Provider) UpdateOrg(ctx context.Context, orgID, name string) (*tenants.Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, autherrors.New(autherrors.MissingRequiredFields, "organization name is required")
	}
	org, err := p.repos.Tenants.Get(ctx, orgID)
	if err != nil {
		return nil, translate(err, "organization not found")
	}
	org.Name = name
	if err := p.repos.Tenants.Update(ctx, org); err != nil {
		return nil, translate(err, "update organization")
	}
	return org, nil
}

func (p *Provider) GetUser(ctx context.Context, userID string) (*users.User, error) {
	user, err := p.repos.Users.GetByID(ctx, userID)
	if errors.Is(err, users.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err, "load user")
	}
	return user, nil
}

// ListMemberships returns every membership of the user with its organization attached.
func (p *Provider) ListMemberships(ctx context.Context, userID string) ([]memberships.Membership, error) {
	ms, err := p.repos.Memberships.ListByUser(ctx, userID)
	if err != nil {
		return nil, translate(err, "list memberships")
	}
	out := make([]memberships.Membership, 0, len(ms))
	for _, m := range ms {
		org, err := p.repos.Tenants.Get(ctx, m.OrganizationID)
		if errors.Is(err, tenants.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, translate(err, "load organization")
		}
		m.Organization = org
		out = append(out, m)
	}
	return out, nil
}

// GetOrganizationMemberList returns the organization's memberships with users attached.
func (p *Provider) GetOrganizationMemberList(ctx context.Context, orgID string) ([]memberships.Membership, error) {
	ms, err := p.repos.Memberships.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, translate(err, "list members")
	}
	out := make([]memberships.Membership, 0, len(ms))
	for _, m := range ms {
		user, err := p.repos.Users.GetByID(ctx, m.UserID)
		if errors.Is(err, users.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, translate(err, "load member")
		}
		m.User = user
		out = append(out, m)
	}
	return out, nil
}

func (p *Provider) UpdateMembership(ctx context.Context, id, role string) (*memberships.Membership, error) {
	if !memberships.ValidRole(role) {
		return nil, autherrors.New(autherrors.MissingRequiredFields, "role must be admin or basic_member")
	}
	m, err := p.repos.Memberships.UpdateRole(ctx, id, role)
	if err != nil {
		return nil, translate(err, "update membership")
	}
	p.syncSessions(ctx, m)
	return m, nil
}

func (p *Provider) RemoveMembership(ctx context.Context, id string) error {
	m, err := p.repos.Memberships.Get(ctx, id)
	if err != nil {
		return translate(err, "membership not found")
	}
	if err := p.repos.Memberships.Delete(ctx, id); err != nil {
		return translate(err, "remove membership")
	}
	m.Status = memberships.StatusInactive
	p.syncSessions(ctx, m)
	return nil
}

func (p *Provider) DeactivateMembership(ctx context.Context, id string) (*memberships.Membership, error) {
	m, err := p.repos.Memberships.SetStatus(ctx, id, memberships.StatusInactive)
	if err != nil {
		return nil, translate(err, "deactivate membership")
	}
	p.syncSessions(ctx, m)
	return m, nil
}

// syncSessions ends the user's sessions when they lose access so the next request
// re-authenticates. Role changes are picked up at the next refresh.
func (p *Provider) syncSessions(ctx context.Context, m *memberships.Membership) {
	if m.IsActive() {
		return
	}
	if err := p.repos.Sessions.DeleteByUser(ctx, m.UserID); err != nil {
		log.Err(err).Str("user", m.UserID).Msg("failed to end sessions after membership change")
	}
}
