package remote

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	autherrors "github.com/jrsteele09/dashboard-auth/internal/errors"
	"github.com/jrsteele09/dashboard-auth/memberships"
	"github.com/jrsteele09/dashboard-auth/tenants"
	"github.com/jrsteele09/dashboard-auth/users"
	"github.com/rs/zerolog/log"
)

type membershipRequest struct {
	UserID         string `json:"user_id,omitempty"`
	OrganizationID string `json:"organization_id,omitempty"`
	RoleSlug       string `json:"role_slug,omitempty"`
}

func (p *Provider) CreateTenant(ctx context.Context, name, userID string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || userID == "" {
		return "", autherrors.New(autherrors.MissingRequiredFields, "organization name and user are required")
	}
	var org apiOrganization
	if err := p.do(ctx, http.MethodPost, "/v1/organizations", nil, map[string]string{"name": name}, &org); err != nil {
		return "", translate(err, "create organization")
	}
	err := p.do(ctx, http.MethodPost, "/v1/memberships", nil, membershipRequest{
		UserID:         userID,
		OrganizationID: org.ID,
		RoleSlug:       memberships.RoleAdmin,
	}, nil)
	if err != nil {
		if delErr := p.do(ctx, http.MethodDelete, "/v1/organizations/"+url.PathEscape(org.ID), nil, nil, nil); delErr != nil {
			log.Err(delErr).Str("org", org.ID).Msg("failed to roll back organization")
		}
		return "", translate(err, "create admin membership")
	}
	return org.ID, nil
}

func (p *Provider) GetOrg(ctx context.Context, orgID, userID string) (*tenants.Organization, error) {
	var org apiOrganization
	if err := p.do(ctx, http.MethodGet, "/v1/organizations/"+url.PathEscape(orgID), nil, nil, &org); err != nil {
		return nil, translate(err, "organization not found")
	}
	if userID != "" {
		found, err := p.memberships(ctx, url.Values{"user_id": {userID}, "organization_id": {orgID}})
		if err != nil {
			return nil, err
		}
		if len(found) == 0 || !found[0].IsActive() {
			return nil, autherrors.New(autherrors.NotFound, "organization not found")
		}
	}
	out := org.toOrganization()
	return &out, nil
}

func (p *Provider) UpdateOrg(ctx context.Context, orgID, name string) (*tenants.Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, autherrors.New(autherrors.MissingRequiredFields, "organization name is required")
	}
	var org apiOrganization
	if err := p.do(ctx, http.MethodPut, "/v1/organizations/"+url.PathEscape(orgID), nil, map[string]string{"name": name}, &org); err != nil {
		return nil, translate(err, "update organization")
	}
	out := org.toOrganization()
	return &out, nil
}

func (p *Provider) GetUser(ctx context.Context, userID string) (*users.User, error) {
	var user apiUser
	err := p.do(ctx, http.MethodGet, "/v1/users/"+url.PathEscape(userID), nil, nil, &user)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err, "load user")
	}
	out := user.toUser()
	return &out, nil
}

func (p *Provider) ListMemberships(ctx context.Context, userID string) ([]memberships.Membership, error) {
	return p.memberships(ctx, url.Values{"user_id": {userID}})
}

func (p *Provider) GetOrganizationMemberList(ctx context.Context, orgID string) ([]memberships.Membership, error) {
	ms, err := p.memberships(ctx, url.Values{"organization_id": {orgID}})
	if err != nil {
		return nil, err
	}
	for i := range ms {
		user, err := p.GetUser(ctx, ms[i].UserID)
		if err != nil {
			return nil, err
		}
		ms[i].User = user
	}
	return ms, nil
}

func (p *Provider) UpdateMembership(ctx context.Context, id, role string) (*memberships.Membership, error) {
	if !memberships.ValidRole(role) {
		return nil, autherrors.New(autherrors.MissingRequiredFields, "role must be admin or basic_member")
	}
	return p.membershipCall(ctx, http.MethodPut, "/v1/memberships/"+url.PathEscape(id), membershipRequest{RoleSlug: role})
}

func (p *Provider) RemoveMembership(ctx context.Context, id string) error {
	return translate(p.do(ctx, http.MethodDelete, "/v1/memberships/"+url.PathEscape(id), nil, nil, nil), "remove membership")
}

func (p *Provider) DeactivateMembership(ctx context.Context, id string) (*memberships.Membership, error) {
	return p.membershipCall(ctx, http.MethodPut, "/v1/memberships/"+url.PathEscape(id)+"/deactivate", nil)
}

func (p *Provider) membershipCall(ctx context.Context, method, path string, body any) (*memberships.Membership, error) {
	var m apiMembership
	if err := p.do(ctx, method, path, nil, body, &m); err != nil {
		return nil, translate(err, "update membership")
	}
	out := m.toMembership()
	return &out, nil
}

func (p *Provider) memberships(ctx context.Context, query url.Values) ([]memberships.Membership, error) {
	var found list[apiMembership]
	if err := p.do(ctx, http.MethodGet, "/v1/memberships", query, nil, &found); err != nil {
		return nil, translate(err, "list memberships")
	}
	out := make([]memberships.Membership, 0, len(found.Data))
	for _, m := range found.Data {
		out = append(out, m.toMembership())
	}
	return out, nil
}

// activeOrganizations lists the organizations the user can currently sign in to.
func (p *Provider) activeOrganizations(ctx context.Context, userID string) ([]tenants.Organization, error) {
	ms, err := p.memberships(ctx, url.Values{"user_id": {userID}, "statuses": {string(memberships.StatusActive)}})
	if err != nil {
		return nil, err
	}
	orgs := make([]tenants.Organization, 0, len(ms))
	for _, m := range ms {
		if !m.IsActive() {
			continue
		}
		if m.Organization != nil {
			orgs = append(orgs, *m.Organization)
			continue
		}
		org, err := p.GetOrg(ctx, m.OrganizationID, "")
		if err != nil {
			return nil, err
		}
		orgs = append(orgs, *org)
	}
	return orgs, nil
}
