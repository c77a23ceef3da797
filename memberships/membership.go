package memberships

import (
	"errors"
	"time"

	"github.com/jrsteele09/dashboard-auth/tenants"
	"github.com/jrsteele09/dashboard-auth/users"
)

var (
	// ErrNotFound is returned when no membership matches.
	ErrNotFound = errors.New("membership not found")
	// ErrAlreadyExists is returned when a (user, organization) pair already has a membership.
	ErrAlreadyExists = errors.New("membership already exists")
)

// Status is the lifecycle state of a membership.
type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Roles understood by the dashboard.
const (
	RoleAdmin  = "admin"
	RoleMember = "basic_member"
)

// Membership links a user to an organization with a role. Unique per (UserID, OrganizationID).
type Membership struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	OrganizationID string    `json:"organizationId"`
	Role           string    `json:"role"`
	Status         Status    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`

	// Populated by list operations; nil when the caller did not ask for them.
	Organization *tenants.Organization `json:"organization,omitempty"`
	User         *users.User           `json:"user,omitempty"`
}

// IsActive reports whether the membership currently admits the user to the organization.
func (m Membership) IsActive() bool {
	return m.Status == StatusActive
}

// ValidRole reports whether role is one the dashboard recognises.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleMember
}
