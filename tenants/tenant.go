package tenants

import (
	"errors"
	"time"
)

// ErrNotFound is returned by repositories when no organization matches.
var ErrNotFound = errors.New("organization not found")

// Organization is a tenant: a customer account users join through memberships.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
