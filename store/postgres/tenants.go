package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jrsteele09/dashboard-auth/tenants"
	"github.com/pkg/errors"
)

var _ tenants.Repo = (*TenantRepo)(nil)

type TenantRepo struct {
	pool *pgxpool.Pool
}

func (r *TenantRepo) Create(ctx context.Context, org *tenants.Organization) error {
	if org.ID == "" {
		org.ID = "org_" + uuid.New().String()
	}
	now := utcNow()
	org.CreatedAt, org.UpdatedAt = now, now
	_, err := r.pool.Exec(ctx,
		`INSERT INTO auth_organizations (id, name, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		org.ID, org.Name, org.CreatedAt, org.UpdatedAt)
	return errors.Wrap(err, "insert organization")
}

func (r *TenantRepo) Update(ctx context.Context, org *tenants.Organization) error {
	org.UpdatedAt = utcNow()
	err := r.pool.QueryRow(ctx,
		`UPDATE auth_organizations SET name = $2, updated_at = $3 WHERE id = $1 RETURNING created_at`,
		org.ID, org.Name, org.UpdatedAt).Scan(&org.CreatedAt)
	if isNoRows(err) {
		return tenants.ErrNotFound
	}
	return errors.Wrap(err, "update organization")
}

func (r *TenantRepo) Get(ctx context.Context, orgID string) (*tenants.Organization, error) {
	var org tenants.Organization
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, created_at, updated_at FROM auth_organizations WHERE id = $1`, orgID).
		Scan(&org.ID, &org.Name, &org.CreatedAt, &org.UpdatedAt)
	if isNoRows(err) {
		return nil, tenants.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get organization")
	}
	return &org, nil
}

// Delete removes the organization and, through the foreign keys, its memberships and
// invitations. Deleting a missing organization is not an error.
func (r *TenantRepo) Delete(ctx context.Context, orgID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM auth_organizations WHERE id = $1`, orgID)
	return errors.Wrap(err, "delete organization")
}
