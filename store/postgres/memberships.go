package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jrsteele09/dashboard-auth/memberships"
	"github.com/pkg/errors"
)

var _ memberships.Repo = (*MembershipRepo)(nil)

type MembershipRepo struct {
	pool *pgxpool.Pool
}

const membershipColumns = `id, user_id, organization_id, role, status, created_at, updated_at`

func scanMembership(row pgx.Row) (*memberships.Membership, error) {
	var m memberships.Membership
	err := row.Scan(&m.ID, &m.UserID, &m.OrganizationID, &m.Role, &m.Status, &m.CreatedAt, &m.UpdatedAt)
	if isNoRows(err) {
		return nil, memberships.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan membership")
	}
	return &m, nil
}

func (r *MembershipRepo) Create(ctx context.Context, m *memberships.Membership) error {
	if m.ID == "" {
		m.ID = "om_" + uuid.New().String()
	}
	now := utcNow()
	m.CreatedAt, m.UpdatedAt = now, now
	_, err := r.pool.Exec(ctx,
		`INSERT INTO auth_memberships (`+membershipColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID, m.UserID, m.OrganizationID, m.Role, m.Status, m.CreatedAt, m.UpdatedAt)
	if isUniqueViolation(err) {
		return memberships.ErrAlreadyExists
	}
	return errors.Wrap(err, "insert membership")
}

func (r *MembershipRepo) Get(ctx context.Context, id string) (*memberships.Membership, error) {
	return scanMembership(r.pool.QueryRow(ctx, `SELECT `+membershipColumns+` FROM auth_memberships WHERE id = $1`, id))
}

func (r *MembershipRepo) GetByUserAndOrg(ctx context.Context, userID, orgID string) (*memberships.Membership, error) {
	return scanMembership(r.pool.QueryRow(ctx,
		`SELECT `+membershipColumns+` FROM auth_memberships WHERE user_id = $1 AND organization_id = $2`, userID, orgID))
}

func (r *MembershipRepo) ListByUser(ctx context.Context, userID string) ([]memberships.Membership, error) {
	return r.list(ctx, `SELECT `+membershipColumns+` FROM auth_memberships WHERE user_id = $1 ORDER BY created_at, id`, userID)
}

func (r *MembershipRepo) ListByOrg(ctx context.Context, orgID string) ([]memberships.Membership, error) {
	return r.list(ctx, `SELECT `+membershipColumns+` FROM auth_memberships WHERE organization_id = $1 ORDER BY created_at, id`, orgID)
}

func (r *MembershipRepo) UpdateRole(ctx context.Context, id, role string) (*memberships.Membership, error) {
	return scanMembership(r.pool.QueryRow(ctx,
		`UPDATE auth_memberships SET role = $2, updated_at = $3 WHERE id = $1 RETURNING `+membershipColumns,
		id, role, utcNow()))
}

func (r *MembershipRepo) SetStatus(ctx context.Context, id string, status memberships.Status) (*memberships.Membership, error) {
	return scanMembership(r.pool.QueryRow(ctx,
		`UPDATE auth_memberships SET status = $2, updated_at = $3 WHERE id = $1 RETURNING `+membershipColumns,
		id, status, utcNow()))
}

func (r *MembershipRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM auth_memberships WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "delete membership")
	}
	if tag.RowsAffected() == 0 {
		return memberships.ErrNotFound
	}
	return nil
}

func (r *MembershipRepo) list(ctx context.Context, query string, arg string) ([]memberships.Membership, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, errors.Wrap(err, "list memberships")
	}
	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (memberships.Membership, error) {
		m, err := scanMembership(row)
		if err != nil {
			return memberships.Membership{}, err
		}
		return *m, nil
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = []memberships.Membership{}
	}
	return result, nil
}
