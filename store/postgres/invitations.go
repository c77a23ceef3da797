package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jrsteele09/dashboard-auth/invitations"
	"github.com/pkg/errors"
)

var _ invitations.Repo = (*InvitationRepo)(nil)

type InvitationRepo struct {
	pool *pgxpool.Pool
}

const invitationColumns = `id, email, state, role, organization_id, inviter_user_id, token, expires_at, accepted_at, revoked_at, created_at, updated_at`

func scanInvitation(row pgx.Row) (*invitations.Invitation, error) {
	var inv invitations.Invitation
	err := row.Scan(&inv.ID, &inv.Email, &inv.State, &inv.Role, &inv.OrganizationID, &inv.InviterUserID, &inv.Token,
		&inv.ExpiresAt, &inv.AcceptedAt, &inv.RevokedAt, &inv.CreatedAt, &inv.UpdatedAt)
	if isNoRows(err) {
		return nil, invitations.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan invitation")
	}
	return &inv, nil
}

func (r *InvitationRepo) Create(ctx context.Context, inv *invitations.Invitation) error {
	if inv.ID == "" {
		inv.ID = "inv_" + uuid.New().String()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = utcNow()
	}
	if inv.UpdatedAt.IsZero() {
		inv.UpdatedAt = inv.CreatedAt
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO auth_invitations (`+invitationColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		inv.ID, inv.Email, inv.State, inv.Role, inv.OrganizationID, inv.InviterUserID, inv.Token,
		inv.ExpiresAt, inv.AcceptedAt, inv.RevokedAt, inv.CreatedAt, inv.UpdatedAt)
	return errors.Wrap(err, "insert invitation")
}

// Update persists state changes; the email, organization and token never change.
func (r *InvitationRepo) Update(ctx context.Context, inv *invitations.Invitation) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE auth_invitations SET state = $2, role = $3, expires_at = $4, accepted_at = $5, revoked_at = $6, updated_at = $7 WHERE id = $1`,
		inv.ID, inv.State, inv.Role, inv.ExpiresAt, inv.AcceptedAt, inv.RevokedAt, inv.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "update invitation")
	}
	if tag.RowsAffected() == 0 {
		return invitations.ErrNotFound
	}
	return nil
}

func (r *InvitationRepo) Get(ctx context.Context, id string) (*invitations.Invitation, error) {
	return scanInvitation(r.pool.QueryRow(ctx, `SELECT `+invitationColumns+` FROM auth_invitations WHERE id = $1`, id))
}

func (r *InvitationRepo) GetByToken(ctx context.Context, token string) (*invitations.Invitation, error) {
	return scanInvitation(r.pool.QueryRow(ctx, `SELECT `+invitationColumns+` FROM auth_invitations WHERE token = $1`, token))
}

func (r *InvitationRepo) ListByOrg(ctx context.Context, orgID string) ([]invitations.Invitation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+invitationColumns+` FROM auth_invitations WHERE organization_id = $1 ORDER BY created_at, id`, orgID)
	if err != nil {
		return nil, errors.Wrap(err, "list invitations")
	}
	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (invitations.Invitation, error) {
		inv, err := scanInvitation(row)
		if err != nil {
			return invitations.Invitation{}, err
		}
		return *inv, nil
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = []invitations.Invitation{}
	}
	return result, nil
}
