package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jrsteele09/dashboard-auth/users"
	"github.com/pkg/errors"
)

var _ users.UserRepo = (*UserRepo)(nil)

type UserRepo struct {
	pool *pgxpool.Pool
}

const userColumns = `id, email, first_name, last_name, avatar_url, email_verified, created_at, updated_at`

func scanUser(row pgx.Row) (*users.User, error) {
	var u users.User
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.AvatarURL, &u.EmailVerified, &u.CreatedAt, &u.UpdatedAt)
	if isNoRows(err) {
		return nil, users.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan user")
	}
	return &u, nil
}

func (s *UserRepo) Create(ctx context.Context, user *users.User) error {
	if user.ID == "" {
		user.ID = "user_" + uuid.New().String()
	}
	user.Email = users.NormalizeEmail(user.Email)
	now := utcNow()
	user.CreatedAt, user.UpdatedAt = now, now

	_, err := s.pool.Exec(ctx,
		`INSERT INTO auth_users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.Email, user.FirstName, user.LastName, user.AvatarURL, user.EmailVerified, user.CreatedAt, user.UpdatedAt)
	if isUniqueViolation(err) {
		return users.ErrAlreadyExists
	}
	return errors.Wrap(err, "insert user")
}

func (s *UserRepo) Update(ctx context.Context, user *users.User) error {
	user.Email = users.NormalizeEmail(user.Email)
	user.UpdatedAt = utcNow()
	tag, err := s.pool.Exec(ctx,
		`UPDATE auth_users SET email = $2, first_name = $3, last_name = $4, avatar_url = $5, email_verified = $6, updated_at = $7 WHERE id = $1`,
		user.ID, user.Email, user.FirstName, user.LastName, user.AvatarURL, user.EmailVerified, user.UpdatedAt)
	if isUniqueViolation(err) {
		return users.ErrAlreadyExists
	}
	if err != nil {
		return errors.Wrap(err, "update user")
	}
	if tag.RowsAffected() == 0 {
		return users.ErrNotFound
	}
	return nil
}

func (s *UserRepo) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM auth_users WHERE email = $1`, users.NormalizeEmail(email)))
}

func (s *UserRepo) GetByID(ctx context.Context, id string) (*users.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM auth_users WHERE id = $1`, id))
}

func (s *UserRepo) SetEmailVerified(ctx context.Context, id string, verified bool) error {
	tag, err := s.pool.Exec(ctx, `UPDATE auth_users SET email_verified = $2, updated_at = $3 WHERE id = $1`, id, verified, utcNow())
	if err != nil {
		return errors.Wrap(err, "set email verified")
	}
	if tag.RowsAffected() == 0 {
		return users.ErrNotFound
	}
	return nil
}
