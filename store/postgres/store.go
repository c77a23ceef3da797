// Package postgres stores users, organizations, memberships and invitations for the
// embedded backend in PostgreSQL through a pgx connection pool.
package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

const uniqueViolation = "23505"

// Store hands out the user, tenant, membership and invitation repositories, all
// sharing one pool.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Users() *UserRepo {
	return &UserRepo{pool: s.pool}
}

func (s *Store) Tenants() *TenantRepo {
	return &TenantRepo{pool: s.pool}
}

func (s *Store) Memberships() *MembershipRepo {
	return &MembershipRepo{pool: s.pool}
}

func (s *Store) Invitations() *InvitationRepo {
	return &InvitationRepo{pool: s.pool}
}

// Connect opens a pool and checks it can reach the database.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "[postgres.Connect] parse database url")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "[postgres.Connect] ping")
	}
	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS auth_users (
	id             TEXT PRIMARY KEY,
	email          TEXT NOT NULL UNIQUE,
	first_name     TEXT NOT NULL DEFAULT '',
	last_name      TEXT NOT NULL DEFAULT '',
	avatar_url     TEXT NOT NULL DEFAULT '',
	email_verified BOOLEAN NOT NULL DEFAULT FALSE,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS auth_organizations (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS auth_memberships (
	id              TEXT PRIMARY KEY,
	user_id         TEXT NOT NULL REFERENCES auth_users (id) ON DELETE CASCADE,
	organization_id TEXT NOT NULL REFERENCES auth_organizations (id) ON DELETE CASCADE,
	role            TEXT NOT NULL,
	status          TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (user_id, organization_id)
);

CREATE TABLE IF NOT EXISTS auth_invitations (
	id              TEXT PRIMARY KEY,
	email           TEXT NOT NULL,
	state           TEXT NOT NULL,
	role            TEXT NOT NULL,
	organization_id TEXT NOT NULL REFERENCES auth_organizations (id) ON DELETE CASCADE,
	inviter_user_id TEXT NOT NULL DEFAULT '',
	token           TEXT NOT NULL UNIQUE,
	expires_at      TIMESTAMPTZ NOT NULL,
	accepted_at     TIMESTAMPTZ,
	revoked_at      TIMESTAMPTZ,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS auth_invitations_org_idx ON auth_invitations (organization_id);
`

// EnsureSchema creates the tables when they are missing. It is safe to run on every start.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return errors.Wrap(err, "[postgres.EnsureSchema] create tables")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func utcNow() time.Time {
	return time.Now().UTC()
}
