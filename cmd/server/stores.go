package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jrsteele09/dashboard-auth/authflow"
	"github.com/jrsteele09/dashboard-auth/internal/config"
	"github.com/jrsteele09/dashboard-auth/providers/embedded"
	sessionredis "github.com/jrsteele09/dashboard-auth/sessions/redisrepo"
	"github.com/jrsteele09/dashboard-auth/store/postgres"
	verificationredis "github.com/jrsteele09/dashboard-auth/verification/redisrepo"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// stores opens the embedded backend's storage on first use. Postgres holds accounts and
// organizations, Redis holds short-lived state; either falls back to process memory.
type stores struct {
	redisURL    string
	databaseURL string

	redis *redis.Client
	pool  *pgxpool.Pool
}

func newStores(c config.Config) *stores {
	return &stores{redisURL: c.GetRedisURL(), databaseURL: c.GetDatabaseURL()}
}

func (s *stores) Repos(ctx context.Context) (embedded.Repos, error) {
	repos := embedded.NewInMemoryRepos()

	if s.databaseURL != "" {
		pool, err := postgres.Connect(ctx, s.databaseURL)
		if err != nil {
			return embedded.Repos{}, err
		}
		s.pool = pool
		store := postgres.New(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			return embedded.Repos{}, err
		}
		repos.Users = store.Users()
		repos.Tenants = store.Tenants()
		repos.Memberships = store.Memberships()
		repos.Invitations = store.Invitations()
		log.Info().Msg("embedded accounts stored in postgres")
	} else {
		log.Warn().Msg("DATABASE_URL not set, accounts are kept in memory")
	}

	if s.redisURL != "" {
		opts, err := redis.ParseURL(s.redisURL)
		if err != nil {
			return embedded.Repos{}, errors.Wrap(err, "parse REDIS_URL")
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return embedded.Repos{}, errors.Wrap(err, "ping redis")
		}
		s.redis = client
		repos.Sessions = sessionredis.New(client)
		repos.Challenges = verificationredis.New(client)
		repos.OAuthFlows = authflow.NewRedisRepo(client)
		log.Info().Msg("embedded sessions stored in redis")
	} else {
		log.Warn().Msg("REDIS_URL not set, sessions are kept in memory")
	}
	return repos, nil
}

func (s *stores) Close() {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Warn().Err(err).Msg("close redis")
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
}
