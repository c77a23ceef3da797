package redisrepo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jrsteele09/dashboard-auth/sessions"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "dash:sess"

var _ sessions.Repo = (*Repo)(nil)

// Repo stores each session as a JSON blob whose Redis TTL tracks ExpiresAt, plus a
// per-user set of token hashes so every session of a user can be removed at once.
type Repo struct {
	client  *redis.Client
	prefix  string
	nowTime func() time.Time
}

type Option func(*Repo)

func WithPrefix(prefix string) Option {
	return func(r *Repo) {
		r.prefix = prefix
	}
}

func WithNowTime(now func() time.Time) Option {
	return func(r *Repo) {
		r.nowTime = now
	}
}

func New(client *redis.Client, opts ...Option) *Repo {
	r := &Repo{
		client:  client,
		prefix:  defaultPrefix,
		nowTime: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Repo) key(tokenHash string) string {
	return r.prefix + ":" + tokenHash
}

func (r *Repo) userKey(userID string) string {
	return r.prefix + ":user:" + userID
}

func (r *Repo) ttl(s *sessions.Session) time.Duration {
	ttl := s.ExpiresAt.Sub(r.nowTime())
	if ttl < time.Second {
		return time.Second
	}
	return ttl
}

func (r *Repo) Create(ctx context.Context, s *sessions.Session) error {
	blob, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "encode session")
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.key(s.TokenHash), blob, r.ttl(s))
	pipe.SAdd(ctx, r.userKey(s.UserID), s.TokenHash)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "store session")
	}
	return nil
}

func (r *Repo) Update(ctx context.Context, s *sessions.Session) error {
	blob, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "encode session")
	}
	ok, err := r.client.SetXX(ctx, r.key(s.TokenHash), blob, r.ttl(s)).Result()
	if err != nil {
		return errors.Wrap(err, "update session")
	}
	if !ok {
		return sessions.ErrNotFound
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, tokenHash string) (*sessions.Session, error) {
	blob, err := r.client.Get(ctx, r.key(tokenHash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sessions.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "load session")
	}
	var s sessions.Session
	if err := json.Unmarshal(blob, &s); err != nil {
		return nil, errors.Wrap(err, "decode session")
	}
	return &s, nil
}

func (r *Repo) Delete(ctx context.Context, tokenHash string) error {
	s, err := r.Get(ctx, tokenHash)
	if errors.Is(err, sessions.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.key(tokenHash))
	pipe.SRem(ctx, r.userKey(s.UserID), tokenHash)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "delete session")
	}
	return nil
}

func (r *Repo) DeleteByUser(ctx context.Context, userID string) error {
	hashes, err := r.client.SMembers(ctx, r.userKey(userID)).Result()
	if err != nil {
		return errors.Wrap(err, "list user sessions")
	}
	keys := make([]string, 0, len(hashes)+1)
	for _, h := range hashes {
		keys = append(keys, r.key(h))
	}
	keys = append(keys, r.userKey(userID))
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return errors.Wrap(err, "delete user sessions")
	}
	return nil
}
