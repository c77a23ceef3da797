package redisrepo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jrsteele09/dashboard-auth/verification"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "dash:otp"

var _ verification.Repo = (*Repo)(nil)

// Repo stores the challenge blob in a string key and the attempt counter in a sibling key,
// both expiring with the challenge.
type Repo struct {
	client *redis.Client
	prefix string
}

func New(client *redis.Client) *Repo {
	return &Repo{client: client, prefix: defaultPrefix}
}

func (r *Repo) key(purpose verification.Purpose, subject string) string {
	return r.prefix + ":" + string(purpose) + ":" + subject
}

func (r *Repo) attemptsKey(purpose verification.Purpose, subject string) string {
	return r.key(purpose, subject) + ":attempts"
}

func (r *Repo) Put(ctx context.Context, c *verification.Challenge) error {
	ttl := time.Until(c.ExpiresAt)
	if ttl < time.Second {
		ttl = time.Second
	}
	stored := *c
	stored.Attempts = 0
	blob, err := json.Marshal(stored)
	if err != nil {
		return errors.Wrap(err, "encode challenge")
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.key(c.Purpose, c.Subject), blob, ttl)
	pipe.Set(ctx, r.attemptsKey(c.Purpose, c.Subject), 0, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "store challenge")
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, purpose verification.Purpose, subject string) (*verification.Challenge, error) {
	pipe := r.client.Pipeline()
	blobCmd := pipe.Get(ctx, r.key(purpose, subject))
	attemptsCmd := pipe.Get(ctx, r.attemptsKey(purpose, subject))
	_, _ = pipe.Exec(ctx)

	blob, err := blobCmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, verification.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "load challenge")
	}
	var c verification.Challenge
	if err := json.Unmarshal(blob, &c); err != nil {
		return nil, errors.Wrap(err, "decode challenge")
	}
	attempts, err := attemptsCmd.Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, errors.Wrap(err, "load challenge attempts")
	}
	c.Attempts = attempts
	return &c, nil
}

func (r *Repo) IncrementAttempts(ctx context.Context, purpose verification.Purpose, subject string) (int, error) {
	exists, err := r.client.Exists(ctx, r.key(purpose, subject)).Result()
	if err != nil {
		return 0, errors.Wrap(err, "check challenge")
	}
	if exists == 0 {
		return 0, verification.ErrNotFound
	}
	n, err := r.client.Incr(ctx, r.attemptsKey(purpose, subject)).Result()
	if err != nil {
		return 0, errors.Wrap(err, "increment challenge attempts")
	}
	return int(n), nil
}

func (r *Repo) Delete(ctx context.Context, purpose verification.Purpose, subject string) error {
	if err := r.client.Del(ctx, r.key(purpose, subject), r.attemptsKey(purpose, subject)).Err(); err != nil {
		return errors.Wrap(err, "delete challenge")
	}
	return nil
}
