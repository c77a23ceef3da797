package authflow

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisRepo shares OAuth state across server instances so the callback may land anywhere.
type RedisRepo struct {
	client *redis.Client
	prefix string
}

func NewRedisRepo(client *redis.Client) *RedisRepo {
	return &RedisRepo{client: client, prefix: "dash:oauth"}
}

func (r *RedisRepo) Put(ctx context.Context, state string, flow *State, ttl time.Duration) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}
	blob, err := json.Marshal(flow)
	if err != nil {
		return errors.Wrap(err, "encode oauth state")
	}
	if err := r.client.Set(ctx, r.prefix+":"+state, blob, ttl).Err(); err != nil {
		return errors.Wrap(err, "store oauth state")
	}
	return nil
}

func (r *RedisRepo) Take(ctx context.Context, state string) (*State, error) {
	blob, err := r.client.GetDel(ctx, r.prefix+":"+state).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "load oauth state")
	}
	var flow State
	if err := json.Unmarshal(blob, &flow); err != nil {
		return nil, errors.Wrap(err, "decode oauth state")
	}
	return &flow, nil
}
