package authflow_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/dashboard-auth/authflow"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func repos(t *testing.T) map[string]authflow.Repo {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return map[string]authflow.Repo{
		"memory": authflow.NewInMemoryRepo(),
		"redis":  authflow.NewRedisRepo(client),
	}
}

func TestStateIsRedeemedOnce(t *testing.T) {
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			flow := &authflow.State{Provider: "google", CodeVerifier: "verifier", Nonce: "nonce"}
			require.NoError(t, repo.Put(ctx, "state-1", flow, time.Minute))

			got, err := repo.Take(ctx, "state-1")
			require.NoError(t, err)
			require.Equal(t, "google", got.Provider)
			require.Equal(t, "verifier", got.CodeVerifier)

			_, err = repo.Take(ctx, "state-1")
			require.ErrorIs(t, err, authflow.ErrNotFound)
		})
	}
}

func TestUnknownState(t *testing.T) {
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			_, err := repo.Take(context.Background(), "missing")
			require.ErrorIs(t, err, authflow.ErrNotFound)
		})
	}
}

func TestEmptyStateRejected(t *testing.T) {
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			require.Error(t, repo.Put(context.Background(), "", &authflow.State{}, time.Minute))
		})
	}
}
