package sessions_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/dashboard-auth/sessions"
	"github.com/stretchr/testify/require"
)

func TestNewTokenIsUnique(t *testing.T) {
	a, err := sessions.NewToken()
	require.NoError(t, err)
	b, err := sessions.NewToken()
	require.NoError(t, err)
	require.NotEqual(t, a, b)
	require.NotEqual(t, sessions.HashToken(a), sessions.HashToken(b))
	require.Equal(t, sessions.HashToken(a), sessions.HashToken(a))
}

func TestExpired(t *testing.T) {
	now := time.Now()
	s := sessions.Session{ExpiresAt: now}
	require.True(t, s.Expired(now))
	require.False(t, s.Expired(now.Add(-time.Second)))
}
