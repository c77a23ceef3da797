package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	autherrors "github.com/jrsteele09/dashboard-auth/internal/errors"
	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestCodeOf(t *testing.T) {
	t.Run("nil error has no code", func(t *testing.T) {
		require.Equal(t, autherrors.Code(""), autherrors.CodeOf(nil))
	})

	t.Run("native error falls through to unknown", func(t *testing.T) {
		require.Equal(t, autherrors.Unknown, autherrors.CodeOf(stderrors.New("boom")))
	})

	t.Run("canonical error survives wrapping", func(t *testing.T) {
		base := autherrors.New(autherrors.RateLimited, "slow down")
		wrapped := fmt.Errorf("send code: %w", base)
		require.Equal(t, autherrors.RateLimited, autherrors.CodeOf(wrapped))

		wrapped = pkgerrors.Wrap(base, "adapter")
		require.True(t, autherrors.HasCode(wrapped, autherrors.RateLimited))
	})
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("dial tcp: timeout")
	err := autherrors.Wrap(cause, autherrors.NetworkError, "hosted api unreachable")

	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "hosted api unreachable")
	require.Nil(t, autherrors.Wrap(nil, autherrors.Unknown, "nothing"))
}

func TestEnsure(t *testing.T) {
	native := stderrors.New("weird backend failure")
	err := autherrors.Ensure(native)

	var authErr *autherrors.Error
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, autherrors.Unknown, authErr.Code)
	require.Equal(t, "weird backend failure", authErr.Message)

	canonical := autherrors.New(autherrors.InvalidEmail, "bad")
	require.Same(t, canonical, autherrors.Ensure(canonical))
}

func TestUserMessageDoesNotLeak(t *testing.T) {
	generic := autherrors.UserMessage(autherrors.Unknown)
	require.Equal(t, generic, autherrors.UserMessage(autherrors.NetworkError))
	require.Equal(t, generic, autherrors.UserMessage(autherrors.Code("SOMETHING_NEW")))
	require.NotEqual(t, generic, autherrors.UserMessage(autherrors.AccountNotFound))
}
