package embedded

import (
	"context"

	autherrors "github.com/jrsteele09/dashboard-auth/internal/errors"
	"github.com/jrsteele09/dashboard-auth/invitations"
	"github.com/jrsteele09/dashboard-auth/memberships"
	"github.com/jrsteele09/dashboard-auth/sessions"
	"github.com/jrsteele09/dashboard-auth/tenants"
	"github.com/jrsteele09/dashboard-auth/users"
	"github.com/jrsteele09/dashboard-auth/verification"
	"github.com/pkg/errors"
)

// translate maps store errors onto canonical codes. Errors that already carry a code
// pass through unchanged.
func translate(err error, message string) error {
	if err == nil {
		return nil
	}
	var authErr *autherrors.Error
	if errors.As(err, &authErr) {
		return err
	}
	switch {
	case errors.Is(err, users.ErrNotFound):
		return autherrors.Wrap(err, autherrors.AccountNotFound, message)
	case errors.Is(err, users.ErrAlreadyExists):
		return autherrors.Wrap(err, autherrors.EmailAlreadyExists, message)
	case errors.Is(err, tenants.ErrNotFound),
		errors.Is(err, memberships.ErrNotFound),
		errors.Is(err, invitations.ErrNotFound):
		return autherrors.Wrap(err, autherrors.NotFound, message)
	case errors.Is(err, memberships.ErrAlreadyExists):
		return autherrors.Wrap(err, autherrors.Unknown, message)
	case errors.Is(err, sessions.ErrNotFound):
		return autherrors.Wrap(err, autherrors.SessionExpired, message)
	case errors.Is(err, verification.ErrNotFound):
		return autherrors.Wrap(err, autherrors.InvalidCode, message)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return autherrors.Wrap(err, autherrors.NetworkError, message)
	default:
		return autherrors.Wrap(err, autherrors.Unknown, message)
	}
}
