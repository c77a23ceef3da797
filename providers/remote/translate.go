package remote

import (
	"context"
	"net"
	"net/http"

	autherrors "github.com/jrsteele09/dashboard-auth/internal/errors"
	"github.com/pkg/errors"
)

var codes = map[string]autherrors.Code{
	"email_already_exists":                   autherrors.EmailAlreadyExists,
	"user_already_exists":                    autherrors.EmailAlreadyExists,
	"invalid_email":                          autherrors.InvalidEmail,
	"invalid_request_parameters":             autherrors.MissingRequiredFields,
	"missing_required_fields":                autherrors.MissingRequiredFields,
	"user_not_found":                         autherrors.AccountNotFound,
	"entity_not_found":                       autherrors.NotFound,
	"organization_not_found":                 autherrors.NotFound,
	"organization_membership_not_found":      autherrors.NotFound,
	"organization_selection_required":        autherrors.OrganizationSelectionRequired,
	"email_verification_required":            autherrors.EmailVerificationRequired,
	"pending_authentication_token_expired":   autherrors.PendingSessionExpired,
	"invalid_pending_authentication_token":   autherrors.PendingSessionExpired,
	"radar_challenge_required":               autherrors.RadarChallengeRequired,
	"authentication_challenge_required":      autherrors.RadarChallengeRequired,
	"radar_blocked":                          autherrors.RadarBlocked,
	"sign_in_blocked":                        autherrors.RadarBlocked,
	"rate_limit_exceeded":                    autherrors.RateLimited,
	"invalid_one_time_code":                  autherrors.InvalidCode,
	"one_time_code_expired":                  autherrors.InvalidCode,
	"invalid_grant":                          autherrors.InvalidCode,
	"session_expired":                        autherrors.SessionExpired,
	"invitation_already_accepted":            autherrors.Unknown,
	"organization_membership_already_exists": autherrors.Unknown,
}

// translate maps the service's error vocabulary onto canonical codes. Unmapped codes
// become Unknown and keep the service's message.
func translate(err error, message string) error {
	if err == nil {
		return nil
	}
	var authErr *autherrors.Error
	if errors.As(err, &authErr) {
		return err
	}

	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		var netErr net.Error
		if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return autherrors.Wrap(err, autherrors.NetworkError, message)
		}
		return autherrors.Wrap(err, autherrors.Unknown, message)
	}

	code := apiErr.Code
	if code == "" {
		code = apiErr.OAuthError
	}
	if mapped, ok := codes[code]; ok {
		return autherrors.Wrap(err, mapped, message)
	}
	switch {
	case apiErr.Status == http.StatusTooManyRequests:
		return autherrors.Wrap(err, autherrors.RateLimited, message)
	case apiErr.Status >= http.StatusInternalServerError:
		return autherrors.Wrap(err, autherrors.NetworkError, message)
	case apiErr.Status == http.StatusNotFound:
		return autherrors.Wrap(err, autherrors.NotFound, message)
	default:
		return autherrors.Wrap(err, autherrors.Unknown, apiErr.Error())
	}
}

func isNotFound(err error) bool {
	var apiErr *apiError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}
