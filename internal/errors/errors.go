package errors

import (
	"errors"
	"fmt"
)

// Code is a canonical, backend-independent authentication error kind.
type Code string

// Canonical error kinds. Every identity backend maps its native vocabulary onto this set.
const (
	EmailAlreadyExists            Code = "EMAIL_ALREADY_EXISTS"
	MissingRequiredFields         Code = "MISSING_REQUIRED_FIELDS"
	InvalidEmail                  Code = "INVALID_EMAIL"
	NetworkError                  Code = "NETWORK_ERROR"
	AccountNotFound               Code = "ACCOUNT_NOT_FOUND"
	OrganizationSelectionRequired Code = "ORGANIZATION_SELECTION_REQUIRED"
	EmailVerificationRequired     Code = "EMAIL_VERIFICATION_REQUIRED"
	PendingSessionExpired         Code = "PENDING_SESSION_EXPIRED"
	RadarBlocked                  Code = "RADAR_BLOCKED"
	RadarChallengeRequired        Code = "RADAR_CHALLENGE_REQUIRED"
	RateLimited                   Code = "RATE_LIMITED"
	Unknown                       Code = "UNKNOWN_ERROR"

	// Auxiliary kinds used at the provider boundary.
	InvalidCode    Code = "INVALID_CODE"
	SessionExpired Code = "SESSION_EXPIRED"
	NotFound       Code = "NOT_FOUND"
	Unsupported    Code = "UNSUPPORTED"
)

// Error is the only error type allowed to cross the provider boundary.
// Message keeps the backend's original text for diagnostics; it is never shown to users.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a canonical error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a canonical code to err. A nil err yields nil.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf returns the canonical code carried by err.
// Errors that never passed through a translator report Unknown.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr.Code
	}
	return Unknown
}

// HasCode reports whether err carries the given canonical code.
func HasCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// Ensure converts any error into a canonical one, leaving canonical errors untouched.
func Ensure(err error) error {
	if err == nil {
		return nil
	}
	var authErr *Error
	if errors.As(err, &authErr) {
		return err
	}
	return &Error{Code: Unknown, Message: err.Error(), Err: err}
}

// UserMessage returns the stable, non-leaking text shown for a code.
func UserMessage(code Code) string {
	switch code {
	case EmailAlreadyExists:
		return "An account with this email already exists. Please sign in instead."
	case MissingRequiredFields:
		return "Please fill in all required fields."
	case InvalidEmail:
		return "Please enter a valid email address."
	case AccountNotFound:
		return "We couldn't find an account for this email. Would you like to sign up?"
	case OrganizationSelectionRequired:
		return "Please choose a workspace to continue."
	case EmailVerificationRequired:
		return "Please verify your email address to continue."
	case PendingSessionExpired:
		return "Your sign-in attempt has expired. Please start again."
	case RadarBlocked:
		return "Unable to complete the request. Please contact support if this persists."
	case RadarChallengeRequired:
		return "Please complete the verification challenge to continue."
	case RateLimited:
		return "Too many attempts. Please wait a moment and try again."
	case InvalidCode:
		return "The code is invalid or has expired."
	case SessionExpired:
		return "Your session has expired. Please sign in again."
	case NotFound:
		return "The requested resource could not be found."
	case Unsupported:
		return "This action is not available."
	default:
		return "Something went wrong. Please try again."
	}
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
