package auth

import (
	"encoding/json"
	"net/http"

	autherrors "github.com/jrsteele09/dashboard-auth/internal/errors"
	"github.com/jrsteele09/dashboard-auth/tenants"
	"github.com/jrsteele09/dashboard-auth/users"
)

// Kind discriminates Result variants on the wire.
type Kind string

const (
	KindStateChange              Kind = "state_change"
	KindNavigation               Kind = "navigation"
	KindError                    Kind = "error"
	KindPendingOrgSelection      Kind = "pending_org_selection"
	KindPendingEmailVerification Kind = "pending_email_verification"
	KindPendingTurnstile         Kind = "pending_turnstile"
)

// Result is the outcome of one orchestrator operation. Exactly one variant is returned;
// callers switch on the concrete type or on Kind. Cookies are applied by the transport
// and never serialised.
type Result interface {
	Kind() Kind
	Cookies() []*http.Cookie
	isResult()
}

// StateChange is success with nothing to navigate to, such as a code being sent.
type StateChange struct {
	Next       State          `json:"state"`
	Message    string         `json:"message,omitempty"`
	SetCookies []*http.Cookie `json:"-"`
}

type Navigation struct {
	Next       State          `json:"state"`
	RedirectTo string         `json:"redirectTo"`
	SetCookies []*http.Cookie `json:"-"`
}

type AuthError struct {
	Code       autherrors.Code `json:"code"`
	Message    string          `json:"message"`
	SetCookies []*http.Cookie  `json:"-"`
}

type PendingOrgSelection struct {
	User          users.User             `json:"user"`
	Organizations []tenants.Organization `json:"organizations"`
	SetCookies    []*http.Cookie         `json:"-"`
}

type PendingEmailVerification struct {
	User       users.User     `json:"user"`
	SetCookies []*http.Cookie `json:"-"`
}

// PendingTurnstile asks the client to solve a human-verification widget and retry with
// the challenge solved.
type PendingTurnstile struct {
	SiteKey string `json:"siteKey"`
	Action  string `json:"action"`
	Email   string `json:"email"`
	Reason  string `json:"reason,omitempty"`
}

func (StateChange) Kind() Kind              { return KindStateChange }
func (Navigation) Kind() Kind               { return KindNavigation }
func (AuthError) Kind() Kind                { return KindError }
func (PendingOrgSelection) Kind() Kind      { return KindPendingOrgSelection }
func (PendingEmailVerification) Kind() Kind { return KindPendingEmailVerification }
func (PendingTurnstile) Kind() Kind         { return KindPendingTurnstile }

func (r StateChange) Cookies() []*http.Cookie              { return r.SetCookies }
func (r Navigation) Cookies() []*http.Cookie               { return r.SetCookies }
func (r AuthError) Cookies() []*http.Cookie                { return r.SetCookies }
func (r PendingOrgSelection) Cookies() []*http.Cookie      { return r.SetCookies }
func (r PendingEmailVerification) Cookies() []*http.Cookie { return r.SetCookies }
func (PendingTurnstile) Cookies() []*http.Cookie           { return nil }

func (StateChange) isResult()              {}
func (Navigation) isResult()               {}
func (AuthError) isResult()                {}
func (PendingOrgSelection) isResult()      {}
func (PendingEmailVerification) isResult() {}
func (PendingTurnstile) isResult()         {}

func (r StateChange) MarshalJSON() ([]byte, error) {
	type plain StateChange
	return marshalTagged(r.Kind(), plain(r))
}

func (r Navigation) MarshalJSON() ([]byte, error) {
	type plain Navigation
	return marshalTagged(r.Kind(), plain(r))
}

func (r AuthError) MarshalJSON() ([]byte, error) {
	type plain AuthError
	return marshalTagged(r.Kind(), plain(r))
}

func (r PendingOrgSelection) MarshalJSON() ([]byte, error) {
	type plain PendingOrgSelection
	return marshalTagged(r.Kind(), plain(r))
}

func (r PendingEmailVerification) MarshalJSON() ([]byte, error) {
	type plain PendingEmailVerification
	return marshalTagged(r.Kind(), plain(r))
}

func (r PendingTurnstile) MarshalJSON() ([]byte, error) {
	type plain PendingTurnstile
	return marshalTagged(r.Kind(), plain(r))
}

// marshalTagged flattens v's fields next to a "kind" field.
func marshalTagged(kind Kind, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	tag, _ := json.Marshal(kind)
	fields["kind"] = tag
	return json.Marshal(fields)
}

// errorResult builds the AuthError for err with the user-facing message for its code.
func errorResult(err error, cookies ...*http.Cookie) AuthError {
	code := autherrors.CodeOf(err)
	return AuthError{
		Code:       code,
		Message:    autherrors.UserMessage(code),
		SetCookies: cookies,
	}
}
