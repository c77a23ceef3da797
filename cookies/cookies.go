package cookies

import (
	"net/http"
	"time"
)

const (
	SessionName     = "session"
	PendingName     = "pending-session"
	LastUsedOrgName = "last-used-org"

	// PendingMaxAge bounds a pending session cookie in seconds.
	PendingMaxAge = 600
	// LastUsedOrgMaxAge is thirty days in seconds.
	LastUsedOrgMaxAge = 30 * 24 * 60 * 60
)

// Transport builds the cookies that carry session state. Every cookie is path "/" and
// secure outside development; session and pending cookies are also httpOnly.
type Transport struct {
	secure   bool
	sameSite http.SameSite
	nowTime  func() time.Time
}

type Option func(*Transport)

func WithNowTime(now func() time.Time) Option {
	return func(t *Transport) {
		t.nowTime = now
	}
}

func NewTransport(secure bool, opts ...Option) *Transport {
	t := &Transport{
		secure:   secure,
		sameSite: http.SameSiteStrictMode,
		nowTime:  time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Lax returns a copy for flows completed by a cross-site redirect (OAuth callbacks),
// where a strict cookie would not be sent on the landing request.
func (t *Transport) Lax() *Transport {
	lax := *t
	lax.sameSite = http.SameSiteLaxMode
	return &lax
}

// Session builds the full-session cookie; max-age follows the backend's expiry.
func (t *Transport) Session(token string, expiresAt time.Time) *http.Cookie {
	maxAge := int(expiresAt.Sub(t.nowTime()).Seconds())
	if maxAge <= 0 {
		return t.Delete(SessionName)
	}
	return t.build(SessionName, token, maxAge, true)
}

func (t *Transport) Pending(token string) *http.Cookie {
	return t.build(PendingName, token, PendingMaxAge, true)
}

// LastUsedOrg is readable by scripts; it only pre-selects an organization.
func (t *Transport) LastUsedOrg(orgID string) *http.Cookie {
	return t.build(LastUsedOrgName, orgID, LastUsedOrgMaxAge, false)
}

func (t *Transport) Delete(name string) *http.Cookie {
	c := t.build(name, "", -1, name != LastUsedOrgName)
	c.Expires = time.Unix(0, 0)
	return c
}

func (t *Transport) build(name, value string, maxAge int, httpOnly bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: httpOnly,
		Secure:   t.secure,
		SameSite: t.sameSite,
	}
}

func read(r *http.Request, name string) (string, bool) {
	c, err := r.Cookie(name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

func ReadSession(r *http.Request) (string, bool) {
	return read(r, SessionName)
}

func ReadPending(r *http.Request) (string, bool) {
	return read(r, PendingName)
}

func ReadLastUsedOrg(r *http.Request) (string, bool) {
	return read(r, LastUsedOrgName)
}

// Apply writes every cookie to the response in order.
func Apply(w http.ResponseWriter, cs []*http.Cookie) {
	for _, c := range cs {
		http.SetCookie(w, c)
	}
}
