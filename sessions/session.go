package sessions

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"time"

	"github.com/jrsteele09/dashboard-auth/users"
)

// ErrNotFound is returned when no session matches the token hash.
var ErrNotFound = errors.New("session not found")

// Kind separates long-lived sessions that admit requests from short-lived pending sessions
// that only carry identity between sign-in steps.
type Kind string

const (
	KindFull    Kind = "full"
	KindPending Kind = "pending"
)

// Session is stored keyed by the hash of its bearer token; the raw token is never persisted.
// ID is a separate identifier so it can be shown or logged without exposing the token.
type Session struct {
	ID             string              `json:"id"`
	TokenHash      string              `json:"tokenHash"`
	Kind           Kind                `json:"kind"`
	UserID         string              `json:"userId"`
	OrganizationID string              `json:"organizationId,omitempty"`
	Role           string              `json:"role,omitempty"`
	Impersonator   *users.Impersonator `json:"impersonator,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
	ExpiresAt      time.Time           `json:"expiresAt"`
}

func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

func (s Session) IsPending() bool {
	return s.Kind == KindPending
}

// NewToken returns a random URL-safe bearer token.
func NewToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashToken is the storage key for a bearer token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
