package authflow

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned for unknown or already consumed state values.
var ErrNotFound = errors.New("oauth state not found")

// State is what the sign-in redirect needs to remember until the provider calls back.
type State struct {
	Provider     string    `json:"provider"`
	CodeVerifier string    `json:"codeVerifier"`
	Nonce        string    `json:"nonce"`
	RedirectURI  string    `json:"redirectUri"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Repo holds OAuth state keyed by the opaque state parameter.
// Take returns and removes the entry so a state value can be redeemed once.
type Repo interface {
	Put(ctx context.Context, state string, flow *State, ttl time.Duration) error
	Take(ctx context.Context, state string) (*State, error)
}
