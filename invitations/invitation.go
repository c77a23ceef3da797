package invitations

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when no invitation matches.
	ErrNotFound = errors.New("invitation not found")
	// ErrInvalidTransition is returned when a state change would leave a terminal state.
	ErrInvalidTransition = errors.New("invalid invitation state transition")
)

// State is the lifecycle state of an invitation.
// Transitions are one-directional: pending -> accepted | revoked | expired.
type State string

const (
	StatePending  State = "pending"
	StateAccepted State = "accepted"
	StateRevoked  State = "revoked"
	StateExpired  State = "expired"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateAccepted || s == StateRevoked || s == StateExpired
}

type Invitation struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	State          State      `json:"state"`
	Role           string     `json:"role"`
	OrganizationID string     `json:"organizationId"`
	InviterUserID  string     `json:"inviterUserId,omitempty"`
	Token          string     `json:"token,omitempty"`
	ExpiresAt      time.Time  `json:"expiresAt"`
	AcceptedAt     *time.Time `json:"acceptedAt,omitempty"`
	RevokedAt      *time.Time `json:"revokedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// EffectiveState computes the state at now: a pending invitation past its expiry is expired
// even if the stored state was never updated.
func (i Invitation) EffectiveState(now time.Time) State {
	if i.State == StatePending && !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt) {
		return StateExpired
	}
	return i.State
}

// Transition moves the invitation to the target state, stamping the matching timestamp.
func (i *Invitation) Transition(to State, now time.Time) error {
	current := i.EffectiveState(now)
	if current.Terminal() {
		return fmt.Errorf("%w: invitation %s is %s", ErrInvalidTransition, i.ID, current)
	}
	if !to.Terminal() {
		return fmt.Errorf("%w: cannot move to %s", ErrInvalidTransition, to)
	}
	i.State = to
	i.UpdatedAt = now
	switch to {
	case StateAccepted:
		i.AcceptedAt = &now
	case StateRevoked:
		i.RevokedAt = &now
	}
	return nil
}
