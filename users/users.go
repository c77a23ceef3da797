package users

import (
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned by repositories when no user matches.
var ErrNotFound = errors.New("user not found")

// ErrAlreadyExists is returned when a user with the same email is already stored.
var ErrAlreadyExists = errors.New("user already exists")

// User is the backend-agnostic projection of an identity.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	FirstName     string    `json:"firstName,omitempty"`
	LastName      string    `json:"lastName,omitempty"`
	AvatarURL     string    `json:"avatarUrl,omitempty"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt,omitempty"`
}

// Impersonator identifies the operator acting on behalf of a user.
type Impersonator struct {
	Email  string `json:"email"`
	Reason string `json:"reason,omitempty"`
}

// AuthenticatedUser is derived per request from a validated session and a membership lookup.
type AuthenticatedUser struct {
	User
	Role         string        `json:"role"`
	OrgID        string        `json:"orgId"`
	Impersonator *Impersonator `json:"impersonator,omitempty"`
}

// FullName joins the first and last names, falling back to the email.
func (u User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// NormalizeEmail lower-cases and trims an email so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
