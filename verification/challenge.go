package verification

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// ErrNotFound is returned when there is no outstanding challenge.
var ErrNotFound = errors.New("verification challenge not found")

// MaxAttempts is the number of wrong guesses a challenge tolerates before it is discarded.
const MaxAttempts = 5

const codeDigits = 6

// Purpose scopes a challenge. Sign-in challenges are keyed by email,
// email-verification challenges by user id.
type Purpose string

const (
	PurposeSignIn            Purpose = "sign_in"
	PurposeEmailVerification Purpose = "email_verification"
)

type Challenge struct {
	Purpose   Purpose   `json:"purpose"`
	Subject   string    `json:"subject"`
	UserID    string    `json:"userId"`
	CodeHash  string    `json:"codeHash"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (c Challenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Matches reports whether code is the one the challenge was issued with.
func (c Challenge) Matches(code string) bool {
	return bcrypt.CompareHashAndPassword([]byte(c.CodeHash), []byte(code)) == nil
}

// NewCode returns a random numeric one-time code.
func NewCode() (string, error) {
	max := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}

// HashCode hashes a code for storage.
func HashCode(code string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
