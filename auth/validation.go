package auth

import (
	"strings"

	"github.com/asaskevich/govalidator"
	autherrors "github.com/jrsteele09/dashboard-auth/internal/errors"
	"github.com/jrsteele09/dashboard-auth/users"
)

const maxNameLength = 100

// ValidateEmail checks presence then syntax.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return autherrors.New(autherrors.MissingRequiredFields, "email is required")
	}
	if !govalidator.IsEmail(email) {
		return autherrors.New(autherrors.InvalidEmail, "email is not a valid address")
	}
	return nil
}

// ValidateSignUp requires an email and both names.
func ValidateSignUp(data SignUpData) error {
	if strings.TrimSpace(data.FirstName) == "" || strings.TrimSpace(data.LastName) == "" {
		return autherrors.New(autherrors.MissingRequiredFields, "first and last name are required")
	}
	if len(data.FirstName) > maxNameLength || len(data.LastName) > maxNameLength {
		return autherrors.New(autherrors.MissingRequiredFields, "name is too long")
	}
	return ValidateEmail(data.Email)
}

// NormalizeSignUp trims names and normalises the email.
func NormalizeSignUp(data SignUpData) SignUpData {
	return SignUpData{
		Email:     users.NormalizeEmail(data.Email),
		FirstName: strings.TrimSpace(data.FirstName),
		LastName:  strings.TrimSpace(data.LastName),
	}
}
