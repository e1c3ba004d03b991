// Package validation normalizes and checks inbound credentials before they
// reach the auth use cases. It has no storage or network side effects.
package validation

import (
	"fmt"

	"identity/internal/domain/entity"
	domainerrors "identity/internal/domain/errors"

	"github.com/go-playground/validator/v10"
)

// RawCredentials is the inbound payload. A nil field means the field was
// missing or not a string.
type RawCredentials struct {
	Email    *string
	Password *string
}

// Credentials is a validated, normalized email/password pair.
type Credentials struct {
	Email    string `validate:"required"`
	Password string
}

// Policy defines the password strength rules.
type Policy struct {
	MinLength int // in characters
}

// CredentialsValidator validates inbound credentials against a Policy.
type CredentialsValidator struct {
	validate     *validator.Validate
	minLengthTag string
	minLength    int
}

// NewCredentialsValidator creates a validator for the given policy.
func NewCredentialsValidator(policy Policy) *CredentialsValidator {
	return &CredentialsValidator{
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		minLengthTag: fmt.Sprintf("min=%d", policy.MinLength),
		minLength:    policy.MinLength,
	}
}

// Validate returns the normalized credentials, ErrInvalidPayload for missing
// fields or an empty email, or ErrWeakCredential for a short password.
func (v *CredentialsValidator) Validate(raw RawCredentials) (Credentials, error) {
	if raw.Email == nil || raw.Password == nil {
		return Credentials{}, domainerrors.ErrInvalidPayload.WithDetails("email and password must be strings")
	}

	creds := Credentials{
		Email:    entity.NormalizeEmail(*raw.Email),
		Password: *raw.Password,
	}

	if err := v.validate.Struct(creds); err != nil {
		return Credentials{}, domainerrors.ErrInvalidPayload.WithDetails("email is required")
	}

	if err := v.validate.Var(creds.Password, v.minLengthTag); err != nil {
		return Credentials{}, domainerrors.ErrWeakCredential.WithDetails(
			fmt.Sprintf("password must be at least %d characters", v.minLength),
		)
	}

	return creds, nil
}
