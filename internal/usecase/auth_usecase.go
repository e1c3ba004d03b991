// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"

	"identity/internal/domain/entity"
	"identity/internal/domain/validation"
)

// --- Input DTOs ---

// CredentialsInput carries the raw email/password pair. A nil field means the
// value was missing from the request or was not a string.
type CredentialsInput struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// Raw converts the input into the payload accepted by the credentials validator.
func (in CredentialsInput) Raw() validation.RawCredentials {
	return validation.RawCredentials{Email: in.Email, Password: in.Password}
}

// RegisterInput defines the data required to register a new account.
type RegisterInput struct {
	CredentialsInput
}

// LoginInput defines the data required for an account to log in.
type LoginInput struct {
	CredentialsInput
}

// RecordActionInput identifies the account whose action marker is updated.
type RecordActionInput struct {
	Email  string
	Action entity.Action
}

// --- Output DTOs ---

// RegisterOutput returns the newly created account.
type RegisterOutput struct {
	Account *entity.Account
}

// LoginOutput returns the authenticated account.
type LoginOutput struct {
	Account *entity.Account
}

// AuthUsecase defines the register and login flows.
// This is the contract that the delivery layer depends on.
type AuthUsecase interface {
	// Register creates an account. An existing account is never overwritten;
	// a colliding email yields domainerrors.ErrDuplicateAccount.
	Register(ctx context.Context, input RegisterInput) (*RegisterOutput, error)

	// Login verifies the credentials. Unknown email and wrong password both
	// yield domainerrors.ErrInvalidCredentials.
	Login(ctx context.Context, input LoginInput) (*LoginOutput, error)

	// RecordAction sets the action marker of an existing account. It never touches the credential hash.
	RecordAction(ctx context.Context, input RecordActionInput) error
}
