// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"

	"identity/internal/domain/entity"
)

// AccountRepository defines the persistence operations on accounts.
// Emails passed in are expected to be normalized; implementations normalize again
// so the uniqueness key never depends on the caller.
type AccountRepository interface {
	// FindByEmail retrieves the account for an email.
	// It returns domainerrors.ErrAccountNotFound when no account exists.
	FindByEmail(ctx context.Context, email string) (*entity.Account, error)

	// Create inserts a new account and fills its ID and CreatedAt.
	// A colliding email is reported as domainerrors.ErrDuplicateAccount, detected by
	// the table's unique constraint rather than a prior read.
	Create(ctx context.Context, account *entity.Account) error

	// UpdateLastAction sets the action marker of an existing account.
	// It returns domainerrors.ErrAccountNotFound when no account exists.
	UpdateLastAction(ctx context.Context, email string, action entity.Action) error
}
