// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"strings"
	"time"
)

// Action records which flow touched an account most recently.
type Action string

const (
	ActionSignup Action = "signup"
	ActionLogin  Action = "login"
)

// IsValid reports whether the action is one of the known markers.
func (a Action) IsValid() bool {
	return a == ActionSignup || a == ActionLogin
}

// String implements fmt.Stringer.
func (a Action) String() string {
	return string(a)
}

// Account is the single persisted identity record, one per normalized email.
type Account struct {
	ID           uint64    // Server-assigned, immutable.
	Email        string    // Normalized email, unique across all accounts.
	PasswordHash string    // Output of the password hasher; never the plaintext.
	LastAction   Action    // Most recent flow that touched this account.
	CreatedAt    time.Time // Set once at creation.
}

// NormalizeEmail trims surrounding whitespace and lower-cases the address.
// The result is the uniqueness key for accounts.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
