// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"runtime"

	"identity/config"
	domainerrors "identity/internal/domain/errors"
	"identity/internal/domain/service"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// bcryptHasher is a concrete implementation of the PasswordHasher interface using bcrypt.
// Passwords are first reduced with HMAC-SHA256 so inputs of any length fit bcrypt's
// 72-byte limit. A weighted semaphore caps how many hashes run at once so CPU-bound
// bcrypt work cannot starve the rest of the process.
type bcryptHasher struct {
	cost   int
	pepper []byte
	slots  *semaphore.Weighted
}

// NewBcryptHasher builds the hasher from the auth configuration.
func NewBcryptHasher(cfg *config.Config) (service.PasswordHasher, error) {
	cost := bcrypt.DefaultCost
	concurrency := 0
	pepper := ""
	if cfg != nil && cfg.Auth != nil {
		if cfg.Auth.BcryptCost != 0 {
			cost = cfg.Auth.BcryptCost
		}
		concurrency = cfg.Auth.HashConcurrency
		pepper = cfg.Auth.Pepper
	}

	hasher, err := NewBcryptHasherWithCost(cost, concurrency)
	if err != nil {
		return nil, err
	}
	hasher.(*bcryptHasher).pepper = []byte(pepper)

	return hasher, nil
}

// NewBcryptHasherWithCost creates a hasher with an explicit cost factor.
// A concurrency of zero or less uses GOMAXPROCS.
func NewBcryptHasherWithCost(cost, concurrency int) (service.PasswordHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, errors.Errorf("bcrypt cost %d outside [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}

	return &bcryptHasher{
		cost:  cost,
		slots: semaphore.NewWeighted(int64(concurrency)),
	}, nil
}

// Hash generates a salted hash from a plaintext password using bcrypt.
// bcrypt automatically handles salt generation.
func (h *bcryptHasher) Hash(ctx context.Context, password string) (string, error) {
	if err := h.slots.Acquire(ctx, 1); err != nil {
		return "", errors.Wrap(err, "waiting for hash slot")
	}
	defer h.slots.Release(1)

	bytes, err := bcrypt.GenerateFromPassword(h.prehash(password), h.cost)
	if err != nil {
		return "", errors.Wrap(domainerrors.ErrPasswordHashFailed, err.Error())
	}

	return string(bytes), nil
}

// Check compares a plaintext password with a bcrypt hash.
// CompareHashAndPassword is constant-time over the derived key.
func (h *bcryptHasher) Check(ctx context.Context, password, hash string) bool {
	if err := h.slots.Acquire(ctx, 1); err != nil {
		return false
	}
	defer h.slots.Release(1)

	err := bcrypt.CompareHashAndPassword([]byte(hash), h.prehash(password))

	return err == nil
}

// prehash returns the base64 HMAC-SHA256 of password, 44 bytes with no NUL.
func (h *bcryptHasher) prehash(password string) []byte {
	mac := hmac.New(sha256.New, h.pepper)
	mac.Write([]byte(password))
	sum := mac.Sum(nil)

	out := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(out, sum)

	return out
}
