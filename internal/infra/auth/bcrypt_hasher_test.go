package auth

import (
	"context"
	"strings"
	"sync"
	"testing"

	"identity/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestHasher(t *testing.T) *bcryptHasher {
	t.Helper()

	hasher, err := NewBcryptHasherWithCost(bcrypt.MinCost, 2)
	require.NoError(t, err)

	return hasher.(*bcryptHasher)
}

func TestBcryptHasher_Hash(t *testing.T) {
	hasher := newTestHasher(t)
	ctx := context.Background()

	hash, err := hasher.Hash(ctx, "secret")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, "secret", hash)
	assert.NotContains(t, hash, "secret")

	assert.True(t, hasher.Check(ctx, "secret", hash))
}

func TestBcryptHasher_HashIsSalted(t *testing.T) {
	hasher := newTestHasher(t)
	ctx := context.Background()

	first, err := hasher.Hash(ctx, "secret")
	require.NoError(t, err)
	second, err := hasher.Hash(ctx, "secret")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Len(t, second, len(first))
	assert.True(t, hasher.Check(ctx, "secret", first))
	assert.True(t, hasher.Check(ctx, "secret", second))
}

func TestBcryptHasher_Check(t *testing.T) {
	hasher := newTestHasher(t)
	ctx := context.Background()
	password := "hunter22"

	hash, err := hasher.Hash(ctx, password)
	require.NoError(t, err)

	assert.True(t, hasher.Check(ctx, password, hash))
	assert.False(t, hasher.Check(ctx, "wrongpass", hash))
	assert.False(t, hasher.Check(ctx, "", hash))

	// Malformed hashes never match and never panic.
	assert.False(t, hasher.Check(ctx, password, "invalid_hash"))
	assert.False(t, hasher.Check(ctx, password, ""))
	assert.False(t, hasher.Check(ctx, password, password))
}

func TestBcryptHasher_WithCustomCost(t *testing.T) {
	customCost := 6
	hasher, err := NewBcryptHasherWithCost(customCost, 1)
	require.NoError(t, err)

	hash, err := hasher.Hash(context.Background(), "StrongPass123!")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, customCost, cost)
}

func TestBcryptHasher_FromConfig(t *testing.T) {
	hasher, err := NewBcryptHasher(&config.Config{Auth: &config.AuthConfig{BcryptCost: 5}})
	require.NoError(t, err)

	hash, err := hasher.Hash(context.Background(), "hunter22")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, 5, cost)

	defaultHasher, err := NewBcryptHasher(nil)
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, defaultHasher.(*bcryptHasher).cost)
}

func TestBcryptHasher_RejectsInvalidCost(t *testing.T) {
	_, err := NewBcryptHasherWithCost(bcrypt.MinCost-1, 1)
	assert.Error(t, err)

	_, err = NewBcryptHasherWithCost(bcrypt.MaxCost+1, 1)
	assert.Error(t, err)
}

func TestBcryptHasher_LongPasswords(t *testing.T) {
	hasher := newTestHasher(t)
	ctx := context.Background()

	long := strings.Repeat("a", 73)
	hash, err := hasher.Hash(ctx, long)
	require.NoError(t, err)
	assert.True(t, hasher.Check(ctx, long, hash))

	// Passwords sharing a 72-byte prefix must not collide.
	assert.False(t, hasher.Check(ctx, strings.Repeat("a", 72), hash))
	assert.False(t, hasher.Check(ctx, strings.Repeat("a", 74), hash))

	multibyte := strings.Repeat("密碼", 40)
	hash, err = hasher.Hash(ctx, multibyte)
	require.NoError(t, err)
	assert.True(t, hasher.Check(ctx, multibyte, hash))
}

func TestBcryptHasher_PepperIsApplied(t *testing.T) {
	ctx := context.Background()

	peppered, err := NewBcryptHasher(&config.Config{Auth: &config.AuthConfig{BcryptCost: bcrypt.MinCost, Pepper: "k1"}})
	require.NoError(t, err)
	other, err := NewBcryptHasher(&config.Config{Auth: &config.AuthConfig{BcryptCost: bcrypt.MinCost, Pepper: "k2"}})
	require.NoError(t, err)

	hash, err := peppered.Hash(ctx, "hunter22")
	require.NoError(t, err)

	assert.True(t, peppered.Check(ctx, "hunter22", hash))
	assert.False(t, other.Check(ctx, "hunter22", hash))

	// A raw bcrypt of the plaintext is not accepted.
	raw, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	require.NoError(t, err)
	assert.False(t, peppered.Check(ctx, "hunter22", string(raw)))
}

func TestBcryptHasher_CanceledContext(t *testing.T) {
	hasher, err := NewBcryptHasherWithCost(bcrypt.MinCost, 1)
	require.NoError(t, err)
	bh := hasher.(*bcryptHasher)

	hash, err := bh.Hash(context.Background(), "hunter22")
	require.NoError(t, err)

	// Occupy the only slot so the next call has to wait.
	require.NoError(t, bh.slots.Acquire(context.Background(), 1))
	defer bh.slots.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = bh.Hash(ctx, "hunter22")
	assert.Error(t, err)
	assert.False(t, bh.Check(ctx, "hunter22", hash))
}

func TestBcryptHasher_ConcurrentUse(t *testing.T) {
	hasher := newTestHasher(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	hashes := make([]string, 8)
	for i := range hashes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := hasher.Hash(ctx, "secret")
			assert.NoError(t, err)
			hashes[i] = h
		}()
	}
	wg.Wait()

	for _, h := range hashes {
		assert.True(t, hasher.Check(ctx, "secret", h))
	}
}
