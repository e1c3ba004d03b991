package impl

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"identity/config"
	domainerrors "identity/internal/domain/errors"
	"identity/internal/infra/auth"
	"identity/internal/infra/persistence/database"
	"identity/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// newIntegrationAuthService wires the real bcrypt hasher and GORM store over a temporary SQLite file.
func newIntegrationAuthService(t *testing.T) usecase.AuthUsecase {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Driver:      database.DriverSQLite,
		SQLitePath:  filepath.Join(t.TempDir(), "identity.db"),
		AutoMigrate: true,
	}

	db, err := database.Open(cfg, newDiscardLogger(), false)
	require.NoError(t, err)
	require.NoError(t, database.Prepare(context.Background(), db, cfg))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	hasher, err := auth.NewBcryptHasherWithCost(bcrypt.MinCost, 4)
	require.NoError(t, err)

	srv, err := NewAuthService(AuthServiceParams{
		AccountRepo: database.NewAccountRepository(db),
		Hasher:      hasher,
		Validator:   newTestValidator(),
		Logger:      newDiscardLogger(),
	})
	require.NoError(t, err)

	return srv
}

func TestAuthFlow_ExampleScenarios(t *testing.T) {
	srv := newIntegrationAuthService(t)
	ctx := context.Background()

	registered, err := srv.Register(ctx, registerInput("user@example.com", "hunter22"))
	require.NoError(t, err)
	assert.NotZero(t, registered.Account.ID)

	_, err = srv.Register(ctx, registerInput("USER@example.com", "anything6"))
	assert.ErrorIs(t, err, domainerrors.ErrDuplicateAccount)

	loggedIn, err := srv.Login(ctx, loginInput("user@example.com", "hunter22"))
	require.NoError(t, err)
	assert.Equal(t, registered.Account.ID, loggedIn.Account.ID)
	assert.Equal(t, "user@example.com", loggedIn.Account.Email)

	_, err = srv.Login(ctx, loginInput("user@example.com", "wrongpass"))
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)

	_, err = srv.Register(ctx, registerInput("x@y.com", "12345"))
	assert.ErrorIs(t, err, domainerrors.ErrWeakCredential)
}

func TestAuthFlow_RegisterThenLoginReturnsSameID(t *testing.T) {
	srv := newIntegrationAuthService(t)
	ctx := context.Background()

	cases := []struct{ email, password string }{
		{"alice@example.com", "secret1"},
		{"bob+tag@example.org", "päss wörd"},
		{"carol@example.net", "123456"},
	}

	for _, c := range cases {
		registered, err := srv.Register(ctx, registerInput(c.email, c.password))
		require.NoError(t, err)

		loggedIn, err := srv.Login(ctx, loginInput(c.email, c.password))
		require.NoError(t, err)
		assert.Equal(t, registered.Account.ID, loggedIn.Account.ID)
	}
}

func TestAuthFlow_LongPasswords(t *testing.T) {
	srv := newIntegrationAuthService(t)
	ctx := context.Background()

	cases := []struct{ email, password string }{
		{"long@example.com", strings.Repeat("a", 73)},
		{"longer@example.com", strings.Repeat("x", 500)},
		{"multibyte@example.com", strings.Repeat("ñ", 37)},
	}

	for _, c := range cases {
		registered, err := srv.Register(ctx, registerInput(c.email, c.password))
		require.NoError(t, err)

		loggedIn, err := srv.Login(ctx, loginInput(c.email, c.password))
		require.NoError(t, err)
		assert.Equal(t, registered.Account.ID, loggedIn.Account.ID)

		// A shared 72-byte prefix is not enough to log in.
		_, err = srv.Login(ctx, loginInput(c.email, c.password[:72]))
		assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
	}
}

func TestAuthFlow_EmailVariantsResolveToSameAccount(t *testing.T) {
	srv := newIntegrationAuthService(t)
	ctx := context.Background()

	registered, err := srv.Register(ctx, registerInput(" A@B.com ", "hunter22"))
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", registered.Account.Email)

	loggedIn, err := srv.Login(ctx, loginInput("a@b.com", "hunter22"))
	require.NoError(t, err)
	assert.Equal(t, registered.Account.ID, loggedIn.Account.ID)
}

func TestAuthFlow_ConcurrentRegistration(t *testing.T) {
	srv := newIntegrationAuthService(t)
	ctx := context.Background()

	const workers = 6

	results := make([]error, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, results[i] = srv.Register(ctx, registerInput("race@example.com", "hunter22"))
		}()
	}
	wg.Wait()

	var succeeded, conflicts int
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case assert.ErrorIs(t, err, domainerrors.ErrDuplicateAccount):
			conflicts++
		}
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, conflicts)
}

func TestAuthFlow_InvalidCredentialsAreIndistinguishable(t *testing.T) {
	srv := newIntegrationAuthService(t)
	ctx := context.Background()

	_, err := srv.Register(ctx, registerInput("user@example.com", "hunter22"))
	require.NoError(t, err)

	wrongPassword, errWrong := srv.Login(ctx, loginInput("user@example.com", "wrongpass"))
	unknownEmail, errUnknown := srv.Login(ctx, loginInput("nobody@example.com", "hunter22"))

	assert.Nil(t, wrongPassword)
	assert.Nil(t, unknownEmail)
	assert.Equal(t, errWrong, errUnknown)
	assert.Equal(t, errWrong.Error(), errUnknown.Error())
}

func TestAuthFlow_RecordAction(t *testing.T) {
	srv := newIntegrationAuthService(t)
	ctx := context.Background()

	_, err := srv.Register(ctx, registerInput("user@example.com", "hunter22"))
	require.NoError(t, err)

	require.NoError(t, srv.RecordAction(ctx, usecase.RecordActionInput{Email: "user@example.com", Action: "signup"}))

	err = srv.RecordAction(ctx, usecase.RecordActionInput{Email: "ghost@example.com", Action: "login"})
	assert.ErrorIs(t, err, domainerrors.ErrAccountNotFound)
}
