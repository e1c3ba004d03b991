// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"

	deliverycontext "identity/internal/delivery/context"
	"identity/internal/domain/entity"
	domainerrors "identity/internal/domain/errors"
	"identity/internal/domain/repository"
	"identity/internal/domain/service"
	"identity/internal/domain/validation"
	"identity/internal/errors"
	"identity/internal/usecase"

	"go.uber.org/fx"
)

// decoyPassword is hashed at construction to give unknown-email logins a real hash to compare against.
const decoyPassword = "decoy-password-never-matches"

// authService implements the AuthUsecase interface.
type authService struct {
	accountRepo repository.AccountRepository
	hasher      service.PasswordHasher
	validator   *validation.CredentialsValidator
	logger      *slog.Logger

	// decoyHash costs the same to compare against as a real account's hash.
	decoyHash string
}

// AuthServiceParams holds dependencies for AuthService, injected by Fx.
type AuthServiceParams struct {
	fx.In

	AccountRepo repository.AccountRepository
	Hasher      service.PasswordHasher
	Validator   *validation.CredentialsValidator
	Logger      *slog.Logger
}

// NewAuthService is the constructor for authService. It fails when the decoy
// hash cannot be produced, since unknown-email logins would then skip the
// comparison and answer faster than wrong-password logins.
func NewAuthService(params AuthServiceParams) (usecase.AuthUsecase, error) {
	decoyHash, err := params.Hasher.Hash(context.Background(), decoyPassword)
	if err != nil {
		return nil, errors.Wrap(err, "failed to prepare decoy hash")
	}

	return &authService{
		accountRepo: params.AccountRepo,
		hasher:      params.Hasher,
		validator:   params.Validator,
		logger:      params.Logger,
		decoyHash:   decoyHash,
	}, nil
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *authService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Register validates the credentials, hashes the password and inserts the account.
// Uniqueness is decided by the store, so two racing registrations yield one
// account and one ErrDuplicateAccount.
func (srv *authService) Register(ctx context.Context, input usecase.RegisterInput) (*usecase.RegisterOutput, error) {
	creds, err := srv.validator.Validate(input.Raw())
	if err != nil {
		return nil, err
	}

	logger := srv.log(ctx).With(slog.String("email", creds.Email))

	hash, err := srv.hasher.Hash(ctx, creds.Password)
	if err != nil {
		logger.Error("Failed to hash password", slog.Any("error", err))

		return nil, err
	}

	account := &entity.Account{
		Email:        creds.Email,
		PasswordHash: hash,
		LastAction:   entity.ActionSignup,
	}

	if err := srv.accountRepo.Create(ctx, account); err != nil {
		if errors.Is(err, domainerrors.ErrDuplicateAccount) {
			logger.Info("Registration rejected, account already exists")

			return nil, domainerrors.ErrDuplicateAccount
		}

		logger.Error("Failed to create account", slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to create account")
	}

	logger.Info("Account registered", slog.Uint64("accountID", account.ID))

	return &usecase.RegisterOutput{Account: account}, nil
}

// Login verifies the credentials against the stored hash. Both failure paths run
// exactly one hash comparison and return the same error value.
func (srv *authService) Login(ctx context.Context, input usecase.LoginInput) (*usecase.LoginOutput, error) {
	creds, err := srv.validator.Validate(input.Raw())
	if err != nil {
		return nil, err
	}

	logger := srv.log(ctx).With(slog.String("email", creds.Email))

	account, err := srv.accountRepo.FindByEmail(ctx, creds.Email)
	if err != nil {
		if !errors.Is(err, domainerrors.ErrAccountNotFound) {
			logger.Error("Failed to look up account", slog.Any("error", err))

			return nil, errors.Wrap(err, "failed to look up account")
		}

		srv.hasher.Check(ctx, creds.Password, srv.decoyHash)
		logger.Info("Login rejected")

		return nil, domainerrors.ErrInvalidCredentials
	}

	if !srv.hasher.Check(ctx, creds.Password, account.PasswordHash) {
		logger.Info("Login rejected")

		return nil, domainerrors.ErrInvalidCredentials
	}

	// The marker is informational; failing to record it does not fail the login.
	if err := srv.accountRepo.UpdateLastAction(ctx, account.Email, entity.ActionLogin); err != nil {
		logger.Warn("Failed to record login action", slog.Any("error", err))
	} else {
		account.LastAction = entity.ActionLogin
	}

	logger.Info("Login succeeded", slog.Uint64("accountID", account.ID))

	return &usecase.LoginOutput{Account: account}, nil
}

// RecordAction sets the action marker on an existing account.
func (srv *authService) RecordAction(ctx context.Context, input usecase.RecordActionInput) error {
	email := entity.NormalizeEmail(input.Email)
	if email == "" || !input.Action.IsValid() {
		return domainerrors.ErrInvalidPayload.WithDetails("a known action and an email are required")
	}

	if err := srv.accountRepo.UpdateLastAction(ctx, email, input.Action); err != nil {
		if errors.Is(err, domainerrors.ErrAccountNotFound) {
			return domainerrors.ErrAccountNotFound
		}

		return errors.Wrap(err, "failed to record account action")
	}

	return nil
}
