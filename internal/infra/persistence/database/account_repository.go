package database

import (
	"context"
	"time"

	"identity/internal/domain/entity"
	domainerrors "identity/internal/domain/errors"
	"identity/internal/domain/repository"
	"identity/internal/errors"
	"identity/internal/infra/persistence/database/query"
	"identity/internal/infra/persistence/model"

	"gorm.io/gorm"
)

// accountRepository implements repository.AccountRepository using the generated GORM queries.
type accountRepository struct {
	q *query.Query
}

// NewAccountRepository is the constructor for accountRepository.
func NewAccountRepository(db *gorm.DB) repository.AccountRepository {
	return &accountRepository{
		q: query.Use(db),
	}
}

// FindByEmail retrieves the account by its normalized email.
func (repo *accountRepository) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	accountM, err := repo.q.AccountModel.WithContext(ctx).
		Where(repo.q.AccountModel.Email.Eq(entity.NormalizeEmail(email))).
		Take()
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrAccountNotFound
		}

		return nil, storeError(err, "failed to find account by email")
	}

	return toAccountDomain(accountM), nil
}

// Create inserts the account in a single statement. Concurrent registrations of
// the same email are serialized by the unique index; exactly one insert wins.
func (repo *accountRepository) Create(ctx context.Context, account *entity.Account) error {
	if account == nil {
		return errors.New("account must not be nil")
	}

	accountM := fromAccountDomain(account)
	accountM.CreatedAt = time.Now().UTC().Truncate(time.Second)

	if err := repo.q.AccountModel.WithContext(ctx).Create(accountM); err != nil {
		if isUniqueConstraintViolation(err) {
			return domainerrors.ErrDuplicateAccount.WrapMessage("email already exists")
		}

		return storeError(err, "failed to create account")
	}

	account.ID = accountM.ID
	account.Email = accountM.Email
	account.LastAction = entity.Action(accountM.ActionType)
	account.CreatedAt = accountM.CreatedAt

	return nil
}

// UpdateLastAction overwrites the action marker of an existing account.
func (repo *accountRepository) UpdateLastAction(ctx context.Context, email string, action entity.Action) error {
	if !action.IsValid() {
		return errors.Errorf("unknown account action %q", action)
	}

	info, err := repo.q.AccountModel.WithContext(ctx).
		Where(repo.q.AccountModel.Email.Eq(entity.NormalizeEmail(email))).
		Update(repo.q.AccountModel.ActionType, action.String())
	if err != nil {
		return storeError(err, "failed to update account action")
	}

	if info.RowsAffected == 0 {
		return domainerrors.ErrAccountNotFound
	}

	return nil
}

// storeError classifies a driver failure as either an unreachable store or a rejected statement.
func storeError(err error, details string) error {
	if isConnectionFailure(err) {
		return errors.Wrap(domainerrors.ErrStorageUnavailable.WithDetails(err.Error()), details)
	}

	return domainerrors.NewDatabaseExecuteError(err, details)
}

// --- Mapper Functions ---

func toAccountDomain(data *model.AccountModel) *entity.Account {
	if data == nil {
		return nil
	}

	return &entity.Account{
		ID:           data.ID,
		Email:        data.Email,
		PasswordHash: data.PasswordHash,
		LastAction:   entity.Action(data.ActionType),
		CreatedAt:    data.CreatedAt,
	}
}

func fromAccountDomain(data *entity.Account) *model.AccountModel {
	action := data.LastAction
	if action == "" {
		action = entity.ActionSignup
	}

	return &model.AccountModel{
		ID:           data.ID,
		Email:        entity.NormalizeEmail(data.Email),
		PasswordHash: data.PasswordHash,
		ActionType:   action.String(),
	}
}
