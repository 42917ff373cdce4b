package repository

import (
	"context"
	"errors"

	"feedsync/internal/models"

	"gorm.io/gorm"
)

// AccountRepository defines account persistence.
type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
}

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository returns a new AccountRepository implementation.
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, account *Account) error {
	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("A user with the same id, email, or phone already exists in this project.")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*Account, error) {
	var account Account
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Account", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &account, nil
}

// GetByEmail returns nil without error when no account uses email.
func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	var account Account
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &account, nil
}
