package repository

import (
	"context"
	"errors"

	"feedsync/internal/models"

	"gorm.io/gorm"
)

// SessionRepository defines session persistence.
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	GetByID(ctx context.Context, id string) (*Session, error)
	DeleteByAccount(ctx context.Context, accountID string) (int64, error)
}

type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository returns a new SessionRepository implementation.
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, session *Session) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *sessionRepository) GetByID(ctx context.Context, id string) (*Session, error) {
	var session Session
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Session", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &session, nil
}

func (r *sessionRepository) DeleteByAccount(ctx context.Context, accountID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("account_id = ?", accountID).Delete(&Session{})
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}
