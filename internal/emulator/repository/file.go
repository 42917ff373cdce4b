package repository

import (
	"context"
	"errors"

	"feedsync/internal/models"

	"gorm.io/gorm"
)

// FileRepository defines uploaded file metadata persistence.
type FileRepository interface {
	Create(ctx context.Context, file *StoredFile) error
	Get(ctx context.Context, bucketID, id string) (*StoredFile, error)
}

type fileRepository struct {
	db *gorm.DB
}

// NewFileRepository returns a new FileRepository implementation.
func NewFileRepository(db *gorm.DB) FileRepository {
	return &fileRepository{db: db}
}

func (r *fileRepository) Create(ctx context.Context, file *StoredFile) error {
	if err := r.db.WithContext(ctx).Create(file).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("A storage file with the requested ID already exists.")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *fileRepository) Get(ctx context.Context, bucketID, id string) (*StoredFile, error) {
	var file StoredFile
	if err := r.db.WithContext(ctx).Where("bucket_id = ? AND id = ?", bucketID, id).First(&file).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("File", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &file, nil
}
