package repository

import (
	"context"
	"errors"

	"feedsync/internal/models"

	"gorm.io/gorm"
)

// DocumentRepository defines document persistence for every collection.
type DocumentRepository interface {
	Create(ctx context.Context, doc *Document) error
	Get(ctx context.Context, databaseID, collectionID, id string) (*Document, error)
	List(ctx context.Context, databaseID, collectionID string) ([]Document, error)
	Update(ctx context.Context, doc *Document) error
	Delete(ctx context.Context, databaseID, collectionID, id string) error
}

type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository returns a new DocumentRepository implementation.
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(ctx context.Context, doc *Document) error {
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Document with the requested ID already exists.")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *documentRepository) Get(ctx context.Context, databaseID, collectionID, id string) (*Document, error) {
	var doc Document
	err := r.db.WithContext(ctx).
		Where("database_id = ? AND collection_id = ? AND id = ?", databaseID, collectionID, id).
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Document", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &doc, nil
}

// List returns every document of a collection in insertion order. Filtering
// and ordering on JSON attributes happen in the caller.
func (r *documentRepository) List(ctx context.Context, databaseID, collectionID string) ([]Document, error) {
	var docs []Document
	err := r.db.WithContext(ctx).
		Where("database_id = ? AND collection_id = ?", databaseID, collectionID).
		Order("created_at asc").
		Find(&docs).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return docs, nil
}

func (r *documentRepository) Update(ctx context.Context, doc *Document) error {
	res := r.db.WithContext(ctx).Model(&Document{}).
		Where("database_id = ? AND collection_id = ? AND id = ?", doc.DatabaseID, doc.CollectionID, doc.ID).
		Updates(map[string]interface{}{"data": doc.Data, "updated_at": doc.UpdatedAt})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Document", doc.ID)
	}
	return nil
}

func (r *documentRepository) Delete(ctx context.Context, databaseID, collectionID, id string) error {
	res := r.db.WithContext(ctx).
		Where("database_id = ? AND collection_id = ? AND id = ?", databaseID, collectionID, id).
		Delete(&Document{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Document", id)
	}
	return nil
}
