package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"feedsync/internal/media"
	"feedsync/internal/models"
	"feedsync/internal/observability"
	"feedsync/internal/remote"
)

const (
	postStoreName   = "posts"
	defaultPageSize = 100
)

// PostState is a snapshot of the post store.
type PostState struct {
	Posts   []models.Post
	Loading bool
	Error   string
}

// NewPost is the input for Create.
type NewPost struct {
	OwnerID    string
	AuthorName string
	Content    string
	CreatedAt  time.Time
	ImageURL   *string
}

// PostPatch is the input for Update.
type PostPatch struct {
	Content string `json:"content"`
}

// CommentPurger deletes the comments of a post before the post itself goes.
type CommentPurger interface {
	DeleteAllForPost(ctx context.Context, postID string) error
}

// PostStoreConfig locates the post collection and image bucket.
type PostStoreConfig struct {
	DatabaseID   string
	CollectionID string
	BucketID     string
	PageSize     int
	Media        media.Options
}

// PostStore owns the feed.
type PostStore struct {
	notifier

	db      remote.DatabaseService
	storage remote.StorageService
	purger  CommentPurger
	cfg     PostStoreConfig

	mu    sync.RWMutex
	state PostState
}

// NewPostStore creates an empty feed. purger may be nil when comments are never purged.
func NewPostStore(db remote.DatabaseService, storage remote.StorageService, purger CommentPurger, cfg PostStoreConfig) *PostStore {
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	return &PostStore{
		db:      db,
		storage: storage,
		purger:  purger,
		cfg:     cfg,
	}
}

// State returns a copy of the current state.
func (s *PostStore) State() PostState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state
	st.Posts = append([]models.Post(nil), s.state.Posts...)
	return st
}

// Post returns the post with id, if loaded.
func (s *PostStore) Post(id string) (models.Post, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.state.Posts {
		if p.ID == id {
			return p, true
		}
	}
	return models.Post{}, false
}

func (s *PostStore) update(fn func(st *PostState)) {
	s.mu.Lock()
	fn(&s.state)
	s.mu.Unlock()
	s.notify()
}

func (s *PostStore) pending() {
	s.update(func(st *PostState) {
		st.Loading = true
		st.Error = ""
	})
}

func (s *PostStore) fail(op *operation, appErr *models.AppError) error {
	op.rejected(appErr)
	s.update(func(st *PostState) {
		st.Loading = false
		st.Error = appErr.Message
	})
	return appErr
}

func decodePost(raw json.RawMessage) (models.Post, error) {
	var p models.Post
	if err := json.Unmarshal(raw, &p); err != nil {
		return models.Post{}, fmt.Errorf("decode post: %w", err)
	}
	return p, nil
}

func validateContent(content string) *models.AppError {
	if strings.TrimSpace(content) == "" {
		return models.NewValidationError("Content is required")
	}
	if models.ContentLength(content) > models.MaxPostLength {
		return models.NewValidationError(fmt.Sprintf("Content too long (max %d characters)", models.MaxPostLength))
	}
	return nil
}

// FetchAll replaces the feed with every post, newest first.
func (s *PostStore) FetchAll(ctx context.Context) error {
	op := begin(ctx, postStoreName, "fetch_all", nil)
	s.pending()

	var posts []models.Post
	for offset := 0; ; {
		page, err := s.db.ListDocuments(op.ctx, s.cfg.DatabaseID, s.cfg.CollectionID, []remote.Query{
			remote.OrderDesc("createdAt"),
			remote.Limit(s.cfg.PageSize),
			remote.Offset(offset),
		})
		if err != nil {
			return s.fail(op, remoteFailure(err, MsgFetchPostsFailed))
		}
		for _, raw := range page.Documents {
			p, err := decodePost(raw)
			if err != nil {
				return s.fail(op, models.NewRemoteError(MsgFetchPostsFailed, err))
			}
			posts = append(posts, p)
		}
		offset += len(page.Documents)
		if len(page.Documents) == 0 || offset >= page.Total {
			break
		}
	}

	op.fulfilled()
	s.update(func(st *PostState) {
		st.Loading = false
		st.Posts = posts
		st.Error = ""
	})
	return nil
}

// UploadImage normalizes the image, stores it and returns its public view URL.
func (s *PostStore) UploadImage(ctx context.Context, in media.Input) (string, error) {
	op := begin(ctx, postStoreName, "upload_image", map[string]interface{}{"filename": in.Filename})
	s.pending()

	prepared, err := media.Prepare(in, s.cfg.Media)
	if err != nil {
		var appErr *models.AppError
		if !errors.As(err, &appErr) {
			appErr = models.NewInternalError(err)
		}
		if appErr.Message == "" {
			appErr.Message = MsgUploadImageFailed
		}
		return "", s.fail(op, appErr)
	}

	file, err := s.storage.CreateFile(op.ctx, s.cfg.BucketID, remote.UniqueID(), remote.FileUpload{
		Name:        prepared.Filename,
		ContentType: prepared.ContentType,
		Data:        prepared.Data,
	})
	if err != nil {
		return "", s.fail(op, remoteFailure(err, MsgUploadImageFailed))
	}

	op.fulfilled()
	s.update(func(st *PostState) {
		st.Loading = false
	})
	return s.storage.FileViewURL(s.cfg.BucketID, file.ID), nil
}

// Create persists a new post and puts it at the top of the feed.
func (s *PostStore) Create(ctx context.Context, in NewPost) (*models.Post, error) {
	id := remote.UniqueID()
	op := begin(ctx, postStoreName, "create", map[string]interface{}{"post_id": id})
	s.pending()

	if appErr := validateContent(in.Content); appErr != nil {
		return nil, s.fail(op, appErr)
	}
	createdAt := in.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	data := models.Post{
		ID:         id,
		OwnerID:    in.OwnerID,
		AuthorName: in.AuthorName,
		Content:    in.Content,
		CreatedAt:  createdAt.UTC(),
		ImageURL:   in.ImageURL,
	}
	raw, err := s.db.CreateDocument(op.ctx, s.cfg.DatabaseID, s.cfg.CollectionID, id, postDocument(data))
	if err != nil {
		return nil, s.fail(op, remoteFailure(err, MsgCreatePostFailed))
	}
	created, err := decodePost(raw)
	if err != nil {
		return nil, s.fail(op, models.NewRemoteError(MsgCreatePostFailed, err))
	}
	if created.ID == "" {
		created.ID = id
	}

	op.fulfilled()
	s.update(func(st *PostState) {
		st.Loading = false
		st.Posts = append([]models.Post{created}, st.Posts...)
		st.Error = ""
	})
	return &created, nil
}

// postDocument is the persisted shape of a post; the id travels separately.
func postDocument(p models.Post) map[string]any {
	doc := map[string]any{
		"userId":    p.OwnerID,
		"createdBy": p.AuthorName,
		"content":   p.Content,
		"createdAt": p.CreatedAt.Format(time.RFC3339Nano),
	}
	if p.ImageURL != nil {
		doc["imageUrl"] = *p.ImageURL
	}
	return doc
}

// Update edits a post in place and leaves editing mode for it.
func (s *PostStore) Update(ctx context.Context, id string, patch PostPatch) (*models.Post, error) {
	op := begin(ctx, postStoreName, "update", map[string]interface{}{"post_id": id})
	s.pending()

	if id == "" {
		return nil, s.fail(op, models.NewValidationError(MsgPostIDRequiredUpdate))
	}
	if appErr := validateContent(patch.Content); appErr != nil {
		return nil, s.fail(op, appErr)
	}

	raw, err := s.db.UpdateDocument(op.ctx, s.cfg.DatabaseID, s.cfg.CollectionID, id, patch)
	if err != nil {
		return nil, s.fail(op, remoteFailure(err, MsgUpdatePostFailed))
	}
	updated, err := decodePost(raw)
	if err != nil {
		return nil, s.fail(op, models.NewRemoteError(MsgUpdatePostFailed, err))
	}
	if updated.ID == "" {
		updated.ID = id
	}

	op.fulfilled()
	s.update(func(st *PostState) {
		st.Loading = false
		st.Error = ""
		for i := range st.Posts {
			if st.Posts[i].ID == updated.ID {
				st.Posts[i] = updated
				st.Posts[i].Editable = false
			}
		}
	})
	return &updated, nil
}

// Delete removes a post, optionally purging its comments first. A failed
// purge is logged and does not stop the post deletion.
func (s *PostStore) Delete(ctx context.Context, postID string, deleteComments bool) error {
	op := begin(ctx, postStoreName, "delete", map[string]interface{}{
		"post_id":         postID,
		"delete_comments": deleteComments,
	})
	s.pending()

	if postID == "" {
		return s.fail(op, models.NewValidationError(MsgPostIDRequiredDelete))
	}

	if deleteComments && s.purger != nil {
		if err := s.purger.DeleteAllForPost(op.ctx, postID); err != nil {
			observability.Logger().ErrorContext(op.ctx, "failed to delete post comments",
				slog.String("post_id", postID),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.db.DeleteDocument(op.ctx, s.cfg.DatabaseID, s.cfg.CollectionID, postID); err != nil {
		return s.fail(op, remoteFailure(err, MsgDeleteFailed))
	}

	op.fulfilled()
	s.update(func(st *PostState) {
		st.Loading = false
		st.Error = ""
		kept := st.Posts[:0:0]
		for _, p := range st.Posts {
			if p.ID != postID {
				kept = append(kept, p)
			}
		}
		st.Posts = kept
	})
	return nil
}

// SetEditable toggles editing for postID and turns it off for every other post.
func (s *PostStore) SetEditable(postID string) {
	s.update(func(st *PostState) {
		for i := range st.Posts {
			if st.Posts[i].ID == postID {
				st.Posts[i].Editable = !st.Posts[i].Editable
			} else {
				st.Posts[i].Editable = false
			}
		}
	})
}

// ClearError drops the current error message.
func (s *PostStore) ClearError() {
	s.update(func(st *PostState) {
		st.Error = ""
	})
}
