package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"feedsync/internal/models"
	"feedsync/internal/observability"
	"feedsync/internal/remote"

	"golang.org/x/sync/errgroup"
)

const (
	commentStoreName         = "comments"
	defaultDeleteConcurrency = 4
)

// CommentState is a snapshot of the comment store.
type CommentState struct {
	CommentsByPost map[string][]models.Comment
	Loading        bool
	Error          string
}

// CommentStoreConfig locates the comment collection.
type CommentStoreConfig struct {
	DatabaseID   string
	CollectionID string
	// DeleteConcurrency bounds parallel deletes in DeleteAllForPost.
	DeleteConcurrency int
}

// CommentStore owns comments grouped by post and the set of posts whose
// comments were already fetched.
type CommentStore struct {
	notifier

	db  remote.DatabaseService
	cfg CommentStoreConfig
	now func() time.Time

	mu      sync.RWMutex
	state   CommentState
	fetched map[string]struct{}
}

var _ CommentPurger = (*CommentStore)(nil)

// NewCommentStore creates an empty comment store.
func NewCommentStore(db remote.DatabaseService, cfg CommentStoreConfig) *CommentStore {
	if cfg.DeleteConcurrency <= 0 {
		cfg.DeleteConcurrency = defaultDeleteConcurrency
	}
	return &CommentStore{
		db:      db,
		cfg:     cfg,
		now:     time.Now,
		state:   CommentState{CommentsByPost: make(map[string][]models.Comment)},
		fetched: make(map[string]struct{}),
	}
}

// State returns a copy of the current state.
func (s *CommentStore) State() CommentState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := CommentState{
		CommentsByPost: make(map[string][]models.Comment, len(s.state.CommentsByPost)),
		Loading:        s.state.Loading,
		Error:          s.state.Error,
	}
	for id, comments := range s.state.CommentsByPost {
		st.CommentsByPost[id] = append([]models.Comment(nil), comments...)
	}
	return st
}

// Comments returns the cached comments of postID and whether an entry exists.
func (s *CommentStore) Comments(postID string) ([]models.Comment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	comments, ok := s.state.CommentsByPost[postID]
	return append([]models.Comment(nil), comments...), ok
}

// Fetched reports whether postID is marked in the dedup cache.
func (s *CommentStore) Fetched(postID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.fetched[postID]
	return ok
}

// Invalidate forgets that postID was fetched so the next Fetch hits the remote service.
func (s *CommentStore) Invalidate(postID string) {
	s.mu.Lock()
	delete(s.fetched, postID)
	s.mu.Unlock()
}

func (s *CommentStore) update(fn func(st *CommentState)) {
	s.mu.Lock()
	fn(&s.state)
	s.mu.Unlock()
	s.notify()
}

func (s *CommentStore) pending() {
	s.update(func(st *CommentState) {
		st.Loading = true
		st.Error = ""
	})
}

func (s *CommentStore) fail(op *operation, appErr *models.AppError) error {
	op.rejected(appErr)
	s.update(func(st *CommentState) {
		st.Loading = false
		st.Error = appErr.Message
	})
	return appErr
}

func (s *CommentStore) cached(postID string) ([]models.Comment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.fetched[postID]; !ok {
		return nil, false
	}
	comments, ok := s.state.CommentsByPost[postID]
	if !ok {
		return nil, false
	}
	return append([]models.Comment(nil), comments...), true
}

// Fetch returns the comments of postID, newest first. Already fetched posts
// are served from the cache without a remote call.
func (s *CommentStore) Fetch(ctx context.Context, postID string) ([]models.Comment, error) {
	op := begin(ctx, commentStoreName, "fetch", map[string]interface{}{"post_id": postID})
	s.pending()

	if comments, ok := s.cached(postID); ok {
		observability.CommentCacheLookups.WithLabelValues("hit").Inc()
		op.fulfilled()
		s.update(func(st *CommentState) {
			st.Loading = false
		})
		return comments, nil
	}
	observability.CommentCacheLookups.WithLabelValues("miss").Inc()

	if postID == "" {
		return nil, s.fail(op, models.NewValidationError(MsgPostIDRequired))
	}

	list, err := s.db.ListDocuments(op.ctx, s.cfg.DatabaseID, s.cfg.CollectionID, []remote.Query{
		remote.Equal("postId", postID),
		remote.OrderDesc("createdAt"),
	})
	if err != nil {
		return nil, s.fail(op, remoteFailure(err, MsgFetchCommentsFailed))
	}
	comments := make([]models.Comment, 0, len(list.Documents))
	for _, raw := range list.Documents {
		var c models.Comment
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, s.fail(op, models.NewRemoteError(MsgFetchCommentsFailed, fmt.Errorf("decode comment: %w", err)))
		}
		comments = append(comments, c)
	}

	op.fulfilled()
	s.update(func(st *CommentState) {
		st.Loading = false
		st.Error = ""
		st.CommentsByPost[postID] = comments
		s.fetched[postID] = struct{}{}
	})
	return append([]models.Comment(nil), comments...), nil
}

// Add persists a comment on postID and puts it first in that post's list.
func (s *CommentStore) Add(ctx context.Context, postID, content string) (*models.Comment, error) {
	id := remote.UniqueID()
	op := begin(ctx, commentStoreName, "add", map[string]interface{}{"post_id": postID, "comment_id": id})
	s.pending()

	if postID == "" {
		return nil, s.fail(op, models.NewValidationError(MsgPostIDRequired))
	}

	raw, err := s.db.CreateDocument(op.ctx, s.cfg.DatabaseID, s.cfg.CollectionID, id, map[string]any{
		"content":   content,
		"postId":    postID,
		"createdAt": s.now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, s.fail(op, remoteFailure(err, MsgAddCommentFailed))
	}
	var created models.Comment
	if err := json.Unmarshal(raw, &created); err != nil {
		return nil, s.fail(op, models.NewRemoteError(MsgAddCommentFailed, fmt.Errorf("decode comment: %w", err)))
	}
	if created.ID == "" {
		created.ID = id
	}
	created.PostID = postID

	s.Invalidate(postID)
	op.fulfilled()
	s.update(func(st *CommentState) {
		st.Loading = false
		st.Error = ""
		st.CommentsByPost[postID] = append([]models.Comment{created}, st.CommentsByPost[postID]...)
		s.fetched[postID] = struct{}{}
	})
	return &created, nil
}

// DeleteAllForPost deletes every cached comment of postID with bounded
// concurrency. A comment that is already gone counts as deleted. On partial
// failure only the failed comments stay cached, so a retry touches just those.
func (s *CommentStore) DeleteAllForPost(ctx context.Context, postID string) error {
	op := begin(ctx, commentStoreName, "delete_all_for_post", map[string]interface{}{"post_id": postID})
	s.pending()

	if postID == "" {
		return s.fail(op, models.NewValidationError(MsgPostIDRequired))
	}

	comments, _ := s.Comments(postID)
	errs := make([]error, len(comments))

	var g errgroup.Group
	g.SetLimit(s.cfg.DeleteConcurrency)
	for i, c := range comments {
		g.Go(func() error {
			err := s.db.DeleteDocument(op.ctx, s.cfg.DatabaseID, s.cfg.CollectionID, c.ID)
			if err != nil && !remote.IsNotFound(err) {
				errs[i] = err
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err == nil {
		op.fulfilled()
		s.update(func(st *CommentState) {
			st.Loading = false
			st.Error = ""
			delete(st.CommentsByPost, postID)
			delete(s.fetched, postID)
		})
		return nil
	}

	failed := &BulkDeleteError{PostID: postID}
	var remaining []models.Comment
	for i, err := range errs {
		if err != nil {
			failed.Failed = append(failed.Failed, comments[i].ID)
			failed.Errs = append(failed.Errs, err)
			remaining = append(remaining, comments[i])
		}
	}

	s.Invalidate(postID)
	s.update(func(st *CommentState) {
		st.CommentsByPost[postID] = remaining
	})
	return s.fail(op, models.NewPartialFailureError(MsgDeleteCommentsFailed, failed))
}
