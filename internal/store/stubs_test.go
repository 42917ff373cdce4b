package store

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"

	"feedsync/internal/models"
	"feedsync/internal/remote"

	"github.com/stretchr/testify/require"
)

// accountStub is a stub for remote.AccountService.
type accountStub struct {
	getFn            func(context.Context) (*models.User, error)
	createFn         func(context.Context, string, string, string, string) (*models.User, error)
	createSessionFn  func(context.Context, string, string) (*models.Session, error)
	deleteSessionsFn func(context.Context) error
	clearSessionFn   func(context.Context) error
}

func (s *accountStub) Get(ctx context.Context) (*models.User, error) {
	return s.getFn(ctx)
}
func (s *accountStub) Create(ctx context.Context, userID, email, password, name string) (*models.User, error) {
	return s.createFn(ctx, userID, email, password, name)
}
func (s *accountStub) CreateEmailPasswordSession(ctx context.Context, email, password string) (*models.Session, error) {
	return s.createSessionFn(ctx, email, password)
}
func (s *accountStub) DeleteSessions(ctx context.Context) error {
	return s.deleteSessionsFn(ctx)
}
func (s *accountStub) ClearSession(ctx context.Context) error {
	return s.clearSessionFn(ctx)
}

func noopAccount() *accountStub {
	return &accountStub{
		getFn: func(context.Context) (*models.User, error) {
			return &models.User{ID: "u1", Name: "Ada", Email: "ada@example.com"}, nil
		},
		createFn: func(_ context.Context, userID, email, _, name string) (*models.User, error) {
			return &models.User{ID: userID, Name: name, Email: email}, nil
		},
		createSessionFn: func(context.Context, string, string) (*models.Session, error) {
			return &models.Session{ID: "s1", UserID: "u1", Secret: "secret"}, nil
		},
		deleteSessionsFn: func(context.Context) error { return nil },
		clearSessionFn:   func(context.Context) error { return nil },
	}
}

// databaseStub is a stub for remote.DatabaseService.
type databaseStub struct {
	listFn   func(context.Context, string, string, []remote.Query) (*remote.DocumentList, error)
	createFn func(context.Context, string, string, string, any) (json.RawMessage, error)
	updateFn func(context.Context, string, string, string, any) (json.RawMessage, error)
	deleteFn func(context.Context, string, string, string) error

	mu    sync.Mutex
	calls []string
}

func (s *databaseStub) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *databaseStub) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *databaseStub) ListDocuments(ctx context.Context, databaseID, collectionID string, queries []remote.Query) (*remote.DocumentList, error) {
	s.record("list " + collectionID)
	return s.listFn(ctx, databaseID, collectionID, queries)
}
func (s *databaseStub) CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, data any) (json.RawMessage, error) {
	s.record("create " + collectionID + "/" + documentID)
	return s.createFn(ctx, databaseID, collectionID, documentID, data)
}
func (s *databaseStub) UpdateDocument(ctx context.Context, databaseID, collectionID, documentID string, data any) (json.RawMessage, error) {
	s.record("update " + collectionID + "/" + documentID)
	return s.updateFn(ctx, databaseID, collectionID, documentID, data)
}
func (s *databaseStub) DeleteDocument(ctx context.Context, databaseID, collectionID, documentID string) error {
	s.record("delete " + collectionID + "/" + documentID)
	return s.deleteFn(ctx, databaseID, collectionID, documentID)
}

// echoDocument returns data as the stored document, with $id set.
func echoDocument(documentID string, data any) (json.RawMessage, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	doc["$id"] = documentID
	return json.Marshal(doc)
}

func noopDatabase() *databaseStub {
	return &databaseStub{
		listFn: func(context.Context, string, string, []remote.Query) (*remote.DocumentList, error) {
			return &remote.DocumentList{}, nil
		},
		createFn: func(_ context.Context, _, _, documentID string, data any) (json.RawMessage, error) {
			return echoDocument(documentID, data)
		},
		updateFn: func(_ context.Context, _, _, documentID string, data any) (json.RawMessage, error) {
			return echoDocument(documentID, data)
		},
		deleteFn: func(context.Context, string, string, string) error { return nil },
	}
}

// storageStub is a stub for remote.StorageService.
type storageStub struct {
	createFileFn func(context.Context, string, string, remote.FileUpload) (*models.File, error)
}

func (s *storageStub) CreateFile(ctx context.Context, bucketID, fileID string, file remote.FileUpload) (*models.File, error) {
	return s.createFileFn(ctx, bucketID, fileID, file)
}
func (s *storageStub) FileViewURL(bucketID, fileID string) string {
	return "https://cloud.example.com/v1/storage/buckets/" + bucketID + "/files/" + fileID + "/view?project=proj&mode=admin"
}

func docs(t testing.TB, items ...any) []json.RawMessage {
	t.Helper()
	out := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		b, err := json.Marshal(item)
		require.NoError(t, err)
		out = append(out, b)
	}
	return out
}

func errServerWith(code int, message string) *remote.Error {
	return &remote.Error{Status: code, Code: code, Message: message}
}

var (
	errUnauthorized = &remote.Error{Status: http.StatusUnauthorized, Code: http.StatusUnauthorized, Message: "User (role: guests) missing scope (account)"}
	errNotFound     = &remote.Error{Status: http.StatusNotFound, Code: http.StatusNotFound, Message: "Document with the requested ID could not be found."}
	errServer       = &remote.Error{Status: http.StatusInternalServerError, Code: http.StatusInternalServerError, Message: "Server Error"}
	errNoMessage    = &remote.Error{Status: http.StatusBadGateway, Code: http.StatusBadGateway}
	errOffline      = &remote.TransportError{Op: "test", Err: errors.New("dial tcp: connection refused")}
)
