package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"feedsync/internal/observability"
	"feedsync/internal/session"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *session.MemoryStore) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	sessions := session.NewMemoryStore()
	return NewClient(Options{
		Endpoint:  srv.URL + "/",
		ProjectID: "proj",
		Timeout:   5 * time.Second,
		Sessions:  sessions,
	}), sessions
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_SendsProjectAndSessionHeaders(t *testing.T) {
	t.Parallel()
	var gotProject, gotSession string
	client, sessions := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotProject = r.Header.Get(headerProject)
		gotSession = r.Header.Get(headerSession)
		writeJSON(w, http.StatusOK, map[string]string{"$id": "u1", "name": "Ada", "email": "ada@example.com"})
	})
	require.NoError(t, sessions.Save(context.Background(), session.Record{Secret: "stored-secret"}))

	user, err := client.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "Ada", user.Name)
	assert.Equal(t, "proj", gotProject)
	assert.Equal(t, "stored-secret", gotSession)
}

func TestClient_ExpiredStoredSessionIsIgnored(t *testing.T) {
	t.Parallel()
	var gotSession string
	client, sessions := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotSession = r.Header.Get(headerSession)
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "missing scope", "code": 401, "type": "general_unauthorized_scope"})
	})
	require.NoError(t, sessions.Save(context.Background(), session.Record{
		Secret:    "old",
		ExpiresAt: time.Now().Add(-time.Hour),
	}))

	_, err := client.Get(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, "missing scope", Message(err))
	assert.Empty(t, gotSession)
}

func TestClient_CreateEmailPasswordSession(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantSecret string
	}{
		{
			name: "secret in body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusCreated, map[string]any{"$id": "s1", "userId": "u1", "secret": "body-secret"})
			},
			wantSecret: "body-secret",
		},
		{
			name: "secret in cookie",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.SetCookie(w, &http.Cookie{Name: SessionCookieName("proj"), Value: "cookie-secret"})
				writeJSON(w, http.StatusCreated, map[string]any{"$id": "s1", "userId": "u1"})
			},
			wantSecret: "cookie-secret",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client, sessions := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/account/sessions/email", r.URL.Path)
				var body map[string]string
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, "ada@example.com", body["email"])
				tt.handler(w, r)
			})

			sess, err := client.CreateEmailPasswordSession(context.Background(), "ada@example.com", "pw")
			require.NoError(t, err)
			assert.Equal(t, tt.wantSecret, sess.Secret)

			rec, err := sessions.Load(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantSecret, rec.Secret)
			assert.Equal(t, "u1", rec.UserID)
		})
	}
}

func TestClient_DeleteSessionsClearsStore(t *testing.T) {
	t.Parallel()
	client, sessions := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	})
	require.NoError(t, sessions.Save(context.Background(), session.Record{Secret: "s"}))

	require.NoError(t, client.DeleteSessions(context.Background()))
	_, err := sessions.Load(context.Background())
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestClient_ListDocumentsEncodesQueries(t *testing.T) {
	t.Parallel()
	var raw []string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/databases/db/collections/posts/documents", r.URL.Path)
		raw = r.URL.Query()["queries[]"]
		writeJSON(w, http.StatusOK, map[string]any{
			"total":     1,
			"documents": []map[string]any{{"$id": "p1", "content": "hi"}},
		})
	})

	list, err := client.ListDocuments(context.Background(), "db", "posts", []Query{
		Equal("postId", "p1"),
		OrderDesc("createdAt"),
		Limit(10),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total)
	require.Len(t, list.Documents, 1)

	require.Len(t, raw, 3)
	q, err := ParseQuery(raw[0])
	require.NoError(t, err)
	assert.Equal(t, "equal", q.Method)
	assert.Equal(t, "postId", q.Attribute)
	assert.Equal(t, []any{"p1"}, q.Values)

	q, err = ParseQuery(raw[2])
	require.NoError(t, err)
	assert.Equal(t, "limit", q.Method)
	assert.Equal(t, []any{float64(10)}, q.Values)
}

func TestClient_DocumentWrites(t *testing.T) {
	t.Parallel()
	var seen []string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.Path)
		switch r.Method {
		case http.MethodPost:
			var body struct {
				DocumentID string         `json:"documentId"`
				Data       map[string]any `json:"data"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "d1", body.DocumentID)
			writeJSON(w, http.StatusCreated, map[string]any{"$id": body.DocumentID, "content": body.Data["content"]})
		case http.MethodPatch:
			writeJSON(w, http.StatusOK, map[string]any{"$id": "d1", "content": "edited"})
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	})
	ctx := context.Background()

	doc, err := client.CreateDocument(ctx, "db", "posts", "d1", map[string]any{"content": "hi"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"$id":"d1","content":"hi"}`, string(doc))

	doc, err = client.UpdateDocument(ctx, "db", "posts", "d1", map[string]any{"content": "edited"})
	require.NoError(t, err)
	assert.Contains(t, string(doc), "edited")

	require.NoError(t, client.DeleteDocument(ctx, "db", "posts", "d1"))
	assert.Equal(t, []string{
		"POST /databases/db/collections/posts/documents",
		"PATCH /databases/db/collections/posts/documents/d1",
		"DELETE /databases/db/collections/posts/documents/d1",
	}, seen)
}

func TestClient_CreateFileIsMultipart(t *testing.T) {
	t.Parallel()
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/storage/buckets/images/files", r.URL.Path)
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "f1", r.FormValue("fileId"))
		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "pic.webp", hdr.Filename)
		assert.Equal(t, "image/webp", hdr.Header.Get("Content-Type"))
		writeJSON(w, http.StatusCreated, map[string]any{
			"$id": "f1", "bucketId": "images", "name": hdr.Filename, "sizeOriginal": len(data),
		})
	})

	file, err := client.CreateFile(context.Background(), "images", "f1", FileUpload{
		Name: "pic.webp", ContentType: "image/webp", Data: []byte("RIFFdata"),
	})
	require.NoError(t, err)
	assert.Equal(t, "f1", file.ID)
	assert.EqualValues(t, 8, file.Size)
}

func TestClient_FileViewURL(t *testing.T) {
	t.Parallel()
	client := NewClient(Options{Endpoint: "https://cloud.example.com/v1/", ProjectID: "proj"})
	assert.Equal(t,
		"https://cloud.example.com/v1/storage/buckets/images/files/f1/view?project=proj&mode=admin",
		client.FileViewURL("images", "f1"))
}

func TestClient_RemoteErrorWithoutJSON(t *testing.T) {
	t.Parallel()
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})

	err := client.DeleteDocument(context.Background(), "db", "posts", "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsNetworkError(err))
	assert.Equal(t, "gone", Message(err))
}

type failingTransport struct{ err error }

func (f failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, f.err
}

func TestClient_NetworkErrorIsClassified(t *testing.T) {
	t.Parallel()
	client := NewClient(Options{
		Endpoint:  "http://unreachable.invalid",
		ProjectID: "proj",
		Transport: failingTransport{err: errors.New("dial tcp: connection refused")},
	})

	before := testutil.ToFloat64(observability.RemoteRequests.WithLabelValues("account", "get", observability.OutcomeNetworkError))
	_, err := client.Get(context.Background())
	require.Error(t, err)
	assert.True(t, IsNetworkError(err))
	assert.False(t, IsUnauthorized(err))

	after := testutil.ToFloat64(observability.RemoteRequests.WithLabelValues("account", "get", observability.OutcomeNetworkError))
	assert.Equal(t, before+1, after)
}

func TestClient_CanceledContextIsNotNetworkError(t *testing.T) {
	t.Parallel()
	client := NewClient(Options{
		Endpoint:  "http://unreachable.invalid",
		ProjectID: "proj",
		Transport: failingTransport{err: context.Canceled},
	})

	_, err := client.Get(context.Background())
	require.Error(t, err)
	assert.False(t, IsNetworkError(err))
}

func TestQuery_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, `{"method":"orderDesc","attribute":"createdAt"}`, OrderDesc("createdAt").String())
	assert.True(t, strings.HasPrefix(Offset(25).String(), `{"method":"offset"`))
}
