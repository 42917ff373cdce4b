// Package remote is the gateway to the backend-as-a-service platform: account
// sessions, document collections and file storage over its REST API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"feedsync/internal/models"
	"feedsync/internal/observability"
	"feedsync/internal/session"
)

const (
	dialTimeout    = 10 * time.Second
	defaultTimeout = 30 * time.Second

	headerProject = "X-Appwrite-Project"
	headerSession = "X-Appwrite-Session"
)

// AccountService is the session/account surface.
type AccountService interface {
	Get(ctx context.Context) (*models.User, error)
	Create(ctx context.Context, userID, email, password, name string) (*models.User, error)
	CreateEmailPasswordSession(ctx context.Context, email, password string) (*models.Session, error)
	DeleteSessions(ctx context.Context) error
	ClearSession(ctx context.Context) error
}

// DatabaseService is the document collection surface.
type DatabaseService interface {
	ListDocuments(ctx context.Context, databaseID, collectionID string, queries []Query) (*DocumentList, error)
	CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, data any) (json.RawMessage, error)
	UpdateDocument(ctx context.Context, databaseID, collectionID, documentID string, data any) (json.RawMessage, error)
	DeleteDocument(ctx context.Context, databaseID, collectionID, documentID string) error
}

// StorageService is the file bucket surface.
type StorageService interface {
	CreateFile(ctx context.Context, bucketID, fileID string, file FileUpload) (*models.File, error)
	FileViewURL(bucketID, fileID string) string
}

// Options configure a Client.
type Options struct {
	Endpoint  string
	ProjectID string
	Timeout   time.Duration
	Sessions  session.Store
	// Transport overrides the underlying round tripper (tests).
	Transport http.RoundTripper
}

// Client talks to the remote service. It implements AccountService,
// DatabaseService and StorageService.
type Client struct {
	endpoint string
	project  string
	http     *http.Client
	sessions session.Store

	mu         sync.Mutex
	secret     string
	secretRead bool
}

var (
	_ AccountService  = (*Client)(nil)
	_ DatabaseService = (*Client)(nil)
	_ StorageService  = (*Client)(nil)
)

// NewClient builds a Client. A nil session store keeps the session in memory only.
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	base := opts.Transport
	if base == nil {
		base = &http.Transport{
			DialContext: (&net.Dialer{Timeout: dialTimeout}).DialContext,
		}
	}
	sessions := opts.Sessions
	if sessions == nil {
		sessions = session.NewMemoryStore()
	}
	return &Client{
		endpoint: strings.TrimRight(opts.Endpoint, "/"),
		project:  opts.ProjectID,
		http: &http.Client{
			Transport: &instrumentedTransport{underlyingTransport: base},
			Timeout:   timeout,
		},
		sessions: sessions,
	}
}

// Endpoint returns the configured endpoint without a trailing slash.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Project returns the configured project identifier.
func (c *Client) Project() string {
	return c.project
}

func (c *Client) currentSecret(ctx context.Context) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.secretRead {
		c.secretRead = true
		rec, err := c.sessions.Load(ctx)
		switch {
		case err == nil && !rec.Expired(time.Now()):
			c.secret = rec.Secret
		case err != nil && !errors.Is(err, session.ErrNoSession):
			observability.Logger().WarnContext(ctx, "failed to load stored session", slog.String("error", err.Error()))
		}
	}
	return c.secret
}

func (c *Client) storeSecret(ctx context.Context, rec session.Record) error {
	c.mu.Lock()
	c.secret = rec.Secret
	c.secretRead = true
	c.mu.Unlock()
	return c.sessions.Save(ctx, rec)
}

// ClearSession forgets the locally persisted session secret without contacting the remote service.
func (c *Client) ClearSession(ctx context.Context) error {
	c.mu.Lock()
	c.secret = ""
	c.secretRead = true
	c.mu.Unlock()
	return c.sessions.Clear(ctx)
}

// call describes one remote request.
type call struct {
	service     string
	operation   string
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
}

func (c *Client) newRequest(ctx context.Context, rc call) (*http.Request, error) {
	u := c.endpoint + rc.path
	if len(rc.query) > 0 {
		u += "?" + rc.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, rc.method, u, rc.body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set(headerProject, c.project)
	req.Header.Set("Accept", "application/json")
	if rc.contentType != "" {
		req.Header.Set("Content-Type", rc.contentType)
	}
	if secret := c.currentSecret(ctx); secret != "" {
		req.Header.Set(headerSession, secret)
	}
	return withCallLabels(req, rc.service, rc.operation), nil
}

// do executes rc and decodes a JSON success body into out (when non-nil).
func (c *Client) do(ctx context.Context, rc call, out any) (http.Header, error) {
	req, err := c.newRequest(ctx, rc)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: rc.service + "." + rc.operation, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: rc.service + "." + rc.operation, Err: err}
	}

	if resp.StatusCode >= 400 {
		return resp.Header, decodeError(resp, body)
	}

	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return resp.Header, fmt.Errorf("decode %s.%s response: %w", rc.service, rc.operation, err)
		}
	}
	return resp.Header, nil
}

func jsonBody(v any) (io.Reader, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return bytes.NewReader(b), nil
}
