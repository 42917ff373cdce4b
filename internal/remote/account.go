package remote

import (
	"context"
	"net/http"
	"time"

	"feedsync/internal/models"
	"feedsync/internal/session"
)

// SessionCookieName is the cookie carrying the session secret for project.
func SessionCookieName(project string) string {
	return "a_session_" + project
}

// Get returns the user behind the current session.
func (c *Client) Get(ctx context.Context) (*models.User, error) {
	var user models.User
	if _, err := c.do(ctx, call{
		service:   "account",
		operation: "get",
		method:    http.MethodGet,
		path:      "/account",
	}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Create registers a new account.
func (c *Client) Create(ctx context.Context, userID, email, password, name string) (*models.User, error) {
	body, err := jsonBody(map[string]string{
		"userId":   userID,
		"email":    email,
		"password": password,
		"name":     name,
	})
	if err != nil {
		return nil, err
	}

	var user models.User
	if _, err := c.do(ctx, call{
		service:     "account",
		operation:   "create",
		method:      http.MethodPost,
		path:        "/account",
		body:        body,
		contentType: "application/json",
	}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateEmailPasswordSession logs in and persists the issued secret.
func (c *Client) CreateEmailPasswordSession(ctx context.Context, email, password string) (*models.Session, error) {
	body, err := jsonBody(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	var sess models.Session
	header, err := c.do(ctx, call{
		service:     "account",
		operation:   "create_session",
		method:      http.MethodPost,
		path:        "/account/sessions/email",
		body:        body,
		contentType: "application/json",
	}, &sess)
	if err != nil {
		return nil, err
	}

	if sess.Secret == "" {
		// Browser-style deployments only return the secret as a cookie.
		resp := http.Response{Header: header}
		for _, ck := range resp.Cookies() {
			if ck.Name == SessionCookieName(c.project) {
				sess.Secret = ck.Value
			}
		}
	}

	if sess.Secret != "" {
		if err := c.storeSecret(ctx, session.Record{
			Secret:    sess.Secret,
			UserID:    sess.UserID,
			SavedAt:   time.Now().UTC(),
			ExpiresAt: sess.Expire,
		}); err != nil {
			return &sess, err
		}
	}
	return &sess, nil
}

// DeleteSessions ends every session of the current user and forgets the local secret.
func (c *Client) DeleteSessions(ctx context.Context) error {
	if _, err := c.do(ctx, call{
		service:   "account",
		operation: "delete_sessions",
		method:    http.MethodDelete,
		path:      "/account/sessions",
	}, nil); err != nil {
		return err
	}
	return c.ClearSession(ctx)
}
