package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error is a failure reported by the remote service in its JSON error body.
type Error struct {
	Status  int    `json:"-"`
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("remote error %d (%s): %s", e.Code, e.Type, e.Message)
	}
	return fmt.Sprintf("remote error %d: %s", e.Code, e.Message)
}

// TransportError wraps a failure to reach the remote service at all.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsUnauthorized reports whether err is a remote 401.
func IsUnauthorized(err error) bool {
	return hasCode(err, http.StatusUnauthorized)
}

// IsNotFound reports whether err is a remote 404.
func IsNotFound(err error) bool {
	return hasCode(err, http.StatusNotFound)
}

// IsConflict reports whether err is a remote 409.
func IsConflict(err error) bool {
	return hasCode(err, http.StatusConflict)
}

func hasCode(err error, code int) bool {
	var remoteErr *Error
	if errors.As(err, &remoteErr) {
		return remoteErr.Code == code || remoteErr.Status == code
	}
	return false
}

// IsNetworkError reports whether err means the remote service could not be reached.
// Caller cancellation is not a network failure.
func IsNetworkError(err error) bool {
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		return false
	}
	return !errors.Is(transportErr.Err, context.Canceled)
}

// Message extracts the remote-provided message from err, or "" when there is none.
func Message(err error) string {
	var remoteErr *Error
	if errors.As(err, &remoteErr) {
		return remoteErr.Message
	}
	return ""
}

func decodeError(resp *http.Response, body []byte) *Error {
	remoteErr := &Error{Status: resp.StatusCode, Code: resp.StatusCode}
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(body, remoteErr); err == nil && remoteErr.Message != "" {
			if remoteErr.Code == 0 {
				remoteErr.Code = resp.StatusCode
			}
			return remoteErr
		}
	}
	remoteErr.Message = strings.TrimSpace(string(body))
	if remoteErr.Message == "" {
		remoteErr.Message = http.StatusText(resp.StatusCode)
	}
	return remoteErr
}
