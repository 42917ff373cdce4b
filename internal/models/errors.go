package models

import (
	"errors"
	"fmt"
)

// Error codes mirror the client's failure taxonomy.
const (
	CodeNotAuthenticated   = "NOT_AUTHENTICATED"
	CodeNetworkUnavailable = "NETWORK_UNAVAILABLE"
	CodeRemote             = "REMOTE_ERROR"
	CodeValidation         = "VALIDATION_ERROR"
	CodePrecondition       = "PRECONDITION_FAILED"
	CodePartialFailure     = "PARTIAL_FAILURE"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeInternal           = "INTERNAL_ERROR"
)

// NetworkUnavailableMessage is the fixed user-facing text for connectivity failures.
const NetworkUnavailableMessage = "Network connection unavailable"

// AppError represents a custom application error. Message is always safe to show to a user.
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewConflictError(message string) *AppError {
	return &AppError{
		Code:    CodeConflict,
		Message: message,
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

func NewUnauthorizedError(message string, err error) *AppError {
	return &AppError{
		Code:    CodeNotAuthenticated,
		Message: message,
		Err:     err,
	}
}

func NewNetworkError(err error) *AppError {
	return &AppError{
		Code:    CodeNetworkUnavailable,
		Message: NetworkUnavailableMessage,
		Err:     err,
	}
}

func NewRemoteError(message string, err error) *AppError {
	return &AppError{
		Code:    CodeRemote,
		Message: message,
		Err:     err,
	}
}

func NewPreconditionError(message string) *AppError {
	return &AppError{
		Code:    CodePrecondition,
		Message: message,
	}
}

func NewPartialFailureError(message string, err error) *AppError {
	return &AppError{
		Code:    CodePartialFailure,
		Message: message,
		Err:     err,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal error",
		Err:     err,
	}
}

// ErrorCode returns the AppError code carried by err, or "" when err is not an AppError.
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// UserMessage returns the user-facing message for err, falling back to fallback
// when err carries no AppError or an empty message.
func UserMessage(err error, fallback string) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return fallback
}
