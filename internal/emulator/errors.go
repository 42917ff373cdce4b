package emulator

import (
	"errors"
	"log/slog"

	"feedsync/internal/models"
	"feedsync/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// apiError is an error rendered in the platform's JSON error shape.
type apiError struct {
	Status  int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return e.Type + ": " + e.Message
}

func newAPIError(status int, typ, message string) *apiError {
	return &apiError{Status: status, Type: typ, Message: message}
}

var (
	errGuest = newAPIError(fiber.StatusUnauthorized, "general_unauthorized_scope",
		"User (role: guests) missing scope (account)")
	errInvalidCredentials = newAPIError(fiber.StatusUnauthorized, "user_invalid_credentials",
		"Invalid credentials. Please check the email and password.")
	errUserExists = newAPIError(fiber.StatusConflict, "user_already_exists",
		"A user with the same id, email, or phone already exists in this project.")
	errDocumentNotFound = newAPIError(fiber.StatusNotFound, "document_not_found",
		"Document with the requested ID could not be found.")
	errDocumentExists = newAPIError(fiber.StatusConflict, "document_already_exists",
		"Document with the requested ID already exists.")
	errFileNotFound = newAPIError(fiber.StatusNotFound, "storage_file_not_found",
		"The requested file could not be found.")
	errProjectNotFound = newAPIError(fiber.StatusNotFound, "project_not_found",
		"Project with the requested ID could not be found.")
)

func invalidArgument(message string) *apiError {
	return newAPIError(fiber.StatusBadRequest, "general_argument_invalid", message)
}

// respondError writes err in the platform's error shape. AppErrors from the
// repositories map by code; anything else is a 500.
func respondError(c *fiber.Ctx, err error) error {
	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		apiErr = fromAppError(err)
	}
	if apiErr.Status >= fiber.StatusInternalServerError {
		observability.Logger().ErrorContext(c.UserContext(), "request failed",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
	}
	return c.Status(apiErr.Status).JSON(apiErr)
}

func fromAppError(err error) *apiError {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case models.CodeValidation:
			return invalidArgument(appErr.Message)
		case models.CodeNotAuthenticated:
			return newAPIError(fiber.StatusUnauthorized, "general_unauthorized_scope", appErr.Message)
		case models.CodeNotFound:
			return newAPIError(fiber.StatusNotFound, "general_not_found", appErr.Message)
		case models.CodeConflict:
			return newAPIError(fiber.StatusConflict, "general_conflict", appErr.Message)
		}
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		switch fiberErr.Code {
		case fiber.StatusNotFound:
			return newAPIError(fiberErr.Code, "general_route_not_found", "The requested route was not found.")
		case fiber.StatusRequestEntityTooLarge:
			return newAPIError(fiberErr.Code, "storage_invalid_file_size", "File size not allowed")
		default:
			return newAPIError(fiberErr.Code, "general_unknown", fiberErr.Message)
		}
	}
	return newAPIError(fiber.StatusInternalServerError, "general_server_error", "Server Error")
}
