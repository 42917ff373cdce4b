package store

import (
	"fmt"
	"strings"

	"feedsync/internal/models"
	"feedsync/internal/remote"
)

// Fallback messages used when the remote service gives no message of its own.
const (
	MsgInvalidCredentials   = "Invalid credentials"
	MsgRegistrationFailed   = "Registration failed"
	MsgLoginFailed          = "Login failed"
	MsgLogoutFailed         = "Logout failed"
	MsgCheckStatusFailed    = "Unable to verify session"
	MsgFetchPostsFailed     = "Failed to fetch posts"
	MsgUploadImageFailed    = "Failed to upload image"
	MsgCreatePostFailed     = "Failed to create post"
	MsgUpdatePostFailed     = "Failed to update post"
	MsgDeleteFailed         = "Delete failed"
	MsgFetchCommentsFailed  = "Failed to fetch comments"
	MsgAddCommentFailed     = "Failed to add comment"
	MsgDeleteCommentsFailed = "Failed to delete comments"
	MsgPostIDRequiredUpdate = "Post ID is required for update"
	MsgPostIDRequiredDelete = "Post ID is required for deletion"
	MsgPostIDRequired       = "Post ID is required"
)

// remoteFailure wraps a remote error for the post and comment stores: the
// user message is whatever the remote service said, else fallback.
func remoteFailure(err error, fallback string) *models.AppError {
	msg := remote.Message(err)
	if msg == "" {
		msg = fallback
	}
	appErr := models.NewRemoteError(msg, err)
	if remote.IsNetworkError(err) {
		appErr.Code = models.CodeNetworkUnavailable
	}
	return appErr
}

// BulkDeleteError lists the comments that could not be deleted for a post.
type BulkDeleteError struct {
	PostID string
	Failed []string
	Errs   []error
}

func (e *BulkDeleteError) Error() string {
	return fmt.Sprintf("delete comments of post %s: %d failed (%s)",
		e.PostID, len(e.Failed), strings.Join(e.Failed, ", "))
}

// Unwrap exposes the per-comment causes to errors.Is/As.
func (e *BulkDeleteError) Unwrap() []error {
	return e.Errs
}
