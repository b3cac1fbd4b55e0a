package errors

import (
	"fmt"
	"net/http"
)

// NewValidationError creates a validation error with field context
func NewValidationError(field, message string) *AppError {
	return New(ErrCodeValidationFailed, message).
		WithContext("field", field).
		WithUserMessage(fmt.Sprintf("Invalid %s: %s", field, message))
}

// NewNotFoundError creates a not-found error for a queue message id
func NewNotFoundError(messageID int64) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("message %d not found in queue", messageID)).
		WithContext("message_id", messageID).
		WithUserMessage(fmt.Sprintf("No message found with ID %d", messageID))
}

// NewDownloadError creates an attachment download error
func NewDownloadError(filename string, err error) *AppError {
	return WrapRetryable(err, ErrCodeAttachmentDownload, fmt.Sprintf("failed to download attachment %q", filename)).
		WithContext("filename", filename).
		WithUserMessage(fmt.Sprintf("Could not download attachment %q", filename))
}

// NewPublishError creates a publish error from a gateway response status.
// Channel-not-found is surfaced as its own code so operators can tell a bad
// destination from a transient gateway failure; the scheduler treats both as
// retryable on the next tick.
func NewPublishError(channelID string, statusCode int, err error) *AppError {
	code := ErrCodePublishFailed
	if statusCode == http.StatusNotFound {
		code = ErrCodeChannelNotFound
	}
	retryable := statusCode >= 500 || statusCode == http.StatusTooManyRequests || statusCode == http.StatusRequestTimeout

	appErr := Wrap(err, code, fmt.Sprintf("publish to channel %s failed", channelID)).
		WithContext("channel_id", channelID).
		WithContext("status_code", statusCode).
		WithUserMessage(fmt.Sprintf("Publishing to channel %s failed (HTTP %d)", channelID, statusCode))
	appErr.Retryable = retryable
	return appErr
}

// NewPersistenceError creates a persistence error with document context
func NewPersistenceError(document string, err error) *AppError {
	return Wrap(err, ErrCodePersistence, fmt.Sprintf("failed to persist %s document", document)).
		WithContext("document", document).
		WithUserMessage("Saving state failed")
}
