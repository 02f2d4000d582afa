// File: internal/services/chat/errors.go
package chat

import (
	"errors"
	"fmt"
	"time"
)

type ErrorType string

const (
	ErrTypeValidation  ErrorType = "VALIDATION"
	ErrTypeNotFound    ErrorType = "NOT_FOUND"
	ErrTypeRateLimited ErrorType = "RATE_LIMITED"
	ErrTypeGeneration  ErrorType = "GENERATION"
	ErrTypeStorage     ErrorType = "STORAGE"
	ErrTypeConflict    ErrorType = "CONFLICT"
)

// ChatError is the only error type chat services return. Message is safe to
// show to clients; Cause is for logs.
type ChatError struct {
	Type       ErrorType
	Operation  string
	Message    string
	ChatID     string
	OwnerID    string
	RetryAfter time.Duration
	Cause      error
}

func (e *ChatError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("Chat %s error in %s: %s (caused by: %v)",
			e.Type, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("Chat %s error in %s: %s", e.Type, e.Operation, e.Message)
}

func (e *ChatError) Unwrap() error { return e.Cause }

func NewValidationError(operation, msg string) *ChatError {
	return &ChatError{Type: ErrTypeValidation, Operation: operation, Message: msg}
}

// NewNotFoundError is used for both missing and foreign chats so callers
// cannot probe for existence.
func NewNotFoundError(operation, ownerID, chatID string) *ChatError {
	return &ChatError{
		Type:      ErrTypeNotFound,
		Operation: operation,
		Message:   "chat not found",
		OwnerID:   ownerID,
		ChatID:    chatID,
	}
}

func NewRateLimitedError(operation string, retryAfter time.Duration, cause error) *ChatError {
	return &ChatError{
		Type:       ErrTypeRateLimited,
		Operation:  operation,
		Message:    "the assistant is receiving too many requests, please retry shortly",
		RetryAfter: retryAfter,
		Cause:      cause,
	}
}

func NewGenerationError(operation string, cause error) *ChatError {
	return &ChatError{Type: ErrTypeGeneration, Operation: operation, Message: "failed to generate a reply", Cause: cause}
}

func NewStorageError(operation string, cause error) *ChatError {
	return &ChatError{Type: ErrTypeStorage, Operation: operation, Message: "failed to save chat", Cause: cause}
}

func NewConflictError(operation, chatID string, cause error) *ChatError {
	return &ChatError{Type: ErrTypeConflict, Operation: operation, Message: "chat is busy, please retry", ChatID: chatID, Cause: cause}
}

// TypeOf returns the ChatError type in err's chain, or "" if there is none.
func TypeOf(err error) ErrorType {
	var ce *ChatError
	if errors.As(err, &ce) {
		return ce.Type
	}
	return ""
}
