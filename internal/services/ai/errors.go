// File: internal/services/ai/errors.go
package ai

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

type ErrorType string

const (
	ErrTypeConfig     ErrorType = "CONFIG"
	ErrTypeNetwork    ErrorType = "NETWORK"
	ErrTypeProvider   ErrorType = "PROVIDER"
	ErrTypeRateLimit  ErrorType = "RATE_LIMIT"
	ErrTypeQuota      ErrorType = "QUOTA"
	ErrTypeEmpty      ErrorType = "EMPTY"
	ErrTypeValidation ErrorType = "VALIDATION"
)

type AIError struct {
	Type      ErrorType
	Code      int
	Message   string
	Model     string
	Operation string
	Cause     error
}

func (e *AIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("AI %s error in %s: %s (caused by: %v)",
			e.Type, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("AI %s error in %s: %s", e.Type, e.Operation, e.Message)
}

func (e *AIError) Unwrap() error { return e.Cause }

func NewConfigError(msg string) *AIError {
	return &AIError{Type: ErrTypeConfig, Message: msg, Operation: "config"}
}

func NewProviderError(operation, msg string, cause error) *AIError {
	return &AIError{Type: ErrTypeProvider, Operation: operation, Message: msg, Cause: cause}
}

func NewEmptyResponseError(operation, model string) *AIError {
	return &AIError{Type: ErrTypeEmpty, Operation: operation, Model: model, Message: "empty response"}
}

// IsRateLimited reports whether err is a provider rate-limit or quota failure.
func IsRateLimited(err error) bool {
	var aiErr *AIError
	if errors.As(err, &aiErr) {
		return aiErr.Type == ErrTypeRateLimit || aiErr.Type == ErrTypeQuota
	}
	return false
}

// retryable reports whether another attempt could succeed.
func retryable(err error) bool {
	var aiErr *AIError
	if !errors.As(err, &aiErr) {
		return true
	}
	switch aiErr.Type {
	case ErrTypeRateLimit, ErrTypeQuota, ErrTypeConfig, ErrTypeValidation:
		return false
	}
	return aiErr.Code == 0 || aiErr.Code >= http.StatusInternalServerError
}

// classify converts an SDK error into an *AIError, detecting rate limits and
// quota exhaustion for both supported providers.
func classify(operation, model string, err error) *AIError {
	code := 0
	msg := err.Error()

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	var gAPIErr genai.APIError
	var gAPIErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.HTTPStatusCode
		msg = apiErr.Message
		if t, ok := apiErr.Code.(string); ok && t == "insufficient_quota" {
			return &AIError{Type: ErrTypeQuota, Code: code, Message: msg, Model: model, Operation: operation, Cause: err}
		}
	case errors.As(err, &reqErr):
		code = reqErr.HTTPStatusCode
	case errors.As(err, &gAPIErr):
		code = gAPIErr.Code
		msg = gAPIErr.Message
	case errors.As(err, &gAPIErrPtr):
		code = gAPIErrPtr.Code
		msg = gAPIErrPtr.Message
	}

	t := ErrTypeProvider
	switch {
	case code == http.StatusTooManyRequests:
		t = ErrTypeRateLimit
		if strings.Contains(strings.ToLower(msg), "quota") {
			t = ErrTypeQuota
		}
	case code == 0:
		t = ErrTypeNetwork
	}
	return &AIError{Type: t, Code: code, Message: msg, Model: model, Operation: operation, Cause: err}
}
