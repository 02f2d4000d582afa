// File: internal/handlers/respond.go
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/iyunix/go-converse/internal/dtos"
	"github.com/iyunix/go-converse/internal/logging"
	"github.com/iyunix/go-converse/internal/middleware"
	chatservice "github.com/iyunix/go-converse/internal/services/chat"
)

const maxBodyBytes = 1 << 20

// writeJSON is a helper for sending success envelopes.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(dtos.Response{Success: true, Data: data})
}

func writeErrorBody(w http.ResponseWriter, status int, body dtos.ErrorBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(dtos.Response{Success: false, Error: &body})
}

// writeBadRequest is for failures caught before a service is called.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeErrorBody(w, http.StatusBadRequest, dtos.ErrorBody{Code: string(chatservice.ErrTypeValidation), Message: message})
}

// writeServiceError maps a ChatError to its status. Causes are logged, never sent.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger logging.Logger, err error) {
	var ce *chatservice.ChatError
	if !errors.As(err, &ce) {
		logger.Error("unclassified handler error", "path", r.URL.Path, "request_id", middleware.RequestIDFromContext(r.Context()), "error", err)
		writeErrorBody(w, http.StatusInternalServerError, dtos.ErrorBody{Code: string(chatservice.ErrTypeStorage), Message: "internal error"})
		return
	}

	status := statusFor(ce.Type)
	if status >= 500 {
		logger.Error("request failed",
			"operation", ce.Operation,
			"type", ce.Type,
			"chat_id", ce.ChatID,
			"request_id", middleware.RequestIDFromContext(r.Context()),
			"error", ce.Cause)
	}

	body := dtos.ErrorBody{Code: string(ce.Type), Message: ce.Message}
	if ce.Type == chatservice.ErrTypeRateLimited && ce.RetryAfter > 0 {
		body.RetryAfter = int(math.Ceil(ce.RetryAfter.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(body.RetryAfter))
	}
	writeErrorBody(w, status, body)
}

func statusFor(t chatservice.ErrorType) int {
	switch t {
	case chatservice.ErrTypeValidation:
		return http.StatusBadRequest
	case chatservice.ErrTypeNotFound:
		return http.StatusNotFound
	case chatservice.ErrTypeRateLimited:
		return http.StatusTooManyRequests
	case chatservice.ErrTypeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a bounded JSON body into dst. An empty body is allowed
// when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, allowEmpty bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || (allowEmpty && errors.Is(err, io.EOF)) {
		return true
	}
	writeBadRequest(w, "Invalid request body")
	return false
}

// ownerOrUnauthorized pulls the owner set by the JWT middleware.
func ownerOrUnauthorized(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner, ok := middleware.OwnerIDFromContext(r.Context())
	if !ok {
		writeErrorBody(w, http.StatusUnauthorized, dtos.ErrorBody{Code: "UNAUTHORIZED", Message: "authentication required"})
	}
	return owner, ok
}

func errorBody(code, message string) dtos.ErrorBody {
	return dtos.ErrorBody{Code: code, Message: message}
}
