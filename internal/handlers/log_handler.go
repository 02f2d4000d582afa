// File: internal/handlers/log_handler.go
package handlers

import (
	"net/http"
	"strings"

	"github.com/iyunix/go-converse/internal/logging"
	"github.com/iyunix/go-converse/internal/middleware"
)

const maxClientLogMessage = 2000

// FrontendLogPayload defines the structure for logs coming from the browser.
type FrontendLogPayload struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	Context any    `json:"context,omitempty"`
}

type LogHandler struct {
	Logger logging.Logger
}

func NewLogHandler(logger logging.Logger) *LogHandler {
	return &LogHandler{Logger: logger}
}

// LogFrontendEvent handles POST /api/log.
func (h *LogHandler) LogFrontendEvent(w http.ResponseWriter, r *http.Request) {
	var payload FrontendLogPayload
	if !decodeJSON(w, r, &payload, false) {
		return
	}
	msg := payload.Message
	if len(msg) > maxClientLogMessage {
		msg = msg[:maxClientLogMessage]
	}

	kv := []interface{}{
		"message", msg,
		"context", payload.Context,
		"request_id", middleware.RequestIDFromContext(r.Context()),
	}
	switch strings.ToLower(payload.Level) {
	case "error":
		h.Logger.Error("CLIENT_LOG", kv...)
	case "warn", "warning":
		h.Logger.Warn("CLIENT_LOG", kv...)
	case "debug":
		h.Logger.Debug("CLIENT_LOG", kv...)
	default:
		h.Logger.Info("CLIENT_LOG", kv...)
	}
	w.WriteHeader(http.StatusNoContent)
}
