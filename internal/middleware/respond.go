package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/iyunix/go-converse/internal/dtos"
)

func writeError(w http.ResponseWriter, status int, code, message string, retryAfterSeconds int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(dtos.Response{
		Success: false,
		Error:   &dtos.ErrorBody{Code: code, Message: message, RetryAfter: retryAfterSeconds},
	})
}
