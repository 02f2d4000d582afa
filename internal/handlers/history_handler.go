// File: internal/handlers/history_handler.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/iyunix/go-converse/internal/dtos"
	"github.com/iyunix/go-converse/internal/logging"
	"github.com/iyunix/go-converse/internal/services"
)

type HistoryHandler struct {
	HistoryService *services.HistoryService
	Logger         logging.Logger
}

func NewHistoryHandler(hs *services.HistoryService, logger logging.Logger) *HistoryHandler {
	return &HistoryHandler{HistoryService: hs, Logger: logger}
}

// ListChats handles GET /api/chats?q=&page=&limit=. Unparseable numbers fall
// back to the defaults.
func (h *HistoryHandler) ListChats(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOrUnauthorized(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	p, err := h.HistoryService.ListChats(r.Context(), owner, services.ListQuery{
		Query:    q.Get("q"),
		Page:     page,
		PageSize: limit,
	})
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.ToChatListResponse(p))
}
