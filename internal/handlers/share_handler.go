// File: internal/handlers/share_handler.go
package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iyunix/go-converse/internal/dtos"
	"github.com/iyunix/go-converse/internal/logging"
	"github.com/iyunix/go-converse/internal/render"
	"github.com/iyunix/go-converse/internal/services"
)

type ShareHandler struct {
	ShareService *services.ShareService
	Markdown     *render.Markdown
	Logger       logging.Logger
	SweepMode    string
}

func NewShareHandler(ss *services.ShareService, md *render.Markdown, logger logging.Logger, sweepMode SweepMode) *ShareHandler {
	return &ShareHandler{ShareService: ss, Markdown: md, Logger: logger, SweepMode: string(sweepMode)}
}

// SweepMode names the configured sweep policy for responses.
type SweepMode string

// Share handles POST /api/chats/{id}/share.
func (h *ShareHandler) Share(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOrUnauthorized(w, r)
	if !ok {
		return
	}
	link, err := h.ShareService.Share(r.Context(), owner, mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.ShareLinkDTO{Token: link.Token, URL: link.URL, ExpiresAt: link.ExpiresAt})
}

// Unshare handles DELETE /api/chats/{id}/share.
func (h *ShareHandler) Unshare(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOrUnauthorized(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]
	if err := h.ShareService.Unshare(r.Context(), owner, id); err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.ShareStateResponse{ID: id, IsShared: false})
}

// GetShared handles the public GET /api/shared/{token}.
func (h *ShareHandler) GetShared(w http.ResponseWriter, r *http.Request) {
	c, err := h.ShareService.GetSharedChat(r.Context(), mux.Vars(r)["token"])
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, dtos.ToSharedChatDTO(c, h.Markdown.Render))
}

// SweepExpired handles the internal POST /api/chats/sweep-expired.
func (h *ShareHandler) SweepExpired(w http.ResponseWriter, r *http.Request) {
	n, err := h.ShareService.SweepExpiredShares(r.Context())
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.SweepResponse{Mode: h.SweepMode, Count: n})
}
