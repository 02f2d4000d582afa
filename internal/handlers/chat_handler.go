// File: internal/handlers/chat_handler.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/iyunix/go-converse/internal/dtos"
	"github.com/iyunix/go-converse/internal/logging"
	"github.com/iyunix/go-converse/internal/services"
)

type ChatHandler struct {
	ChatService *services.ChatService
	Logger      logging.Logger
}

func NewChatHandler(cs *services.ChatService, logger logging.Logger) *ChatHandler {
	return &ChatHandler{ChatService: cs, Logger: logger}
}

// CreateChat handles POST /api/chats.
func (h *ChatHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOrUnauthorized(w, r)
	if !ok {
		return
	}
	var req dtos.CreateChatRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}

	c, err := h.ChatService.CreateChat(r.Context(), owner, req.Title)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, dtos.ToChatDTO(c))
}

// GetChat handles GET /api/chats/{id}.
func (h *ChatHandler) GetChat(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOrUnauthorized(w, r)
	if !ok {
		return
	}
	c, err := h.ChatService.GetChat(r.Context(), owner, mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.ToChatDTO(c))
}

// SendMessage handles POST /api/chats/{id}/messages and POST /api/messages.
// The path id wins over a chatId in the body.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOrUnauthorized(w, r)
	if !ok {
		return
	}
	var req dtos.SendMessageRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	chatID := req.ChatID
	if id, found := mux.Vars(r)["id"]; found {
		chatID = id
	}

	res, err := h.ChatService.SendMessage(r.Context(), services.SendInput{
		OwnerID: owner,
		ChatID:  chatID,
		Text:    req.Message,
		Image:   req.Image,
	})
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, dtos.SendMessageResponse{Reply: res.Reply, Created: res.Created, Chat: dtos.ToChatDTO(res.Chat)})
}

// Regenerate handles POST /api/chats/{id}/regenerate.
func (h *ChatHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOrUnauthorized(w, r)
	if !ok {
		return
	}
	res, err := h.ChatService.Regenerate(r.Context(), owner, mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.SendMessageResponse{Reply: res.Reply, Chat: dtos.ToChatDTO(res.Chat)})
}

// UpdateChat handles PATCH /api/chats/{id}.
func (h *ChatHandler) UpdateChat(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOrUnauthorized(w, r)
	if !ok {
		return
	}
	var req dtos.UpdateChatRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}

	c, err := h.ChatService.UpdateChat(r.Context(), owner, mux.Vars(r)["id"], services.UpdateInput{
		Title:     req.Title,
		IsStarred: req.IsStarred,
		Tags:      req.Tags,
		IsShared:  req.IsShared,
	})
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.ToChatDTO(c))
}

// DeleteChat handles DELETE /api/chats/{id}.
func (h *ChatHandler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOrUnauthorized(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]
	if err := h.ChatService.DeleteChat(r.Context(), owner, id); err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.DeleteChatResponse{ID: id, Deleted: true})
}

// SetFeedback handles PATCH /api/chats/{id}/messages/{seq}/feedback.
func (h *ChatHandler) SetFeedback(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOrUnauthorized(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	seq, err := strconv.Atoi(vars["seq"])
	if err != nil || seq < 0 {
		writeBadRequest(w, "Invalid message index")
		return
	}
	var req dtos.FeedbackRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	m, err := h.ChatService.SetMessageFeedback(r.Context(), owner, vars["id"], seq, req.Feedback)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.ToMessageDTO(m))
}
