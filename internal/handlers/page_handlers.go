// File: internal/handlers/page_handlers.go
package handlers

import (
	"embed"
	"html/template"
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"github.com/iyunix/go-converse/internal/dtos"
	"github.com/iyunix/go-converse/internal/logging"
	"github.com/iyunix/go-converse/internal/render"
	"github.com/iyunix/go-converse/internal/services"
	chatservice "github.com/iyunix/go-converse/internal/services/chat"
)

//go:embed templates/*.html
var templateFS embed.FS

// Template cache to avoid parsing templates on every request
var (
	templateCache     map[string]*template.Template
	templateCacheOnce sync.Once
)

// loadTemplateCache creates separate template sets for each page
func loadTemplateCache() {
	templateCache = make(map[string]*template.Template)
	for _, page := range []string{"shared.html", "error.html"} {
		templateCache[page] = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/"+page))
	}
}

func addSecurityHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Security-Policy", "default-src 'self'; img-src * data:")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Referrer-Policy", "no-referrer")
}

// PageHandler serves the server-rendered pages: the public view of a shared
// chat and the error pages.
type PageHandler struct {
	ShareService *services.ShareService
	Markdown     *render.Markdown
	Logger       logging.Logger
}

func NewPageHandler(ss *services.ShareService, md *render.Markdown, logger logging.Logger) *PageHandler {
	return &PageHandler{ShareService: ss, Markdown: md, Logger: logger}
}

func (h *PageHandler) renderTemplate(w http.ResponseWriter, status int, page string, data interface{}) {
	templateCacheOnce.Do(loadTemplateCache)
	addSecurityHeaders(w)

	t, ok := templateCache[page]
	if !ok {
		h.Logger.Error("template not found in cache", "template", page)
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := t.ExecuteTemplate(w, "layout.html", data); err != nil {
		h.Logger.Error("template render error", "template", page, "error", err)
	}
}

// ShowSharedChat handles GET /share/{token}, the page share links point to.
func (h *PageHandler) ShowSharedChat(w http.ResponseWriter, r *http.Request) {
	c, err := h.ShareService.GetSharedChat(r.Context(), mux.Vars(r)["token"])
	if err != nil {
		if chatservice.TypeOf(err) == chatservice.ErrTypeNotFound {
			h.ShowErrorPage(w, http.StatusNotFound, "Chat Not Found", "This link is invalid or has expired.")
			return
		}
		h.Logger.Error("failed to load shared chat", "error", err)
		h.ShowErrorPage(w, http.StatusInternalServerError, "Something Went Wrong", "Please try again later.")
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	h.renderTemplate(w, http.StatusOK, "shared.html", map[string]interface{}{
		"Chat": dtos.ToSharedChatDTO(c, h.Markdown.Render),
	})
}

func (h *PageHandler) ShowErrorPage(w http.ResponseWriter, status int, message, description string) {
	h.renderTemplate(w, status, "error.html", map[string]interface{}{
		"Code":        status,
		"Message":     message,
		"Description": description,
	})
}
