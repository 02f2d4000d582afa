// File: internal/handlers/router.go
package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iyunix/go-converse/internal/logging"
	"github.com/iyunix/go-converse/internal/metrics"
	"github.com/iyunix/go-converse/internal/middleware"
	"github.com/iyunix/go-converse/internal/ratelimit"
)

// RouterConfig carries what the route table needs besides the handlers.
type RouterConfig struct {
	JWTSecret   []byte
	SweepSecret string
	SendLimiter *ratelimit.MemoryRateLimiter
	Metrics     *metrics.Metrics
	Logger      logging.Logger
}

type Handlers struct {
	Chat    *ChatHandler
	Share   *ShareHandler
	History *HistoryHandler
	Page    *PageHandler
	Log     *LogHandler
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Request-ID")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func chain(h http.HandlerFunc, mws ...func(http.Handler) http.Handler) http.Handler {
	var out http.Handler = h
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// NewRouter builds the full route table.
func NewRouter(cfg RouterConfig, h *Handlers) *mux.Router {
	r := mux.NewRouter()
	r.Use(corsMiddleware)
	r.Use(middleware.RecoverPanic(cfg.Logger))
	r.Use(middleware.LoggingMiddleware(cfg.Logger, cfg.Metrics))

	authed := middleware.NewJWTMiddleware(cfg.JWTSecret, cfg.Logger)
	internal := middleware.RequireInternal(cfg.SweepSecret, cfg.Logger)
	var sendLimit func(http.Handler) http.Handler = func(next http.Handler) http.Handler { return next }
	if cfg.SendLimiter != nil {
		sendLimit = middleware.RateLimitMiddleware(cfg.SendLimiter, "send", cfg.Logger)
	}

	// --- Public Routes ---
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet)
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler()).Methods(http.MethodGet)
	}
	r.HandleFunc("/share/{token}", h.Page.ShowSharedChat).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/log", h.Log.LogFrontendEvent).Methods(http.MethodPost)
	api.HandleFunc("/shared/{token}", h.Share.GetShared).Methods(http.MethodGet)

	// --- Internal Routes ---
	api.Handle("/chats/sweep-expired", chain(h.Share.SweepExpired, internal)).Methods(http.MethodPost)

	// --- Owner Routes ---
	api.Handle("/chats", chain(h.History.ListChats, authed)).Methods(http.MethodGet)
	api.Handle("/chats", chain(h.Chat.CreateChat, authed)).Methods(http.MethodPost)
	api.Handle("/messages", chain(h.Chat.SendMessage, authed, sendLimit)).Methods(http.MethodPost)
	api.Handle("/chats/{id}", chain(h.Chat.GetChat, authed)).Methods(http.MethodGet)
	api.Handle("/chats/{id}", chain(h.Chat.UpdateChat, authed)).Methods(http.MethodPatch)
	api.Handle("/chats/{id}", chain(h.Chat.DeleteChat, authed)).Methods(http.MethodDelete)
	api.Handle("/chats/{id}/messages", chain(h.Chat.SendMessage, authed, sendLimit)).Methods(http.MethodPost)
	api.Handle("/chats/{id}/regenerate", chain(h.Chat.Regenerate, authed, sendLimit)).Methods(http.MethodPost)
	api.Handle("/chats/{id}/messages/{seq:[0-9]+}/feedback", chain(h.Chat.SetFeedback, authed)).Methods(http.MethodPatch)
	api.Handle("/chats/{id}/share", chain(h.Share.Share, authed)).Methods(http.MethodPost)
	api.Handle("/chats/{id}/share", chain(h.Share.Unshare, authed)).Methods(http.MethodDelete)

	// --- Custom Error Handlers ---
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeErrorBody(w, http.StatusNotFound, errorBody("NOT_FOUND", "route not found"))
	})
	// Preflight requests never match a route's method, so CORS answers them here.
	r.MethodNotAllowedHandler = corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeErrorBody(w, http.StatusMethodNotAllowed, errorBody("METHOD_NOT_ALLOWED", "method not allowed"))
	}))
	return r
}
