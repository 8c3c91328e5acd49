package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/securechat-go/internal/middleware"
	"github.com/mcoot/securechat-go/internal/services/chat"
	"github.com/mcoot/securechat-go/internal/services/session"
)

// RouterConfig holds configuration for the HTTP router
type RouterConfig struct {
	Logger   *slog.Logger
	Sessions *session.Controller
	Router   *chat.Router
}

// NewRouter creates the HTTP router exposing the websocket endpoint
// and the health check
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)

	chatHandler := NewChatHandler(cfg.Sessions, cfg.Router, cfg.Logger)

	r.Handle("/ws", chatHandler).Methods(http.MethodGet)
	r.HandleFunc("/healthz", healthHandler).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
