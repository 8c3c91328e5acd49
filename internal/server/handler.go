package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/securechat-go/internal/model"
	"github.com/mcoot/securechat-go/internal/services/chat"
	"github.com/mcoot/securechat-go/internal/services/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// TLS termination and origin policy live in front of this server
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ChatHandler serves the websocket endpoint and dispatches inbound
// events to the session controller and message router
type ChatHandler struct {
	sessions *session.Controller
	router   *chat.Router
	logger   *slog.Logger
}

// NewChatHandler creates a new websocket chat handler
func NewChatHandler(sessions *session.Controller, router *chat.Router, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		sessions: sessions,
		router:   router,
		logger:   logger.With(slog.String("component", "ws")),
	}
}

// ServeHTTP upgrades the connection and runs its event loop until the
// client goes away
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	conn := newWSConn(ws, h.logger)
	go conn.writePump()

	h.logger.Info("client connected", slog.String("conn", string(conn.ID())))

	h.readLoop(r.Context(), conn)

	// Whatever state the connection was in, tear down its binding
	h.sessions.Disconnect(context.WithoutCancel(r.Context()), conn)
	_ = conn.Close()
	h.logger.Info("client disconnected", slog.String("conn", string(conn.ID())))
}

func (h *ChatHandler) readLoop(ctx context.Context, conn *wsConn) {
	conn.ws.SetReadLimit(maxMessageSize)
	_ = conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read error",
					slog.String("conn", string(conn.ID())),
					slog.Any("error", err))
			}
			return
		}

		var event model.Event
		if err := json.Unmarshal(data, &event); err != nil {
			h.logger.Warn("malformed event frame",
				slog.String("conn", string(conn.ID())),
				slog.Any("error", err))
			continue
		}

		h.dispatch(ctx, conn, event)
	}
}

func (h *ChatHandler) dispatch(ctx context.Context, conn *wsConn, event model.Event) {
	switch event.Type {
	case model.EventRegister:
		var p model.CredentialsPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			return
		}
		h.sessions.Register(ctx, conn, model.Username(p.Username), p.Password)

	case model.EventLogin:
		var p model.CredentialsPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			return
		}
		h.sessions.Login(ctx, conn, model.Username(p.Username), p.Password)

	case model.EventCheckUser:
		var p model.CheckUserPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			return
		}
		conn.Send(model.EventUserCheckResponse, model.UserCheckResponsePayload{
			Exists: h.router.CheckRecipient(model.Username(p.Username)),
		})

	case model.EventPrivateMessage:
		var p model.PrivateMessagePayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			return
		}
		if err := h.router.SendPrivateMessage(ctx, conn, model.Username(p.Recipient), p.Message); err != nil {
			conn.Send(model.EventMessageError, model.MessageErrorPayload{
				Message: routingErrorMessage(err, p.Recipient),
			})
		}

	default:
		h.logger.Debug("unknown event type",
			slog.String("conn", string(conn.ID())),
			slog.String("event", string(event.Type)))
	}
}

// routingErrorMessage maps routing outcomes to the messages clients
// display verbatim
func routingErrorMessage(err error, recipient string) string {
	switch {
	case errors.Is(err, model.ErrRateLimited):
		return "Rate limit exceeded. Please wait before sending more messages."
	case errors.Is(err, model.ErrUnauthenticated):
		return "You must log in before sending messages."
	case errors.Is(err, model.ErrRecipientOffline):
		return fmt.Sprintf("User %s not found", recipient)
	default:
		return "Server error"
	}
}
