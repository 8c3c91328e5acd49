package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mcoot/securechat-go/internal/model"
	"github.com/mcoot/securechat-go/internal/services/credential"
	"github.com/mcoot/securechat-go/internal/services/presence"
	"github.com/mcoot/securechat-go/internal/services/ratelimit"
	"github.com/mcoot/securechat-go/internal/storage"
	"github.com/mcoot/securechat-go/internal/transport"
)

// User-facing response messages. Kept stable; clients display them
// verbatim.
const (
	msgInvalidUsername  = "Invalid username! Use only letters, numbers, and underscores."
	msgUsernameTaken    = "Username already taken"
	msgPasswordTooShort = "Password must be at least 6 characters"
	msgBadCredentials   = "Invalid username or password"
	msgServerError      = "Server error"
)

// Controller drives each connection through its lifecycle:
// unauthenticated on connect, authenticated once registration or
// login succeeds, closed on disconnect. Authentication binds the
// identity to the connection in the presence registry.
type Controller struct {
	creds    *credential.Service
	presence *presence.Registry
	limiter  *ratelimit.Limiter
	store    storage.Store
	logger   *slog.Logger
}

// New creates a new session lifecycle controller
func New(creds *credential.Service, reg *presence.Registry, limiter *ratelimit.Limiter, store storage.Store, logger *slog.Logger) *Controller {
	return &Controller{
		creds:    creds,
		presence: reg,
		limiter:  limiter,
		store:    store,
		logger:   logger.With(slog.String("component", "session")),
	}
}

// Register creates a new identity on the connection. On success the
// connection is bound and every other bound connection is notified
// that the user joined.
func (c *Controller) Register(ctx context.Context, conn transport.Conn, username model.Username, password string) {
	if err := c.creds.Create(ctx, username, password); err != nil {
		conn.Send(model.EventRegistrationResponse, model.ResponsePayload{
			Success: false,
			Message: registrationFailureMessage(err),
		})
		if !isCredentialError(err) {
			c.logger.Error("registration failed",
				slog.String("username", string(username)),
				slog.Any("error", err))
		}
		return
	}

	c.bind(ctx, conn, username)

	conn.Send(model.EventRegistrationResponse, model.ResponsePayload{
		Success: true,
		Message: fmt.Sprintf("Welcome %s!", username),
	})

	// Everyone already online hears about the new user; the new user
	// does not hear about themselves.
	for _, peer := range c.presence.Peers(conn.ID()) {
		peer.Send(model.EventUserJoined, model.PresencePayload{Username: string(username)})
	}

	c.logger.Info("user registered",
		slog.String("username", string(username)),
		slog.String("conn", string(conn.ID())))
}

// Login authenticates an existing identity on the connection. A login
// for an identity already bound elsewhere silently moves the binding;
// the old connection is left open but detached from presence.
func (c *Controller) Login(ctx context.Context, conn transport.Conn, username model.Username, password string) {
	if err := c.creds.Verify(ctx, username, password); err != nil {
		msg := msgBadCredentials
		if !errors.Is(err, model.ErrInvalidCredentials) {
			msg = msgServerError
			c.logger.Error("login failed",
				slog.String("username", string(username)),
				slog.Any("error", err))
		}
		conn.Send(model.EventLoginResponse, model.ResponsePayload{
			Success: false,
			Message: msg,
		})
		return
	}

	c.bind(ctx, conn, username)

	conn.Send(model.EventLoginResponse, model.ResponsePayload{
		Success: true,
		Message: fmt.Sprintf("Welcome back, %s!", username),
	})

	c.logger.Info("user logged in",
		slog.String("username", string(username)),
		slog.String("conn", string(conn.ID())))
}

// Disconnect tears down whatever binding the connection held. If an
// identity goes offline, the remaining bound connections are told the
// user left. Safe to call for connections that never authenticated.
func (c *Controller) Disconnect(ctx context.Context, conn transport.Conn) {
	username, wasBound := c.presence.UnbindHandle(conn.ID())
	if !wasBound {
		return
	}

	c.limiter.Forget(username)

	if err := c.store.SetConnectionMarker(ctx, username, ""); err != nil {
		c.logger.Error("clearing connection marker",
			slog.String("username", string(username)),
			slog.Any("error", err))
	}

	for _, peer := range c.presence.Peers(conn.ID()) {
		peer.Send(model.EventUserLeft, model.PresencePayload{Username: string(username)})
	}

	c.logger.Info("user disconnected",
		slog.String("username", string(username)),
		slog.String("conn", string(conn.ID())))
}

func (c *Controller) bind(ctx context.Context, conn transport.Conn, username model.Username) {
	c.presence.Bind(username, conn)

	if err := c.store.SetConnectionMarker(ctx, username, conn.ID()); err != nil {
		c.logger.Error("setting connection marker",
			slog.String("username", string(username)),
			slog.Any("error", err))
	}
}

func registrationFailureMessage(err error) string {
	switch {
	case errors.Is(err, model.ErrInvalidUsername):
		return msgInvalidUsername
	case errors.Is(err, model.ErrUsernameTaken):
		return msgUsernameTaken
	case errors.Is(err, model.ErrPasswordTooShort):
		return msgPasswordTooShort
	default:
		return msgServerError
	}
}

func isCredentialError(err error) bool {
	return errors.Is(err, model.ErrInvalidUsername) ||
		errors.Is(err, model.ErrUsernameTaken) ||
		errors.Is(err, model.ErrPasswordTooShort)
}
