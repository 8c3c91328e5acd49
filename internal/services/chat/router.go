package chat

import (
	"context"
	"log/slog"

	"github.com/mcoot/securechat-go/internal/dependencies/clock"
	"github.com/mcoot/securechat-go/internal/model"
	"github.com/mcoot/securechat-go/internal/services/presence"
	"github.com/mcoot/securechat-go/internal/services/ratelimit"
	"github.com/mcoot/securechat-go/internal/storage"
	"github.com/mcoot/securechat-go/internal/transport"
)

// Router delivers private messages between online identities. Every
// send resolves the sender from its connection, passes rate limiting,
// and resolves the recipient's live connection before delivery.
type Router struct {
	presence *presence.Registry
	limiter  *ratelimit.Limiter
	store    storage.Store
	clock    clock.Clock
	logger   *slog.Logger
}

// New creates a new message router
func New(reg *presence.Registry, limiter *ratelimit.Limiter, store storage.Store, clk clock.Clock, logger *slog.Logger) *Router {
	return &Router{
		presence: reg,
		limiter:  limiter,
		store:    store,
		clock:    clk,
		logger:   logger.With(slog.String("component", "router")),
	}
}

// SendPrivateMessage routes one message from the connection that sent
// it to the named recipient. Checks short-circuit in order:
// sender identity, rate limit, recipient presence. A denied or
// undeliverable message is dropped, never queued.
func (r *Router) SendPrivateMessage(ctx context.Context, sender transport.Conn, recipient model.Username, body string) error {
	senderName, ok := r.presence.IdentityFor(sender.ID())
	if !ok {
		return model.ErrUnauthenticated
	}

	if !r.limiter.Admit(senderName) {
		// Expected outcome under load, not an error condition
		r.logger.Debug("send rate limited",
			slog.String("sender", string(senderName)))
		return model.ErrRateLimited
	}

	recipientConn, ok := r.presence.Resolve(recipient)
	if !ok {
		r.logger.Debug("recipient not reachable",
			slog.String("sender", string(senderName)),
			slog.String("recipient", string(recipient)))
		return model.ErrRecipientOffline
	}

	// Fire-and-forget delivery: a slow peer drops the event rather
	// than blocking the router.
	if !recipientConn.Send(model.EventNewPrivateMessage, model.IncomingMessagePayload{
		Sender:  string(senderName),
		Message: body,
	}) {
		r.logger.Warn("message dropped - recipient buffer full",
			slog.String("recipient", string(recipient)))
		return model.ErrRecipientOffline
	}

	sender.Send(model.EventMessageSent, model.MessageSentPayload{
		Recipient: string(recipient),
		Message:   body,
	})

	if err := r.store.RecordMessage(ctx, model.AuditRecord{
		Sender:    senderName,
		Recipient: recipient,
		Body:      body,
		Timestamp: r.clock.Now(),
	}); err != nil {
		// The audit log is best-effort; delivery already happened
		r.logger.Error("audit record failed",
			slog.String("sender", string(senderName)),
			slog.Any("error", err))
	}

	return nil
}

// CheckRecipient reports whether the named identity is currently
// reachable. Never-registered and registered-but-offline are
// deliberately the same answer: chat only proceeds with peers that
// are online right now.
func (r *Router) CheckRecipient(username model.Username) bool {
	return r.presence.IsOnline(username)
}
