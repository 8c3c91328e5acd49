package client

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/securechat-go/internal/model"
)

// DefaultRequestTimeout bounds how long synchronous-looking operations
// wait for their server reply
const DefaultRequestTimeout = 5 * time.Second

// Handlers receives the server-initiated events that are not replies
// to a pending request. Nil handlers are skipped.
type Handlers struct {
	OnIncomingMessage func(sender, message string)
	OnMessageSent     func(recipient, message string)
	OnUserJoined      func(username string)
	OnUserLeft        func(username string)
	OnMessageError    func(message string)
	OnDisconnect      func(err error)
}

// Client is a websocket chat client. Register, Login, and CheckUser
// look synchronous to callers; under the hood each emits a request
// event and suspends on the correlator until the matching reply
// event arrives or the timeout fires.
type Client struct {
	ws         *websocket.Conn
	correlator *Correlator
	handlers   Handlers
	logger     *slog.Logger

	// RequestTimeout applies to each request/reply round trip
	RequestTimeout time.Duration

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

// Dial connects to a server's websocket endpoint and starts the event
// loop. The URL uses the ws:// or wss:// scheme.
func Dial(ctx context.Context, url string, handlers Handlers, logger *slog.Logger) (*Client, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	c := &Client{
		ws:             ws,
		correlator:     NewCorrelator(),
		handlers:       handlers,
		logger:         logger.With(slog.String("component", "client")),
		RequestTimeout: DefaultRequestTimeout,
		done:           make(chan struct{}),
	}

	go c.readLoop()

	return c, nil
}

// Close tears down the connection and resolves any outstanding wait
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.correlator.Shutdown()
		close(c.done)
		err = c.ws.Close()
	})
	return err
}

// Done is closed when the connection has gone away
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Register creates a new account. A missing or late server reply
// yields the synthetic failure response rather than an error.
func (c *Client) Register(username, password string) model.ResponsePayload {
	return c.credentialRequest(KindRegister, model.EventRegister, username, password)
}

// Login authenticates an existing account
func (c *Client) Login(username, password string) model.ResponsePayload {
	return c.credentialRequest(KindLogin, model.EventLogin, username, password)
}

// CheckUser reports whether the named user is currently reachable.
// Timeouts come back as not-reachable.
func (c *Client) CheckUser(username string) model.UserCheckResponsePayload {
	raw, err := c.correlator.RequestAndWait(KindCheckUser, func() error {
		return c.emit(model.EventCheckUser, model.CheckUserPayload{Username: username})
	}, c.RequestTimeout)
	if err != nil {
		return model.UserCheckResponsePayload{Exists: false}
	}

	var resp model.UserCheckResponsePayload
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.logger.Warn("malformed user_check_response", slog.Any("error", err))
		return model.UserCheckResponsePayload{Exists: false}
	}
	return resp
}

// SendMessage emits a private message. Delivery feedback arrives
// asynchronously as message_sent or message_error events.
func (c *Client) SendMessage(recipient, message string) error {
	return c.emit(model.EventPrivateMessage, model.PrivateMessagePayload{
		Recipient: recipient,
		Message:   message,
	})
}

func (c *Client) credentialRequest(kind Kind, event model.EventType, username, password string) model.ResponsePayload {
	raw, err := c.correlator.RequestAndWait(kind, func() error {
		return c.emit(event, model.CredentialsPayload{
			Username: username,
			Password: password,
		})
	}, c.RequestTimeout)
	if err != nil {
		return model.ResponsePayload{Success: false, Message: "Server timeout"}
	}

	var resp model.ResponsePayload
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.logger.Warn("malformed response payload",
			slog.String("kind", string(kind)),
			slog.Any("error", err))
		return model.ResponsePayload{Success: false, Message: "Server timeout"}
	}
	return resp
}

func (c *Client) emit(eventType model.EventType, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(model.Event{Type: eventType, Payload: data})
}

// readLoop dispatches inbound events: replies resolve the correlator,
// everything else goes to the handlers
func (c *Client) readLoop() {
	defer func() {
		c.correlator.Shutdown()
	}()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if c.handlers.OnDisconnect != nil && !errors.Is(err, websocket.ErrCloseSent) {
				c.handlers.OnDisconnect(err)
			}
			return
		}

		var event model.Event
		if err := json.Unmarshal(data, &event); err != nil {
			c.logger.Warn("malformed event frame", slog.Any("error", err))
			continue
		}

		c.dispatch(event)
	}
}

func (c *Client) dispatch(event model.Event) {
	switch event.Type {
	case model.EventRegistrationResponse:
		c.correlator.Deliver(KindRegister, event.Payload)

	case model.EventLoginResponse:
		c.correlator.Deliver(KindLogin, event.Payload)

	case model.EventUserCheckResponse:
		c.correlator.Deliver(KindCheckUser, event.Payload)

	case model.EventNewPrivateMessage:
		var p model.IncomingMessagePayload
		if json.Unmarshal(event.Payload, &p) == nil && c.handlers.OnIncomingMessage != nil {
			c.handlers.OnIncomingMessage(p.Sender, p.Message)
		}

	case model.EventMessageSent:
		// Delivery confirmations are informational; the interactive
		// loop does not block on them
		var p model.MessageSentPayload
		if json.Unmarshal(event.Payload, &p) == nil && c.handlers.OnMessageSent != nil {
			c.handlers.OnMessageSent(p.Recipient, p.Message)
		}

	case model.EventMessageError:
		var p model.MessageErrorPayload
		if json.Unmarshal(event.Payload, &p) == nil && c.handlers.OnMessageError != nil {
			c.handlers.OnMessageError(p.Message)
		}

	case model.EventUserJoined:
		var p model.PresencePayload
		if json.Unmarshal(event.Payload, &p) == nil && c.handlers.OnUserJoined != nil {
			c.handlers.OnUserJoined(p.Username)
		}

	case model.EventUserLeft:
		var p model.PresencePayload
		if json.Unmarshal(event.Payload, &p) == nil && c.handlers.OnUserLeft != nil {
			c.handlers.OnUserLeft(p.Username)
		}

	default:
		c.logger.Debug("unknown event type", slog.String("event", string(event.Type)))
	}
}
