package server

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mcoot/securechat-go/internal/model"
	"github.com/mcoot/securechat-go/internal/transport"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer
	pongWait = 60 * time.Second

	// Time between keepalive pings; must be under pongWait
	pingPeriod = 30 * time.Second

	// Buffer size for outgoing events
	sendBufferSize = 256

	// Maximum inbound message size in bytes
	maxMessageSize = 4096
)

// wsConn adapts a websocket connection to the transport.Conn contract.
// Outgoing events go through a bounded buffer drained by a single
// write pump, so senders never block on a slow peer.
type wsConn struct {
	id     model.ConnID
	ws     *websocket.Conn
	send   chan []byte
	done   chan struct{}
	logger *slog.Logger

	closeOnce sync.Once
}

var _ transport.Conn = (*wsConn)(nil)

func newWSConn(ws *websocket.Conn, logger *slog.Logger) *wsConn {
	id := model.ConnID(uuid.NewString())
	return &wsConn{
		id:     id,
		ws:     ws,
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
		logger: logger.With(slog.String("conn", string(id))),
	}
}

// ID returns the opaque connection handle
func (c *wsConn) ID() model.ConnID {
	return c.id
}

// Send queues a named event for delivery. Returns false when the
// event had to be dropped because the peer's buffer is full or the
// connection is closing.
func (c *wsConn) Send(eventType model.EventType, payload any) bool {
	data, err := json.Marshal(payload)
	if err != nil {
		c.logger.Error("marshaling event payload",
			slog.String("event", string(eventType)),
			slog.Any("error", err))
		return false
	}
	frame, err := json.Marshal(model.Event{Type: eventType, Payload: data})
	if err != nil {
		return false
	}

	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- frame:
		return true
	default:
		c.logger.Warn("event dropped - send buffer full",
			slog.String("event", string(eventType)))
		return false
	}
}

// Close shuts down the websocket and stops the write pump. The send
// channel is never closed; late enqueues from racing deliveries land
// in the buffer and are discarded with the connection.
func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.ws.Close()
	})
	return err
}

// writePump drains the send buffer onto the wire and keeps the
// connection alive with periodic pings. One pump per connection; it
// owns all writes.
func (c *wsConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
