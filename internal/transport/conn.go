// Package transport defines the narrow contract the core consumes from
// the connection layer. The core issues named events against this
// interface; framing, upgrades, and TLS live behind it.
package transport

import "github.com/mcoot/securechat-go/internal/model"

// Conn is a live bidirectional event channel to one client.
//
// Send must not block on a slow peer: implementations queue into a
// bounded buffer and report false when the event had to be dropped.
type Conn interface {
	ID() model.ConnID
	Send(eventType model.EventType, payload any) bool
	Close() error
}
