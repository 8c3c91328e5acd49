package client

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/mcoot/securechat-go/internal/model"
)

// Kind identifies one request/response pair on the wire
type Kind string

// Request kinds the correlator tracks
const (
	KindRegister  Kind = "register"
	KindLogin     Kind = "login"
	KindCheckUser Kind = "check_user"
)

// ErrClosed is returned for requests issued after the transport went away
var ErrClosed = errors.New("client connection closed")

// Correlator matches asynchronous reply events to the request waiting
// for them. The protocol is strictly request-then-wait: at most one
// request per kind is ever outstanding, so correlation by kind alone
// is sufficient and no request IDs are needed.
//
// The waiting flow owns its pending slot exclusively; the event loop
// only ever delivers into it.
type Correlator struct {
	mu      sync.Mutex
	pending map[Kind]chan json.RawMessage
	closed  bool
}

// NewCorrelator creates a new correlator
func NewCorrelator() *Correlator {
	return &Correlator{
		pending: make(map[Kind]chan json.RawMessage),
	}
}

// RequestAndWait registers interest in a reply of the given kind,
// invokes send, and suspends until the reply arrives or the timeout
// elapses. On timeout the pending slot is withdrawn so a late reply
// is discarded as stale instead of leaking into the next request.
func (c *Correlator) RequestAndWait(kind Kind, send func() error, timeout time.Duration) (json.RawMessage, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	ch := make(chan json.RawMessage, 1)
	c.pending[kind] = ch
	c.mu.Unlock()

	if err := send(); err != nil {
		c.withdraw(kind, ch)
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case raw, ok := <-ch:
		if !ok {
			// Transport went away mid-wait; treated the same as a
			// timeout rather than surfacing a raw transport error
			return nil, model.ErrTimeout
		}
		return raw, nil

	case <-timer.C:
		c.withdraw(kind, ch)
		return nil, model.ErrTimeout
	}
}

// Deliver hands a reply to the flow waiting on the kind. Replies with
// no waiter (already timed out, or never requested) are discarded.
// Reports whether the reply was consumed.
func (c *Correlator) Deliver(kind Kind, payload json.RawMessage) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch, ok := c.pending[kind]
	if !ok {
		return false
	}
	delete(c.pending, kind)
	ch <- payload
	return true
}

// Shutdown forcibly resolves every outstanding wait with a failure
// and rejects future requests. Called when the transport disconnects
// so no caller is left suspended forever.
func (c *Correlator) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	for kind, ch := range c.pending {
		close(ch)
		delete(c.pending, kind)
	}
}

// withdraw removes the pending slot if it is still ours; a concurrent
// Deliver may already have consumed it
func (c *Correlator) withdraw(kind Kind, ch chan json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if current, ok := c.pending[kind]; ok && current == ch {
		delete(c.pending, kind)
	}
}
