package presence

import (
	"log/slog"
	"sync"

	"github.com/mcoot/securechat-go/internal/model"
	"github.com/mcoot/securechat-go/internal/transport"
)

// Registry is the single source of truth for which identities are
// currently reachable and on which connection. All operations are
// atomic with respect to concurrent connects and disconnects.
type Registry struct {
	mu     sync.RWMutex
	byName map[model.Username]transport.Conn
	byConn map[model.ConnID]model.Username
	logger *slog.Logger
}

// New creates a new presence registry
func New(logger *slog.Logger) *Registry {
	return &Registry{
		byName: make(map[model.Username]transport.Conn),
		byConn: make(map[model.ConnID]model.Username),
		logger: logger.With(slog.String("component", "presence")),
	}
}

// Bind associates an identity with a connection, replacing any prior
// binding for that identity. The prior handle, if different, is
// detached from presence without being closed: a later login from
// elsewhere simply wins.
func (r *Registry) Bind(username model.Username, conn transport.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byName[username]; ok && prev.ID() != conn.ID() {
		delete(r.byConn, prev.ID())
		r.logger.Info("rebinding identity to new connection",
			slog.String("username", string(username)),
			slog.String("old_conn", string(prev.ID())),
			slog.String("new_conn", string(conn.ID())))
	}

	r.byName[username] = conn
	r.byConn[conn.ID()] = username
}

// UnbindHandle removes whatever identity is bound to the handle.
// Idempotent. The forward binding is only removed when the handle is
// the identity's current one, so a stale connection disconnecting
// after a re-login elsewhere does not knock the identity offline.
func (r *Registry) UnbindHandle(id model.ConnID) (model.Username, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	username, ok := r.byConn[id]
	if !ok {
		return "", false
	}
	delete(r.byConn, id)

	if current, ok := r.byName[username]; ok && current.ID() == id {
		delete(r.byName, username)
		return username, true
	}
	return "", false
}

// IsOnline reports whether the identity has an active binding
func (r *Registry) IsOnline(username model.Username) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byName[username]
	return ok
}

// Resolve returns the connection an identity is bound to, if any
func (r *Registry) Resolve(username model.Username) (transport.Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.byName[username]
	return conn, ok
}

// IdentityFor is the reverse lookup from a connection handle to the
// identity authenticated on it
func (r *Registry) IdentityFor(id model.ConnID) (model.Username, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	username, ok := r.byConn[id]
	return username, ok
}

// Peers returns every bound connection except the given one, for
// broadcast notifications
func (r *Registry) Peers(except model.ConnID) []transport.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	peers := make([]transport.Conn, 0, len(r.byName))
	for _, conn := range r.byName {
		if conn.ID() != except {
			peers = append(peers, conn)
		}
	}
	return peers
}

// Count returns the number of bound identities
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}
