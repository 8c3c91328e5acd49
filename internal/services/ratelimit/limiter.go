package ratelimit

import (
	"sync"
	"time"

	"github.com/mcoot/securechat-go/internal/dependencies/clock"
	"github.com/mcoot/securechat-go/internal/model"
)

// Config holds rate limiter settings
type Config struct {
	// Window is the trailing interval over which sends are counted
	Window time.Duration
	// Limit is the maximum number of sends admitted per window
	Limit int
}

// DefaultConfig returns the default limiter settings: at most 5 sends
// in any trailing 10 seconds
func DefaultConfig() Config {
	return Config{
		Window: 10 * time.Second,
		Limit:  5,
	}
}

// Limiter applies a per-identity sliding window to send attempts.
// Entries older than the window are pruned before each decision, so
// bursts are bounded to Limit per trailing Window. A denied attempt
// does not consume a slot.
type Limiter struct {
	clock clock.Clock
	cfg   Config

	mu      sync.Mutex
	windows map[model.Username][]time.Time
}

// New creates a new rate limiter. A config with a missing window or a
// non-positive limit falls back to the defaults rather than denying
// every send.
func New(clk clock.Clock, cfg Config) *Limiter {
	if cfg.Window <= 0 || cfg.Limit <= 0 {
		cfg = DefaultConfig()
	}
	return &Limiter{
		clock:   clk,
		cfg:     cfg,
		windows: make(map[model.Username][]time.Time),
	}
}

// Admit decides whether a send attempt for the identity is allowed
// right now. Calls for the same identity are serialized; no two
// concurrent attempts can both slip past the threshold.
func (l *Limiter) Admit(username model.Username) bool {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	window := l.windows[username]

	// Keep only entries strictly younger than the window. The
	// boundary is exclusive: an entry exactly Window old is pruned.
	kept := window[:0]
	for _, ts := range window {
		if now.Sub(ts) < l.cfg.Window {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.cfg.Limit {
		l.windows[username] = kept
		return false
	}

	l.windows[username] = append(kept, now)
	return true
}

// Forget drops the identity's window, releasing its memory. Useful
// when an identity disconnects and is not expected back soon.
func (l *Limiter) Forget(username model.Username) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, username)
}
