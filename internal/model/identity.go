package model

import (
	"regexp"
	"strings"
	"time"
)

// Username uniquely identifies a registered account. Comparison for
// uniqueness is case-insensitive; the registered casing is preserved
// for display.
type Username string

// ConnID is an opaque handle for a live connection
type ConnID string

// usernamePattern restricts usernames to letters, numbers, and
// underscores, between 3 and 15 characters
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,15}$`)

// MinPasswordLength is the minimum accepted password length
const MinPasswordLength = 6

// ValidUsername reports whether a username matches the allowed pattern
func ValidUsername(name Username) bool {
	return usernamePattern.MatchString(string(name))
}

// Fold returns the canonical lowercase form used for uniqueness checks
func (u Username) Fold() string {
	return strings.ToLower(string(u))
}

// Identity is a registered account as held by the persistence layer
type Identity struct {
	Name         Username
	PasswordHash string // bcrypt hash, never the cleartext
	CreatedAt    time.Time
}

// AuditRecord is one append-only entry in the message audit log.
// The routing path writes these and never reads them back.
type AuditRecord struct {
	Sender    Username  `json:"sender"`
	Recipient Username  `json:"recipient"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}
