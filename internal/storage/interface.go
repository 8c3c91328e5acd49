package storage

import (
	"context"
	"time"

	"github.com/mcoot/securechat-go/internal/model"
)

// Store defines the interface for data persistence
type Store interface {
	// Identity operations. PutIdentity fails with model.ErrUsernameTaken
	// when a case-insensitive variant of the name is already stored.
	// GetHash looks up by the exact stored name.
	PutIdentity(ctx context.Context, name model.Username, hash string, createdAt time.Time) error
	GetHash(ctx context.Context, name model.Username) (string, error)

	// Connection markers record which handle, if any, an identity is
	// currently reachable on. An empty handle clears the marker.
	SetConnectionMarker(ctx context.Context, name model.Username, handle model.ConnID) error
	GetConnectionMarker(ctx context.Context, name model.Username) (model.ConnID, error)

	// RecordMessage appends to the message audit log. The routing path
	// only ever writes; nothing in the core reads the log back.
	RecordMessage(ctx context.Context, rec model.AuditRecord) error
}
