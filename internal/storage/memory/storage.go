package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mcoot/securechat-go/internal/model"
	"github.com/mcoot/securechat-go/internal/storage"
)

// Store is an in-memory implementation of the storage interface
type Store struct {
	mu sync.RWMutex

	identities map[model.Username]*model.Identity
	nameIndex  map[string]model.Username // lowercase -> stored name
	markers    map[model.Username]model.ConnID
	audit      []model.AuditRecord
}

// New creates a new in-memory store instance
func New() *Store {
	return &Store{
		identities: make(map[model.Username]*model.Identity),
		nameIndex:  make(map[string]model.Username),
		markers:    make(map[model.Username]model.ConnID),
	}
}

// Ensure Store implements the interface
var _ storage.Store = (*Store)(nil)

// Identity operations

func (s *Store) PutIdentity(ctx context.Context, name model.Username, hash string, createdAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nameIndex[name.Fold()]; ok {
		return model.ErrUsernameTaken
	}
	s.identities[name] = &model.Identity{
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    createdAt,
	}
	s.nameIndex[name.Fold()] = name
	return nil
}

func (s *Store) GetHash(ctx context.Context, name model.Username) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.identities[name]
	if !ok {
		return "", model.ErrIdentityNotFound
	}
	return id.PasswordHash, nil
}

// Connection marker operations

func (s *Store) SetConnectionMarker(ctx context.Context, name model.Username, handle model.ConnID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if handle == "" {
		delete(s.markers, name)
		return nil
	}
	s.markers[name] = handle
	return nil
}

func (s *Store) GetConnectionMarker(ctx context.Context, name model.Username) (model.ConnID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.markers[name], nil
}

// Audit log operations

func (s *Store) RecordMessage(ctx context.Context, rec model.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, rec)
	return nil
}

// AuditLog returns a copy of the recorded messages. Only tests use
// this; the routing path never reads the log.
func (s *Store) AuditLog() []model.AuditRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.AuditRecord, len(s.audit))
	copy(out, s.audit)
	return out
}
