package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/securechat-go/internal/model"
	"github.com/mcoot/securechat-go/internal/storage"
)

// Store is a Redis-backed implementation of the storage interface
type Store struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis store instance
func New(cfg Config) (*Store, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Store{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis store with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Store {
	return &Store{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

// Ensure Store implements the interface
var _ storage.Store = (*Store)(nil)

// Identity operations

func (s *Store) PutIdentity(ctx context.Context, name model.Username, hash string, createdAt time.Time) error {
	id := model.Identity{
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    createdAt,
	}
	data, err := json.Marshal(id)
	if err != nil {
		return err
	}

	// SETNX on the folded-name index is the case-insensitive
	// uniqueness check; the identity record itself is written only
	// after the index claim succeeds.
	claimed, err := s.client.SetNX(ctx, nameIndexKey(name), string(name), 0).Result()
	if err != nil {
		return err
	}
	if !claimed {
		return model.ErrUsernameTaken
	}

	if err := s.client.Set(ctx, identityKey(name), data, 0).Err(); err != nil {
		// Release the index claim so a failed registration does not
		// leave the name permanently unregistrable
		s.client.Del(ctx, nameIndexKey(name))
		return err
	}
	return nil
}

func (s *Store) GetHash(ctx context.Context, name model.Username) (string, error) {
	data, err := s.client.Get(ctx, identityKey(name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", model.ErrIdentityNotFound
		}
		return "", err
	}

	var id model.Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return "", err
	}
	return id.PasswordHash, nil
}

// Connection marker operations

func (s *Store) SetConnectionMarker(ctx context.Context, name model.Username, handle model.ConnID) error {
	if handle == "" {
		return s.client.Del(ctx, markerKey(name)).Err()
	}
	return s.client.Set(ctx, markerKey(name), string(handle), 0).Err()
}

func (s *Store) GetConnectionMarker(ctx context.Context, name model.Username) (model.ConnID, error) {
	val, err := s.client.Get(ctx, markerKey(name)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", err
	}
	return model.ConnID(val), nil
}

// Audit log operations

func (s *Store) RecordMessage(ctx context.Context, rec model.AuditRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.RPush(ctx, auditKey, data).Err()
}
