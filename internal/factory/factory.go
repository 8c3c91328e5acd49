package factory

import (
	"errors"
	"io"
	"log/slog"

	"github.com/mcoot/securechat-go/internal/dependencies/clock"
	"github.com/mcoot/securechat-go/internal/services/chat"
	"github.com/mcoot/securechat-go/internal/services/credential"
	"github.com/mcoot/securechat-go/internal/services/presence"
	"github.com/mcoot/securechat-go/internal/services/ratelimit"
	"github.com/mcoot/securechat-go/internal/services/session"
	"github.com/mcoot/securechat-go/internal/storage"
	"github.com/mcoot/securechat-go/internal/storage/memory"
	redisstorage "github.com/mcoot/securechat-go/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Store storage.Store

	// External dependencies
	Clock clock.Clock

	// Services
	Credentials *credential.Service
	Presence    *presence.Registry
	Limiter     *ratelimit.Limiter
	Router      *chat.Router
	Sessions    *session.Controller
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// RateLimit holds limiter settings (optional)
	// If zero value, defaults to ratelimit.DefaultConfig()
	RateLimit ratelimit.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var store storage.Store
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	rateCfg := cfg.RateLimit
	if rateCfg.Window == 0 {
		rateCfg = ratelimit.DefaultConfig()
	}

	return NewWithDependencies(store, clock.New(), rateCfg, logger), nil
}

// NewWithDependencies creates an App with the given dependencies
// (useful for testing with a mock clock or a prepared store)
func NewWithDependencies(store storage.Store, clk clock.Clock, rateCfg ratelimit.Config, logger *slog.Logger) *App {
	creds := credential.New(store, clk, logger)
	registry := presence.New(logger)
	limiter := ratelimit.New(clk, rateCfg)
	router := chat.New(registry, limiter, store, clk, logger)
	sessions := session.New(creds, registry, limiter, store, logger)

	return &App{
		Store:       store,
		Clock:       clk,
		Credentials: creds,
		Presence:    registry,
		Limiter:     limiter,
		Router:      router,
		Sessions:    sessions,
	}
}
