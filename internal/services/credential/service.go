package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/securechat-go/internal/dependencies/clock"
	"github.com/mcoot/securechat-go/internal/model"
	"github.com/mcoot/securechat-go/internal/storage"
)

// Service handles account creation and credential verification
type Service struct {
	store  storage.Store
	clock  clock.Clock
	logger *slog.Logger
}

// New creates a new credential service
func New(store storage.Store, clk clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		clock:  clk,
		logger: logger.With(slog.String("component", "credential")),
	}
}

// Create registers a new identity. Usernames are restricted to
// letters, numbers, and underscores (3-15 characters) and are unique
// case-insensitively. Only a bcrypt hash of the password is stored.
func (s *Service) Create(ctx context.Context, username model.Username, password string) error {
	if !model.ValidUsername(username) {
		return model.ErrInvalidUsername
	}
	if len(password) < model.MinPasswordLength {
		return model.ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	if err := s.store.PutIdentity(ctx, username, string(hash), s.clock.Now()); err != nil {
		if errors.Is(err, model.ErrUsernameTaken) {
			return model.ErrUsernameTaken
		}
		return fmt.Errorf("storing identity: %w", err)
	}

	s.logger.Info("identity created", slog.String("username", string(username)))
	return nil
}

// Verify checks a username/password pair. Unknown usernames and wrong
// passwords both come back as ErrInvalidCredentials so callers cannot
// enumerate accounts; the two cases are still logged distinctly.
func (s *Service) Verify(ctx context.Context, username model.Username, password string) error {
	hash, err := s.store.GetHash(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrIdentityNotFound) {
			s.logger.Debug("login attempt for unknown username",
				slog.String("username", string(username)))
			return model.ErrInvalidCredentials
		}
		return fmt.Errorf("looking up identity: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		s.logger.Debug("login attempt with wrong password",
			slog.String("username", string(username)))
		return model.ErrInvalidCredentials
	}

	return nil
}
