package model

import "errors"

// Common errors used across the application
var (
	// Credential errors
	ErrInvalidUsername    = errors.New("invalid username")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrPasswordTooShort   = errors.New("password too short")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrIdentityNotFound   = errors.New("identity not found")

	// Routing errors
	ErrUnauthenticated  = errors.New("sender is not authenticated")
	ErrRateLimited      = errors.New("rate limit exceeded")
	ErrRecipientOffline = errors.New("recipient is not online")

	// Client errors
	ErrTimeout = errors.New("server timeout")
)
