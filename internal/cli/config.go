package cli

import (
	"os"
	"strings"
	"time"
)

// Config holds CLI configuration
type Config struct {
	ServerURL      string
	RequestTimeout time.Duration
	Verbose        bool
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL:      getEnvOrDefault("SECURECHAT_SERVER", "http://localhost:5001"),
		RequestTimeout: 5 * time.Second,
		Verbose:        false,
	}
}

// WebsocketURL derives the ws:// endpoint from the configured server URL
func (c *Config) WebsocketURL() string {
	url := c.ServerURL
	switch {
	case strings.HasPrefix(url, "https://"):
		url = "wss://" + strings.TrimPrefix(url, "https://")
	case strings.HasPrefix(url, "http://"):
		url = "ws://" + strings.TrimPrefix(url, "http://")
	}
	return strings.TrimSuffix(url, "/") + "/ws"
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
