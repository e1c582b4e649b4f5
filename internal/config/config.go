// Package config loads widget configuration from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
)

// Config is the runtime configuration for the widget.
//
// BaseURL and InboxIdentifier are required; a missing value is fatal to
// boot (there is no backend to talk to without them).
type Config struct {
	// BaseURL is the base URL of the hosted support backend.
	BaseURL string `env:"CHATWOOT_BASE_URL"`
	// InboxIdentifier is the public inbox identifier the widget attaches to.
	InboxIdentifier string `env:"CHATWOOT_INBOX_IDENTIFIER"`
	// UserIdentifier is an optional stable external identifier attached to
	// newly created contacts. Generated once per run when unset.
	UserIdentifier string `env:"CHATWOOT_USER_IDENTIFIER"`

	// HomeDir is where the widget stores local state (visitor identifier).
	HomeDir string `env:"CHATWIDGET_HOME_DIR"`

	// PollInterval is the fallback poller period used while the realtime
	// channel is not connected.
	PollInterval time.Duration `env:"CHATWIDGET_POLL_INTERVAL" envDefault:"5s"`
	// PollDisabled turns the fallback poller off entirely.
	PollDisabled bool `env:"CHATWIDGET_POLL_DISABLED"`

	// HTTPTimeout is the per-request timeout for backend calls.
	HTTPTimeout time.Duration `env:"CHATWIDGET_HTTP_TIMEOUT" envDefault:"15s"`

	// LogLevel selects the logger threshold (trace|debug|info|warn|error).
	LogLevel string `env:"CHATWIDGET_LOG_LEVEL" envDefault:"info"`
	// Debug forces trace-level logging.
	Debug bool `env:"DEBUG"`
}

// Load loads configuration from environment and defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("CHATWOOT_BASE_URL is required")
	}
	if cfg.InboxIdentifier == "" {
		return nil, fmt.Errorf("CHATWOOT_INBOX_IDENTIFIER is required")
	}

	if cfg.HomeDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		cfg.HomeDir = filepath.Join(homeDir, ".chatwidget")
	}
	if err := os.MkdirAll(cfg.HomeDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create widget home: %w", err)
	}

	if cfg.UserIdentifier == "" {
		cfg.UserIdentifier = uuid.NewString()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}

	return cfg, nil
}
