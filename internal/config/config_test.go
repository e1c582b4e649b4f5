package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("CHATWOOT_BASE_URL", "https://support.example.com")
	t.Setenv("CHATWOOT_INBOX_IDENTIFIER", "inbox-1")
	t.Setenv("CHATWIDGET_HOME_DIR", filepath.Join(t.TempDir(), "home"))
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "https://support.example.com", cfg.BaseURL)
	require.Equal(t, "inbox-1", cfg.InboxIdentifier)
	require.Equal(t, 5*time.Second, cfg.PollInterval)
	require.Equal(t, 15*time.Second, cfg.HTTPTimeout)
	require.Equal(t, "info", cfg.LogLevel)
	require.False(t, cfg.PollDisabled)

	// A fresh identifier is generated per run when none is configured.
	require.NotEmpty(t, cfg.UserIdentifier)

	// The home directory is created on load.
	require.DirExists(t, cfg.HomeDir)
}

func TestLoadRequiresBaseURL(t *testing.T) {
	t.Setenv("CHATWOOT_BASE_URL", "")
	t.Setenv("CHATWOOT_INBOX_IDENTIFIER", "inbox-1")

	_, err := Load()
	require.ErrorContains(t, err, "CHATWOOT_BASE_URL")
}

func TestLoadRequiresInboxIdentifier(t *testing.T) {
	t.Setenv("CHATWOOT_BASE_URL", "https://support.example.com")
	t.Setenv("CHATWOOT_INBOX_IDENTIFIER", "")

	_, err := Load()
	require.ErrorContains(t, err, "CHATWOOT_INBOX_IDENTIFIER")
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("CHATWOOT_USER_IDENTIFIER", "user-1")
	t.Setenv("CHATWIDGET_POLL_INTERVAL", "2s")
	t.Setenv("CHATWIDGET_POLL_DISABLED", "true")
	t.Setenv("CHATWIDGET_HTTP_TIMEOUT", "30s")
	t.Setenv("CHATWIDGET_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "user-1", cfg.UserIdentifier)
	require.Equal(t, 2*time.Second, cfg.PollInterval)
	require.True(t, cfg.PollDisabled)
	require.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	require.Equal(t, "debug", cfg.LogLevel)
}
