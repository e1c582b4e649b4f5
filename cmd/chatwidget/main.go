// Command chatwidget runs the support chat widget in the terminal.
//
// It is a thin rendering surface over the widget core: it reads view
// snapshots from the session manager and issues send/quick-reply commands;
// all reconciliation happens in the core.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bhandras/chatwidget/internal/api"
	"github.com/bhandras/chatwidget/internal/cable"
	"github.com/bhandras/chatwidget/internal/config"
	"github.com/bhandras/chatwidget/internal/session"
	"github.com/bhandras/chatwidget/internal/version"
	"github.com/bhandras/chatwidget/pkg/logger"
)

// bootTimeout bounds the startup sequence (contact + conversation + first
// subscription attempt).
const bootTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := setupLogging(cfg); err != nil {
		return err
	}
	logger.Infof("chatwidget %s", version.RichVersion())

	client := api.NewClient(cfg.BaseURL, cfg.InboxIdentifier)
	client.SetTimeout(cfg.HTTPTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), bootTimeout)
	defer cancel()

	sess, err := session.Resolve(ctx, client, session.ResolveConfig{
		HomeDir:        cfg.HomeDir,
		InboxID:        cfg.InboxIdentifier,
		UserIdentifier: cfg.UserIdentifier,
	})
	if err != nil {
		// Fatal to boot: no automatic retry, restarting is the recovery path.
		return fmt.Errorf("boot failed: %w", err)
	}
	logger.Infof("session: contact=%s conversation=%s", sess.ContactIdentifier, sess.ConversationID)

	mcfg := session.ManagerConfig{
		API:          client,
		Session:      sess,
		PollInterval: cfg.PollInterval,
		PollDisabled: cfg.PollDisabled,
	}
	// Assign only a live client: a typed-nil in the interface field would
	// defeat the manager's nil checks.
	if c := newCable(cfg.BaseURL, sess.PubsubToken); c != nil {
		mcfg.Cable = c
	}
	mgr := session.NewManager(mcfg)
	mgr.Start()
	defer mgr.Close()

	program := tea.NewProgram(newModel(mgr), tea.WithAltScreen())

	go func() {
		for range mgr.Updates() {
			program.Send(viewChangedMsg{})
		}
	}()

	_, err = program.Run()
	return err
}

// newCable builds the realtime channel, or nil when the backend issued no
// pubsub token (the poller then carries all updates).
func newCable(baseURL, pubsubToken string) *cable.Client {
	if pubsubToken == "" {
		logger.Warnf("no pubsub token, realtime disabled")
		return nil
	}
	c, err := cable.NewClient(baseURL, pubsubToken)
	if err != nil {
		logger.Warnf("realtime disabled: %v", err)
		return nil
	}
	return c
}

// setupLogging sends logs to a file under the widget home so the TUI owns
// the terminal.
func setupLogging(cfg *config.Config) error {
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	if cfg.Debug {
		level = logger.LevelTrace
	}
	logger.SetLevel(level)

	logPath := filepath.Join(cfg.HomeDir, "chatwidget.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	logger.SetOutput(f)
	return nil
}
