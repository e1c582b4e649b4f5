// Package session establishes the visitor session and wires one active
// conversation's resources together.
package session

import (
	"context"
	"fmt"

	"github.com/bhandras/chatwidget/internal/storage"
	"github.com/bhandras/chatwidget/internal/wire"
	"github.com/bhandras/chatwidget/pkg/logger"
)

// Session is the resolved visitor identity triple used by all other
// components.
type Session struct {
	// ContactIdentifier is the stable public contact identifier.
	ContactIdentifier string
	// ConversationID is the active conversation.
	ConversationID string
	// PubsubToken is the realtime subscription credential; may be empty
	// when the backend did not issue one.
	PubsubToken string
}

// bootTransport is the subset of the API client used during session
// resolution.
type bootTransport interface {
	GetContact(ctx context.Context, contactID string) (wire.Contact, error)
	CreateContact(ctx context.Context, req wire.CreateContactRequest) (wire.Contact, error)
	ListConversations(ctx context.Context, contactID string) ([]wire.Conversation, error)
	CreateConversation(ctx context.Context, contactID string) (wire.Conversation, error)
}

// ResolveConfig carries the inputs for session resolution.
type ResolveConfig struct {
	// HomeDir is the local state directory.
	HomeDir string
	// InboxID namespaces the stored visitor identifier.
	InboxID string
	// UserIdentifier is attached to newly created contacts.
	UserIdentifier string
	// VisitorName is the display name for newly created contacts.
	VisitorName string
}

// defaultVisitorName matches what the backend shows for anonymous visitors.
const defaultVisitorName = "Web Visitor"

// Resolve establishes or recovers the visitor session.
//
// It runs once at startup: recover the stored contact when possible, fall
// back to creating one, then reuse the first conversation or open a new
// one. Any residual failure here is fatal to boot; the caller surfaces it
// and the recovery path is a restart.
func Resolve(ctx context.Context, client bootTransport, cfg ResolveConfig) (Session, error) {
	stored, err := storage.LoadContactID(cfg.HomeDir, cfg.InboxID)
	if err != nil {
		logger.Warnf("session: ignoring stored contact id: %v", err)
		stored = ""
	}

	contact, err := resolveContact(ctx, client, cfg, stored)
	if err != nil {
		return Session{}, err
	}
	if contact.SourceID == "" {
		return Session{}, fmt.Errorf("backend returned contact without source_id")
	}

	if err := storage.SaveContactID(cfg.HomeDir, cfg.InboxID, contact.SourceID); err != nil {
		// Not fatal: the session works for this run, the next one just
		// creates a fresh contact.
		logger.Warnf("session: failed to persist contact id: %v", err)
	}

	conversationID, err := resolveConversation(ctx, client, contact.SourceID)
	if err != nil {
		return Session{}, err
	}

	return Session{
		ContactIdentifier: contact.SourceID,
		ConversationID:    conversationID,
		PubsubToken:       contact.PubsubToken,
	}, nil
}

// resolveContact fetches the stored contact, falling back to creating a new
// one on any failure.
func resolveContact(ctx context.Context, client bootTransport, cfg ResolveConfig, stored string) (wire.Contact, error) {
	if stored != "" {
		contact, err := client.GetContact(ctx, stored)
		if err == nil {
			return contact, nil
		}
		logger.Infof("session: stored contact rejected, creating a new one: %v", err)
	}

	name := cfg.VisitorName
	if name == "" {
		name = defaultVisitorName
	}
	contact, err := client.CreateContact(ctx, wire.CreateContactRequest{
		Name:       name,
		Identifier: cfg.UserIdentifier,
	})
	if err != nil {
		return wire.Contact{}, fmt.Errorf("create contact: %w", err)
	}
	return contact, nil
}

// resolveConversation reuses the contact's first conversation or creates
// one when none exist.
func resolveConversation(ctx context.Context, client bootTransport, contactID string) (string, error) {
	conversations, err := client.ListConversations(ctx, contactID)
	if err != nil {
		return "", fmt.Errorf("list conversations: %w", err)
	}
	if len(conversations) > 0 && conversations[0].ID.String() != "" {
		return conversations[0].ID.String(), nil
	}

	conversation, err := client.CreateConversation(ctx, contactID)
	if err != nil {
		return "", fmt.Errorf("create conversation: %w", err)
	}
	if conversation.ID.String() == "" {
		return "", fmt.Errorf("backend returned conversation without id")
	}
	return conversation.ID.String(), nil
}
