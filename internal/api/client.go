// Package api is the request/response transport adapter for the hosted
// support backend's public inbox API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bhandras/chatwidget/internal/wire"
	"github.com/bhandras/chatwidget/pkg/logger"
)

// defaultHTTPTimeout is the per-request timeout used by the client.
const defaultHTTPTimeout = 15 * time.Second

// Client talks to the public inbox API of one inbox.
type Client struct {
	baseURL    string
	inboxID    string
	httpClient *http.Client
}

// NewClient creates a client for the given backend base URL and inbox
// identifier.
func NewClient(baseURL, inboxID string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		inboxID:    inboxID,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
}

// SetTimeout overrides the per-request HTTP timeout.
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.httpClient.Timeout = d
	}
}

// GetContact fetches an existing contact by its public identifier.
func (c *Client) GetContact(ctx context.Context, contactID string) (wire.Contact, error) {
	var contact wire.Contact
	err := c.doJSON(ctx, http.MethodGet, c.contactPath(contactID), nil, &contact)
	return contact, err
}

// CreateContact registers a new visitor contact on the inbox.
func (c *Client) CreateContact(ctx context.Context, req wire.CreateContactRequest) (wire.Contact, error) {
	var contact wire.Contact
	err := c.doJSON(ctx, http.MethodPost, c.inboxPath("contacts"), req, &contact)
	return contact, err
}

// ListConversations lists the contact's conversations on the inbox.
func (c *Client) ListConversations(ctx context.Context, contactID string) ([]wire.Conversation, error) {
	var conversations []wire.Conversation
	err := c.doJSON(ctx, http.MethodGet, c.contactPath(contactID, "conversations"), nil, &conversations)
	return conversations, err
}

// CreateConversation opens a new conversation for the contact.
func (c *Client) CreateConversation(ctx context.Context, contactID string) (wire.Conversation, error) {
	var conversation wire.Conversation
	err := c.doJSON(ctx, http.MethodPost, c.contactPath(contactID, "conversations"), struct{}{}, &conversation)
	return conversation, err
}

// ListMessages fetches the full message history of a conversation in
// backend delivery order.
func (c *Client) ListMessages(ctx context.Context, contactID, conversationID string) ([]wire.APIMessage, error) {
	var messages []wire.APIMessage
	err := c.doJSON(ctx, http.MethodGet, c.conversationPath(contactID, conversationID, "messages"), nil, &messages)
	return messages, err
}

// SendMessage submits visitor text and returns the backend's canonical
// record for it. echoID is the request-correlation token.
func (c *Client) SendMessage(ctx context.Context, contactID, conversationID, content, echoID string) (wire.APIMessage, error) {
	req := wire.CreateMessageRequest{Content: content, EchoID: echoID}
	var msg wire.APIMessage
	err := c.doJSON(ctx, http.MethodPost, c.conversationPath(contactID, conversationID, "messages"), req, &msg)
	return msg, err
}

func (c *Client) inboxPath(parts ...string) string {
	segments := append([]string{"public", "api", "v1", "inboxes", c.inboxID}, parts...)
	return joinPath(segments)
}

func (c *Client) contactPath(contactID string, parts ...string) string {
	return c.inboxPath(append([]string{"contacts", contactID}, parts...)...)
}

func (c *Client) conversationPath(contactID, conversationID string, parts ...string) string {
	return c.contactPath(contactID, append([]string{"conversations", conversationID}, parts...)...)
}

func joinPath(segments []string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return "/" + strings.Join(escaped, "/")
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logger.Debugf("api: %s %s", method, path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read response: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: unexpected status %d: %s", method, path, resp.StatusCode, truncate(respBody, 200))
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
