// Package cable is the realtime push transport adapter: a client for the
// backend's ActionCable-style websocket channel.
//
// A Client owns exactly one subscription keyed by a per-visitor pubsub
// token. It reports connectivity through a small state machine
// (idle → connecting → connected | disconnected | rejected) and delivers
// raw broadcast payloads to a handler; classification and normalization
// happen upstream.
package cable

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/bhandras/chatwidget/pkg/logger"
)

// State is the connection state of the cable client.
type State string

const (
	StateIdle         State = "idle"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
	StateRejected     State = "rejected"
)

// Client is a cable channel subscription.
type Client struct {
	wsURL      string
	identifier string

	mu        sync.Mutex
	conn      *websocket.Conn
	state     State
	onState   func(State)
	onMessage func(map[string]any)
	done      chan struct{}
	closeOnce sync.Once
}

// NewClient creates a cable client for the backend at baseURL, subscribing
// with the given pubsub token. baseURL is the HTTP base; the websocket
// scheme and /cable path are derived from it.
func NewClient(baseURL, pubsubToken string) (*Client, error) {
	if pubsubToken == "" {
		return nil, fmt.Errorf("pubsub token required")
	}
	identifier, err := encodeIdentifier(pubsubToken)
	if err != nil {
		return nil, fmt.Errorf("encode identifier: %w", err)
	}
	return &Client{
		wsURL:      websocketURL(baseURL),
		identifier: identifier,
		state:      StateIdle,
		done:       make(chan struct{}),
	}, nil
}

// websocketURL converts an http(s) base URL into the ws(s) cable endpoint.
func websocketURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(base, "https:"):
		base = "wss:" + strings.TrimPrefix(base, "https:")
	case strings.HasPrefix(base, "http:"):
		base = "ws:" + strings.TrimPrefix(base, "http:")
	}
	return base + "/cable"
}

// OnStateChange registers the connectivity handler. It must be set before
// Connect and is invoked from the read loop goroutine.
func (c *Client) OnStateChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onState = fn
}

// OnMessage registers the broadcast payload handler. It must be set before
// Connect and is invoked from the read loop goroutine.
func (c *Client) OnMessage(fn func(map[string]any)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMessage = fn
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect dials the cable endpoint, issues the subscribe command, and
// starts the read loop. The connection is considered connected only once
// the server confirms the subscription.
func (c *Client) Connect(ctx context.Context) error {
	c.setState(StateConnecting)

	logger.Debugf("cable: dialing %s", c.wsURL)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		c.setState(StateDisconnected)
		return fmt.Errorf("dial %s: %w", c.wsURL, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	if err := conn.WriteJSON(frame{Command: commandSubscribe, Identifier: c.identifier}); err != nil {
		conn.Close()
		c.setState(StateDisconnected)
		return fmt.Errorf("subscribe: %w", err)
	}

	go c.readLoop(conn)
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			select {
			case <-c.done:
				// Deliberate teardown; Close already set the final state.
			default:
				logger.Debugf("cable: read: %v", err)
				c.setState(StateDisconnected)
			}
			return
		}

		switch f.Type {
		case frameWelcome, framePing:
			// Keep-alive traffic; nothing to deliver.
		case frameConfirmSubscription:
			c.setState(StateConnected)
		case frameRejectSubscription:
			logger.Warnf("cable: subscription rejected")
			c.setState(StateRejected)
			conn.Close()
			return
		default:
			c.deliver(f.Message)
		}
	}
}

// deliver decodes a broadcast payload and hands it to the message handler.
func (c *Client) deliver(raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		logger.Debugf("cable: discarding malformed broadcast: %v", err)
		return
	}

	c.mu.Lock()
	handler := c.onMessage
	c.mu.Unlock()
	if handler != nil {
		handler(payload)
	}
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	if c.state == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	handler := c.onState
	c.mu.Unlock()

	logger.Tracef("cable: state %s", s)
	if handler != nil {
		handler(s)
	}
}

// Close releases the subscription and the transport connection. It is
// idempotent and safe to call from any goroutine, on every teardown path.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)

		c.mu.Lock()
		conn := c.conn
		c.conn = nil
		c.mu.Unlock()

		if conn != nil {
			// Best-effort unsubscribe so the server drops the stream promptly.
			_ = conn.WriteJSON(frame{Command: commandUnsubscribe, Identifier: c.identifier})
			conn.Close()
		}
		c.setState(StateDisconnected)
	})
	return nil
}
