package cable

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{}

// cableServer is a minimal scripted cable endpoint: it upgrades, answers the
// subscribe command per the configured script, and then relays frames pushed
// through broadcast.
type cableServer struct {
	*httptest.Server

	reject bool

	mu        sync.Mutex
	conn      *websocket.Conn
	subscribe frame
}

func newCableServer(t *testing.T, reject bool) *cableServer {
	t.Helper()
	s := &cableServer{reject: reject}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/cable", r.URL.Path)
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)

		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()

		require.NoError(t, conn.WriteJSON(frame{Type: frameWelcome}))

		var sub frame
		require.NoError(t, conn.ReadJSON(&sub))
		s.mu.Lock()
		s.subscribe = sub
		s.mu.Unlock()

		if s.reject {
			require.NoError(t, conn.WriteJSON(frame{Type: frameRejectSubscription}))
			return
		}
		require.NoError(t, conn.WriteJSON(frame{Type: framePing, Message: json.RawMessage(`1700000000`)}))
		require.NoError(t, conn.WriteJSON(frame{Type: frameConfirmSubscription}))
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *cableServer) broadcast(t *testing.T, payload map[string]any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	require.NotNil(t, conn)
	require.NoError(t, conn.WriteJSON(frame{Message: raw}))
}

func collectStates(c *Client) func() []State {
	var mu sync.Mutex
	var states []State
	c.OnStateChange(func(s State) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s)
	})
	return func() []State {
		mu.Lock()
		defer mu.Unlock()
		return append([]State(nil), states...)
	}
}

func waitState(t *testing.T, c *Client, want State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return c.State() == want
	}, 2*time.Second, 5*time.Millisecond)
}

func TestNewClientRequiresToken(t *testing.T) {
	_, err := NewClient("http://example.com", "")
	require.Error(t, err)
}

func TestWebsocketURL(t *testing.T) {
	require.Equal(t, "ws://example.com/cable", websocketURL("http://example.com"))
	require.Equal(t, "wss://example.com/cable", websocketURL("https://example.com/"))
}

func TestConnectConfirmsSubscription(t *testing.T) {
	srv := newCableServer(t, false)

	c, err := NewClient(srv.URL, "tok-1")
	require.NoError(t, err)
	states := collectStates(c)
	defer c.Close()

	require.NoError(t, c.Connect(context.Background()))
	waitState(t, c, StateConnected)
	require.Equal(t, []State{StateConnecting, StateConnected}, states())

	// The subscribe command addressed the room channel with our token.
	srv.mu.Lock()
	sub := srv.subscribe
	srv.mu.Unlock()
	require.Equal(t, commandSubscribe, sub.Command)
	var ident channelIdentifier
	require.NoError(t, json.Unmarshal([]byte(sub.Identifier), &ident))
	require.Equal(t, roomChannel, ident.Channel)
	require.Equal(t, "tok-1", ident.PubsubToken)
}

func TestRejectedSubscription(t *testing.T) {
	srv := newCableServer(t, true)

	c, err := NewClient(srv.URL, "tok-bad")
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Connect(context.Background()))
	waitState(t, c, StateRejected)
}

func TestBroadcastDelivery(t *testing.T) {
	srv := newCableServer(t, false)

	c, err := NewClient(srv.URL, "tok-1")
	require.NoError(t, err)
	defer c.Close()

	payloads := make(chan map[string]any, 4)
	c.OnMessage(func(p map[string]any) { payloads <- p })

	require.NoError(t, c.Connect(context.Background()))
	waitState(t, c, StateConnected)

	srv.broadcast(t, map[string]any{
		"message": map[string]any{"content": "hi", "source_id": "src-9"},
	})

	select {
	case p := <-payloads:
		inner, ok := p["message"].(map[string]any)
		require.True(t, ok)
		require.Equal(t, "hi", inner["content"])
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast was not delivered")
	}
}

func TestDialFailure(t *testing.T) {
	c, err := NewClient("http://127.0.0.1:1", "tok-1")
	require.NoError(t, err)

	err = c.Connect(context.Background())
	require.Error(t, err)
	require.Equal(t, StateDisconnected, c.State())
}

func TestServerDropMarksDisconnected(t *testing.T) {
	srv := newCableServer(t, false)

	c, err := NewClient(srv.URL, "tok-1")
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Connect(context.Background()))
	waitState(t, c, StateConnected)

	srv.mu.Lock()
	conn := srv.conn
	srv.mu.Unlock()
	conn.Close()

	waitState(t, c, StateDisconnected)
}

func TestCloseIsIdempotent(t *testing.T) {
	srv := newCableServer(t, false)

	c, err := NewClient(srv.URL, "tok-1")
	require.NoError(t, err)
	require.NoError(t, c.Connect(context.Background()))
	waitState(t, c, StateConnected)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	require.Equal(t, StateDisconnected, c.State())
}

func TestPingAndWelcomeAreNotDelivered(t *testing.T) {
	srv := newCableServer(t, false)

	c, err := NewClient(srv.URL, "tok-1")
	require.NoError(t, err)
	defer c.Close()

	delivered := make(chan map[string]any, 4)
	c.OnMessage(func(p map[string]any) { delivered <- p })

	require.NoError(t, c.Connect(context.Background()))
	waitState(t, c, StateConnected)

	// welcome and ping preceded the confirmation; neither may surface.
	select {
	case p := <-delivered:
		t.Fatalf("keep-alive frame delivered: %v", p)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWebsocketURLKeepsNonHTTPSchemes(t *testing.T) {
	// Already-ws URLs pass through untouched apart from the path.
	got := websocketURL("ws://example.com")
	require.True(t, strings.HasSuffix(got, "/cable"))
	require.True(t, strings.HasPrefix(got, "ws://"))
}
