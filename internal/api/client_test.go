package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bhandras/chatwidget/internal/wire"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "inbox-1")
}

func TestGetContact(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/public/api/v1/inboxes/inbox-1/contacts/src-abc", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"id":           42,
			"source_id":    "src-abc",
			"pubsub_token": "tok",
		})
	})

	contact, err := client.GetContact(context.Background(), "src-abc")
	require.NoError(t, err)
	require.Equal(t, "42", contact.ID.String())
	require.Equal(t, "src-abc", contact.SourceID)
	require.Equal(t, "tok", contact.PubsubToken)
}

func TestCreateContact(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/public/api/v1/inboxes/inbox-1/contacts", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req wire.CreateContactRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "Web Visitor", req.Name)
		require.Equal(t, "user-1", req.Identifier)

		json.NewEncoder(w).Encode(map[string]any{"source_id": "src-new"})
	})

	contact, err := client.CreateContact(context.Background(), wire.CreateContactRequest{
		Name:       "Web Visitor",
		Identifier: "user-1",
	})
	require.NoError(t, err)
	require.Equal(t, "src-new", contact.SourceID)
}

func TestListConversations(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/public/api/v1/inboxes/inbox-1/contacts/src-abc/conversations", r.URL.Path)
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": 7, "status": "open"},
			{"id": 8, "status": "resolved"},
		})
	})

	conversations, err := client.ListConversations(context.Background(), "src-abc")
	require.NoError(t, err)
	require.Len(t, conversations, 2)
	require.Equal(t, "7", conversations[0].ID.String())
	require.Equal(t, "open", conversations[0].Status)
}

func TestListMessages(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/public/api/v1/inboxes/inbox-1/contacts/src-abc/conversations/12/messages", r.URL.Path)
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": 1, "content": "hello", "message_type": 1, "conversation_id": 12},
		})
	})

	messages, err := client.ListMessages(context.Background(), "src-abc", "12")
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Equal(t, "1", messages[0].ID.String())
	require.Equal(t, "1", messages[0].MessageType.String())
}

func TestSendMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)

		var req wire.CreateMessageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "hi", req.Content)
		require.Equal(t, "1700000000000", req.EchoID)

		json.NewEncoder(w).Encode(map[string]any{
			"id":      501,
			"content": req.Content,
			"echo_id": req.EchoID,
		})
	})

	msg, err := client.SendMessage(context.Background(), "src-abc", "12", "hi", "1700000000000")
	require.NoError(t, err)
	require.Equal(t, "501", msg.ID.String())
	require.Equal(t, "1700000000000", msg.EchoID)
}

func TestErrorStatusIncludesBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"contact not found"}`, http.StatusNotFound)
	})

	_, err := client.GetContact(context.Background(), "src-missing")
	require.Error(t, err)
	require.ErrorContains(t, err, "404")
	require.ErrorContains(t, err, "contact not found")
}

func TestPathSegmentsAreEscaped(t *testing.T) {
	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Write([]byte("{}"))
	})

	_, err := client.GetContact(context.Background(), "src/../../evil")
	require.NoError(t, err)
	require.Equal(t, "/public/api/v1/inboxes/inbox-1/contacts/src%2F..%2F..%2Fevil", gotPath)
}

func TestContextCancellation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.GetContact(ctx, "src-abc")
	require.ErrorIs(t, err, context.Canceled)
}
