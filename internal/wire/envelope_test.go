package wire

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractRecord_UnwrapsNestedKeys(t *testing.T) {
	record := map[string]any{"id": float64(42), "content": "hi"}

	for _, key := range []string{"message", "payload", "data", "event"} {
		rec, ok := ExtractRecord(map[string]any{key: record})
		require.True(t, ok, key)
		require.Equal(t, record, rec, key)
	}
}

func TestExtractRecord_PrefersMessageKey(t *testing.T) {
	rec, ok := ExtractRecord(map[string]any{
		"message": map[string]any{"id": "inner"},
		"data":    map[string]any{"id": "other"},
	})
	require.True(t, ok)
	require.Equal(t, "inner", rec["id"])
}

func TestExtractRecord_FallsBackToEnvelope(t *testing.T) {
	envelope := map[string]any{"id": "bare", "content": "hi"}
	rec, ok := ExtractRecord(envelope)
	require.True(t, ok)
	require.Equal(t, envelope, rec)

	_, ok = ExtractRecord(nil)
	require.False(t, ok)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		rec  map[string]any
		want Kind
	}{
		{
			name: "cable by source_id",
			rec:  map[string]any{"source_id": "abc", "id": float64(7)},
			want: KindCable,
		},
		{
			name: "cable by content_type",
			rec:  map[string]any{"content_type": "text"},
			want: KindCable,
		},
		{
			name: "cable by message_type",
			rec:  map[string]any{"message_type": float64(1)},
			want: KindCable,
		},
		{
			name: "api by id",
			rec:  map[string]any{"id": float64(7), "content": "hi"},
			want: KindAPI,
		},
		{
			name: "api by conversation_id",
			rec:  map[string]any{"conversation_id": "9"},
			want: KindAPI,
		},
		{
			name: "zero message_type does not count as present",
			rec:  map[string]any{"message_type": float64(0), "id": float64(7)},
			want: KindAPI,
		},
		{
			name: "unknown",
			rec:  map[string]any{"event": "typing_on"},
			want: KindUnknown,
		},
		{
			name: "nil",
			rec:  nil,
			want: KindUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Classify(tt.rec))
		})
	}
}

func TestFlexString_AcceptsStringsAndNumbers(t *testing.T) {
	var payload struct {
		ID        FlexString `json:"id"`
		CreatedAt FlexString `json:"created_at"`
		Missing   FlexString `json:"missing"`
	}
	raw := `{"id": 1700000000000, "created_at": "2023-11-14T22:13:20.000Z", "missing": null}`
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	require.Equal(t, "1700000000000", payload.ID.String())
	require.Equal(t, "2023-11-14T22:13:20.000Z", payload.CreatedAt.String())
	require.Equal(t, "", payload.Missing.String())
}

func TestDecodeCableMessage(t *testing.T) {
	rec := map[string]any{
		"source_id":       "src-1",
		"content":         "hello",
		"message_type":    float64(1),
		"created_at":      float64(1700000000),
		"conversation_id": float64(12),
		"attachment":      map[string]any{"data_url": "http://x/file.png", "file_name": "file.png"},
		"sender":          map[string]any{"type": "user", "role": "agent", "name": "Sam"},
	}
	msg, err := DecodeCableMessage(rec)
	require.NoError(t, err)
	require.Equal(t, "src-1", msg.SourceID)
	require.Equal(t, "1", msg.MessageType.String())
	require.Equal(t, "1700000000", msg.CreatedAt.String())
	require.Equal(t, "12", msg.ConversationID.String())
	require.NotNil(t, msg.Attachment)
	require.Equal(t, "file.png", msg.Attachment.FileName)
	require.Equal(t, "agent", msg.Sender.Role)
}

func TestDecodeAPIMessage(t *testing.T) {
	rec := map[string]any{
		"id":              float64(501),
		"content":         "hi",
		"content_type":    "input_select",
		"message_type":    "1",
		"created_at":      "2023-11-14T22:13:20.000Z",
		"conversation_id": "12",
		"attachments": []any{
			map[string]any{"url": "http://x/a.pdf", "file_name": "a.pdf"},
		},
		"echo_id": "echo-1",
	}
	msg, err := DecodeAPIMessage(rec)
	require.NoError(t, err)
	require.Equal(t, "501", msg.ID.String())
	require.Equal(t, "input_select", msg.ContentType)
	require.Len(t, msg.Attachments, 1)
	require.Equal(t, "echo-1", msg.EchoID)
}
