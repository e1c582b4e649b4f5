// Package wire defines the raw record shapes exchanged with the hosted
// support backend and the classification step that turns loosely-typed
// push payloads into one of them.
//
// The backend emits message records in two incompatible shapes: the REST
// shape returned by the inbox API ("API") and the shape broadcast on the
// realtime cable channel ("cable"). Both are tolerated field-by-field;
// scalar fields that arrive as either JSON strings or numbers are decoded
// through FlexString so the normalization layer can apply one set of rules.
package wire

import (
	"encoding/json"
)

// FlexString is a scalar that accepts JSON strings, numbers, and null.
//
// Numbers keep their original textual form (no float round-tripping), so a
// millisecond timestamp like 1700000000000 survives intact.
type FlexString string

// UnmarshalJSON decodes a string, number, or null into the FlexString.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// MarshalJSON encodes the FlexString as a plain JSON string.
func (f FlexString) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(f))
}

// String returns the underlying string value.
func (f FlexString) String() string { return string(f) }

// Sender describes the party that authored a message.
type Sender struct {
	// Type is the sender kind ("contact" for visitors, "user" for agents).
	Type string `json:"type"`
	// Role is the backend role when the sender is a user ("agent"/"administrator").
	Role string `json:"role"`
	// Name is the sender display name.
	Name string `json:"name"`
	// AvailableName is an alternative display name used by cable payloads.
	AvailableName string `json:"available_name"`
}

// Attachment is a raw attachment descriptor.
//
// The backend populates a different subset of the URL fields depending on
// storage backend and message shape.
type Attachment struct {
	URL         string `json:"url"`
	DataURL     string `json:"data_url"`
	FileURL     string `json:"file_url"`
	ThumbURL    string `json:"thumb_url"`
	ContentType string `json:"content_type"`
	FileType    string `json:"file_type"`
	FileName    string `json:"file_name"`
}

// APIMessage is wire shape A: a message record as returned by the REST
// inbox API (history fetch and send acknowledgment).
type APIMessage struct {
	// ID is the backend-assigned message id.
	ID FlexString `json:"id"`
	// Content is the text body.
	Content string `json:"content"`
	// ContentType selects the structured content variant ("text" when empty).
	ContentType string `json:"content_type"`
	// MessageType is the direction; an integer code, stringified integer,
	// or symbolic string depending on backend version.
	MessageType FlexString `json:"message_type"`
	// ContentAttributes carries variant-specific data (options, cards, fields).
	ContentAttributes map[string]any `json:"content_attributes"`
	// CreatedAt is the creation time; ISO string, epoch seconds, or millis.
	CreatedAt FlexString `json:"created_at"`
	// ConversationID identifies the owning conversation.
	ConversationID FlexString `json:"conversation_id"`
	// Attachments lists attachment descriptors (plural in this shape).
	Attachments []Attachment `json:"attachments"`
	// Sender describes the authoring party when present.
	Sender *Sender `json:"sender"`
	// EchoID is the request-correlation token echoed back on send.
	EchoID string `json:"echo_id"`
}

// CableMessage is wire shape B: a message record as broadcast on the
// realtime cable channel.
type CableMessage struct {
	// ID is the backend-assigned message id.
	ID FlexString `json:"id"`
	// SourceID is the stable public identifier preferred for deduplication.
	SourceID string `json:"source_id"`
	// Content is the text body.
	Content string `json:"content"`
	// ContentType selects the structured content variant ("text" when empty).
	ContentType string `json:"content_type"`
	// MessageType is the direction; usually a bare integer code here.
	MessageType FlexString `json:"message_type"`
	// ContentAttributes carries variant-specific data (options, cards, fields).
	ContentAttributes map[string]any `json:"content_attributes"`
	// CreatedAt is the creation time in epoch seconds.
	CreatedAt FlexString `json:"created_at"`
	// ConversationID identifies the owning conversation.
	ConversationID FlexString `json:"conversation_id"`
	// Attachment is a single attachment descriptor (singular in this shape).
	Attachment *Attachment `json:"attachment"`
	// Sender describes the authoring party when present.
	Sender *Sender `json:"sender"`
}

// DecodeAPIMessage decodes a raw record map into an APIMessage.
func DecodeAPIMessage(rec map[string]any) (APIMessage, error) {
	var msg APIMessage
	if err := roundTrip(rec, &msg); err != nil {
		return APIMessage{}, err
	}
	return msg, nil
}

// DecodeCableMessage decodes a raw record map into a CableMessage.
func DecodeCableMessage(rec map[string]any) (CableMessage, error) {
	var msg CableMessage
	if err := roundTrip(rec, &msg); err != nil {
		return CableMessage{}, err
	}
	return msg, nil
}

// roundTrip re-encodes an already-decoded JSON value into a typed struct.
func roundTrip(v any, out any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
