// Package message defines the canonical in-memory message representation
// and the normalization layer that produces it from either wire shape.
package message

import (
	"fmt"
	"hash/fnv"
	"strconv"
)

// ContentType selects the structured content variant of a message.
type ContentType string

const (
	ContentTypeText        ContentType = "text"
	ContentTypeInputSelect ContentType = "input_select"
	ContentTypeCards       ContentType = "cards"
	ContentTypeForm        ContentType = "form"
)

// MessageType is the direction/kind of a message.
//
// Incoming messages are authored by the visitor, outgoing messages by an
// agent or the system, activity messages are system notices.
type MessageType string

const (
	TypeIncoming MessageType = "incoming"
	TypeOutgoing MessageType = "outgoing"
	TypeActivity MessageType = "activity"
	TypeTemplate MessageType = "template"
)

// Attachment is a normalized attachment descriptor.
type Attachment struct {
	// URL is the best available URL for the attachment payload.
	URL string
	// ContentType is the MIME type or backend file type when known.
	ContentType string
	// FileName is the original file name when known.
	FileName string
}

// Sender identifies the authoring party of a message.
type Sender struct {
	// Type is "contact" for visitors, "user" for agents.
	Type string
	// Role is the backend role for agent senders ("agent"/"administrator").
	Role string
	// Name is the display name.
	Name string
}

// Message is the canonical message used throughout the widget core.
//
// Exactly one Message exists per backend message; ID is the deduplication
// key for the reconciliation engine.
type Message struct {
	// ID is the stable deduplication key. Backend-assigned when available,
	// otherwise synthesized from conversation, timestamp, and content.
	ID string
	// Content is the text body; may be empty for attachment-only messages.
	Content string
	// ContentType selects the structured content variant.
	ContentType ContentType
	// MessageType is the direction after sender correction.
	MessageType MessageType
	// CreatedAt is the creation instant in milliseconds since epoch.
	CreatedAt int64
	// Attachments lists normalized attachment descriptors; possibly empty.
	Attachments []Attachment
	// ConversationID identifies the owning conversation.
	ConversationID string
	// Sender describes the authoring party when the backend provided one.
	Sender *Sender
	// ContentAttributes carries variant-specific data such as the options
	// of an input_select message.
	ContentAttributes map[string]any
}

// SelectOption is one choice of an input_select message.
type SelectOption struct {
	// Label is the display text.
	Label string
	// Value is the text submitted when the option is chosen.
	Value string
}

// SelectOptions returns the quick-reply options of an input_select message.
//
// Messages of other content types, or with malformed attributes, yield nil.
func (m Message) SelectOptions() []SelectOption {
	if m.ContentType != ContentTypeInputSelect || m.ContentAttributes == nil {
		return nil
	}
	raw, ok := m.ContentAttributes["options"].([]any)
	if !ok {
		return nil
	}
	opts := make([]SelectOption, 0, len(raw))
	for _, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		value, _ := entry["value"].(string)
		label, _ := entry["label"].(string)
		if label == "" {
			label = value
		}
		if value == "" && label == "" {
			continue
		}
		if value == "" {
			value = label
		}
		opts = append(opts, SelectOption{Label: label, Value: value})
	}
	if len(opts) == 0 {
		return nil
	}
	return opts
}

// NewLocalEcho builds the optimistic local echo for a just-submitted text.
//
// The echo id doubles as the request-correlation token sent to the backend,
// so the acknowledgment can replace this entry in place.
func NewLocalEcho(conversationID, content string, nowMs int64) Message {
	return Message{
		ID:             strconv.FormatInt(nowMs, 10),
		Content:        content,
		ContentType:    ContentTypeText,
		MessageType:    TypeIncoming,
		CreatedAt:      nowMs,
		Attachments:    []Attachment{},
		ConversationID: conversationID,
	}
}

// synthesizeID derives a stable fallback id for records the backend did not
// assign one to.
func synthesizeID(conversationID string, createdAt int64, content string) string {
	h := fnv.New32a()
	h.Write([]byte(content))
	return fmt.Sprintf("local-%s-%d-%08x", conversationID, createdAt, h.Sum32())
}
