package message

import (
	"strconv"
	"time"

	"github.com/bhandras/chatwidget/internal/wire"
)

// millisEpochThreshold separates seconds-scale from milliseconds-scale
// numeric timestamps. Values below it are treated as seconds.
const millisEpochThreshold = int64(1_000_000_000_000)

// timeNow is stubbed in tests.
var timeNow = time.Now

// FromAPI normalizes a REST-shape record into a canonical Message.
//
// It never fails: missing fields degrade to safe defaults (text content
// type, empty attachments, current time).
func FromAPI(raw wire.APIMessage) Message {
	createdAt := NormalizeTimestamp(raw.CreatedAt.String())
	convID := raw.ConversationID.String()

	id := raw.ID.String()
	if id == "" {
		id = synthesizeID(convID, createdAt, raw.Content)
	}

	attachments := make([]Attachment, 0, len(raw.Attachments))
	for _, a := range raw.Attachments {
		attachments = append(attachments, normalizeAttachment(a))
	}

	return Message{
		ID:                id,
		Content:           raw.Content,
		ContentType:       normalizeContentType(raw.ContentType),
		MessageType:       DecodeMessageType(raw.MessageType, raw.Sender),
		CreatedAt:         createdAt,
		Attachments:       attachments,
		ConversationID:    convID,
		Sender:            normalizeSender(raw.Sender),
		ContentAttributes: raw.ContentAttributes,
	}
}

// FromCable normalizes a cable-shape record into a canonical Message.
//
// Cable records prefer source_id as the deduplication key and carry at most
// one attachment.
func FromCable(raw wire.CableMessage) Message {
	createdAt := NormalizeTimestamp(raw.CreatedAt.String())
	convID := raw.ConversationID.String()

	id := raw.SourceID
	if id == "" {
		id = raw.ID.String()
	}
	if id == "" {
		id = synthesizeID(convID, createdAt, raw.Content)
	}

	attachments := []Attachment{}
	if raw.Attachment != nil {
		attachments = append(attachments, normalizeAttachment(*raw.Attachment))
	}

	return Message{
		ID:                id,
		Content:           raw.Content,
		ContentType:       normalizeContentType(raw.ContentType),
		MessageType:       DecodeMessageType(raw.MessageType, raw.Sender),
		CreatedAt:         createdAt,
		Attachments:       attachments,
		ConversationID:    convID,
		Sender:            normalizeSender(raw.Sender),
		ContentAttributes: raw.ContentAttributes,
	}
}

// DecodeMessageType decodes the raw message_type field and applies the
// sender correction pass.
//
// Integer codes (bare or stringified) map 0=incoming, 1=outgoing,
// 2=activity, 3=template; other strings pass through. The correction pass
// fixes backend mislabeling: a message authored by the visitor is always
// incoming, one authored by an agent always outgoing.
func DecodeMessageType(raw wire.FlexString, sender *wire.Sender) MessageType {
	mt := decodeTypeCode(raw.String())
	switch {
	case senderIsVisitor(sender) && mt == TypeOutgoing:
		mt = TypeIncoming
	case senderIsAgent(sender) && mt == TypeIncoming:
		mt = TypeOutgoing
	}
	return mt
}

func decodeTypeCode(raw string) MessageType {
	switch raw {
	case "", "0":
		return TypeIncoming
	case "1":
		return TypeOutgoing
	case "2":
		return TypeActivity
	case "3":
		return TypeTemplate
	default:
		return MessageType(raw)
	}
}

func senderIsVisitor(s *wire.Sender) bool {
	if s == nil {
		return false
	}
	return s.Type == "contact" || s.Role == "contact"
}

func senderIsAgent(s *wire.Sender) bool {
	if s == nil {
		return false
	}
	return s.Role == "agent" || s.Role == "administrator" || s.Type == "user"
}

// NormalizeTimestamp converts a raw created_at value to epoch milliseconds.
//
// Numeric values (and numeric strings) below the milliseconds threshold are
// treated as seconds and scaled. Non-numeric strings are parsed as calendar
// timestamps. Absent or unparseable values yield the current time.
func NormalizeTimestamp(raw string) int64 {
	if raw == "" {
		return timeNow().UnixMilli()
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		ms := int64(n)
		if ms < millisEpochThreshold {
			ms = int64(n * 1000)
		}
		return ms
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UnixMilli()
	}
	if t, err := time.Parse("2006-01-02 15:04:05", raw); err == nil {
		return t.UnixMilli()
	}
	return timeNow().UnixMilli()
}

func normalizeContentType(raw string) ContentType {
	switch ContentType(raw) {
	case ContentTypeInputSelect, ContentTypeCards, ContentTypeForm:
		return ContentType(raw)
	default:
		return ContentTypeText
	}
}

func normalizeAttachment(raw wire.Attachment) Attachment {
	url := raw.DataURL
	if url == "" {
		url = raw.URL
	}
	if url == "" {
		url = raw.FileURL
	}
	if url == "" {
		url = raw.ThumbURL
	}
	contentType := raw.ContentType
	if contentType == "" {
		contentType = raw.FileType
	}
	return Attachment{URL: url, ContentType: contentType, FileName: raw.FileName}
}

func normalizeSender(raw *wire.Sender) *Sender {
	if raw == nil {
		return nil
	}
	name := raw.Name
	if name == "" {
		name = raw.AvailableName
	}
	return &Sender{Type: raw.Type, Role: raw.Role, Name: name}
}
