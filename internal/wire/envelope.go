package wire

// Kind identifies which wire shape a raw record matches.
type Kind int

const (
	// KindUnknown means the record matched neither shape.
	KindUnknown Kind = iota
	// KindAPI is the REST inbox API shape (plural attachments, id-keyed).
	KindAPI
	// KindCable is the realtime broadcast shape (source_id-keyed).
	KindCable
)

// String returns a short name for the kind.
func (k Kind) String() string {
	switch k {
	case KindAPI:
		return "api"
	case KindCable:
		return "cable"
	default:
		return "unknown"
	}
}

// envelopeKeys are the top-level keys the backend may nest a broadcast
// record under, tried in order before falling back to the envelope itself.
var envelopeKeys = []string{"message", "payload", "data", "event"}

// ExtractRecord unwraps the message record from a push envelope.
//
// ok is false only when the envelope is nil; an envelope that carries no
// nested record is returned as the record itself and left to Classify.
func ExtractRecord(envelope map[string]any) (map[string]any, bool) {
	if envelope == nil {
		return nil, false
	}
	for _, key := range envelopeKeys {
		if nested, ok := envelope[key].(map[string]any); ok && len(nested) > 0 {
			return nested, true
		}
	}
	return envelope, true
}

// Classify decides which wire shape a raw record matches.
//
// Cable records are recognized first: the broadcast shape always carries
// source_id, content_type, or message_type. REST records are recognized by
// id or conversation_id. Records with none of these are unknown and should
// make the caller fall back to a full history refresh.
func Classify(rec map[string]any) Kind {
	if rec == nil {
		return KindUnknown
	}
	if truthy(rec["source_id"]) || truthy(rec["content_type"]) || truthy(rec["message_type"]) {
		return KindCable
	}
	if truthy(rec["id"]) || truthy(rec["conversation_id"]) {
		return KindAPI
	}
	return KindUnknown
}

// truthy mirrors the loose presence test used by the backend's own widget:
// absent, null, empty string, zero, and false all count as missing.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	default:
		return true
	}
}
