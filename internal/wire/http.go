package wire

// Contact is the visitor contact record returned by the inbox API.
type Contact struct {
	// ID is the backend-internal contact id.
	ID FlexString `json:"id"`
	// SourceID is the stable public contact identifier used on all
	// subsequent calls and persisted client-side.
	SourceID string `json:"source_id"`
	// Name is the contact display name.
	Name string `json:"name"`
	// Email is the contact email when known.
	Email string `json:"email"`
	// PubsubToken is the per-visitor credential for the realtime channel.
	PubsubToken string `json:"pubsub_token"`
}

// Conversation is a conversation record returned by the inbox API.
type Conversation struct {
	// ID is the conversation id.
	ID FlexString `json:"id"`
	// InboxID is the owning inbox id.
	InboxID FlexString `json:"inbox_id"`
	// Status is the backend conversation status ("open"/"resolved").
	Status string `json:"status"`
}

// CreateContactRequest is the POST contacts request body.
type CreateContactRequest struct {
	// Name is the display name for the new contact.
	Name string `json:"name,omitempty"`
	// Identifier is an optional stable external identifier.
	Identifier string `json:"identifier,omitempty"`
}

// CreateMessageRequest is the POST messages request body.
type CreateMessageRequest struct {
	// Content is the message text.
	Content string `json:"content"`
	// EchoID is the client-generated correlation token echoed back in the
	// canonical record.
	EchoID string `json:"echo_id,omitempty"`
}
