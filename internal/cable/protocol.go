package cable

import "encoding/json"

// frame is a single JSON frame on the cable channel, inbound or outbound.
//
// Inbound frames carry a type (welcome/ping/confirm_subscription/
// reject_subscription); broadcast frames carry no type and wrap the payload
// under message. Outbound frames carry a command.
type frame struct {
	// Type is the inbound frame type; empty on broadcasts.
	Type string `json:"type,omitempty"`
	// Command is the outbound command ("subscribe"/"unsubscribe").
	Command string `json:"command,omitempty"`
	// Identifier is the JSON-encoded channel identifier.
	Identifier string `json:"identifier,omitempty"`
	// Message is the broadcast payload or ping timestamp.
	Message json.RawMessage `json:"message,omitempty"`
}

// channelIdentifier is the channel addressing object, JSON-encoded into
// frame.Identifier as the protocol requires.
type channelIdentifier struct {
	// Channel is the server-side channel class name.
	Channel string `json:"channel"`
	// PubsubToken is the per-visitor subscription credential.
	PubsubToken string `json:"pubsub_token"`
}

const (
	frameWelcome             = "welcome"
	framePing                = "ping"
	frameConfirmSubscription = "confirm_subscription"
	frameRejectSubscription  = "reject_subscription"

	commandSubscribe   = "subscribe"
	commandUnsubscribe = "unsubscribe"

	// roomChannel is the backend channel that fans out conversation events
	// to visitors.
	roomChannel = "RoomChannel"
)

func encodeIdentifier(token string) (string, error) {
	raw, err := json.Marshal(channelIdentifier{Channel: roomChannel, PubsubToken: token})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
