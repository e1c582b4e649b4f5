// Package conversation implements the message reconciliation engine.
//
// The engine owns one conversation's view state: the ordered message list,
// the realtime connectivity status, and the loading/error flags. It is fed
// by three independent sources (history fetches, optimistic local echoes,
// realtime pushes) and merges them into a single deduplicated view.
package conversation

import (
	"github.com/bhandras/chatwidget/internal/message"
)

// Status is the realtime channel connectivity as seen by the view.
type Status string

const (
	StatusIdle         Status = "idle"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusRejected     Status = "rejected"
)

// State holds the conversation view state.
//
// It is updated only by the runtime loop; the rendering layer reads
// snapshots and never mutates it.
type State struct {
	// ConversationID identifies the active conversation. Push messages for
	// any other conversation never enter the list.
	ConversationID string

	// Messages is the ordered message list (insertion order = display
	// order). No two entries share an ID.
	Messages []message.Message

	// Status is the realtime channel connectivity.
	Status Status

	// Loading is true until the first history fetch settles.
	Loading bool

	// LastErr is the most recent history fetch error; cleared by the next
	// successful fetch.
	LastErr error

	// SendErr is the most recent send failure; cleared when a new send is
	// issued. The optimistic entry of a failed send stays in the list.
	SendErr error
}
