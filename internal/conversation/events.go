package conversation

import (
	"github.com/bhandras/chatwidget/internal/message"
)

// Event is an input to the conversation runtime loop.
type Event interface {
	isEvent()
}

// HistoryFetchedEvent replaces the entire message list with a freshly
// fetched, normalized history (bulk replace).
type HistoryFetchedEvent struct {
	// Messages is the normalized history in backend delivery order.
	Messages []message.Message
}

func (HistoryFetchedEvent) isEvent() {}

// HistoryFetchFailedEvent records a transient history fetch failure.
//
// The failure is surfaced via State.LastErr and implicitly retried by the
// next poller tick or user action.
type HistoryFetchFailedEvent struct {
	// Err is the fetch error.
	Err error
}

func (HistoryFetchFailedEvent) isEvent() {}

// PushMessageEvent merges a single message delivered on the realtime
// channel into the list.
type PushMessageEvent struct {
	// Message is the normalized pushed message.
	Message message.Message
}

func (PushMessageEvent) isEvent() {}

// PushUnclassifiedEvent signals a push payload that matched no known wire
// shape. The engine responds with a full history refresh rather than
// dropping the event.
type PushUnclassifiedEvent struct{}

func (PushUnclassifiedEvent) isEvent() {}

// SendTextEvent submits visitor text: an optimistic local echo is appended
// immediately and a submit command is emitted for the transport.
type SendTextEvent struct {
	// Content is the message text; events with blank content are ignored.
	Content string

	// NowMs is the wall-clock time in milliseconds since epoch. Injected by
	// the caller so the loop stays deterministic.
	NowMs int64
}

func (SendTextEvent) isEvent() {}

// SendAckEvent delivers the backend's canonical record for a just-sent
// message. The optimistic echo with the matching correlation id is replaced
// in place.
type SendAckEvent struct {
	// EchoID is the correlation token of the optimistic echo.
	EchoID string

	// Message is the normalized canonical record.
	Message message.Message
}

func (SendAckEvent) isEvent() {}

// SendFailedEvent records a submit failure. The optimistic echo is kept;
// only the error flag is surfaced to the rendering layer.
type SendFailedEvent struct {
	// EchoID is the correlation token of the optimistic echo.
	EchoID string

	// Err is the submit error.
	Err error
}

func (SendFailedEvent) isEvent() {}

// StatusChangedEvent updates the realtime connectivity status.
type StatusChangedEvent struct {
	// Status is the new connectivity status.
	Status Status
}

func (StatusChangedEvent) isEvent() {}
