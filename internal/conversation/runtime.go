package conversation

import (
	"strconv"
	"strings"
	"sync"

	"github.com/bhandras/chatwidget/internal/message"
)

// nearMatchWindowMs is the correlation window for the near-match merge: an
// incoming message replaces an existing entry with equal content in the
// same conversation when their timestamps are at most this far apart.
//
// The backend does not return a stable correlation id on every path, so
// content plus time proximity is the practical signal that an optimistic
// echo and its authoritative counterpart are the same message. The window
// is comfortably larger than normal request latency; two genuinely distinct
// identical texts inside it will be merged (known approximation).
const nearMatchWindowMs = 5000

// Config controls a Runtime instance.
type Config struct {
	// ConversationID identifies which conversation the runtime owns.
	ConversationID string

	// QueueSize bounds the event queue. If zero, a default is used.
	QueueSize int

	// Notify, when set, is invoked after every applied event. It runs on
	// the runtime goroutine and must not block.
	Notify func()
}

// Runtime serializes conversation events and produces effect commands.
//
// A single goroutine applies events one at a time, so the merge policy's
// read-then-write sequence is atomic with respect to all other inputs; no
// locks are needed around the message list.
type Runtime struct {
	mu sync.Mutex

	state  State
	notify func()

	events   chan Event
	commands chan Command
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New creates a new Runtime instance.
func New(cfg Config) *Runtime {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}

	return &Runtime{
		state: State{
			ConversationID: cfg.ConversationID,
			Status:         StatusIdle,
			Loading:        true,
			Messages:       []message.Message{},
		},
		notify:   cfg.Notify,
		events:   make(chan Event, queueSize),
		commands: make(chan Command, queueSize),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the runtime loop in a new goroutine.
func (r *Runtime) Start() {
	go r.loop()
}

// Stop requests stopping the runtime loop and waits for it to exit.
//
// Stop is safe to call multiple times.
func (r *Runtime) Stop() {
	select {
	case <-r.stopCh:
		<-r.doneCh
		return
	default:
		close(r.stopCh)
	}
	<-r.doneCh
}

// Commands returns a channel of commands to be executed by the caller.
func (r *Runtime) Commands() <-chan Command {
	return r.commands
}

// Post enqueues an event for the runtime loop.
// It returns false if the runtime is stopped or the queue is full.
func (r *Runtime) Post(evt Event) bool {
	if evt == nil {
		return false
	}
	select {
	case <-r.stopCh:
		return false
	default:
	}

	select {
	case r.events <- evt:
		return true
	default:
		return false
	}
}

// Snapshot returns a copy of the current view state.
//
// The message slice is copied so callers can iterate without racing the
// loop.
func (r *Runtime) Snapshot() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := r.state
	snap.Messages = append([]message.Message(nil), r.state.Messages...)
	return snap
}

func (r *Runtime) loop() {
	defer close(r.doneCh)
	defer close(r.commands)

	for {
		select {
		case <-r.stopCh:
			return
		case evt := <-r.events:
			if evt == nil {
				continue
			}
			cmds := r.apply(evt)
			if r.notify != nil {
				r.notify()
			}
			for _, cmd := range cmds {
				if cmd == nil {
					continue
				}
				select {
				case r.commands <- cmd:
				case <-r.stopCh:
					return
				}
			}
		}
	}
}

func (r *Runtime) apply(evt Event) []Command {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch e := evt.(type) {
	case HistoryFetchedEvent:
		r.state.Messages = append([]message.Message{}, e.Messages...)
		r.state.Loading = false
		r.state.LastErr = nil
		return nil

	case HistoryFetchFailedEvent:
		r.state.Loading = false
		r.state.LastErr = e.Err
		return nil

	case PushMessageEvent:
		if e.Message.ConversationID != "" && r.state.ConversationID != "" &&
			e.Message.ConversationID != r.state.ConversationID {
			return nil
		}
		r.merge(e.Message)
		return nil

	case PushUnclassifiedEvent:
		return []Command{FetchHistoryCommand{}}

	case SendTextEvent:
		content := strings.TrimSpace(e.Content)
		if content == "" {
			return nil
		}
		// Two submissions inside the same millisecond would collide on the
		// timestamp-derived id; bump until the id is free so the list never
		// holds duplicates.
		nowMs := e.NowMs
		for r.indexByID(strconv.FormatInt(nowMs, 10)) >= 0 {
			nowMs++
		}
		echo := message.NewLocalEcho(r.state.ConversationID, content, nowMs)
		r.state.Messages = append(r.state.Messages, echo)
		r.state.SendErr = nil
		return []Command{SubmitMessageCommand{EchoID: echo.ID, Content: content}}

	case SendAckEvent:
		r.applyAck(e.EchoID, e.Message)
		return nil

	case SendFailedEvent:
		r.state.SendErr = e.Err
		return nil

	case StatusChangedEvent:
		r.state.Status = e.Status
		return nil

	default:
		return nil
	}
}

// merge applies the deduplication/merge policy to one incoming message:
// exact id match is skipped, a near match is replaced in place, anything
// else is appended.
func (r *Runtime) merge(m message.Message) {
	if r.indexByID(m.ID) >= 0 {
		return
	}
	for i := range r.state.Messages {
		if nearMatch(r.state.Messages[i], m) {
			r.state.Messages[i] = m
			return
		}
	}
	r.state.Messages = append(r.state.Messages, m)
}

// applyAck replaces the optimistic echo identified by echoID with the
// canonical record, preserving its position. When the canonical record
// already arrived via push, the echo is removed instead so the list never
// holds two entries with the same id.
func (r *Runtime) applyAck(echoID string, m message.Message) {
	echoIdx := r.indexByID(echoID)
	if echoIdx < 0 {
		r.merge(m)
		return
	}
	if existing := r.indexByID(m.ID); existing >= 0 && existing != echoIdx {
		r.state.Messages = append(r.state.Messages[:echoIdx], r.state.Messages[echoIdx+1:]...)
		return
	}
	r.state.Messages[echoIdx] = m
}

func (r *Runtime) indexByID(id string) int {
	if id == "" {
		return -1
	}
	for i := range r.state.Messages {
		if r.state.Messages[i].ID == id {
			return i
		}
	}
	return -1
}

func nearMatch(existing, incoming message.Message) bool {
	if existing.ConversationID != incoming.ConversationID {
		return false
	}
	if incoming.Content == "" || existing.Content != incoming.Content {
		return false
	}
	delta := existing.CreatedAt - incoming.CreatedAt
	if delta < 0 {
		delta = -delta
	}
	return delta <= nearMatchWindowMs
}
