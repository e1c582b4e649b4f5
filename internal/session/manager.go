package session

import (
	"context"
	"sync"
	"time"

	"github.com/bhandras/chatwidget/internal/cable"
	"github.com/bhandras/chatwidget/internal/conversation"
	"github.com/bhandras/chatwidget/internal/message"
	"github.com/bhandras/chatwidget/internal/wire"
	"github.com/bhandras/chatwidget/pkg/logger"
)

// transport is the subset of the API client the manager uses after boot.
type transport interface {
	ListMessages(ctx context.Context, contactID, conversationID string) ([]wire.APIMessage, error)
	SendMessage(ctx context.Context, contactID, conversationID, content, echoID string) (wire.APIMessage, error)
}

// realtime is the subset of the cable client the manager uses.
type realtime interface {
	OnStateChange(fn func(cable.State))
	OnMessage(fn func(map[string]any))
	Connect(ctx context.Context) error
	Close() error
}

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// API is the request/response transport.
	API transport
	// Session is the resolved visitor session.
	Session Session
	// Cable is the realtime channel; nil disables realtime entirely and
	// leaves the poller as the only update source.
	Cable realtime
	// PollInterval is the fallback poll period.
	PollInterval time.Duration
	// PollDisabled turns the fallback poller off.
	PollDisabled bool
}

// Manager owns the resources of one active conversation: the
// reconciliation runtime, the realtime subscription, and the fallback
// poller. All of them are acquired by Start and released by Close on every
// exit path; nothing is shared between manager instances.
type Manager struct {
	api  transport
	sess Session
	rt   *conversation.Runtime
	cab  realtime
	poll *Poller

	updates chan struct{}

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	execDone  chan struct{}
}

// NewManager creates a manager for the resolved session.
func NewManager(cfg ManagerConfig) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		api:      cfg.API,
		sess:     cfg.Session,
		cab:      cfg.Cable,
		updates:  make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
		execDone: make(chan struct{}),
	}

	m.rt = conversation.New(conversation.Config{
		ConversationID: cfg.Session.ConversationID,
		Notify:         m.notifyChanged,
	})

	if !cfg.PollDisabled {
		m.poll = NewPoller(cfg.PollInterval, func() { m.refresh(false) }, m.pollEligible)
	}
	return m
}

// Start seeds the view with the initial history fetch, attaches the
// realtime channel, and arms the fallback poller.
//
// A failed realtime attach is not fatal: status degrades to disconnected
// and the poller compensates.
func (m *Manager) Start() {
	m.rt.Start()
	go m.executeCommands()

	go m.refresh(true)

	if m.cab != nil {
		m.cab.OnStateChange(m.handleCableState)
		m.cab.OnMessage(m.handlePush)
		go func() {
			if err := m.cab.Connect(m.ctx); err != nil {
				logger.Warnf("session: realtime attach failed: %v", err)
			}
		}()
	} else {
		m.rt.Post(conversation.StatusChangedEvent{Status: conversation.StatusDisconnected})
	}

	if m.poll != nil {
		m.poll.Start()
	}
}

// Close releases the poller, the realtime subscription, and the runtime.
// It is idempotent and must complete before a new session's resources are
// created so a stale subscription can never feed the next conversation.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.cancel()
		if m.poll != nil {
			m.poll.Stop()
		}
		if m.cab != nil {
			_ = m.cab.Close()
		}
		m.rt.Stop()
		<-m.execDone
	})
}

// Snapshot returns the current conversation view state.
func (m *Manager) Snapshot() conversation.State {
	return m.rt.Snapshot()
}

// Updates signals after view state changes; notifications coalesce.
func (m *Manager) Updates() <-chan struct{} {
	return m.updates
}

// SendText submits visitor text. The optimistic echo appears in the next
// snapshot immediately, before the network round trip completes.
func (m *Manager) SendText(content string) {
	m.rt.Post(conversation.SendTextEvent{Content: content, NowMs: time.Now().UnixMilli()})
}

// QuickReply submits the value of a structured message option. It is
// semantically identical to SendText with the option's fixed text.
func (m *Manager) QuickReply(opt message.SelectOption) {
	m.SendText(opt.Value)
}

func (m *Manager) notifyChanged() {
	select {
	case m.updates <- struct{}{}:
	default:
	}
}

// pollEligible gates the fallback poller: poll only while the realtime
// channel is not in a connected state.
func (m *Manager) pollEligible() bool {
	return m.rt.Snapshot().Status != conversation.StatusConnected
}

// executeCommands drains the runtime's effect commands. Each command runs
// in its own goroutine because it suspends on the network; results come
// back through the runtime's event queue, so engine updates stay
// serialized.
func (m *Manager) executeCommands() {
	defer close(m.execDone)
	for cmd := range m.rt.Commands() {
		switch c := cmd.(type) {
		case conversation.FetchHistoryCommand:
			go m.refresh(false)
		case conversation.SubmitMessageCommand:
			go m.submit(c)
		}
	}
}

// refresh performs a bulk history fetch and replace. Transient failures
// are swallowed unless report is set (the boot fetch), in which case the
// error is surfaced on the view state.
func (m *Manager) refresh(report bool) {
	raw, err := m.api.ListMessages(m.ctx, m.sess.ContactIdentifier, m.sess.ConversationID)
	if err != nil {
		if report {
			m.rt.Post(conversation.HistoryFetchFailedEvent{Err: err})
		} else {
			logger.Debugf("session: history refresh failed: %v", err)
		}
		return
	}

	msgs := make([]message.Message, 0, len(raw))
	for _, r := range raw {
		msgs = append(msgs, message.FromAPI(r))
	}
	m.rt.Post(conversation.HistoryFetchedEvent{Messages: msgs})
}

func (m *Manager) submit(cmd conversation.SubmitMessageCommand) {
	canonical, err := m.api.SendMessage(m.ctx, m.sess.ContactIdentifier, m.sess.ConversationID, cmd.Content, cmd.EchoID)
	if err != nil {
		logger.Warnf("session: send failed: %v", err)
		m.rt.Post(conversation.SendFailedEvent{EchoID: cmd.EchoID, Err: err})
		return
	}
	m.rt.Post(conversation.SendAckEvent{EchoID: cmd.EchoID, Message: message.FromAPI(canonical)})
}

// handlePush bridges one realtime broadcast into the engine: unwrap the
// envelope, classify the record, normalize it, and post it. Payloads that
// cannot be classified trigger a full refresh instead of being dropped.
func (m *Manager) handlePush(payload map[string]any) {
	rec, ok := wire.ExtractRecord(payload)
	if !ok {
		m.rt.Post(conversation.PushUnclassifiedEvent{})
		return
	}

	switch wire.Classify(rec) {
	case wire.KindCable:
		decoded, err := wire.DecodeCableMessage(rec)
		if err != nil {
			logger.Debugf("session: cable record decode failed: %v", err)
			m.rt.Post(conversation.PushUnclassifiedEvent{})
			return
		}
		m.rt.Post(conversation.PushMessageEvent{Message: message.FromCable(decoded)})

	case wire.KindAPI:
		decoded, err := wire.DecodeAPIMessage(rec)
		if err != nil {
			logger.Debugf("session: api record decode failed: %v", err)
			m.rt.Post(conversation.PushUnclassifiedEvent{})
			return
		}
		m.rt.Post(conversation.PushMessageEvent{Message: message.FromAPI(decoded)})

	default:
		m.rt.Post(conversation.PushUnclassifiedEvent{})
	}
}

func (m *Manager) handleCableState(s cable.State) {
	m.rt.Post(conversation.StatusChangedEvent{Status: statusFromCable(s)})
}

func statusFromCable(s cable.State) conversation.Status {
	switch s {
	case cable.StateConnecting:
		return conversation.StatusConnecting
	case cable.StateConnected:
		return conversation.StatusConnected
	case cable.StateRejected:
		return conversation.StatusRejected
	case cable.StateDisconnected:
		return conversation.StatusDisconnected
	default:
		return conversation.StatusIdle
	}
}
