package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/bhandras/chatwidget/internal/conversation"
	"github.com/bhandras/chatwidget/internal/message"
	"github.com/bhandras/chatwidget/internal/session"
)

// viewChangedMsg signals that the manager's view state changed.
type viewChangedMsg struct{}

var (
	visitorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Bold(true)
	agentStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	activityStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	timeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	optionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	headerStyle   = lipgloss.NewStyle().Bold(true)
)

type model struct {
	mgr *session.Manager

	vp    viewport.Model
	input textinput.Model
	snap  conversation.State

	width  int
	height int
	ready  bool
}

func newModel(mgr *session.Manager) model {
	input := textinput.New()
	input.Placeholder = "Type a message..."
	input.Focus()
	input.CharLimit = 2000

	return model{
		mgr:   mgr,
		input: input,
		snap:  mgr.Snapshot(),
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		chromeHeight := 4 // header, status line, input, spacing
		if !m.ready {
			m.vp = viewport.New(msg.Width, msg.Height-chromeHeight)
			m.ready = true
		} else {
			m.vp.Width = msg.Width
			m.vp.Height = msg.Height - chromeHeight
		}
		m.refreshContent()
		return m, nil

	case viewChangedMsg:
		m.snap = m.mgr.Snapshot()
		m.refreshContent()
		m.vp.GotoBottom()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if text != "" {
				m.mgr.SendText(text)
				m.input.Reset()
			}
			return m, nil
		default:
			if opt, ok := m.quickReplyFor(msg.String()); ok {
				m.mgr.QuickReply(opt)
				return m, nil
			}
		}
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.vp, cmd = m.vp.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// quickReplyFor maps alt+1..alt+9 to an option of the latest input_select
// message.
func (m model) quickReplyFor(key string) (message.SelectOption, bool) {
	if !strings.HasPrefix(key, "alt+") {
		return message.SelectOption{}, false
	}
	n := int(key[len(key)-1] - '0')
	if n < 1 || n > 9 {
		return message.SelectOption{}, false
	}
	opts := m.latestSelectOptions()
	if n > len(opts) {
		return message.SelectOption{}, false
	}
	return opts[n-1], true
}

func (m model) latestSelectOptions() []message.SelectOption {
	msgs := m.snap.Messages
	for i := len(msgs) - 1; i >= 0; i-- {
		if opts := msgs[i].SelectOptions(); opts != nil {
			return opts
		}
	}
	return nil
}

func (m *model) refreshContent() {
	if !m.ready {
		return
	}
	var b strings.Builder
	for _, msg := range m.snap.Messages {
		b.WriteString(renderMessage(msg, m.vp.Width))
		b.WriteString("\n")
	}
	if len(m.snap.Messages) == 0 && !m.snap.Loading {
		b.WriteString(activityStyle.Render("No messages yet. Say hello!"))
		b.WriteString("\n")
	}
	m.vp.SetContent(b.String())
}

func renderMessage(msg message.Message, width int) string {
	stamp := timeStyle.Render(time.UnixMilli(msg.CreatedAt).Format("15:04"))

	var label string
	var style lipgloss.Style
	switch msg.MessageType {
	case message.TypeIncoming:
		label, style = "you", visitorStyle
	case message.TypeActivity:
		label, style = "--", activityStyle
	default:
		label, style = senderLabel(msg), agentStyle
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s", stamp, style.Render(label+":"), msg.Content)

	switch msg.ContentType {
	case message.ContentTypeInputSelect:
		for i, opt := range msg.SelectOptions() {
			fmt.Fprintf(&b, "\n    %s", optionStyle.Render(fmt.Sprintf("[alt+%d] %s", i+1, opt.Label)))
		}
	case message.ContentTypeCards:
		renderCards(&b, msg)
	case message.ContentTypeForm:
		renderForm(&b, msg)
	}

	for _, a := range msg.Attachments {
		name := a.FileName
		if name == "" {
			name = a.URL
		}
		fmt.Fprintf(&b, "\n    %s", optionStyle.Render("attachment: "+name))
	}

	return wordwrap(b.String(), width)
}

func senderLabel(msg message.Message) string {
	if msg.Sender != nil && msg.Sender.Name != "" {
		return msg.Sender.Name
	}
	return "agent"
}

func renderCards(b *strings.Builder, msg message.Message) {
	raw, ok := msg.ContentAttributes["cards"].([]any)
	if !ok {
		return
	}
	for _, item := range raw {
		card, ok := item.(map[string]any)
		if !ok {
			continue
		}
		title, _ := card["title"].(string)
		description, _ := card["description"].(string)
		fmt.Fprintf(b, "\n    %s", optionStyle.Render("* "+title))
		if description != "" {
			fmt.Fprintf(b, "\n      %s", description)
		}
	}
}

func renderForm(b *strings.Builder, msg message.Message) {
	raw, ok := msg.ContentAttributes["fields"].([]any)
	if !ok {
		return
	}
	for _, item := range raw {
		field, ok := item.(map[string]any)
		if !ok {
			continue
		}
		label, _ := field["label"].(string)
		if label == "" {
			label, _ = field["name"].(string)
		}
		fmt.Fprintf(b, "\n    %s", optionStyle.Render("field: "+label))
	}
}

// wordwrap keeps rendered lines inside the viewport. Wrapping is cell
// aware, so wide runes and escape sequences survive intact.
func wordwrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	return ansi.Wrap(s, width, "")
}

func (m model) View() string {
	if !m.ready {
		return "starting..."
	}

	header := headerStyle.Render("Support Chat")
	status := statusStyle.Render("realtime: " + string(m.snap.Status))
	if m.snap.Loading {
		status += "  " + activityStyle.Render("loading...")
	}
	if m.snap.LastErr != nil {
		status += "  " + errorStyle.Render(m.snap.LastErr.Error())
	}
	if m.snap.SendErr != nil {
		status += "  " + errorStyle.Render("send failed: "+m.snap.SendErr.Error())
	}

	return fmt.Sprintf("%s\n%s\n%s\n%s", header, m.vp.View(), status, m.input.View())
}
