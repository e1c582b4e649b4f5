package conversation

// Command is an output from the conversation runtime loop.
//
// Commands are effects that must be executed by a caller (the session
// Manager). Keeping these as data makes the apply step deterministic and
// testable.
type Command interface {
	isCommand()
}

// FetchHistoryCommand requests a full history re-fetch followed by a bulk
// replace.
type FetchHistoryCommand struct{}

func (FetchHistoryCommand) isCommand() {}

// SubmitMessageCommand requests submitting visitor text to the backend.
type SubmitMessageCommand struct {
	// EchoID is the correlation token of the optimistic echo already in the
	// list; the executor reports the outcome with the same token.
	EchoID string

	// Content is the message text.
	Content string
}

func (SubmitMessageCommand) isCommand() {}
