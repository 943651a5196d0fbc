package entity

type EventKind int

const (
	EventEmpty EventKind = iota
	EventThinking
	EventAnswer
	EventToolCallRequested
	EventToolResult
	EventDone
)

func (k EventKind) String() string {
	switch k {
	case EventThinking:
		return "thinking"
	case EventAnswer:
		return "answer"
	case EventToolCallRequested:
		return "tool_call"
	case EventToolResult:
		return "tool_result"
	case EventDone:
		return "done"
	default:
		return "empty"
	}
}

// Event is a classified unit of decoder or facade output.
type Event struct {
	Kind     EventKind
	Text     string
	ToolCall *ToolCall
	Result   *ToolResult
}

type ToolResult struct {
	CallID  string
	Name    string
	Content string
	IsError bool
}

func Thinking(text string) Event { return Event{Kind: EventThinking, Text: text} }

func Answer(text string) Event { return Event{Kind: EventAnswer, Text: text} }

func ToolCallRequested(call ToolCall) Event {
	return Event{Kind: EventToolCallRequested, ToolCall: &call}
}

// Tagged renders the event with a prefix that keeps reasoning and answer
// text distinguishable downstream.
func (e Event) Tagged() string {
	switch e.Kind {
	case EventThinking:
		return "🤔thinking:" + e.Text
	case EventAnswer:
		return "📣answer:" + e.Text
	case EventToolCallRequested:
		return "🔧tool_call:" + e.ToolCall.Name + " " + e.ToolCall.Arguments
	case EventToolResult:
		return "✓tool_result:" + e.Result.Name + " " + e.Result.Content
	default:
		return ""
	}
}

type FinalResponse struct {
	ConversationID string
	Content        string
	Reasoning      string
	Invocations    []ToolResult
	Rounds         int
}
