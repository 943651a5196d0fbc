package entity

const MetaReasoningContent = "reasoningContent"

const (
	MetaFinishReason = "finishReason"
	MetaUsage        = "usage"
)

// StreamChunk is one incremental unit of a streamed response. Optional
// wire fields are modeled as nil-able values instead of being guessed at.
type StreamChunk struct {
	ID        string
	Metadata  map[string]any
	Text      *string
	ToolCalls []ToolCallDelta
	// FinishReason closes pending tool calls when non-empty.
	FinishReason string
	// Err is set when the frame could not be parsed.
	Err error
}

type ToolCallDelta struct {
	Index     int
	ID        string
	Name      string
	Arguments string
}

func (c StreamChunk) HasSignal() bool {
	return len(c.Metadata) > 0 || c.Text != nil || len(c.ToolCalls) > 0 || c.FinishReason != ""
}

func (c StreamChunk) Reasoning() string {
	if c.Metadata == nil {
		return ""
	}
	s, _ := c.Metadata[MetaReasoningContent].(string)
	return s
}

func TextChunk(text string) StreamChunk {
	return StreamChunk{Text: &text}
}

func ReasoningChunk(reasoning string) StreamChunk {
	return StreamChunk{Metadata: map[string]any{MetaReasoningContent: reasoning}}
}
