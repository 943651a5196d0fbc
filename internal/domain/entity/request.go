package entity

// Request is a fully assembled completion request. Extra already has the
// typed vendor flags applied over the options bag.
type Request struct {
	Messages []Message
	Options  ChatOptions
	Tools    []ToolDefinition
	Extra    map[string]any
}
