package input

import (
	"context"
	"iter"

	"higress-chat/internal/domain/entity"
)

type Prompt struct {
	System       string
	SystemParams map[string]any
	User         string
	// Options, when set, replaces the client defaults.
	Options         *entity.ChatOptions
	Tools           []entity.ToolName
	IncludeThinking bool
}

type ChatClient interface {
	Call(ctx context.Context, prompt Prompt) (*entity.FinalResponse, error)
	Stream(ctx context.Context, prompt Prompt) iter.Seq2[entity.Event, error]
}
