package service

import (
	"strings"

	"higress-chat/internal/application/port/output"
	"higress-chat/internal/domain/entity"
)

const (
	ExtraEnableThinking    = "enable_thinking"
	ExtraEnableSearch      = "enable_search"
	ExtraIncrementalOutput = "incremental_output"
	ExtraSearchOptions     = "search_options"
)

// standardFields are request fields with a typed home. Bag duplicates are
// dropped so they can never reach the wire.
var standardFields = []string{
	"model", "messages", "temperature", "max_tokens", "tools",
	"tool_choice", "stream", "stream_options",
}

type RequestBuilder struct{}

func NewRequestBuilder() *RequestBuilder {
	return &RequestBuilder{}
}

func (b *RequestBuilder) Build(systemPrompt, userPrompt string, opts entity.ChatOptions, tools output.ToolResolver) (*entity.Request, error) {
	return b.BuildFor(entity.NewConversation(systemPrompt, userPrompt), opts, tools)
}

// BuildFor snapshots conv, so the request is unaffected by messages appended
// after it was built.
func (b *RequestBuilder) BuildFor(conv *entity.Conversation, opts entity.ChatOptions, tools output.ToolResolver) (*entity.Request, error) {
	if err := ValidateOptions(opts); err != nil {
		return nil, err
	}

	req := &entity.Request{
		Messages: conv.Snapshot(),
		Options:  opts,
		Extra:    mergeExtra(opts),
	}
	if tools != nil {
		req.Tools = tools.Definitions()
	}
	return req, nil
}

func ValidateOptions(opts entity.ChatOptions) error {
	if strings.TrimSpace(opts.Model()) == "" {
		return &entity.InvalidOptionsError{Field: "model", Reason: "must not be empty"}
	}
	if t, ok := opts.Temperature(); ok && (t < 0 || t > 2) {
		return &entity.InvalidOptionsError{Field: "temperature", Reason: "must be within [0, 2]"}
	}
	if opts.MaxTokens() < 0 {
		return &entity.InvalidOptionsError{Field: "max_tokens", Reason: "must not be negative"}
	}
	return nil
}

// mergeExtra applies the typed vendor flags over the opaque bag, so a flag
// set through its dedicated option always beats a bag duplicate.
func mergeExtra(opts entity.ChatOptions) map[string]any {
	extra := opts.Extra()
	if extra == nil {
		extra = make(map[string]any)
	}
	for _, k := range standardFields {
		delete(extra, k)
	}
	if v, ok := opts.EnableThinking(); ok {
		extra[ExtraEnableThinking] = v
	}
	if v, ok := opts.EnableSearch(); ok {
		extra[ExtraEnableSearch] = v
	}
	if v, ok := opts.IncrementalOutput(); ok {
		extra[ExtraIncrementalOutput] = v
	}
	if s, ok := opts.SearchOptions(); ok {
		so := map[string]any{
			"forced_search":           s.ForcedSearch,
			"enable_search_extension": s.EnableSearchExtension,
		}
		if s.SearchStrategy != "" {
			so["search_strategy"] = s.SearchStrategy
		}
		extra[ExtraSearchOptions] = so
	}
	if len(extra) == 0 {
		return nil
	}
	return extra
}
