package service

import (
	"testing"

	"higress-chat/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestBuilder_Build(t *testing.T) {
	r := calculator()
	opts := entity.NewOptionsBuilder().Model("qwen-plus").Temperature(0.5).Build()

	req, err := NewRequestBuilder().Build("You are a helpful assistant.", "123 multiply 31", opts, r)
	require.NoError(t, err)

	require.Len(t, req.Messages, 2)
	assert.Equal(t, entity.RoleSystem, req.Messages[0].Role)
	assert.Equal(t, entity.RoleUser, req.Messages[1].Role)
	assert.Equal(t, "123 multiply 31", req.Messages[1].Content)
	assert.Equal(t, "qwen-plus", req.Options.Model())
	assert.Len(t, req.Tools, 2)
	assert.Nil(t, req.Extra)
}

func TestRequestBuilder_EmptySystemPromptIsOmitted(t *testing.T) {
	opts := entity.NewOptionsBuilder().Model("qwen-plus").Build()

	req, err := NewRequestBuilder().Build("", "hi", opts, nil)
	require.NoError(t, err)

	require.Len(t, req.Messages, 1)
	assert.Equal(t, entity.RoleUser, req.Messages[0].Role)
	assert.Empty(t, req.Tools)
}

func TestRequestBuilder_ExplicitFlagsBeatExtraBody(t *testing.T) {
	opts := entity.NewOptionsBuilder().
		Model("qwen-plus").
		ExtraBody(map[string]any{
			"enable_thinking": false,
			"enable_search":   false,
			"top_k":           20,
		}).
		EnableThinking(true).
		EnableSearch(true).
		SearchOptions(entity.SearchOptions{ForcedSearch: true, SearchStrategy: "max"}).
		Build()

	req, err := NewRequestBuilder().Build("", "what is the weather", opts, nil)
	require.NoError(t, err)

	assert.Equal(t, true, req.Extra[ExtraEnableThinking])
	assert.Equal(t, true, req.Extra[ExtraEnableSearch])
	assert.Equal(t, 20, req.Extra["top_k"])
	assert.Equal(t, map[string]any{
		"forced_search":           true,
		"enable_search_extension": false,
		"search_strategy":         "max",
	}, req.Extra[ExtraSearchOptions])

	// the options' own bag is untouched
	assert.Equal(t, false, opts.Extra()["enable_thinking"])
}

func TestRequestBuilder_DropsStandardFieldsFromExtraBody(t *testing.T) {
	opts := entity.NewOptionsBuilder().
		Model("qwen-plus").
		Temperature(0).
		ExtraBody(map[string]any{
			"model":       "other",
			"temperature": 1.5,
			"max_tokens":  10,
			"stream":      false,
			"top_k":       20,
		}).
		Build()

	req, err := NewRequestBuilder().Build("", "hi", opts, nil)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"top_k": 20}, req.Extra)
	temp, ok := req.Options.Temperature()
	require.True(t, ok)
	assert.Zero(t, temp)
}

func TestRequestBuilder_SnapshotsConversation(t *testing.T) {
	opts := entity.NewOptionsBuilder().Model("qwen-plus").Build()
	conv := entity.NewConversation("", "hi")

	req, err := NewRequestBuilder().BuildFor(conv, opts, nil)
	require.NoError(t, err)

	conv.Append(entity.Message{Role: entity.RoleAssistant, Content: "hello"})
	assert.Len(t, req.Messages, 1)
}

func TestValidateOptions(t *testing.T) {
	tests := []struct {
		name  string
		opts  entity.ChatOptions
		field string
	}{
		{"empty model", entity.NewOptionsBuilder().Build(), "model"},
		{"temperature too high", entity.NewOptionsBuilder().Model("m").Temperature(2.5).Build(), "temperature"},
		{"negative temperature", entity.NewOptionsBuilder().Model("m").Temperature(-0.1).Build(), "temperature"},
		{"negative max tokens", entity.NewOptionsBuilder().Model("m").MaxTokens(-1).Build(), "max_tokens"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOptions(tt.opts)
			var invalid *entity.InvalidOptionsError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.field, invalid.Field)

			_, err = NewRequestBuilder().Build("", "hi", tt.opts, nil)
			assert.ErrorAs(t, err, &invalid)
		})
	}

	assert.NoError(t, ValidateOptions(entity.NewOptionsBuilder().Model("m").Temperature(2).Build()))
}
