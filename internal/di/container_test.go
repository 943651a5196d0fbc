package di

import (
	"context"
	"testing"

	"higress-chat/internal/application/port/input"
	"higress-chat/internal/domain/entity"
	"higress-chat/internal/infrastructure/env"
	"higress-chat/internal/infrastructure/llm/scripted"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *env.Config {
	return &env.Config{
		APIKey:      "dummy-key",
		BaseURL:     "http://127.0.0.1:0",
		Model:       "qwen-plus",
		Temperature: 0.5,
		Log:         env.LogConfig{Level: "error"},
	}
}

func TestNewContainer_WiresChat(t *testing.T) {
	llm := scripted.New(
		scripted.Round{Chunks: []entity.StreamChunk{{
			ToolCalls:    []entity.ToolCallDelta{{Index: 0, ID: "call_1", Name: "add", Arguments: `{"a":123,"b":31}`}},
			FinishReason: "tool_calls",
		}}},
		scripted.Round{Chunks: []entity.StreamChunk{entity.TextChunk("154")}},
	)

	c, err := NewContainer(testConfig(), Options{Session: "test", LLM: llm})
	require.NoError(t, err)
	defer c.Close()

	assert.Len(t, c.Tools.All(), 4)
	assert.Equal(t, "qwen-plus", c.Defaults.Model())

	resp, err := c.Chat.Call(context.Background(), input.Prompt{User: "123 add 31", Tools: []string{"add"}})
	require.NoError(t, err)
	assert.Equal(t, "154", resp.Content)

	req := llm.Requests()[0]
	assert.Equal(t, "You are a helpful assistant.", req.Messages[0].Content)

	c.LogToolUsage()
	for _, counted := range c.Counters {
		if counted.Spec().Name == "add" {
			assert.Equal(t, int64(1), counted.Calls())
		}
	}
}

func TestNewContainer_RejectsInvalidDefaults(t *testing.T) {
	cfg := testConfig()
	cfg.Model = ""

	_, err := NewContainer(cfg, Options{LLM: scripted.New()})
	var invalid *entity.InvalidOptionsError
	assert.ErrorAs(t, err, &invalid)
}

func TestNewContainer_BuildsHTTPAdapter(t *testing.T) {
	c, err := NewContainer(testConfig(), Options{})
	require.NoError(t, err)
	defer c.Close()

	assert.NotNil(t, c.LLM)
}
