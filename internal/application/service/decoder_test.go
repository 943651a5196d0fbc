package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"higress-chat/internal/domain/entity"
	"higress-chat/internal/infrastructure/llm/scripted"
	"higress-chat/internal/infrastructure/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeAll(t *testing.T, src *scripted.SliceSource) ([]entity.Event, error) {
	t.Helper()
	var events []entity.Event
	for ev, err := range NewDecoder(logger.NewNop()).Decode(context.Background(), src) {
		if err != nil {
			return events, err
		}
		events = append(events, ev)
	}
	return events, nil
}

func tagged(events []entity.Event) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Tagged())
	}
	return out
}

func TestClassify(t *testing.T) {
	both := entity.TextChunk("answer")
	both.Metadata = map[string]any{entity.MetaReasoningContent: "reasoning"}

	tests := []struct {
		name  string
		chunk entity.StreamChunk
		want  entity.Event
	}{
		{"text", entity.TextChunk("Hello"), entity.Answer("Hello")},
		{"empty text", entity.TextChunk(""), entity.Answer("")},
		{"reasoning", entity.ReasoningChunk("hmm"), entity.Thinking("hmm")},
		{"reasoning wins", both, entity.Thinking("reasoning")},
		{"empty reasoning falls back to text", func() entity.StreamChunk {
			c := entity.TextChunk("x")
			c.Metadata = map[string]any{entity.MetaReasoningContent: ""}
			return c
		}(), entity.Answer("x")},
		{"metadata only", entity.StreamChunk{Metadata: map[string]any{entity.MetaUsage: 1}}, entity.Event{Kind: entity.EventEmpty}},
		{"malformed", entity.StreamChunk{Err: errors.New("bad frame")}, entity.Answer("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.chunk))
		})
	}
}

func TestDecode_OneAnswerPerTextChunkInOrder(t *testing.T) {
	words := []string{"Hello", ", ", "world", "!"}
	chunks := make([]entity.StreamChunk, 0, len(words))
	for _, w := range words {
		chunks = append(chunks, entity.TextChunk(w))
	}

	events, err := decodeAll(t, scripted.NewSliceSource(chunks...))
	require.NoError(t, err)

	require.Len(t, events, len(words))
	var joined strings.Builder
	for i, ev := range events {
		assert.Equal(t, entity.EventAnswer, ev.Kind)
		assert.Equal(t, words[i], ev.Text)
		joined.WriteString(ev.Text)
	}
	assert.Equal(t, "Hello, world!", joined.String())
}

func TestDecode_ThinkingThenAnswer(t *testing.T) {
	events, err := decodeAll(t, scripted.NewSliceSource(
		entity.ReasoningChunk("Let me "),
		entity.ReasoningChunk("check."),
		entity.StreamChunk{Metadata: map[string]any{entity.MetaUsage: "n/a"}},
		entity.TextChunk("Sunny"),
	))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"🤔thinking:Let me ",
		"🤔thinking:check.",
		"📣answer:Sunny",
	}, tagged(events))
}

func TestDecode_IsDeterministic(t *testing.T) {
	chunks := []entity.StreamChunk{
		entity.ReasoningChunk("a"),
		entity.TextChunk("b"),
		{ID: "chatcmpl-7", ToolCalls: []entity.ToolCallDelta{
			{Index: 0, Name: "add", Arguments: `{"a":1,"b":2}`},
			{Index: 1, Name: "multiply", Arguments: `{"a":3,"b":4}`},
		}, FinishReason: "tool_calls"},
	}

	first, err := decodeAll(t, scripted.NewSliceSource(chunks...))
	require.NoError(t, err)
	second, err := decodeAll(t, scripted.NewSliceSource(chunks...))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, first, 4)
	assert.Equal(t, "call_chatcmpl-7_1", first[2].ToolCall.ID)
	assert.Equal(t, "call_chatcmpl-7_2", first[3].ToolCall.ID)
}

func TestDecode_MalformedChunkDoesNotStopStream(t *testing.T) {
	events, err := decodeAll(t, scripted.NewSliceSource(
		entity.TextChunk("before"),
		entity.StreamChunk{Err: errors.New("decode chunk: unexpected end of JSON input")},
		entity.TextChunk("after"),
	))
	require.NoError(t, err)

	assert.Equal(t, []string{"📣answer:before", "📣answer:", "📣answer:after"}, tagged(events))
}

func TestDecode_TruncatedStreamFails(t *testing.T) {
	src := scripted.NewSliceSource(entity.TextChunk("par"), entity.TextChunk("tial")).Truncate()

	events, err := decodeAll(t, src)

	assert.Len(t, events, 2)
	var terminated *entity.StreamTerminatedError
	require.ErrorAs(t, err, &terminated)
	assert.Equal(t, 2, terminated.Chunks)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.True(t, src.Closed())
}

func TestDecode_CancelledContextReportsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := scripted.NewSliceSource().Truncate()
	var got error
	for _, err := range NewDecoder(logger.NewNop()).Decode(ctx, src) {
		got = err
	}
	assert.ErrorIs(t, got, context.Canceled)
}

func TestDecode_AbandonClosesSource(t *testing.T) {
	src := scripted.NewSliceSource(entity.TextChunk("a"), entity.TextChunk("b"), entity.TextChunk("c"))

	for ev, err := range NewDecoder(logger.NewNop()).Decode(context.Background(), src) {
		require.NoError(t, err)
		assert.Equal(t, "a", ev.Text)
		break
	}
	assert.True(t, src.Closed())
}

func TestDecode_AssemblesToolCallFragments(t *testing.T) {
	events, err := decodeAll(t, scripted.NewSliceSource(
		entity.StreamChunk{ToolCalls: []entity.ToolCallDelta{
			{Index: 1, ID: "call_b", Name: "add", Arguments: `{"a":1,`},
			{Index: 0, ID: "call_a", Name: "multiply", Arguments: `{"a":123,`},
		}},
		entity.StreamChunk{ToolCalls: []entity.ToolCallDelta{
			{Index: 0, Arguments: `"b":31}`},
			{Index: 1, Arguments: `"b":2}`},
		}},
		entity.StreamChunk{FinishReason: "tool_calls"},
	))
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, entity.ToolCall{ID: "call_a", Name: "multiply", Arguments: `{"a":123,"b":31}`}, *events[0].ToolCall)
	assert.Equal(t, entity.ToolCall{ID: "call_b", Name: "add", Arguments: `{"a":1,"b":2}`}, *events[1].ToolCall)
}

func TestDecode_FlushesPendingCallsAtEndOfStream(t *testing.T) {
	events, err := decodeAll(t, scripted.NewSliceSource(
		entity.TextChunk("calling"),
		entity.StreamChunk{ToolCalls: []entity.ToolCallDelta{{Index: 0, Name: "getSystemInfo"}}},
	))
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, entity.EventToolCallRequested, events[1].Kind)
	assert.Equal(t, "getSystemInfo", events[1].ToolCall.Name)
	assert.True(t, strings.HasPrefix(events[1].ToolCall.ID, "call_"))
}
