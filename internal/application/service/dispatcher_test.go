package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"higress-chat/internal/domain/entity"
	"higress-chat/internal/infrastructure/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dispatch(t *testing.T, tools *ToolRegistryImpl, call entity.ToolCall) *Invocation {
	t.Helper()
	return NewDispatcher(logger.NewNop()).Dispatch(context.Background(), tools, call)
}

func TestDispatch_Calculator(t *testing.T) {
	r := calculator()

	add := dispatch(t, r, entity.ToolCall{ID: "call_1", Name: "add", Arguments: `{"a":123,"b":31}`})
	assert.Equal(t, StateSucceeded, add.State)
	assert.Equal(t, "154", add.Result)

	mul := dispatch(t, r, entity.ToolCall{ID: "call_2", Name: "multiply", Arguments: `{"a":"123","b":31}`})
	assert.Equal(t, StateSucceeded, mul.State)
	assert.Equal(t, "3813", mul.Result)

	msg := mul.Message()
	assert.Equal(t, entity.RoleTool, msg.Role)
	assert.Equal(t, "call_2", msg.ToolCallID)
	assert.Equal(t, "multiply", msg.Name)
	assert.Equal(t, "3813", msg.Content)
}

func TestDispatch_UnknownTool(t *testing.T) {
	inv := dispatch(t, calculator(), entity.ToolCall{ID: "call_1", Name: "subtract", Arguments: `{"a":1,"b":2}`})

	assert.Equal(t, StateFailed, inv.State)
	var unknown *entity.UnknownToolError
	require.ErrorAs(t, inv.Err, &unknown)
	assert.True(t, strings.HasPrefix(inv.Message().Content, "Error: "))
	assert.Contains(t, inv.Message().Content, "subtract")
	assert.True(t, inv.ToolResult().IsError)
}

func TestDispatch_NoBoundTools(t *testing.T) {
	inv := NewDispatcher(logger.NewNop()).Dispatch(context.Background(), nil, entity.ToolCall{Name: "add"})
	assert.Equal(t, StateFailed, inv.State)
}

func TestDispatch_ArgumentErrors(t *testing.T) {
	tests := []struct {
		name  string
		args  string
		param string
	}{
		{"malformed json", `{"a":1,`, ""},
		{"missing required", `{"a":1}`, "b"},
		{"not an integer", `{"a":1.5,"b":2}`, "a"},
		{"bool for integer", `{"a":true,"b":2}`, "a"},
		{"garbage string", `{"a":"many","b":2}`, "a"},
		{"beyond int64", `{"a":1e30,"b":2}`, "a"},
		{"just past int64", `{"a":9223372036854775808,"b":2}`, "a"},
		{"string beyond int64", `{"a":"-1e19","b":2}`, "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := dispatch(t, calculator(), entity.ToolCall{ID: "c", Name: "add", Arguments: tt.args})

			assert.Equal(t, StateFailed, inv.State)
			var coercion *entity.ArgumentCoercionError
			require.ErrorAs(t, inv.Err, &coercion)
			assert.Equal(t, "add", coercion.Tool)
			assert.Equal(t, tt.param, coercion.Param)
			assert.True(t, strings.HasPrefix(inv.Result, "Error: "))
		})
	}
}

func TestDispatch_ToolErrorAndPanic(t *testing.T) {
	r := NewToolRegistry()
	require.NoError(t, r.Register(failingTool("fail", errBoom)))
	require.NoError(t, r.Register(&stubTool{
		spec: entity.ToolSpec{Name: "panic"},
		run:  func(context.Context, entity.Arguments) (string, error) { panic("kaboom") },
	}))

	failed := dispatch(t, r, entity.ToolCall{Name: "fail"})
	var execErr *entity.ToolExecutionError
	require.ErrorAs(t, failed.Err, &execErr)
	assert.ErrorIs(t, failed.Err, errBoom)
	assert.Equal(t, "Error: tool fail failed: boom", failed.Result)

	panicked := dispatch(t, r, entity.ToolCall{Name: "panic"})
	assert.Equal(t, StateFailed, panicked.State)
	assert.Contains(t, panicked.Result, "kaboom")
}

func TestDispatch_TruncatesLongResults(t *testing.T) {
	r := NewToolRegistry()
	require.NoError(t, r.Register(&stubTool{
		spec: entity.ToolSpec{Name: "dump"},
		run: func(context.Context, entity.Arguments) (string, error) {
			return strings.Repeat("x", maxObservationLen+500), nil
		},
	}))

	inv := dispatch(t, r, entity.ToolCall{Name: "dump"})
	assert.Equal(t, StateSucceeded, inv.State)
	assert.True(t, strings.HasSuffix(inv.Result, "... (truncated)"))
	assert.Less(t, len(inv.Result), maxObservationLen+100)
}

func TestDispatch_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inv := NewDispatcher(logger.NewNop()).Dispatch(ctx, calculator(), entity.ToolCall{Name: "add", Arguments: `{"a":1,"b":2}`})
	assert.Equal(t, StateFailed, inv.State)
	assert.ErrorIs(t, inv.Err, context.Canceled)
}

func TestCoerceArguments_Types(t *testing.T) {
	spec := entity.ToolSpec{
		Name: "mixed",
		Params: []entity.ToolParam{
			{Name: "s", Type: entity.ParamString},
			{Name: "n", Type: entity.ParamNumber},
			{Name: "flag", Type: entity.ParamBoolean},
			{Name: "obj", Type: entity.ParamObject},
			{Name: "list", Type: entity.ParamArray},
		},
	}
	raw, err := ParseArguments(`{"s":42,"n":"2.5","flag":"true","obj":{"k":"v"},"list":[1,2],"extra":"kept"}`)
	require.NoError(t, err)

	args, err := CoerceArguments(spec, raw)
	require.NoError(t, err)

	assert.Equal(t, "42", args["s"])
	assert.Equal(t, 2.5, args["n"])
	assert.Equal(t, true, args["flag"])
	assert.Equal(t, map[string]any{"k": "v"}, args["obj"])
	assert.Len(t, args["list"], 2)
	assert.Equal(t, "kept", args["extra"])
}

func TestParseArguments_Empty(t *testing.T) {
	args, err := ParseArguments("  ")
	require.NoError(t, err)
	assert.Empty(t, args)

	args, err = ParseArguments("null")
	require.NoError(t, err)
	assert.Empty(t, args)

	args, err = ParseArguments(`{"n":12345678901234}`)
	require.NoError(t, err)
	assert.Equal(t, json.Number("12345678901234"), args["n"])
}

func TestDecodeArguments(t *testing.T) {
	var in struct {
		A     int64  `json:"a"`
		Label string `json:"label"`
	}
	require.NoError(t, DecodeArguments(entity.Arguments{"a": int64(7), "label": "seven"}, &in))
	assert.Equal(t, int64(7), in.A)
	assert.Equal(t, "seven", in.Label)
}

func TestInvocationState_String(t *testing.T) {
	assert.Equal(t, "pending", StatePending.String())
	assert.Equal(t, "executing", StateExecuting.String())
	assert.Equal(t, "succeeded", StateSucceeded.String())
	assert.Equal(t, "failed", StateFailed.String())
}
