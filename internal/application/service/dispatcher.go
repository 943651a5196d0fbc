package service

import (
	"context"
	"fmt"
	"time"

	"higress-chat/internal/application/port/output"
	"higress-chat/internal/domain/entity"
)

const maxObservationLen = 20000

type InvocationState int

const (
	StatePending InvocationState = iota
	StateExecuting
	StateSucceeded
	StateFailed
)

func (s InvocationState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateExecuting:
		return "executing"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Invocation tracks a single tool call through Pending, Executing and one
// of Succeeded or Failed.
type Invocation struct {
	Call   entity.ToolCall
	State  InvocationState
	Result string
	Err    error
}

// Message is the tool-role message fed back to the model. Failures carry the
// error text so the model can recover.
func (i *Invocation) Message() entity.Message {
	return entity.Message{
		Role:       entity.RoleTool,
		ToolCallID: i.Call.ID,
		Name:       i.Call.Name,
		Content:    i.Result,
	}
}

func (i *Invocation) ToolResult() entity.ToolResult {
	return entity.ToolResult{
		CallID:  i.Call.ID,
		Name:    i.Call.Name,
		Content: i.Result,
		IsError: i.State == StateFailed,
	}
}

func (i *Invocation) fail(err error) *Invocation {
	i.State = StateFailed
	i.Err = err
	i.Result = "Error: " + err.Error()
	return i
}

type Dispatcher struct {
	logger output.LoggerPort
}

func NewDispatcher(logger output.LoggerPort) *Dispatcher {
	return &Dispatcher{logger: logger}
}

// Dispatch never returns an error: every failure ends in StateFailed with
// the error text as the result.
func (d *Dispatcher) Dispatch(ctx context.Context, tools output.ToolResolver, call entity.ToolCall) *Invocation {
	inv := &Invocation{Call: call, State: StatePending}
	log := d.logger.WithFields(map[string]any{"tool": call.Name, "callID": call.ID})

	if tools == nil {
		log.Warn("Tool call without bound tools")
		return inv.fail(&entity.UnknownToolError{Name: call.Name})
	}
	tool, err := tools.Resolve(call.Name)
	if err != nil {
		log.Warn("Unknown tool called")
		return inv.fail(err)
	}

	raw, err := ParseArguments(call.Arguments)
	if err != nil {
		log.Warn("Tool arguments rejected", "args", call.Arguments, "error", err)
		return inv.fail(&entity.ArgumentCoercionError{Tool: call.Name, Err: err})
	}
	args, err := CoerceArguments(tool.Spec(), raw)
	if err != nil {
		log.Warn("Tool arguments rejected", "args", call.Arguments, "error", err)
		return inv.fail(err)
	}

	inv.State = StateExecuting
	log.Info("Executing tool", "args", call.Arguments)
	start := time.Now()

	result, err := execute(ctx, tool, args)
	if err != nil {
		log.Error("Tool execution failed", "error", err, "duration", time.Since(start))
		return inv.fail(&entity.ToolExecutionError{Tool: call.Name, Err: err})
	}

	if len(result) > maxObservationLen {
		result = result[:maxObservationLen] + "\n... (truncated)"
	}

	inv.State = StateSucceeded
	inv.Result = result
	log.Debug("Tool completed", "resultLen", len(result), "duration", time.Since(start))
	return inv
}

func execute(ctx context.Context, tool output.ToolPort, args entity.Arguments) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return tool.Execute(ctx, args)
}
