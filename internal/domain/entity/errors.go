package entity

import "fmt"

type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool %q already registered", e.Name)
}

type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Name)
}

type InvalidOptionsError struct {
	Field  string
	Reason string
}

func (e *InvalidOptionsError) Error() string {
	return fmt.Sprintf("invalid chat options: %s %s", e.Field, e.Reason)
}

type ArgumentCoercionError struct {
	Tool  string
	Param string
	Value any
	Err   error
}

func (e *ArgumentCoercionError) Error() string {
	if e.Param == "" {
		return fmt.Sprintf("tool %s: invalid arguments: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("tool %s: argument %q (%v): %v", e.Tool, e.Param, e.Value, e.Err)
}

func (e *ArgumentCoercionError) Unwrap() error { return e.Err }

// StreamTerminatedError reports a transport that closed before the
// terminal marker.
type StreamTerminatedError struct {
	Chunks int
	Err    error
}

func (e *StreamTerminatedError) Error() string {
	return fmt.Sprintf("stream terminated after %d chunks: %v", e.Chunks, e.Err)
}

func (e *StreamTerminatedError) Unwrap() error { return e.Err }

type ToolExecutionError struct {
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }
