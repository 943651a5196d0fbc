package tool

import (
	"context"
	"sync/atomic"

	"higress-chat/internal/application/port/output"
	"higress-chat/internal/domain/entity"
)

var _ output.ToolPort = (*Counted)(nil)

// Counted wraps a tool and counts its executions, failures included.
type Counted struct {
	output.ToolPort
	calls    atomic.Int64
	failures atomic.Int64
}

func NewCounted(tool output.ToolPort) *Counted {
	return &Counted{ToolPort: tool}
}

func (c *Counted) Execute(ctx context.Context, args entity.Arguments) (string, error) {
	c.calls.Add(1)
	out, err := c.ToolPort.Execute(ctx, args)
	if err != nil {
		c.failures.Add(1)
	}
	return out, err
}

func (c *Counted) Calls() int64    { return c.calls.Load() }
func (c *Counted) Failures() int64 { return c.failures.Load() }

// Defaults returns the built-in tools, each wrapped in a counter.
func Defaults() []*Counted {
	return []*Counted{
		NewCounted(NewAddTool()),
		NewCounted(NewMultiplyTool()),
		NewCounted(NewCurrentTimeTool()),
		NewCounted(NewSystemInfoTool()),
	}
}

// RegisterDefaults adds Defaults to registry and returns the counters.
func RegisterDefaults(registry output.ToolRegistry) ([]*Counted, error) {
	tools := Defaults()
	for _, t := range tools {
		if err := registry.Register(t); err != nil {
			return nil, err
		}
	}
	return tools, nil
}
