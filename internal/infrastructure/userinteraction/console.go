package userinteraction

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"higress-chat/internal/domain/entity"

	"github.com/fatih/color"
)

// Console prints chat events as they arrive. Thinking and answer text are
// streamed inline, each section opened by a colored header.
type Console struct {
	out  io.Writer
	last entity.EventKind
}

func NewConsole() *Console {
	return NewConsoleWriter(color.Output)
}

func NewConsoleWriter(w io.Writer) *Console {
	if w == nil {
		w = os.Stdout
	}
	return &Console{out: w}
}

func (c *Console) Render(ev entity.Event) {
	switch ev.Kind {
	case entity.EventThinking:
		c.openSection(ev.Kind, color.New(color.FgBlue), "💭 Thinking:")
		color.New(color.Faint).Fprint(c.out, ev.Text)
	case entity.EventAnswer:
		c.openSection(ev.Kind, color.New(color.FgGreen, color.Bold), "📣 Answer:")
		fmt.Fprint(c.out, ev.Text)
	case entity.EventToolCallRequested:
		c.ShowToolStart(ev.ToolCall.Name, ev.ToolCall.Arguments)
	case entity.EventToolResult:
		c.ShowToolResult(ev.Result.Name, ev.Result.Content, ev.Result.IsError)
	case entity.EventDone:
		if c.last != entity.EventEmpty {
			fmt.Fprintln(c.out)
		}
		c.last = entity.EventEmpty
	}
}

func (c *Console) openSection(kind entity.EventKind, header *color.Color, title string) {
	if c.last == kind {
		return
	}
	if c.last != entity.EventEmpty {
		fmt.Fprintln(c.out)
	}
	header.Fprintf(c.out, "\n%s ", title)
	c.last = kind
}

func (c *Console) ShowToolStart(toolName, arguments string) {
	if c.last != entity.EventEmpty {
		fmt.Fprintln(c.out)
		c.last = entity.EventEmpty
	}
	color.New(color.FgYellow, color.Bold).Fprintf(c.out, "\n🔧 %s\n", toolName)
	if summary := formatToolArguments(arguments); summary != "" {
		color.New(color.Faint).Fprintf(c.out, "   %s\n", summary)
	}
}

func (c *Console) ShowToolResult(toolName, result string, isError bool) {
	if isError {
		color.New(color.FgRed).Fprint(c.out, "❌ Error: ")
		color.New(color.Faint).Fprintln(c.out, truncate(strings.TrimPrefix(result, "Error: "), 300))
		return
	}
	color.New(color.FgGreen).Fprintf(c.out, "✓ %s → %s\n", toolName, truncate(result, 100))
}

// ShowFinal prints the result of a blocking call.
func (c *Console) ShowFinal(resp *entity.FinalResponse) {
	for _, inv := range resp.Invocations {
		c.ShowToolResult(inv.Name, inv.Content, inv.IsError)
	}
	if resp.Reasoning != "" {
		color.New(color.FgBlue).Fprint(c.out, "\n💭 Thinking: ")
		color.New(color.Faint).Fprintln(c.out, resp.Reasoning)
	}
	color.New(color.FgGreen, color.Bold).Fprint(c.out, "\n📣 Answer: ")
	fmt.Fprintln(c.out, resp.Content)
	color.New(color.Faint).Fprintf(c.out, "(%d round(s))\n", resp.Rounds)
}

func (c *Console) ShowError(err error) {
	if c.last != entity.EventEmpty {
		fmt.Fprintln(c.out)
		c.last = entity.EventEmpty
	}
	color.New(color.FgRed, color.Bold).Fprintf(c.out, "✗ %v\n", err)
}

// formatToolArguments renders a JSON argument object as sorted key=value
// pairs.
func formatToolArguments(arguments string) string {
	var args map[string]any
	if err := json.Unmarshal([]byte(arguments), &args); err != nil || len(args) == 0 {
		return truncate(strings.TrimSpace(arguments), 80)
	}

	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, args[k]))
	}
	return truncate(strings.Join(parts, " "), 80)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
