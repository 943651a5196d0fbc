package prompts

import (
	"fmt"
	"sort"
	"strings"

	"higress-chat/internal/application/port/output"

	"github.com/tmc/langchaingo/prompts"
)

var _ output.PromptRenderer = (*Renderer)(nil)

// Renderer fills Go-template placeholders in system prompts.
type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

func (r *Renderer) Render(template string, params map[string]any) (string, error) {
	vars := make([]string, 0, len(params))
	for k := range params {
		vars = append(vars, k)
	}
	sort.Strings(vars)

	tmpl := prompts.NewPromptTemplate(template, vars)
	out, err := tmpl.Format(params)
	if err != nil {
		return "", fmt.Errorf("format prompt: %w", err)
	}
	return strings.TrimSpace(out), nil
}
