package output

type PromptRenderer interface {
	Render(template string, params map[string]any) (string, error)
}
