package di

import (
	"fmt"
	"strings"

	"higress-chat/internal/adapter/tool"
	"higress-chat/internal/application/port/input"
	"higress-chat/internal/application/port/output"
	"higress-chat/internal/application/service"
	"higress-chat/internal/domain/entity"
	"higress-chat/internal/infrastructure/env"
	"higress-chat/internal/infrastructure/llm/openaicompat"
	"higress-chat/internal/infrastructure/logger"
	"higress-chat/internal/infrastructure/prompts"
	"higress-chat/internal/usecase/chat"
)

type Container struct {
	LLM      output.LLMPort
	Logger   output.LoggerPort
	Tools    output.ToolRegistry
	Counters []*tool.Counted
	Chat     input.ChatClient
	Defaults entity.ChatOptions
}

type Options struct {
	// Session names the log file when a log directory is configured.
	Session string
	// LLM replaces the HTTP adapter, e.g. with a scripted model.
	LLM output.LLMPort
}

func NewContainer(cfg *env.Config, opts Options) (*Container, error) {
	log, err := logger.NewLoggerAdapter(logger.Config{Level: cfg.Log.Level, Dir: cfg.Log.Dir}, opts.Session)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	llm := opts.LLM
	if llm == nil {
		llm = openaicompat.NewAdapter(openaicompat.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Logger:  log,
		})
	}

	tools := service.NewToolRegistry()
	counters, err := tool.RegisterDefaults(tools)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	systemPrompt := cfg.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = strings.TrimSpace(prompts.DefaultSystemPrompt)
	}

	defaults := cfg.ChatOptions()
	if err := service.ValidateOptions(defaults); err != nil {
		log.Close()
		return nil, err
	}

	uc := chat.New(llm, tools, prompts.NewRenderer(), log, chat.Config{
		Options:      defaults,
		SystemPrompt: systemPrompt,
	})

	log.Info("Container ready",
		"model", defaults.Model(),
		"baseURL", cfg.BaseURL,
		"tools", len(counters))

	return &Container{
		LLM:      llm,
		Logger:   log,
		Tools:    tools,
		Counters: counters,
		Chat:     uc,
		Defaults: defaults,
	}, nil
}

// LogToolUsage writes the per-tool call counters.
func (c *Container) LogToolUsage() {
	for _, counted := range c.Counters {
		if counted.Calls() == 0 {
			continue
		}
		c.Logger.Info("Tool usage",
			"tool", counted.Spec().Name,
			"calls", counted.Calls(),
			"failures", counted.Failures())
	}
}

func (c *Container) Close() {
	if c.Logger != nil {
		c.Logger.Close()
	}
}
