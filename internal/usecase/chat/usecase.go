package chat

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"higress-chat/internal/application/port/input"
	"higress-chat/internal/application/port/output"
	"higress-chat/internal/application/service"
	"higress-chat/internal/domain/entity"
)

var _ input.ChatClient = (*UseCase)(nil)

const maxRounds = 50

type UseCase struct {
	llm          output.LLMPort
	tools        output.ToolRegistry
	prompts      output.PromptRenderer
	logger       output.LoggerPort
	builder      *service.RequestBuilder
	decoder      *service.Decoder
	dispatcher   *service.Dispatcher
	defaults     entity.ChatOptions
	systemPrompt string
}

type Config struct {
	Options      entity.ChatOptions
	SystemPrompt string
}

func New(
	llm output.LLMPort,
	tools output.ToolRegistry,
	prompts output.PromptRenderer,
	logger output.LoggerPort,
	cfg Config,
) *UseCase {
	return &UseCase{
		llm:          llm,
		tools:        tools,
		prompts:      prompts,
		logger:       logger,
		builder:      service.NewRequestBuilder(),
		decoder:      service.NewDecoder(logger),
		dispatcher:   service.NewDispatcher(logger),
		defaults:     cfg.Options,
		systemPrompt: cfg.SystemPrompt,
	}
}

type session struct {
	conv  *entity.Conversation
	opts  entity.ChatOptions
	tools output.ToolResolver
}

func (uc *UseCase) prepare(prompt input.Prompt) (*session, error) {
	opts := uc.defaults
	if prompt.Options != nil {
		opts = *prompt.Options
	}
	if err := service.ValidateOptions(opts); err != nil {
		return nil, err
	}

	tools, err := uc.tools.Subset(prompt.Tools...)
	if err != nil {
		return nil, err
	}

	system := prompt.System
	if system == "" {
		system = uc.systemPrompt
	}
	if len(prompt.SystemParams) > 0 && uc.prompts != nil {
		system, err = uc.prompts.Render(system, prompt.SystemParams)
		if err != nil {
			return nil, fmt.Errorf("render system prompt: %w", err)
		}
	}

	return &session{
		conv:  entity.NewConversation(system, prompt.User),
		opts:  opts,
		tools: tools,
	}, nil
}

// Call returns the assembled answer once the model stops requesting tools.
// Thinking-enabled requests go through the streaming path, since vendors
// only emit reasoning on streamed responses.
func (uc *UseCase) Call(ctx context.Context, prompt input.Prompt) (*entity.FinalResponse, error) {
	s, err := uc.prepare(prompt)
	if err != nil {
		return nil, err
	}
	if thinking, _ := s.opts.EnableThinking(); thinking {
		return uc.callStreaming(ctx, s, prompt.IncludeThinking)
	}
	return uc.callBlocking(ctx, s, prompt.IncludeThinking)
}

func (uc *UseCase) callBlocking(ctx context.Context, s *session, includeThinking bool) (*entity.FinalResponse, error) {
	log := uc.logger.WithField("conversation", s.conv.ID)
	final := &entity.FinalResponse{ConversationID: s.conv.ID}
	var reasoning strings.Builder

	for round := 1; round <= maxRounds; round++ {
		log.Debug("Starting round", "round", round)

		req, err := uc.builder.BuildFor(s.conv, s.opts, s.tools)
		if err != nil {
			return nil, err
		}
		resp, err := uc.llm.Chat(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("llm request failed: %w", err)
		}

		msg := resp.Message
		if msg.Role == "" {
			msg.Role = entity.RoleAssistant
		}
		s.conv.Append(msg)
		reasoning.WriteString(msg.ReasoningContent)

		if len(resp.Message.ToolCalls) == 0 {
			final.Content = resp.Message.Content
			final.Rounds = round
			if includeThinking {
				final.Reasoning = reasoning.String()
			}
			return final, nil
		}

		for _, tc := range resp.Message.ToolCalls {
			inv := uc.dispatcher.Dispatch(ctx, s.tools, tc)
			s.conv.Append(inv.Message())
			final.Invocations = append(final.Invocations, inv.ToolResult())
		}
	}

	return nil, fmt.Errorf("max rounds (%d) exceeded", maxRounds)
}

func (uc *UseCase) callStreaming(ctx context.Context, s *session, includeThinking bool) (*entity.FinalResponse, error) {
	final := &entity.FinalResponse{ConversationID: s.conv.ID}
	var reasoning strings.Builder

	for ev, err := range uc.run(ctx, s) {
		if err != nil {
			return nil, err
		}
		switch ev.Kind {
		case entity.EventThinking:
			reasoning.WriteString(ev.Text)
		case entity.EventToolResult:
			final.Invocations = append(final.Invocations, *ev.Result)
		case entity.EventDone:
			final.Content = ev.Text
		}
	}

	final.Rounds = countRounds(s.conv)
	if includeThinking {
		final.Reasoning = reasoning.String()
	}
	return final, nil
}

// Stream forwards decoded events and runs tool calls between rounds, so the
// consumer sees one sequence across all follow-up requests.
func (uc *UseCase) Stream(ctx context.Context, prompt input.Prompt) iter.Seq2[entity.Event, error] {
	return func(yield func(entity.Event, error) bool) {
		s, err := uc.prepare(prompt)
		if err != nil {
			yield(entity.Event{}, err)
			return
		}
		for ev, err := range uc.run(ctx, s) {
			if !yield(ev, err) {
				return
			}
		}
	}
}

func (uc *UseCase) run(ctx context.Context, s *session) iter.Seq2[entity.Event, error] {
	return func(yield func(entity.Event, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		log := uc.logger.WithField("conversation", s.conv.ID)

		for round := 1; round <= maxRounds; round++ {
			log.Debug("Starting stream round", "round", round)

			req, err := uc.builder.BuildFor(s.conv, s.opts, s.tools)
			if err != nil {
				yield(entity.Event{}, err)
				return
			}
			src, err := uc.llm.Stream(ctx, req)
			if err != nil {
				yield(entity.Event{}, fmt.Errorf("llm stream failed: %w", err))
				return
			}

			var answer, reasoning strings.Builder
			var calls []entity.ToolCall

			for ev, err := range uc.decoder.Decode(ctx, src) {
				if err != nil {
					yield(entity.Event{}, err)
					return
				}
				switch ev.Kind {
				case entity.EventThinking:
					reasoning.WriteString(ev.Text)
				case entity.EventAnswer:
					answer.WriteString(ev.Text)
				case entity.EventToolCallRequested:
					calls = append(calls, *ev.ToolCall)
				}
				if !yield(ev, nil) {
					return
				}
			}

			s.conv.Append(entity.Message{
				Role:             entity.RoleAssistant,
				Content:          answer.String(),
				ReasoningContent: reasoning.String(),
				ToolCalls:        calls,
			})

			if len(calls) == 0 {
				yield(entity.Event{Kind: entity.EventDone, Text: answer.String()}, nil)
				return
			}

			for _, tc := range calls {
				inv := uc.dispatcher.Dispatch(ctx, s.tools, tc)
				s.conv.Append(inv.Message())
				result := inv.ToolResult()
				if !yield(entity.Event{Kind: entity.EventToolResult, Result: &result}, nil) {
					return
				}
			}
		}

		yield(entity.Event{}, fmt.Errorf("max rounds (%d) exceeded", maxRounds))
	}
}

func countRounds(conv *entity.Conversation) int {
	n := 0
	for _, m := range conv.Messages {
		if m.Role == entity.RoleAssistant {
			n++
		}
	}
	return n
}
