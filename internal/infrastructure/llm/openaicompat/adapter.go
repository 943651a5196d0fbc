package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"strings"

	"higress-chat/internal/application/port/output"
	"higress-chat/internal/domain/entity"

	"github.com/sashabaranov/go-openai"
)

var _ output.LLMPort = (*Adapter)(nil)

const DefaultBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"

type Adapter struct {
	client     *openai.Client
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     output.LoggerPort
}

type Config struct {
	APIKey  string
	BaseURL string
	Logger  output.LoggerPort
	// Transport replaces http.DefaultTransport as the innermost round-tripper.
	Transport http.RoundTripper
}

func NewAdapter(cfg Config) *Adapter {
	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	if cfg.Logger != nil {
		base = &loggingTransport{base: base, logger: cfg.Logger}
	}
	httpClient := &http.Client{
		Transport: &extraBodyTransport{base: base},
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = baseURL
	config.HTTPClient = httpClient

	return &Adapter{
		client:     openai.NewClientWithConfig(config),
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		logger:     cfg.Logger,
	}
}

func (a *Adapter) Chat(ctx context.Context, req *entity.Request) (*output.ChatResponse, error) {
	resp, err := a.client.CreateChatCompletion(withExtraBody(ctx, wireExtra(req)), toOpenAIRequest(req, false))
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	choice := resp.Choices[0]
	return &output.ChatResponse{
		Message:      convertResponseMessage(choice.Message),
		FinishReason: string(choice.FinishReason),
	}, nil
}

// Stream opens an SSE response. go-openai's stream reader reports both the
// [DONE] marker and a dropped connection as io.EOF, so frames are read here.
func (a *Adapter) Stream(ctx context.Context, req *entity.Request) (output.ChunkSource, error) {
	oreq := toOpenAIRequest(req, true)

	if a.logger != nil {
		a.logger.Debug("Creating chat completion stream",
			"model", oreq.Model,
			"messagesCount", len(oreq.Messages),
			"toolsCount", len(oreq.Tools),
			"extraKeys", len(req.Extra))
	}

	body, err := json.Marshal(oreq)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(withExtraBody(ctx, wireExtra(req)), http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		if a.logger != nil {
			a.logger.Error("Failed to create stream", "error", err)
		}
		return nil, fmt.Errorf("chat stream failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, decodeErrorResponse(resp)
	}

	return newSSESource(resp.Body), nil
}

func decodeErrorResponse(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var errResp openai.ErrorResponse
	if err := json.Unmarshal(raw, &errResp); err == nil && errResp.Error != nil {
		errResp.Error.HTTPStatusCode = resp.StatusCode
		return fmt.Errorf("chat stream failed: %w", errResp.Error)
	}
	return fmt.Errorf("chat stream failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
}

// wireExtra returns the vendor extras plus an explicit zero temperature,
// which go-openai omits from the encoded request.
func wireExtra(req *entity.Request) map[string]any {
	t, ok := req.Options.Temperature()
	if !ok || t != 0 {
		return req.Extra
	}
	extra := maps.Clone(req.Extra)
	if extra == nil {
		extra = make(map[string]any, 1)
	}
	extra["temperature"] = 0
	return extra
}

func toOpenAIRequest(req *entity.Request, stream bool) openai.ChatCompletionRequest {
	opts := req.Options
	oreq := openai.ChatCompletionRequest{
		Model:    opts.Model(),
		Messages: convertMessages(req.Messages),
		Tools:    convertTools(req.Tools),
		Stream:   stream,
	}
	if t, ok := opts.Temperature(); ok {
		oreq.Temperature = t
	}
	if n := opts.MaxTokens(); n > 0 {
		oreq.MaxTokens = n
	}
	if len(oreq.Tools) > 0 {
		oreq.ToolChoice = "auto"
	}
	if stream {
		oreq.StreamOptions = &openai.StreamOptions{IncludeUsage: true}
	}
	return oreq
}

func convertMessages(messages []entity.Message) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		oaiMsg := openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}

		if msg.ToolCallID != "" {
			oaiMsg.ToolCallID = msg.ToolCallID
		}
		if msg.Name != "" {
			oaiMsg.Name = msg.Name
		}

		for _, tc := range msg.ToolCalls {
			oaiMsg.ToolCalls = append(oaiMsg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}

		result = append(result, oaiMsg)
	}
	return result
}

func convertTools(tools []entity.ToolDefinition) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}
	result := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		result = append(result, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return result
}

func convertResponseMessage(msg openai.ChatCompletionMessage) entity.Message {
	result := entity.Message{
		Role:             entity.MessageRole(msg.Role),
		Content:          msg.Content,
		ReasoningContent: msg.ReasoningContent,
	}

	for _, tc := range msg.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, entity.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	return result
}
