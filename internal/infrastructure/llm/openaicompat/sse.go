package openaicompat

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"higress-chat/internal/application/port/output"
	"higress-chat/internal/domain/entity"

	"github.com/sashabaranov/go-openai"
)

const doneMarker = "[DONE]"

var _ output.ChunkSource = (*sseSource)(nil)

type sseSource struct {
	body   io.ReadCloser
	reader *bufio.Reader
	done   bool
}

func newSSESource(body io.ReadCloser) *sseSource {
	return &sseSource{
		body:   body,
		reader: bufio.NewReader(body),
	}
}

// Recv returns io.EOF after the [DONE] marker and io.ErrUnexpectedEOF when
// the body ends without it.
func (s *sseSource) Recv() (entity.StreamChunk, error) {
	if s.done {
		return entity.StreamChunk{}, io.EOF
	}

	data, err := s.nextEvent()
	if err != nil {
		return entity.StreamChunk{}, err
	}
	if data == doneMarker {
		s.done = true
		return entity.StreamChunk{}, io.EOF
	}
	return parseChunk([]byte(data))
}

func (s *sseSource) Close() error {
	return s.body.Close()
}

// nextEvent returns the joined data lines of the next SSE event.
func (s *sseSource) nextEvent() (string, error) {
	var data []string
	for {
		line, err := s.reader.ReadString('\n')
		if line != "" {
			line = strings.TrimRight(line, "\r\n")
			if line == "" {
				if len(data) > 0 {
					return strings.Join(data, "\n"), nil
				}
			} else if !strings.HasPrefix(line, ":") {
				field, value, _ := strings.Cut(line, ":")
				if field == "data" {
					data = append(data, strings.TrimPrefix(value, " "))
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				if len(data) > 0 {
					return strings.Join(data, "\n"), nil
				}
				return "", io.ErrUnexpectedEOF
			}
			return "", err
		}
	}
}

type wireChunk struct {
	ID      string           `json:"id"`
	Model   string           `json:"model"`
	Choices []wireChoice     `json:"choices"`
	Usage   *openai.Usage    `json:"usage,omitempty"`
	Error   *openai.APIError `json:"error,omitempty"`
}

type wireChoice struct {
	Index        int       `json:"index"`
	Delta        wireDelta `json:"delta"`
	FinishReason *string   `json:"finish_reason"`
}

// wireDelta keeps content fields as pointers so an absent field is
// distinguishable from an empty one.
type wireDelta struct {
	Role             string            `json:"role,omitempty"`
	Content          *string           `json:"content"`
	ReasoningContent *string           `json:"reasoning_content"`
	ToolCalls        []openai.ToolCall `json:"tool_calls,omitempty"`
}

// parseChunk returns an error only for upstream error frames. A frame that
// does not decode is returned as a chunk with Err set.
func parseChunk(data []byte) (entity.StreamChunk, error) {
	var w wireChunk
	if err := json.Unmarshal(data, &w); err != nil {
		return entity.StreamChunk{Err: fmt.Errorf("decode chunk: %w", err)}, nil
	}
	if w.Error != nil {
		return entity.StreamChunk{}, fmt.Errorf("upstream error: %w", w.Error)
	}

	chunk := entity.StreamChunk{ID: w.ID}
	meta := make(map[string]any)
	if w.Usage != nil {
		meta[entity.MetaUsage] = *w.Usage
	}

	if len(w.Choices) > 0 {
		c := w.Choices[0]
		if r := c.Delta.ReasoningContent; r != nil && *r != "" {
			meta[entity.MetaReasoningContent] = *r
		}
		chunk.Text = c.Delta.Content
		for _, tc := range c.Delta.ToolCalls {
			idx := 0
			if tc.Index != nil {
				idx = *tc.Index
			}
			chunk.ToolCalls = append(chunk.ToolCalls, entity.ToolCallDelta{
				Index:     idx,
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}
		if f := c.FinishReason; f != nil && *f != "" {
			chunk.FinishReason = *f
			meta[entity.MetaFinishReason] = *f
		}
	}

	if len(meta) > 0 {
		chunk.Metadata = meta
	}
	return chunk, nil
}
