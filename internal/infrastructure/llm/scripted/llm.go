// Package scripted replays canned responses in place of a remote model.
// It backs tests and the offline mode of the CLI.
package scripted

import (
	"context"
	"fmt"
	"io"
	"sync"

	"higress-chat/internal/application/port/output"
	"higress-chat/internal/domain/entity"
)

var _ output.LLMPort = (*LLM)(nil)

// Round is the scripted reply to one request. Stream replays Chunks; Chat
// returns Response, or a message assembled from Chunks when Response is nil.
type Round struct {
	Chunks   []entity.StreamChunk
	Response *output.ChatResponse
	// Truncated ends the stream without the terminal marker.
	Truncated bool
	Err       error
}

type LLM struct {
	mu       sync.Mutex
	rounds   []Round
	next     int
	requests []*entity.Request
	sources  []*SliceSource
}

func New(rounds ...Round) *LLM {
	return &LLM{rounds: rounds}
}

func (l *LLM) Chat(ctx context.Context, req *entity.Request) (*output.ChatResponse, error) {
	round, err := l.take(req)
	if err != nil {
		return nil, err
	}
	if round.Response != nil {
		return round.Response, nil
	}
	return &output.ChatResponse{Message: assemble(round.Chunks)}, nil
}

func (l *LLM) Stream(ctx context.Context, req *entity.Request) (output.ChunkSource, error) {
	round, err := l.take(req)
	if err != nil {
		return nil, err
	}
	src := NewSliceSource(round.Chunks...)
	src.truncated = round.Truncated

	l.mu.Lock()
	l.sources = append(l.sources, src)
	l.mu.Unlock()
	return src, nil
}

// Requests returns every request received so far.
func (l *LLM) Requests() []*entity.Request {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*entity.Request(nil), l.requests...)
}

func (l *LLM) Sources() []*SliceSource {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*SliceSource(nil), l.sources...)
}

func (l *LLM) take(req *entity.Request) (Round, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.requests = append(l.requests, req)
	if l.next >= len(l.rounds) {
		return Round{}, fmt.Errorf("no scripted response for request %d", l.next+1)
	}
	round := l.rounds[l.next]
	l.next++
	return round, round.Err
}

func assemble(chunks []entity.StreamChunk) entity.Message {
	msg := entity.Message{Role: entity.RoleAssistant}
	for _, c := range chunks {
		if c.Text != nil {
			msg.Content += *c.Text
		}
		msg.ReasoningContent += c.Reasoning()
		for _, tc := range c.ToolCalls {
			if tc.Index < len(msg.ToolCalls) {
				msg.ToolCalls[tc.Index].Arguments += tc.Arguments
				continue
			}
			msg.ToolCalls = append(msg.ToolCalls, entity.ToolCall{ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments})
		}
	}
	return msg
}

var _ output.ChunkSource = (*SliceSource)(nil)

type SliceSource struct {
	mu        sync.Mutex
	chunks    []entity.StreamChunk
	pos       int
	truncated bool
	closed    bool
}

func NewSliceSource(chunks ...entity.StreamChunk) *SliceSource {
	return &SliceSource{chunks: chunks}
}

// Truncate makes the source end without a terminal marker.
func (s *SliceSource) Truncate() *SliceSource {
	s.truncated = true
	return s
}

func (s *SliceSource) Recv() (entity.StreamChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return entity.StreamChunk{}, io.ErrClosedPipe
	}
	if s.pos >= len(s.chunks) {
		if s.truncated {
			return entity.StreamChunk{}, io.ErrUnexpectedEOF
		}
		return entity.StreamChunk{}, io.EOF
	}
	c := s.chunks[s.pos]
	s.pos++
	return c, nil
}

func (s *SliceSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *SliceSource) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
