package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"sort"

	"higress-chat/internal/application/port/output"
	"higress-chat/internal/domain/entity"
)

// Decoder turns a chunk stream into classified events. It keeps no state
// between Decode calls.
type Decoder struct {
	logger output.LoggerPort
}

func NewDecoder(logger output.LoggerPort) *Decoder {
	return &Decoder{logger: logger}
}

// Classify maps a single chunk to its event. Reasoning content wins over
// text when a chunk carries both. Tool-call deltas are not visible here;
// Decode assembles them across chunks.
func Classify(chunk entity.StreamChunk) entity.Event {
	if chunk.Err != nil {
		return entity.Answer("")
	}
	if reasoning := chunk.Reasoning(); reasoning != "" {
		return entity.Thinking(reasoning)
	}
	if chunk.Text != nil {
		return entity.Answer(*chunk.Text)
	}
	return entity.Event{Kind: entity.EventEmpty}
}

// Decode yields events until src reports the terminal marker. The source is
// closed when the sequence ends, including when the consumer stops early.
func (d *Decoder) Decode(ctx context.Context, src output.ChunkSource) iter.Seq2[entity.Event, error] {
	return func(yield func(entity.Event, error) bool) {
		defer src.Close()

		pending := newToolCallAccumulator()
		chunks := 0

		for {
			chunk, err := src.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) {
					for _, call := range pending.flush() {
						if !yield(entity.ToolCallRequested(call), nil) {
							return
						}
					}
					d.logger.Debug("Stream completed", "chunks", chunks)
					return
				}
				if ctx.Err() != nil {
					yield(entity.Event{}, ctx.Err())
					return
				}
				d.logger.Error("Stream terminated early", "chunks", chunks, "error", err)
				yield(entity.Event{}, &entity.StreamTerminatedError{Chunks: chunks, Err: err})
				return
			}
			chunks++
			if chunk.ID != "" {
				pending.streamID = chunk.ID
			}

			if chunk.Err != nil {
				d.logger.Warn("Malformed stream chunk", "chunk", chunks, "error", chunk.Err)
				if !yield(entity.Answer(""), nil) {
					return
				}
				continue
			}

			if !chunk.HasSignal() {
				continue
			}

			pending.add(chunk.ToolCalls)

			if ev := Classify(chunk); ev.Kind != entity.EventEmpty {
				if !yield(ev, nil) {
					return
				}
			}

			if chunk.FinishReason != "" {
				for _, call := range pending.flush() {
					if !yield(entity.ToolCallRequested(call), nil) {
						return
					}
				}
			}
		}
	}
}

// toolCallAccumulator merges tool-call deltas by index. Calls the server
// sent without an id get one derived from the stream id and a counter, so
// the same stream always yields the same ids.
type toolCallAccumulator struct {
	calls    map[int]*entity.ToolCall
	streamID string
	minted   int
}

func newToolCallAccumulator() *toolCallAccumulator {
	return &toolCallAccumulator{calls: make(map[int]*entity.ToolCall)}
}

func (a *toolCallAccumulator) add(deltas []entity.ToolCallDelta) {
	for _, tc := range deltas {
		if existing, ok := a.calls[tc.Index]; ok {
			existing.Arguments += tc.Arguments
			if tc.Name != "" {
				existing.Name = tc.Name
			}
			if tc.ID != "" {
				existing.ID = tc.ID
			}
			continue
		}
		a.calls[tc.Index] = &entity.ToolCall{
			ID:        tc.ID,
			Name:      tc.Name,
			Arguments: tc.Arguments,
		}
	}
}

func (a *toolCallAccumulator) flush() []entity.ToolCall {
	if len(a.calls) == 0 {
		return nil
	}
	indices := make([]int, 0, len(a.calls))
	for idx := range a.calls {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	out := make([]entity.ToolCall, 0, len(indices))
	for _, idx := range indices {
		call := *a.calls[idx]
		if call.ID == "" {
			call.ID = a.mintID()
		}
		out = append(out, call)
	}
	clear(a.calls)
	return out
}

func (a *toolCallAccumulator) mintID() string {
	a.minted++
	if a.streamID == "" {
		return fmt.Sprintf("call_%d", a.minted)
	}
	return fmt.Sprintf("call_%s_%d", a.streamID, a.minted)
}
