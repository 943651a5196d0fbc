package output

import (
	"context"

	"higress-chat/internal/domain/entity"
)

type LLMPort interface {
	Chat(ctx context.Context, req *entity.Request) (*ChatResponse, error)
	Stream(ctx context.Context, req *entity.Request) (ChunkSource, error)
}

type ChatResponse struct {
	Message      entity.Message
	FinishReason string
}

// ChunkSource yields chunks in emission order. Recv returns io.EOF once the
// terminal marker has been read; any other error means the transport ended
// early.
type ChunkSource interface {
	Recv() (entity.StreamChunk, error)
	Close() error
}
