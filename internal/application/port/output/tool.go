package output

import (
	"context"

	"higress-chat/internal/domain/entity"
)

type ToolPort interface {
	Spec() entity.ToolSpec
	Execute(ctx context.Context, args entity.Arguments) (string, error)
}

type ToolResolver interface {
	Resolve(name entity.ToolName) (ToolPort, error)
	Definitions() []entity.ToolDefinition
}

type ToolRegistry interface {
	ToolResolver
	Register(tool ToolPort) error
	All() []ToolPort
	Subset(names ...entity.ToolName) (ToolResolver, error)
}
