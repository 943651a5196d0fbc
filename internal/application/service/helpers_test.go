package service

import (
	"context"
	"errors"
	"strconv"

	"higress-chat/internal/domain/entity"
)

type stubTool struct {
	spec entity.ToolSpec
	run  func(ctx context.Context, args entity.Arguments) (string, error)
}

func (s *stubTool) Spec() entity.ToolSpec { return s.spec }

func (s *stubTool) Execute(ctx context.Context, args entity.Arguments) (string, error) {
	return s.run(ctx, args)
}

func intParams() []entity.ToolParam {
	return []entity.ToolParam{
		{Name: "a", Type: entity.ParamInteger, Required: true},
		{Name: "b", Type: entity.ParamInteger, Required: true},
	}
}

func addTool() *stubTool {
	return &stubTool{
		spec: entity.ToolSpec{Name: "add", Description: "Add two integers", Params: intParams()},
		run: func(_ context.Context, args entity.Arguments) (string, error) {
			return strconv.FormatInt(args["a"].(int64)+args["b"].(int64), 10), nil
		},
	}
}

func multiplyTool() *stubTool {
	return &stubTool{
		spec: entity.ToolSpec{Name: "multiply", Description: "Multiply two integers", Params: intParams()},
		run: func(_ context.Context, args entity.Arguments) (string, error) {
			return strconv.FormatInt(args["a"].(int64)*args["b"].(int64), 10), nil
		},
	}
}

func failingTool(name string, err error) *stubTool {
	return &stubTool{
		spec: entity.ToolSpec{Name: name},
		run: func(context.Context, entity.Arguments) (string, error) {
			return "", err
		},
	}
}

var errBoom = errors.New("boom")

func calculator() *ToolRegistryImpl {
	r := NewToolRegistry()
	if err := r.Register(addTool()); err != nil {
		panic(err)
	}
	if err := r.Register(multiplyTool()); err != nil {
		panic(err)
	}
	return r
}
