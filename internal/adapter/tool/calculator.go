package tool

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"higress-chat/internal/application/port/output"
	"higress-chat/internal/application/service"
	"higress-chat/internal/domain/entity"
)

var (
	_ output.ToolPort = (*AddTool)(nil)
	_ output.ToolPort = (*MultiplyTool)(nil)
)

// ErrOverflow is returned when a result does not fit in int64.
var ErrOverflow = errors.New("integer overflow")

type operands struct {
	A int64 `json:"a"`
	B int64 `json:"b"`
}

func operandParams() []entity.ToolParam {
	return []entity.ToolParam{
		{Name: "a", Type: entity.ParamInteger, Description: "First operand", Required: true},
		{Name: "b", Type: entity.ParamInteger, Description: "Second operand", Required: true},
	}
}

type AddTool struct{}

func NewAddTool() *AddTool { return &AddTool{} }

func (t *AddTool) Spec() entity.ToolSpec {
	return entity.ToolSpec{
		Name:        "add",
		Description: "Add two integers and return the sum.",
		Params:      operandParams(),
	}
}

func (t *AddTool) Execute(ctx context.Context, args entity.Arguments) (string, error) {
	var in operands
	if err := service.DecodeArguments(args, &in); err != nil {
		return "", err
	}
	sum := in.A + in.B
	if (in.B > 0 && sum < in.A) || (in.B < 0 && sum > in.A) {
		return "", fmt.Errorf("%d + %d: %w", in.A, in.B, ErrOverflow)
	}
	return strconv.FormatInt(sum, 10), nil
}

type MultiplyTool struct{}

func NewMultiplyTool() *MultiplyTool { return &MultiplyTool{} }

func (t *MultiplyTool) Spec() entity.ToolSpec {
	return entity.ToolSpec{
		Name:        "multiply",
		Description: "Multiply two integers and return the product.",
		Params:      operandParams(),
	}
}

func (t *MultiplyTool) Execute(ctx context.Context, args entity.Arguments) (string, error) {
	var in operands
	if err := service.DecodeArguments(args, &in); err != nil {
		return "", err
	}
	if mulOverflows(in.A, in.B) {
		return "", fmt.Errorf("%d * %d: %w", in.A, in.B, ErrOverflow)
	}
	return strconv.FormatInt(in.A*in.B, 10), nil
}

func mulOverflows(a, b int64) bool {
	if a == 0 || b == 0 {
		return false
	}
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return true
	}
	p := a * b
	return p/b != a
}
