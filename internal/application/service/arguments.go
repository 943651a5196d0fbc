package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"higress-chat/internal/domain/entity"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
)

// ParseArguments decodes the raw JSON payload of a tool call. An empty
// payload is an empty argument set.
func ParseArguments(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(bytes.NewBufferString(raw))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("parse arguments: %w", err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// CoerceArguments converts raw values to the declared parameter types.
// Undeclared keys pass through unchanged.
func CoerceArguments(spec entity.ToolSpec, raw map[string]any) (entity.Arguments, error) {
	out := make(entity.Arguments, len(raw))
	for k, v := range raw {
		out[k] = v
	}

	for _, p := range spec.Params {
		v, ok := raw[p.Name]
		if !ok || v == nil {
			if p.Required {
				return nil, &entity.ArgumentCoercionError{
					Tool:  spec.Name,
					Param: p.Name,
					Err:   fmt.Errorf("missing required argument"),
				}
			}
			continue
		}

		coerced, err := coerce(v, p.Type)
		if err != nil {
			return nil, &entity.ArgumentCoercionError{
				Tool:  spec.Name,
				Param: p.Name,
				Value: v,
				Err:   err,
			}
		}
		out[p.Name] = coerced
	}
	return out, nil
}

func coerce(v any, t entity.ParamType) (any, error) {
	switch t {
	case entity.ParamString:
		return cast.ToStringE(v)
	case entity.ParamInteger:
		return toInteger(v)
	case entity.ParamNumber:
		if n, ok := v.(json.Number); ok {
			return n.Float64()
		}
		if _, ok := v.(bool); ok {
			return nil, fmt.Errorf("expected number but got bool")
		}
		return cast.ToFloat64E(v)
	case entity.ParamBoolean:
		return cast.ToBoolE(v)
	case entity.ParamObject:
		return cast.ToStringMapE(v)
	case entity.ParamArray:
		return cast.ToSliceE(v)
	case "":
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported parameter type %q", t)
	}
}

// maxInt64Float is 2^63, the first float64 above math.MaxInt64.
var maxInt64Float = math.Exp2(63)

func toInteger(v any) (int64, error) {
	var f float64
	switch n := v.(type) {
	case bool:
		return 0, fmt.Errorf("expected integer but got bool")
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		parsed, err := n.Float64()
		if err != nil {
			return 0, err
		}
		f = parsed
	case string:
		parsed, err := cast.ToFloat64E(strings.TrimSpace(n))
		if err != nil {
			return 0, err
		}
		f = parsed
	default:
		parsed, err := cast.ToFloat64E(v)
		if err != nil {
			return 0, err
		}
		f = parsed
	}
	if math.Trunc(f) != f || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%v is not an integer", v)
	}
	if f >= maxInt64Float || f < -maxInt64Float {
		return 0, fmt.Errorf("%v is out of integer range", v)
	}
	return int64(f), nil
}

// DecodeArguments fills out (a pointer to struct) from coerced arguments,
// matching fields by their json tags.
func DecodeArguments(args entity.Arguments, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(map[string]any(args))
}
