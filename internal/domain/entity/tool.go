package entity

type ToolName = string

type ParamType string

const (
	ParamString  ParamType = "string"
	ParamInteger ParamType = "integer"
	ParamNumber  ParamType = "number"
	ParamBoolean ParamType = "boolean"
	ParamObject  ParamType = "object"
	ParamArray   ParamType = "array"
)

type ToolParam struct {
	Name        string
	Type        ParamType
	Description string
	Required    bool
}

// ToolSpec describes a callable tool. Params keep declaration order.
type ToolSpec struct {
	Name        ToolName
	Description string
	Params      []ToolParam
}

type ToolDefinition struct {
	Name        string
	Description string
	Parameters  any
}

// Arguments holds tool arguments after coercion to the declared types.
type Arguments map[string]any
