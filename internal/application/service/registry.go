package service

import (
	"fmt"
	"sort"

	"higress-chat/internal/application/port/output"
	"higress-chat/internal/domain/entity"

	"github.com/sashabaranov/go-openai/jsonschema"
)

var _ output.ToolRegistry = (*ToolRegistryImpl)(nil)

// ToolRegistryImpl is filled once at startup and read-only afterwards, so
// lookups take no lock.
type ToolRegistryImpl struct {
	tools map[entity.ToolName]output.ToolPort
}

func NewToolRegistry() *ToolRegistryImpl {
	return &ToolRegistryImpl{
		tools: make(map[entity.ToolName]output.ToolPort),
	}
}

func (r *ToolRegistryImpl) Register(tool output.ToolPort) error {
	if tool == nil {
		return fmt.Errorf("tool is nil")
	}
	spec := tool.Spec()
	if spec.Name == "" {
		return fmt.Errorf("tool name is empty")
	}
	if _, exists := r.tools[spec.Name]; exists {
		return &entity.DuplicateToolError{Name: spec.Name}
	}
	r.tools[spec.Name] = tool
	return nil
}

func (r *ToolRegistryImpl) Resolve(name entity.ToolName) (output.ToolPort, error) {
	tool, ok := r.tools[name]
	if !ok {
		return nil, &entity.UnknownToolError{Name: name}
	}
	return tool, nil
}

func (r *ToolRegistryImpl) All() []output.ToolPort {
	result := make([]output.ToolPort, 0, len(r.tools))
	for _, name := range r.names() {
		result = append(result, r.tools[name])
	}
	return result
}

func (r *ToolRegistryImpl) Definitions() []entity.ToolDefinition {
	return definitions(r.All())
}

// Subset binds the named tools to a single request. An empty list yields
// an empty set.
func (r *ToolRegistryImpl) Subset(names ...entity.ToolName) (output.ToolResolver, error) {
	set := &ToolSet{tools: make(map[entity.ToolName]output.ToolPort, len(names))}
	for _, name := range names {
		tool, err := r.Resolve(name)
		if err != nil {
			return nil, err
		}
		if _, dup := set.tools[name]; dup {
			continue
		}
		set.tools[name] = tool
		set.order = append(set.order, name)
	}
	return set, nil
}

func (r *ToolRegistryImpl) names() []entity.ToolName {
	names := make([]entity.ToolName, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var _ output.ToolResolver = (*ToolSet)(nil)

type ToolSet struct {
	tools map[entity.ToolName]output.ToolPort
	order []entity.ToolName
}

func (s *ToolSet) Resolve(name entity.ToolName) (output.ToolPort, error) {
	tool, ok := s.tools[name]
	if !ok {
		return nil, &entity.UnknownToolError{Name: name}
	}
	return tool, nil
}

func (s *ToolSet) Definitions() []entity.ToolDefinition {
	tools := make([]output.ToolPort, 0, len(s.order))
	for _, name := range s.order {
		tools = append(tools, s.tools[name])
	}
	return definitions(tools)
}

func (s *ToolSet) Len() int { return len(s.order) }

func definitions(tools []output.ToolPort) []entity.ToolDefinition {
	result := make([]entity.ToolDefinition, 0, len(tools))
	for _, tool := range tools {
		spec := tool.Spec()
		result = append(result, entity.ToolDefinition{
			Name:        spec.Name,
			Description: spec.Description,
			Parameters:  Schema(spec),
		})
	}
	return result
}

// Schema renders the parameter list as a JSON schema object.
func Schema(spec entity.ToolSpec) jsonschema.Definition {
	def := jsonschema.Definition{
		Type:       jsonschema.Object,
		Properties: make(map[string]jsonschema.Definition, len(spec.Params)),
	}
	for _, p := range spec.Params {
		prop := jsonschema.Definition{
			Type:        jsonschema.DataType(p.Type),
			Description: p.Description,
		}
		if p.Type == entity.ParamArray {
			prop.Items = &jsonschema.Definition{}
		}
		def.Properties[p.Name] = prop
		if p.Required {
			def.Required = append(def.Required, p.Name)
		}
	}
	return def
}
