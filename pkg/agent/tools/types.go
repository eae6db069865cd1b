// Package tools defines the agent's callable capabilities: the Tool
// interface, the read-only Registry the model advertises, and the Executor
// that dispatches tool calls with bounded timeouts.
package tools

import (
	"context"
	"fmt"
	"sort"

	"github.com/gagent-dev/gagent/pkg/agent/llm"
)

// Tool defines the interface for agent tools.
type Tool interface {
	Name() string
	Description() string
	// Schema returns the JSON Schema for the tool's arguments.
	Schema() map[string]interface{}
	Call(ctx context.Context, args map[string]interface{}) (string, error)
}

// Registry is a fixed, name-keyed set of tools. It is immutable after
// construction and safe to share across concurrent streams.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry builds a registry from the given tools. Duplicate names are
// rejected.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, tool := range tools {
		if _, exists := r.tools[tool.Name()]; exists {
			return nil, fmt.Errorf("duplicate tool name: %s", tool.Name())
		}
		r.tools[tool.Name()] = tool
	}
	return r, nil
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	tool, ok := r.tools[name]
	return tool, ok
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns the tool definitions advertised to the model.
func (r *Registry) Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(r.tools))
	for _, name := range r.Names() {
		tool := r.tools[name]
		defs = append(defs, llm.ToolDefinition{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  tool.Schema(),
		})
	}
	return defs
}

// BaseTool provides common functionality for tools
type BaseTool struct {
	name        string
	description string
}

// NewBaseTool creates a new BaseTool
func NewBaseTool(name, description string) BaseTool {
	return BaseTool{
		name:        name,
		description: description,
	}
}

// Name returns the tool name
func (b *BaseTool) Name() string {
	return b.name
}

// Description returns the tool description
func (b *BaseTool) Description() string {
	return b.description
}
