// Package mcp provides an MCP server that exposes selector authoring tools.
package mcp

import (
	"sort"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ParamSpec describes one tool parameter.
type ParamSpec struct {
	// Type is the JSON Schema type. Empty accepts any JSON value.
	Type        string
	Description string
	Required    bool
	Enum        []string
	Default     any
}

// ToolSpec describes a tool and its parameters.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]ParamSpec
}

// toolSpecToMCPTool converts a ToolSpec to an mcp.Tool with JSON Schema.
func toolSpecToMCPTool(spec ToolSpec) *mcpsdk.Tool {
	props := make(map[string]any, len(spec.Parameters))
	var required []string

	for name, p := range spec.Parameters {
		prop := map[string]any{
			"description": p.Description,
		}
		if p.Type != "" {
			prop["type"] = p.Type
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		props[name] = prop

		if p.Required {
			required = append(required, name)
		}
	}

	// Sort required for deterministic output
	sort.Strings(required)

	inputSchema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		inputSchema["required"] = required
	}

	return &mcpsdk.Tool{
		Name:        spec.Name,
		Description: spec.Description,
		InputSchema: inputSchema,
	}
}
