package mcp

import (
	"context"
	"log/slog"
	"slices"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Version is reported to MCP clients.
const Version = "0.1.0"

// NewMCPServer creates an MCP server exposing the selector tools.
// If filter is non-empty, only the named tools are exposed.
func NewMCPServer(tools *Tools, filter ...string) *mcpsdk.Server {
	server := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    "dbtsel",
		Version: Version,
	}, nil)

	for _, tool := range tools.List() {
		if !matchesFilter(tool.Spec.Name, filter) {
			continue
		}

		// Capture tool in closure
		run := tool.Run
		toolName := tool.Spec.Name

		server.AddTool(toolSpecToMCPTool(tool.Spec), func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
			result, err := run(ctx, string(req.Params.Arguments))
			if err != nil {
				slog.Debug("mcp tool error", "tool", toolName, "error", err)
				return &mcpsdk.CallToolResult{
					IsError: true,
					Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
				}, nil
			}
			return &mcpsdk.CallToolResult{
				Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: result}},
			}, nil
		})

		slog.Debug("mcp tool registered", "tool", toolName)
	}

	return server
}

// matchesFilter checks if a tool name is selected by filter. An empty filter
// selects every tool.
func matchesFilter(toolName string, filter []string) bool {
	return len(filter) == 0 || slices.Contains(filter, toolName)
}
