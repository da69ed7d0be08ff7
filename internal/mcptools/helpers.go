// Package mcptools exposes the memory service as MCP tools, so AI
// assistants speaking the Model Context Protocol can read and write the
// same user memory the HTTP API serves.
//
// Each tool handler follows the same pattern:
//   - A struct with dependencies (*memory.Service) injected via constructor
//   - Definition() returns the mcp.Tool schema
//   - Handle() processes the request and returns a result
package mcptools

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
