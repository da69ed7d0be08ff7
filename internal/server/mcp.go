package server

import (
	"fmt"

	"github.com/mark3labs/mcp-go/server"

	"github.com/oralabs/ora-memory/internal/config"
	"github.com/oralabs/ora-memory/internal/mcptools"
	"github.com/oralabs/ora-memory/internal/memory"
)

// NewMCP creates the MCP server with every memory tool registered.
// It shares the storage layer with the HTTP server, so an assistant
// talking MCP sees the same users the API does.
//
// The returned cleanup function closes the store and must be called on
// shutdown (typically via defer). It is always non-nil.
func NewMCP(cfg *config.Config) (*server.MCPServer, func(), error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, func() {}, fmt.Errorf("opening %s store: %w", cfg.Storage.Backend, err)
	}
	svc := memory.NewService(store)

	s := server.NewMCPServer(
		"ora-memory",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	contextTool := mcptools.NewContextTool(svc)
	s.AddTool(contextTool.Definition(), contextTool.Handle)

	saveTool := mcptools.NewSaveTool(svc)
	s.AddTool(saveTool.Definition(), saveTool.Handle)

	profileTool := mcptools.NewProfileTool(svc)
	s.AddTool(profileTool.Definition(), profileTool.Handle)

	searchTool := mcptools.NewSearchTool(svc)
	s.AddTool(searchTool.Definition(), searchTool.Handle)

	statsTool := mcptools.NewStatsTool(svc)
	s.AddTool(statsTool.Definition(), statsTool.Handle)

	cleanup := func() { _ = store.Close() }
	return s, cleanup, nil
}
