package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/oralabs/ora-memory/internal/memory"
)

const snippetLen = 120

// SearchTool handles the ora_search_conversations MCP tool.
type SearchTool struct {
	svc *memory.Service
}

// NewSearchTool creates a SearchTool.
func NewSearchTool(svc *memory.Service) *SearchTool {
	return &SearchTool{svc: svc}
}

// Definition returns the MCP tool definition for ora_search_conversations.
func (t *SearchTool) Definition() mcp.Tool {
	return mcp.NewTool("ora_search_conversations",
		mcp.WithDescription(
			"List a user's most recent conversations, newest first. Use this to "+
				"recall what was discussed in earlier sessions.",
		),
		mcp.WithString("user_id",
			mcp.Required(),
			mcp.Description("Stable identifier of the user"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 50)"),
		),
	)
}

// Handle processes the ora_search_conversations tool call.
func (t *SearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := req.GetString("user_id", "")
	limit := intArg(req, "limit", 0)

	res, err := t.svc.SearchConversations(userID, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if res.Count == 0 {
		return mcp.NewToolResultText("No conversations recorded for this user."), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d conversations for %s:\n\n", res.Count, res.UserID)
	for i, r := range res.Results {
		fmt.Fprintf(&sb, "[%d] #%d (%s)\n    User: %s\n    ORA: %s\n",
			i+1, r.ID, r.Timestamp, truncate(r.UserMessage, snippetLen), truncate(r.OraResponse, snippetLen))
		if r.Topic != "" || r.Emotion != "" {
			fmt.Fprintf(&sb, "    topic: %s | emotion: %s\n", r.Topic, r.Emotion)
		}
		sb.WriteString("\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
