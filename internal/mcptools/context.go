package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/oralabs/ora-memory/internal/memory"
)

// ContextTool handles the ora_get_context MCP tool.
type ContextTool struct {
	svc *memory.Service
}

// NewContextTool creates a ContextTool.
func NewContextTool(svc *memory.Service) *ContextTool {
	return &ContextTool{svc: svc}
}

// Definition returns the MCP tool definition for ora_get_context.
func (t *ContextTool) Definition() mcp.Tool {
	return mcp.NewTool("ora_get_context",
		mcp.WithDescription(
			"Fetch the personalization context for a user: profile facts plus a "+
				"summary of their most recent conversations. Call this at the start "+
				"of a session to prime your responses. First-time users get an "+
				"onboarding greeting instead.",
		),
		mcp.WithString("user_id",
			mcp.Required(),
			mcp.Description("Stable identifier of the user"),
		),
	)
}

// Handle processes the ora_get_context tool call.
func (t *ContextTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := req.GetString("user_id", "")

	res, err := t.svc.GetContext(userID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sb strings.Builder
	if res.IsNewUser {
		sb.WriteString("## New User\n\n")
		fmt.Fprintf(&sb, "Suggested greeting: %s\n", res.SuggestedResponse)
	} else {
		fmt.Fprintf(&sb, "## Context for %s\n\n", res.UserID)
		sb.WriteString(res.Context)
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "\nTotal conversations: %d | Recent: %d | Onboarded: %v\n",
		res.TotalConversations, res.RecentConversationsCount, res.OnboardingComplete)

	return mcp.NewToolResultText(sb.String()), nil
}
