package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/oralabs/ora-memory/internal/memory"
)

// StatsTool handles the ora_user_stats MCP tool.
type StatsTool struct {
	svc *memory.Service
}

// NewStatsTool creates a StatsTool.
func NewStatsTool(svc *memory.Service) *StatsTool {
	return &StatsTool{svc: svc}
}

// Definition returns the MCP tool definition for ora_user_stats.
func (t *StatsTool) Definition() mcp.Tool {
	return mcp.NewTool("ora_user_stats",
		mcp.WithDescription(
			"Show usage statistics for one user: total and recent conversation "+
				"counts plus visit timestamps. Fails if the user has no profile.",
		),
		mcp.WithString("user_id",
			mcp.Required(),
			mcp.Description("Stable identifier of the user"),
		),
	)
}

// Handle processes the ora_user_stats tool call.
func (t *StatsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := req.GetString("user_id", "")

	stats, err := t.svc.UserStats(userID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Stats for %s\n\n", stats.UserID)
	if name := str(stats.Name); name != "" {
		fmt.Fprintf(&sb, "- **Name**: %s\n", name)
	}
	fmt.Fprintf(&sb, "- **Total conversations**: %d\n", stats.TotalConversations)
	fmt.Fprintf(&sb, "- **Conversations this week**: %d\n", stats.RecentConversations)
	fmt.Fprintf(&sb, "- **First visit**: %s\n", stats.FirstVisit)
	fmt.Fprintf(&sb, "- **Last visit**: %s\n", stats.LastVisit)
	fmt.Fprintf(&sb, "- **Onboarding complete**: %v\n", stats.OnboardingComplete)

	return mcp.NewToolResultText(sb.String()), nil
}
