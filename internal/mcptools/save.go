package mcptools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/oralabs/ora-memory/internal/memory"
)

// SaveTool handles the ora_save_conversation MCP tool.
type SaveTool struct {
	svc *memory.Service
}

// NewSaveTool creates a SaveTool.
func NewSaveTool(svc *memory.Service) *SaveTool {
	return &SaveTool{svc: svc}
}

// Definition returns the MCP tool definition for ora_save_conversation.
func (t *SaveTool) Definition() mcp.Tool {
	return mcp.NewTool("ora_save_conversation",
		mcp.WithDescription(
			"Record one completed exchange in the user's conversation log. "+
				"Call this after every reply so future context includes it. "+
				"Records are append-only and never modified.",
		),
		mcp.WithString("user_id",
			mcp.Required(),
			mcp.Description("Stable identifier of the user"),
		),
		mcp.WithString("user_message",
			mcp.Required(),
			mcp.Description("What the user said"),
		),
		mcp.WithString("ora_response",
			mcp.Required(),
			mcp.Description("What ORA replied"),
		),
		mcp.WithString("emotion",
			mcp.Description("Detected emotion label, if any"),
		),
		mcp.WithString("topic",
			mcp.Description("Topic label, if any"),
		),
		mcp.WithString("session_id",
			mcp.Description("Client session identifier, if any"),
		),
	)
}

// Handle processes the ora_save_conversation tool call.
func (t *SaveTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rec, err := t.svc.SaveConversation(memory.SaveConversationParams{
		UserID:      req.GetString("user_id", ""),
		UserMessage: req.GetString("user_message", ""),
		OraResponse: req.GetString("ora_response", ""),
		Emotion:     req.GetString("emotion", ""),
		Topic:       req.GetString("topic", ""),
		SessionID:   req.GetString("session_id", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"Saved conversation #%d for %s at %s", rec.ID, rec.UserID, rec.Timestamp,
	)), nil
}
