package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/oralabs/ora-memory/internal/memory"
)

// ProfileTool handles the ora_update_profile MCP tool.
type ProfileTool struct {
	svc *memory.Service
}

// NewProfileTool creates a ProfileTool.
func NewProfileTool(svc *memory.Service) *ProfileTool {
	return &ProfileTool{svc: svc}
}

// Definition returns the MCP tool definition for ora_update_profile.
func (t *ProfileTool) Definition() mcp.Tool {
	return mcp.NewTool("ora_update_profile",
		mcp.WithDescription(
			"Apply a partial update to a user's profile. Only the fields you "+
				"pass are changed; omitted fields are left untouched. Creates the "+
				"profile if it does not exist yet.",
		),
		mcp.WithString("user_id",
			mcp.Required(),
			mcp.Description("Stable identifier of the user"),
		),
		mcp.WithString("name",
			mcp.Description("The user's preferred name"),
		),
		mcp.WithString("personality_type",
			mcp.Description("Personality classification label"),
		),
		mcp.WithString("communication_style",
			mcp.Description("Preferred communication style"),
		),
		mcp.WithBoolean("onboarding_complete",
			mcp.Description("Whether onboarding has finished"),
		),
		mcp.WithObject("preferences",
			mcp.Description("Free-form preferences object, stored verbatim"),
		),
	)
}

// Handle processes the ora_update_profile tool call.
func (t *ProfileTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	userID, _ := args["user_id"].(string)
	delete(args, "user_id")

	// Round-trip the remaining arguments through JSON so the patch keeps
	// its key-presence semantics (absent vs explicit null).
	raw, err := json.Marshal(args)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding arguments: %v", err)), nil
	}
	var patch memory.ProfilePatch
	if err := json.Unmarshal(raw, &patch); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("decoding patch: %v", err)), nil
	}

	_, fields, err := t.svc.UpdateProfile(userID, patch)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"Updated profile for %s (fields: %s)", userID, strings.Join(fields, ", "),
	)), nil
}
