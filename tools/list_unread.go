package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// ListUnreadHandler creates a handler for listing unread inbox emails
func ListUnreadHandler(client MailReader) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		creds := parseCredentials(args)

		// Get filter (default to today)
		filterBy, _ := args["filter_by"].(string)
		if filterBy == "" {
			filterBy = "today"
		}
		if err := validateFilter(filterBy); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		markAsRead := false
		if v, ok := args["mark_as_read"].(bool); ok {
			markAsRead = v
		}

		result := client.ListUnread(ctx, creds, filterBy, markAsRead)
		return jsonResult(result, !result.OK())
	}
}
