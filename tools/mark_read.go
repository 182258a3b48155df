package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rgabriel/mcp-dynamic-email/mailclient"
)

// MarkReadHandler creates a handler for marking a single email as read
func MarkReadHandler(client MailWriter) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		creds := parseCredentials(args)

		emailID, _ := args["email_id"].(string)
		if err := validateEmailID(emailID); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		result := client.MarkAsRead(ctx, creds, emailID)
		return jsonResult(result, !result.OK())
	}
}

// MarkBatchHandler creates a handler that adds (read) or removes (!read)
// the \Seen flag on several emails in one session
func MarkBatchHandler(client MailWriter, read bool) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		creds := parseCredentials(args)

		ids, err := parseIDList(args, "email_ids")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var result mailclient.BatchResult
		if read {
			result = client.MarkBatchAsRead(ctx, creds, ids)
		} else {
			result = client.MarkBatchAsUnread(ctx, creds, ids)
		}
		return jsonResult(result, !result.OK())
	}
}
