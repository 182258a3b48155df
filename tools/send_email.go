package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// SendEmailHandler creates a handler for sending emails
func SendEmailHandler(client MailSender) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		creds := parseCredentials(args)

		to, err := parseRecipient(args, "to")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		subject, _ := args["subject"].(string)
		if err := validateSubjectSize(subject); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		body, _ := args["body"].(string)
		if err := validateBodySize(body); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		result := client.SendEmail(ctx, creds, to, subject, body)
		return jsonResult(result, !result.OK())
	}
}
