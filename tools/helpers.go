package tools

import (
	"encoding/json"
	"fmt"
	"net/mail"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rgabriel/mcp-dynamic-email/credentials"
)

// parseCredentials reads the "credentials" object argument. A missing or
// non-object value yields an empty bundle, which the mail client rejects.
func parseCredentials(args map[string]interface{}) credentials.Bundle {
	obj, _ := args["credentials"].(map[string]interface{})
	return credentials.FromMap(obj)
}

// parseRecipient validates a single recipient address argument.
func parseRecipient(args map[string]interface{}, key string) (string, error) {
	addr, ok := args[key].(string)
	if !ok || addr == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	if _, err := mail.ParseAddress(addr); err != nil {
		return "", fmt.Errorf("invalid %s email address '%s': %v", key, addr, err)
	}
	return addr, nil
}

// parseIDList extracts a string or []interface{} argument into a list of
// validated email IDs.
func parseIDList(args map[string]interface{}, key string) ([]string, error) {
	var ids []string
	switch v := args[key].(type) {
	case string:
		if v != "" {
			ids = []string{v}
		}
	case []interface{}:
		for _, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s must contain only strings", key)
			}
			ids = append(ids, str)
		}
	case nil:
	default:
		return nil, fmt.Errorf("%s must be a string or array of strings", key)
	}

	if len(ids) == 0 {
		return nil, fmt.Errorf("%s is required", key)
	}
	for _, id := range ids {
		if err := validateEmailID(id); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
	}
	return ids, nil
}

// jsonResult encodes v as the tool result; failed marks it as a tool error.
func jsonResult(v interface{}, failed bool) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to format response: %v", err)), nil
	}
	if failed {
		return mcp.NewToolResultError(string(jsonData)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}
