package tools

import (
	"context"

	"github.com/rgabriel/mcp-dynamic-email/credentials"
	"github.com/rgabriel/mcp-dynamic-email/mailclient"
)

// MailReader defines retrieval operations.
type MailReader interface {
	ListUnread(ctx context.Context, b credentials.Bundle, filterBy string, markAsRead bool) mailclient.ListResult
}

// MailWriter defines flag-mutating operations.
type MailWriter interface {
	MarkAsRead(ctx context.Context, b credentials.Bundle, messageID string) mailclient.Result
	MarkBatchAsRead(ctx context.Context, b credentials.Bundle, messageIDs []string) mailclient.BatchResult
	MarkBatchAsUnread(ctx context.Context, b credentials.Bundle, messageIDs []string) mailclient.BatchResult
}

// MailSender defines SMTP operations.
type MailSender interface {
	SendEmail(ctx context.Context, b credentials.Bundle, recipient, subject, body string) mailclient.Result
}

// MailService combines all operations. The concrete *mailclient.Client satisfies this.
type MailService interface {
	MailReader
	MailWriter
	MailSender
}
