package tools

import (
	"context"

	"github.com/rgabriel/mcp-dynamic-email/credentials"
	"github.com/rgabriel/mcp-dynamic-email/mailclient"
)

// MockMailService implements MailService for testing.
type MockMailService struct {
	// Return values
	Result      mailclient.Result
	ListResult  mailclient.ListResult
	BatchResult mailclient.BatchResult

	// Call tracking
	LastMethod     string
	LastCreds      credentials.Bundle
	LastRecipient  string
	LastSubject    string
	LastBody       string
	LastFilter     string
	LastMarkAsRead bool
	LastEmailID    string
	LastEmailIDs   []string
	CallCount      int
}

func (m *MockMailService) SendEmail(ctx context.Context, b credentials.Bundle, recipient, subject, body string) mailclient.Result {
	m.LastMethod = "SendEmail"
	m.LastCreds = b
	m.LastRecipient = recipient
	m.LastSubject = subject
	m.LastBody = body
	m.CallCount++
	return m.Result
}

func (m *MockMailService) ListUnread(ctx context.Context, b credentials.Bundle, filterBy string, markAsRead bool) mailclient.ListResult {
	m.LastMethod = "ListUnread"
	m.LastCreds = b
	m.LastFilter = filterBy
	m.LastMarkAsRead = markAsRead
	m.CallCount++
	return m.ListResult
}

func (m *MockMailService) MarkAsRead(ctx context.Context, b credentials.Bundle, messageID string) mailclient.Result {
	m.LastMethod = "MarkAsRead"
	m.LastCreds = b
	m.LastEmailID = messageID
	m.CallCount++
	return m.Result
}

func (m *MockMailService) MarkBatchAsRead(ctx context.Context, b credentials.Bundle, messageIDs []string) mailclient.BatchResult {
	m.LastMethod = "MarkBatchAsRead"
	m.LastCreds = b
	m.LastEmailIDs = messageIDs
	m.CallCount++
	return m.BatchResult
}

func (m *MockMailService) MarkBatchAsUnread(ctx context.Context, b credentials.Bundle, messageIDs []string) mailclient.BatchResult {
	m.LastMethod = "MarkBatchAsUnread"
	m.LastCreds = b
	m.LastEmailIDs = messageIDs
	m.CallCount++
	return m.BatchResult
}

var _ MailService = (*MockMailService)(nil)

func successResult(msg string) mailclient.Result {
	return mailclient.Result{Status: mailclient.StatusSuccess, Message: msg}
}

func errorResult(msg string) mailclient.Result {
	return mailclient.Result{Status: mailclient.StatusError, Message: msg}
}
