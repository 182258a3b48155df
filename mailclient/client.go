// Package mailclient sends and retrieves mail with credentials supplied on
// each call. Every exported operation returns a result value describing
// success or failure; none of them returns a Go error.
package mailclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/rgabriel/mcp-dynamic-email/credentials"
	"github.com/rgabriel/mcp-dynamic-email/imap"
	"github.com/rgabriel/mcp-dynamic-email/smtp"
)

// Result statuses.
const (
	StatusSuccess   = "success"
	StatusError     = "error"
	StatusCompleted = "completed"
)

// Sender submits one message over SMTP. *smtp.Client satisfies it.
type Sender interface {
	SendEmail(ctx context.Context, srv smtp.Server, to, subject, body string) error
}

// Mailbox performs IMAP operations. *imap.Client satisfies it.
type Mailbox interface {
	ListUnread(ctx context.Context, acct imap.Account, filter imap.Filter, markAsRead bool) ([]imap.Email, error)
	MarkRead(ctx context.Context, acct imap.Account, id string) error
	StoreSeenBatch(ctx context.Context, acct imap.Account, ids []string, seen bool) ([]imap.StoreOutcome, error)
}

// Result is the outcome of a single-item operation.
type Result struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// OK reports whether the operation succeeded.
func (r Result) OK() bool { return r.Status == StatusSuccess }

// ListResult is the outcome of ListUnread: either Emails or Error is set.
// It encodes as the list of emails, or as a one-element list holding
// {"error": ...}.
type ListResult struct {
	Emails []imap.Email
	Error  string
}

// OK reports whether retrieval succeeded.
func (r ListResult) OK() bool { return r.Error == "" }

// MarshalJSON implements json.Marshaler.
func (r ListResult) MarshalJSON() ([]byte, error) {
	if r.Error != "" {
		return json.Marshal([]map[string]string{{"error": r.Error}})
	}
	emails := r.Emails
	if emails == nil {
		emails = []imap.Email{}
	}
	return json.Marshal(emails)
}

// BatchItem is the per-identifier outcome in a batch.
type BatchItem struct {
	EmailID string `json:"email_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// BatchResult is the outcome of a batch flag update. A session failure
// yields Status "error" with Message set; otherwise Status is "completed"
// and Details holds one item per identifier in input order.
type BatchResult struct {
	Status         string
	Message        string
	TotalProcessed int
	SuccessCount   int
	FailureCount   int
	Details        []BatchItem
}

// OK reports whether the batch ran to completion.
func (r BatchResult) OK() bool { return r.Status == StatusCompleted }

// MarshalJSON implements json.Marshaler.
func (r BatchResult) MarshalJSON() ([]byte, error) {
	if r.Status != StatusCompleted {
		return json.Marshal(Result{Status: r.Status, Message: r.Message})
	}
	details := r.Details
	if details == nil {
		details = []BatchItem{}
	}
	return json.Marshal(struct {
		Status         string      `json:"status"`
		TotalProcessed int         `json:"total_processed"`
		SuccessCount   int         `json:"success_count"`
		FailureCount   int         `json:"failure_count"`
		Details        []BatchItem `json:"details"`
	}{r.Status, r.TotalProcessed, r.SuccessCount, r.FailureCount, details})
}

// Client sends and retrieves mail. It holds no per-account state and is
// safe for concurrent use.
type Client struct {
	decrypter credentials.Decrypter
	sender    Sender
	mailbox   Mailbox
	logger    *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithSender replaces the SMTP sender.
func WithSender(s Sender) Option {
	return func(c *Client) { c.sender = s }
}

// WithMailbox replaces the IMAP mailbox.
func WithMailbox(m Mailbox) Option {
	return func(c *Client) { c.mailbox = m }
}

// WithLogger sets the logger for operation events.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a Client that decrypts "encrypted:" passwords with d.
// d may be nil when no credentials carry encrypted passwords.
func NewClient(d credentials.Decrypter, opts ...Option) *Client {
	c := &Client{
		decrypter: d,
		sender:    smtp.NewClient(),
		mailbox:   imap.NewClient(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// prepare validates b and resolves its password.
func (c *Client) prepare(b credentials.Bundle) (string, error) {
	if err := credentials.Validate(b); err != nil {
		return "", err
	}
	return credentials.ResolvePassword(b, c.decrypter)
}

func account(b credentials.Bundle, password string) imap.Account {
	return imap.Account{
		Host:     b.IMAPServer,
		Port:     b.IMAPPort,
		Username: b.EmailAddress,
		Password: password,
	}
}

func errorResult(err error) Result {
	return Result{Status: StatusError, Message: err.Error()}
}

// SendEmail sends a plain-text message from the bundle's address to recipient.
func (c *Client) SendEmail(ctx context.Context, b credentials.Bundle, recipient, subject, body string) Result {
	password, err := c.prepare(b)
	if err != nil {
		c.logger.Error("failed to send email", "error", err)
		return errorResult(err)
	}

	srv := smtp.Server{
		Host:     b.SMTPServer,
		Port:     b.SMTPPort,
		Username: b.EmailAddress,
		Password: password,
	}
	if err := c.sender.SendEmail(ctx, srv, recipient, subject, body); err != nil {
		c.logger.Error("failed to send email", "error", err)
		return errorResult(err)
	}

	c.logger.Info("email sent", "from_email", b.EmailAddress, "to_email", recipient)
	return Result{Status: StatusSuccess, Message: fmt.Sprintf("Email sent to %s", recipient)}
}

// ListUnread returns unread INBOX messages. filterBy is "today", "date_range"
// (currently no date predicate) or "all"; an empty value means "today".
func (c *Client) ListUnread(ctx context.Context, b credentials.Bundle, filterBy string, markAsRead bool) ListResult {
	if filterBy == "" {
		filterBy = string(imap.FilterToday)
	}

	password, err := c.prepare(b)
	if err != nil {
		c.logger.Error("failed to retrieve emails", "error", err)
		return ListResult{Error: err.Error()}
	}

	emails, err := c.mailbox.ListUnread(ctx, account(b, password), imap.Filter(filterBy), markAsRead)
	if err != nil {
		c.logger.Error("failed to retrieve emails", "error", err)
		return ListResult{Error: err.Error()}
	}

	c.logger.Info("retrieved unread emails", "count", len(emails), "filter_by", filterBy)
	return ListResult{Emails: emails}
}

// MarkAsRead sets \Seen on one message.
func (c *Client) MarkAsRead(ctx context.Context, b credentials.Bundle, messageID string) Result {
	password, err := c.prepare(b)
	if err != nil {
		c.logger.Error("failed to mark email as read", "error", err)
		return errorResult(err)
	}

	if err := c.mailbox.MarkRead(ctx, account(b, password), messageID); err != nil {
		c.logger.Error("failed to mark email as read", "error", err)
		return errorResult(err)
	}

	c.logger.Info("email marked as read", "email_id", messageID)
	return Result{Status: StatusSuccess, Message: fmt.Sprintf("Email %s marked as read", messageID)}
}

// MarkBatchAsRead sets \Seen on each message over one session.
func (c *Client) MarkBatchAsRead(ctx context.Context, b credentials.Bundle, messageIDs []string) BatchResult {
	return c.markBatch(ctx, b, messageIDs, true)
}

// MarkBatchAsUnread clears \Seen on each message over one session.
func (c *Client) MarkBatchAsUnread(ctx context.Context, b credentials.Bundle, messageIDs []string) BatchResult {
	return c.markBatch(ctx, b, messageIDs, false)
}

func (c *Client) markBatch(ctx context.Context, b credentials.Bundle, ids []string, seen bool) BatchResult {
	state := "read"
	if !seen {
		state = "unread"
	}

	password, err := c.prepare(b)
	if err != nil {
		c.logger.Error("failed to batch mark emails as "+state, "error", err)
		return BatchResult{Status: StatusError, Message: err.Error()}
	}

	outcomes, err := c.mailbox.StoreSeenBatch(ctx, account(b, password), ids, seen)
	if err != nil {
		c.logger.Error("failed to batch mark emails as "+state, "error", err)
		return BatchResult{Status: StatusError, Message: err.Error()}
	}

	result := BatchResult{
		Status:         StatusCompleted,
		TotalProcessed: len(ids),
		Details:        make([]BatchItem, 0, len(outcomes)),
	}
	for _, o := range outcomes {
		item := BatchItem{
			EmailID: o.ID,
			Status:  StatusSuccess,
			Message: fmt.Sprintf("Email %s marked as %s", o.ID, state),
		}
		if o.Err != nil {
			item.Status = StatusError
			item.Message = o.Err.Error()
			result.FailureCount++
		} else {
			result.SuccessCount++
		}
		result.Details = append(result.Details, item)
	}

	c.logger.Info("batch email "+state+" operation completed",
		"total_processed", result.TotalProcessed,
		"success_count", result.SuccessCount,
		"failure_count", result.FailureCount,
	)
	return result
}
