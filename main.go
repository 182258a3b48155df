package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rgabriel/mcp-dynamic-email/config"
	"github.com/rgabriel/mcp-dynamic-email/credentials"
	"github.com/rgabriel/mcp-dynamic-email/mailclient"
	"github.com/rgabriel/mcp-dynamic-email/secret"
	"github.com/rgabriel/mcp-dynamic-email/tools"
)

// version is set at build time via ldflags
var version = "dev"

// credentialsSchema describes the per-call account credentials object.
var credentialsSchema = map[string]any{
	"email_address": map[string]any{"type": "string", "description": "Account address; also the SMTP/IMAP login and the From address."},
	"smtp_server":   map[string]any{"type": "string", "description": "SMTP submission host (STARTTLS)."},
	"smtp_port":     map[string]any{"type": []string{"string", "integer"}, "description": "SMTP submission port, usually 587."},
	"imap_server":   map[string]any{"type": "string", "description": "IMAP host (implicit TLS)."},
	"imap_port":     map[string]any{"type": []string{"string", "integer"}, "description": "IMAP port, usually 993."},
	"password":      map[string]any{"type": "string", "description": "Plain password, or 'encrypted:' followed by a JWE token."},
}

func withCredentials() mcp.ToolOption {
	return mcp.WithObject("credentials",
		mcp.Required(),
		mcp.Description("Mail account credentials used for this call only."),
		mcp.Properties(credentialsSchema),
	)
}

func main() {
	// Initialize structured logging
	logLevel := new(slog.LevelVar)
	logLevel.Set(slog.LevelInfo)
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		switch strings.ToUpper(lvl) {
		case "DEBUG":
			logLevel.Set(slog.LevelDebug)
		case "WARN":
			logLevel.Set(slog.LevelWarn)
		case "ERROR":
			logLevel.Set(slog.LevelError)
		}
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	decrypter, err := newDecrypter(cfg)
	if err != nil {
		slog.Error("failed to load decryption key", "error", err)
		os.Exit(1)
	}

	mailClient := mailclient.NewClient(decrypter, mailclient.WithLogger(logger))

	// Set up signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	// Create MCP server with middleware (applied in reverse: logging wraps timeout wraps handler)
	s := server.NewMCPServer(
		"Dynamic Email Server",
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithToolHandlerMiddleware(timeoutMiddleware(cfg.ToolTimeout)),
		server.WithToolHandlerMiddleware(loggingMiddleware()),
	)

	// Register send_email tool
	sendEmailTool := mcp.NewTool("send_email",
		mcp.WithDescription("Send a plain-text email from the credentials' address to one recipient via SMTP with STARTTLS. Calling twice sends the email twice."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		withCredentials(),
		mcp.WithString("to",
			mcp.Required(),
			mcp.MinLength(1),
			mcp.Description("Recipient email address."),
		),
		mcp.WithString("subject",
			mcp.Description("Email subject line."),
		),
		mcp.WithString("body",
			mcp.Description("Plain-text email body."),
		),
	)
	s.AddTool(sendEmailTool, tools.SendEmailHandler(mailClient))

	// Register list_unread_emails tool
	listUnreadTool := mcp.NewTool("list_unread_emails",
		mcp.WithDescription("List unread emails in INBOX. Returns each email's id (use with mark_email_read), subject, from_email, plain-text body, message_id and retrieval timestamp. 'date_range' currently applies no date restriction."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		withCredentials(),
		mcp.WithString("filter_by",
			mcp.Enum("today", "date_range", "all"),
			mcp.DefaultString("today"),
			mcp.Description("'today' limits to messages sent since today's UTC date; 'all' returns every unread message."),
		),
		mcp.WithBoolean("mark_as_read",
			mcp.DefaultBool(false),
			mcp.Description("Mark the returned emails as read. By default emails are fetched without changing their flags."),
		),
	)
	s.AddTool(listUnreadTool, tools.ListUnreadHandler(mailClient))

	// Register mark_email_read tool
	markReadTool := mcp.NewTool("mark_email_read",
		mcp.WithDescription("Mark one INBOX email as read. Use list_unread_emails first to find email IDs."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		withCredentials(),
		mcp.WithString("email_id",
			mcp.Required(),
			mcp.MinLength(1),
			mcp.Description("Email ID from list_unread_emails."),
		),
	)
	s.AddTool(markReadTool, tools.MarkReadHandler(mailClient))

	// Register batch tools
	for _, batch := range []struct {
		name, desc string
		read       bool
	}{
		{"mark_emails_read", "Mark several INBOX emails as read over one connection. Reports success or error per email ID.", true},
		{"mark_emails_unread", "Mark several INBOX emails as unread over one connection. Reports success or error per email ID.", false},
	} {
		tool := mcp.NewTool(batch.name,
			mcp.WithDescription(batch.desc),
			mcp.WithReadOnlyHintAnnotation(false),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithIdempotentHintAnnotation(true),
			withCredentials(),
			mcp.WithArray("email_ids",
				mcp.Required(),
				mcp.Items(map[string]any{"type": "string"}),
				mcp.Description("Email IDs from list_unread_emails, processed in order."),
			),
		)
		s.AddTool(tool, tools.MarkBatchHandler(mailClient, batch.read))
	}

	// Log startup
	slog.Info("server starting",
		"version", version,
		"decryption", decrypter != nil,
		"tool_timeout", cfg.ToolTimeout.String(),
	)

	// Start the stdio server with cancellable context
	stdioServer := server.NewStdioServer(s)
	if err := stdioServer.Listen(ctx, os.Stdin, os.Stdout); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}

// newDecrypter builds the password decrypter from configuration. It
// returns nil when no key is configured; encrypted passwords then fail per call.
func newDecrypter(cfg *config.Config) (credentials.Decrypter, error) {
	key := cfg.SecretKey
	if key == "" && cfg.UseKeyring {
		ring, err := secret.OpenKeyring(cfg.KeyringDir)
		if err != nil {
			return nil, err
		}
		key, err = secret.KeyFromKeyring(ring, secret.KeyItem)
		if err != nil {
			return nil, err
		}
	}
	if key == "" {
		return nil, nil
	}
	return secret.NewJWEDecrypter(key), nil
}

// timeoutMiddleware wraps each tool handler with a context deadline.
func timeoutMiddleware(timeout time.Duration) server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return next(ctx, req)
		}
	}
}

// accountOf returns the email address from a call's credentials argument.
// The password is never read here.
func accountOf(req mcp.CallToolRequest) string {
	creds, _ := req.GetArguments()["credentials"].(map[string]any)
	addr, _ := creds["email_address"].(string)
	return addr
}

// loggingMiddleware logs each tool call with a unique request ID, tool name, account, duration, and outcome.
func loggingMiddleware() server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			requestID := uuid.New().String()
			tool := req.Params.Name
			logger := slog.With("request_id", requestID, "tool", tool)
			if account := accountOf(req); account != "" {
				logger = logger.With("account", account)
			}

			logger.Debug("tool call started")
			start := time.Now()

			result, err := next(ctx, req)
			duration := time.Since(start)

			if err != nil {
				logger.Error("tool call failed", "duration_ms", duration.Milliseconds(), "error", err)
			} else if result != nil && result.IsError {
				logger.Warn("tool call returned error", "duration_ms", duration.Milliseconds())
			} else {
				logger.Info("tool call completed", "duration_ms", duration.Milliseconds())
			}

			return result, err
		}
	}
}
