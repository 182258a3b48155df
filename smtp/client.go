package smtp

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"
)

// Conn is the subset of *smtp.Client used to submit one message.
type Conn interface {
	StartTLS(config *tls.Config) error
	Auth(a smtp.Auth) error
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// DialFunc opens a plaintext SMTP connection to addr (host:port).
type DialFunc func(ctx context.Context, host, addr string) (Conn, error)

// Server identifies the submission endpoint and login for one send.
type Server struct {
	Host     string
	Port     string
	Username string
	Password string
}

// Client handles SMTP operations for sending emails. It keeps no
// connection between calls.
type Client struct {
	dial DialFunc
	now  func() time.Time
}

// NewClient creates a new SMTP client that dials real servers.
func NewClient() *Client {
	return &Client{dial: dialSMTP, now: time.Now}
}

// NewClientWithDialer creates a client that opens connections through dial.
func NewClientWithDialer(dial DialFunc) *Client {
	return &Client{dial: dial, now: time.Now}
}

func dialSMTP(ctx context.Context, host, addr string) (Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// SendEmail submits a plain-text message from srv.Username to a single
// recipient. The connection is upgraded with STARTTLS before PLAIN auth and
// is closed on every return path.
func (c *Client) SendEmail(ctx context.Context, srv Server, to, subject, body string) error {
	msg, err := c.buildMessage(srv.Username, to, subject, body)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(srv.Host, srv.Port)
	conn, err := c.dial(ctx, srv.Host, addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server %s: %w", addr, err)
	}
	defer conn.Close()

	if err := conn.StartTLS(&tls.Config{ServerName: srv.Host}); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}

	auth := smtp.PlainAuth("", srv.Username, srv.Password, srv.Host)
	if err := conn.Auth(auth); err != nil {
		return fmt.Errorf("failed to authenticate: %w", err)
	}

	if err := conn.Mail(srv.Username); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := conn.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient %s: %w", to, err)
	}

	w, err := conn.Data()
	if err != nil {
		return fmt.Errorf("failed to start message data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		w.Close()
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	if err := conn.Quit(); err != nil {
		return fmt.Errorf("failed to close SMTP session: %w", err)
	}

	return nil
}

// buildMessage renders a multipart/mixed message holding one text/plain part.
func (c *Client) buildMessage(from, to, subject, body string) ([]byte, error) {
	var buf bytes.Buffer

	var h mail.Header
	h.SetDate(c.now())
	h.SetAddressList("From", []*mail.Address{{Address: from}})
	h.SetAddressList("To", []*mail.Address{{Address: to}})
	h.SetSubject(subject)
	h.SetContentType("multipart/mixed", nil)

	host := "localhost"
	if i := strings.LastIndexByte(from, '@'); i >= 0 && i < len(from)-1 {
		host = from[i+1:]
	}
	h.Set("Message-ID", fmt.Sprintf("<%s@%s>", uuid.New().String(), host))

	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create message writer: %w", err)
	}

	var textHeader mail.InlineHeader
	textHeader.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	textPart, err := mw.CreateSingleInline(textHeader)
	if err != nil {
		mw.Close()
		return nil, fmt.Errorf("failed to create text part: %w", err)
	}
	if _, err := textPart.Write([]byte(body)); err != nil {
		textPart.Close()
		mw.Close()
		return nil, fmt.Errorf("failed to write body: %w", err)
	}
	if err := textPart.Close(); err != nil {
		mw.Close()
		return nil, fmt.Errorf("failed to close text part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish message: %w", err)
	}

	return buf.Bytes(), nil
}
