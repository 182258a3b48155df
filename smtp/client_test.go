package smtp

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
)

// --- MockConn ---

type MockConn struct {
	StartTLSErr error
	AuthErr     error
	MailErr     error
	RcptErr     error
	DataErr     error
	QuitErr     error

	Calls      []string
	TLSConfig  *tls.Config
	LastAuth   smtp.Auth
	LastFrom   string
	LastRcpt   string
	Sent       bytes.Buffer
	CloseCalls int
}

type dataWriter struct{ m *MockConn }

func (w dataWriter) Write(p []byte) (int, error) { return w.m.Sent.Write(p) }
func (w dataWriter) Close() error { w.m.Calls = append(w.m.Calls, "DataClose"); return nil }

func (m *MockConn) StartTLS(config *tls.Config) error {
	m.Calls = append(m.Calls, "StartTLS")
	m.TLSConfig = config
	return m.StartTLSErr
}

func (m *MockConn) Auth(a smtp.Auth) error {
	m.Calls = append(m.Calls, "Auth")
	m.LastAuth = a
	return m.AuthErr
}

func (m *MockConn) Mail(from string) error {
	m.Calls = append(m.Calls, "Mail")
	m.LastFrom = from
	return m.MailErr
}

func (m *MockConn) Rcpt(to string) error {
	m.Calls = append(m.Calls, "Rcpt")
	m.LastRcpt = to
	return m.RcptErr
}

func (m *MockConn) Data() (io.WriteCloser, error) {
	m.Calls = append(m.Calls, "Data")
	if m.DataErr != nil {
		return nil, m.DataErr
	}
	return dataWriter{m}, nil
}

func (m *MockConn) Quit() error {
	m.Calls = append(m.Calls, "Quit")
	return m.QuitErr
}

func (m *MockConn) Close() error {
	m.CloseCalls++
	return nil
}

// --- Helpers ---

func newTestClient(conn *MockConn, dialErr error, gotAddr *string) *Client {
	c := NewClientWithDialer(func(ctx context.Context, host, addr string) (Conn, error) {
		if gotAddr != nil {
			*gotAddr = addr
		}
		if dialErr != nil {
			return nil, dialErr
		}
		return conn, nil
	})
	c.now = func() time.Time { return time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC) }
	return c
}

func testServer() Server {
	return Server{
		Host:     "smtp.example.com",
		Port:     "587",
		Username: "alice@example.com",
		Password: "app-password",
	}
}

// --- SendEmail tests ---

func TestSendEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		conn := &MockConn{}
		var addr string
		c := newTestClient(conn, nil, &addr)

		err := c.SendEmail(ctx, testServer(), "bob@example.com", "Hello", "Body text")
		if err != nil {
			t.Fatalf("error = %v", err)
		}

		if addr != "smtp.example.com:587" {
			t.Errorf("addr = %q", addr)
		}
		want := []string{"StartTLS", "Auth", "Mail", "Rcpt", "Data", "DataClose", "Quit"}
		if strings.Join(conn.Calls, ",") != strings.Join(want, ",") {
			t.Errorf("calls = %v, want %v", conn.Calls, want)
		}
		if conn.TLSConfig == nil || conn.TLSConfig.ServerName != "smtp.example.com" {
			t.Errorf("TLS config = %+v", conn.TLSConfig)
		}
		if conn.LastFrom != "alice@example.com" {
			t.Errorf("from = %q", conn.LastFrom)
		}
		if conn.LastRcpt != "bob@example.com" {
			t.Errorf("rcpt = %q", conn.LastRcpt)
		}
		if conn.CloseCalls != 1 {
			t.Errorf("close calls = %d, want 1", conn.CloseCalls)
		}
	})

	t.Run("dial failure", func(t *testing.T) {
		c := newTestClient(nil, errors.New("connection refused"), nil)

		err := c.SendEmail(ctx, testServer(), "bob@example.com", "Hello", "Body")
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), "connection refused") {
			t.Errorf("error = %v", err)
		}
	})

	failures := []struct {
		name     string
		conn     *MockConn
		contains string
	}{
		{name: "starttls failure", conn: &MockConn{StartTLSErr: errors.New("tls unsupported")}, contains: "tls unsupported"},
		{name: "auth failure", conn: &MockConn{AuthErr: errors.New("535 bad credentials")}, contains: "535 bad credentials"},
		{name: "mail failure", conn: &MockConn{MailErr: errors.New("sender rejected")}, contains: "sender rejected"},
		{name: "rcpt failure", conn: &MockConn{RcptErr: errors.New("550 no such user")}, contains: "550 no such user"},
		{name: "data failure", conn: &MockConn{DataErr: errors.New("554 rejected")}, contains: "554 rejected"},
		{name: "quit failure", conn: &MockConn{QuitErr: errors.New("broken pipe")}, contains: "broken pipe"},
	}

	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(tt.conn, nil, nil)

			err := c.SendEmail(ctx, testServer(), "bob@example.com", "Hello", "Body")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("error = %v, want containing %q", err, tt.contains)
			}
			if tt.conn.CloseCalls != 1 {
				t.Errorf("close calls = %d, want 1", tt.conn.CloseCalls)
			}
		})
	}
}

func TestSendEmailMessage(t *testing.T) {
	conn := &MockConn{}
	c := newTestClient(conn, nil, nil)

	if err := c.SendEmail(context.Background(), testServer(), "bob@example.com", "Quarterly report", "Numbers attached inline."); err != nil {
		t.Fatalf("error = %v", err)
	}

	mr, err := mail.CreateReader(bytes.NewReader(conn.Sent.Bytes()))
	if err != nil {
		t.Fatalf("failed to parse sent message: %v", err)
	}

	mediaType, _, err := mr.Header.ContentType()
	if err != nil || mediaType != "multipart/mixed" {
		t.Errorf("content type = %q (%v), want multipart/mixed", mediaType, err)
	}
	if subject, _ := mr.Header.Subject(); subject != "Quarterly report" {
		t.Errorf("subject = %q", subject)
	}
	from, _ := mr.Header.AddressList("From")
	if len(from) != 1 || from[0].Address != "alice@example.com" {
		t.Errorf("from = %v", from)
	}
	to, _ := mr.Header.AddressList("To")
	if len(to) != 1 || to[0].Address != "bob@example.com" {
		t.Errorf("to = %v", to)
	}
	if id := mr.Header.Get("Message-Id"); !strings.HasSuffix(id, "@example.com>") {
		t.Errorf("message id = %q", id)
	}

	var parts []string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("NextPart() error = %v", err)
		}
		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			t.Fatalf("part header = %T, want inline", p.Header)
		}
		ct, _, _ := h.ContentType()
		body, _ := io.ReadAll(p.Body)
		parts = append(parts, ct+":"+string(body))
	}

	if len(parts) != 1 || parts[0] != "text/plain:Numbers attached inline." {
		t.Errorf("parts = %q", parts)
	}
}
