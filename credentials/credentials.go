package credentials

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// EncryptedPrefix marks a password whose remainder is ciphertext.
const EncryptedPrefix = "encrypted:"

var (
	// ErrInvalidCredentials is returned when a required bundle field is missing.
	ErrInvalidCredentials = errors.New("Invalid email credentials")

	// ErrNoDecrypter is returned when an encrypted password is resolved without a decrypter.
	ErrNoDecrypter = errors.New("no decrypter configured for encrypted password")
)

// Bundle is the set of account credentials supplied with each call.
// It is never stored beyond the call that received it.
type Bundle struct {
	EmailAddress string `json:"email_address"`
	SMTPServer   string `json:"smtp_server"`
	SMTPPort     string `json:"smtp_port"`
	IMAPServer   string `json:"imap_server"`
	IMAPPort     string `json:"imap_port"`
	Password     string `json:"password"`
}

// Decrypter turns stored ciphertext back into a plaintext password.
type Decrypter interface {
	Decrypt(ciphertext string) (string, error)
}

// DecrypterFunc adapts a plain function to the Decrypter interface.
type DecrypterFunc func(ciphertext string) (string, error)

// Decrypt calls f(ciphertext).
func (f DecrypterFunc) Decrypt(ciphertext string) (string, error) {
	return f(ciphertext)
}

// Valid reports whether all five connection fields are present.
// Values are not checked for host or port syntax.
func (b Bundle) Valid() bool {
	return b.EmailAddress != "" &&
		b.SMTPServer != "" &&
		b.SMTPPort != "" &&
		b.IMAPServer != "" &&
		b.IMAPPort != ""
}

// Validate returns ErrInvalidCredentials unless b is Valid.
func Validate(b Bundle) error {
	if !b.Valid() {
		return ErrInvalidCredentials
	}
	return nil
}

// ResolvePassword returns the password to authenticate with. A password
// starting with EncryptedPrefix has the prefix stripped and the rest passed
// to d; any other password is returned unchanged.
func ResolvePassword(b Bundle, d Decrypter) (string, error) {
	if !strings.HasPrefix(b.Password, EncryptedPrefix) {
		return b.Password, nil
	}
	if d == nil {
		return "", ErrNoDecrypter
	}
	plain, err := d.Decrypt(strings.TrimPrefix(b.Password, EncryptedPrefix))
	if err != nil {
		return "", fmt.Errorf("failed to decrypt password: %w", err)
	}
	return plain, nil
}

// FromMap builds a Bundle from loosely typed arguments such as decoded JSON.
// Missing keys leave the field empty; ports may be numbers or strings.
func FromMap(args map[string]interface{}) Bundle {
	return Bundle{
		EmailAddress: stringField(args, "email_address"),
		SMTPServer:   stringField(args, "smtp_server"),
		SMTPPort:     stringField(args, "smtp_port"),
		IMAPServer:   stringField(args, "imap_server"),
		IMAPPort:     stringField(args, "imap_port"),
		Password:     stringField(args, "password"),
	}
}

func stringField(args map[string]interface{}, key string) string {
	switch v := args[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}
