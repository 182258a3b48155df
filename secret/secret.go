// Package secret decrypts stored mail passwords and locates the key used
// to do so.
package secret

import (
	"errors"
	"fmt"
	"strings"

	"github.com/99designs/keyring"
	jose "github.com/dvsekhvalnov/jose2go"
)

const (
	// ServiceName is the keyring service holding the passphrase.
	ServiceName = "mcp-dynamic-email"

	// KeyItem is the keyring item name of the passphrase.
	KeyItem = "secret-key"
)

var (
	// ErrNoKey is returned when decryption is attempted without a passphrase.
	ErrNoKey = errors.New("no decryption key configured")

	// ErrNotJWE is returned for ciphertext that is not a compact JWE.
	ErrNotJWE = errors.New("ciphertext is not a compact JWE token")
)

// JWEDecrypter decrypts compact JWE tokens produced with a shared passphrase
// (PBES2-HS256+A128KW key wrapping).
type JWEDecrypter struct {
	passphrase string
}

// NewJWEDecrypter creates a decrypter for the given passphrase.
func NewJWEDecrypter(passphrase string) *JWEDecrypter {
	return &JWEDecrypter{passphrase: passphrase}
}

// Decrypt returns the plaintext carried by token.
func (d *JWEDecrypter) Decrypt(token string) (string, error) {
	if d.passphrase == "" {
		return "", ErrNoKey
	}

	// Compact JWE has five segments; anything else (JWS, garbage) is rejected
	// before it reaches the library.
	if strings.Count(token, ".") != 4 {
		return "", ErrNotJWE
	}

	plain, _, err := jose.Decode(token, d.passphrase)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt token: %w", err)
	}
	return plain, nil
}

// Encrypt produces a token that Decrypt accepts. It is used by tooling that
// prepares stored credentials.
func (d *JWEDecrypter) Encrypt(plain string) (string, error) {
	if d.passphrase == "" {
		return "", ErrNoKey
	}
	token, err := jose.Encrypt(plain, jose.PBES2_HS256_A128KW, jose.A256GCM, d.passphrase)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt: %w", err)
	}
	return token, nil
}

// OpenKeyring opens the OS keyring for ServiceName, falling back to an
// encrypted file under dir when no native backend is available.
func OpenKeyring(dir string) (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: ServiceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  dir,
		FilePasswordFunc:         keyring.FixedStringPrompt(ServiceName + "-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// KeyFromKeyring reads the passphrase stored under item.
func KeyFromKeyring(ring keyring.Keyring, item string) (string, error) {
	it, err := ring.Get(item)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", fmt.Errorf("keyring item %q: %w", item, ErrNoKey)
		}
		return "", fmt.Errorf("getting keyring item %q: %w", item, err)
	}
	if len(it.Data) == 0 {
		return "", fmt.Errorf("keyring item %q: %w", item, ErrNoKey)
	}
	return string(it.Data), nil
}
