package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const defaultToolTimeout = 60 * time.Second

// Config holds the application configuration. Mail account credentials are
// not part of it; they arrive with each tool call.
type Config struct {
	// SecretKey decrypts "encrypted:" passwords. Empty when unset.
	SecretKey string
	// UseKeyring reads SecretKey from the OS keyring when it is not set directly.
	UseKeyring bool
	// KeyringDir holds the encrypted-file keyring fallback.
	KeyringDir string
	// ToolTimeout bounds each tool call.
	ToolTimeout time.Duration
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		SecretKey:   os.Getenv("MAIL_SECRET_KEY"),
		KeyringDir:  os.Getenv("MAIL_KEYRING_DIR"),
		ToolTimeout: defaultToolTimeout,
	}

	if v := os.Getenv("MAIL_SECRET_KEYRING"); v != "" {
		useKeyring, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("MAIL_SECRET_KEYRING must be a boolean, got %q", v)
		}
		cfg.UseKeyring = useKeyring
	}

	if cfg.KeyringDir == "" {
		cfg.KeyringDir = "~/.config/mcp-dynamic-email/keyring"
	}

	if v := os.Getenv("MAIL_TOOL_TIMEOUT"); v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("MAIL_TOOL_TIMEOUT must be a duration such as 30s, got %q", v)
		}
		if timeout <= 0 {
			return nil, fmt.Errorf("MAIL_TOOL_TIMEOUT must be positive, got %q", v)
		}
		cfg.ToolTimeout = timeout
	}

	return cfg, nil
}
