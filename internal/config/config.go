package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config application configuration
type Config struct {
	// Telegram
	TelegramToken string `env:"TELEGRAM_BOT_TOKEN,required"`

	// Database
	DatabasePath string `env:"DATABASE_PATH" envDefault:"./data/finanzas.db"`

	// Mailbox polling
	IMAPFolder      string        `env:"IMAP_FOLDER" envDefault:"INBOX"`
	IMAPDialTimeout time.Duration `env:"IMAP_DIAL_TIMEOUT" envDefault:"30s"`
	PollInterval    time.Duration `env:"POLL_INTERVAL" envDefault:"60s"`

	// Allow-listed bank sender patterns, comma separated
	BankSenders []string `env:"BANK_SENDERS" envSeparator:","`

	// Extraction service
	GeminiModel string `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`

	// Security
	EncryptionKey string `env:"ENCRYPTION_KEY,required"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"` // "json" or "text"
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Validate encryption key length (32 bytes for AES-256)
	if len(cfg.EncryptionKey) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes, got %d", len(cfg.EncryptionKey))
	}

	// Sender matching is case-insensitive substring, normalize once here
	senders := cfg.BankSenders[:0]
	for _, s := range cfg.BankSenders {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			senders = append(senders, s)
		}
	}
	cfg.BankSenders = senders

	return cfg, nil
}
