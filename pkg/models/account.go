package models

import "time"

// DefaultWatermark is the historical floor used for last_checked when an
// account has never been polled.
var DefaultWatermark = time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)

// Account represents a monitored bank mailbox
type Account struct {
	ID           int64     `db:"id"`
	IMAPHost     string    `db:"imap_host"`     // host:port, e.g. outlook.office365.com:993
	IMAPUser     string    `db:"imap_user"`     // Encrypted
	IMAPPassword string    `db:"imap_password"` // Encrypted
	Enabled      bool      `db:"enabled"`
	LastChecked  time.Time `db:"last_checked"` // Watermark: newest message date already ingested (UTC)
	CreatedAt    time.Time `db:"created_at"`
}
