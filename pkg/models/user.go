package models

import (
	"database/sql"
	"time"
)

// User represents a dashboard user tied to an account
type User struct {
	ID           int64          `db:"id"`
	Username     string         `db:"username"`
	PasswordHash []byte         `db:"password_hash"`
	AccountID    int64          `db:"account_id"`
	ChatID       sql.NullString `db:"chat_id"` // Telegram chat ID; users without one are never notified
	CreatedAt    time.Time      `db:"created_at"`
}

// CanNotify reports whether the user has a chat identity to receive
// notifications on.
func (u *User) CanNotify() bool {
	return u.ChatID.Valid && u.ChatID.String != ""
}
