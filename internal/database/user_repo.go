package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tsunayoshi21/catitaycris-expenses-app/pkg/models"
)

// CreateUser creates a new user
func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (username, password_hash, account_id, chat_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx, query,
		user.Username,
		user.PasswordHash,
		user.AccountID,
		user.ChatID,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	user.ID = id
	user.CreatedAt = now
	return nil
}

// GetUserByChatID returns the user registered with a Telegram chat ID
func (db *DB) GetUserByChatID(ctx context.Context, chatID string) (*models.User, error) {
	var user models.User
	query := `SELECT * FROM users WHERE chat_id = ?`
	err := db.GetContext(ctx, &user, query, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// GetNotifyUser returns the user that should be notified about transactions
// on an account: the first user with a chat ID, else the first user at all.
func (db *DB) GetNotifyUser(ctx context.Context, accountID int64) (*models.User, error) {
	var user models.User
	query := `
		SELECT * FROM users WHERE account_id = ?
		ORDER BY CASE WHEN chat_id IS NOT NULL AND chat_id != '' THEN 0 ELSE 1 END, id
		LIMIT 1
	`
	err := db.GetContext(ctx, &user, query, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notify user: %w", err)
	}
	return &user, nil
}
