package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tsunayoshi21/catitaycris-expenses-app/pkg/models"
)

// CreateAccount creates a new monitored mailbox account
func (db *DB) CreateAccount(ctx context.Context, account *models.Account) error {
	if account.LastChecked.IsZero() {
		account.LastChecked = models.DefaultWatermark
	}

	query := `
		INSERT INTO accounts (imap_host, imap_user, imap_password, enabled, last_checked, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx, query,
		account.IMAPHost,
		account.IMAPUser,
		account.IMAPPassword,
		account.Enabled,
		account.LastChecked.UTC(),
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	account.ID = id
	account.CreatedAt = now
	return nil
}

// GetAccountByID returns an account by ID
func (db *DB) GetAccountByID(ctx context.Context, id int64) (*models.Account, error) {
	var account models.Account
	query := `SELECT * FROM accounts WHERE id = ?`
	err := db.GetContext(ctx, &account, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

// GetEnabledAccounts returns all accounts eligible for polling
func (db *DB) GetEnabledAccounts(ctx context.Context) ([]*models.Account, error) {
	var accounts []*models.Account
	query := `SELECT * FROM accounts WHERE enabled = true ORDER BY id`
	err := db.SelectContext(ctx, &accounts, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get enabled accounts: %w", err)
	}
	return accounts, nil
}

// GetAllAccounts returns every account, enabled or not
func (db *DB) GetAllAccounts(ctx context.Context) ([]*models.Account, error) {
	var accounts []*models.Account
	query := `SELECT * FROM accounts ORDER BY id`
	err := db.SelectContext(ctx, &accounts, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get accounts: %w", err)
	}
	return accounts, nil
}

// AdvanceWatermark moves last_checked forward for an account. The guard in
// the WHERE clause keeps the watermark monotonic: a stale or concurrent
// update can never move it backwards. Returns whether the row changed.
func (db *DB) AdvanceWatermark(ctx context.Context, id int64, seen time.Time) (bool, error) {
	query := `UPDATE accounts SET last_checked = ? WHERE id = ? AND last_checked < ?`
	seen = seen.UTC()
	result, err := db.ExecContext(ctx, query, seen, id, seen)
	if err != nil {
		return false, fmt.Errorf("failed to advance watermark: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// ResetWatermark rewinds last_checked unconditionally. Operator tool only;
// the pipeline itself never moves the watermark backwards.
func (db *DB) ResetWatermark(ctx context.Context, id int64, to time.Time) error {
	query := `UPDATE accounts SET last_checked = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, query, to.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to reset watermark: %w", err)
	}
	return nil
}

// SetAccountEnabled sets the enabled flag of an account
func (db *DB) SetAccountEnabled(ctx context.Context, id int64, enabled bool) error {
	query := `UPDATE accounts SET enabled = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, query, enabled, id)
	if err != nil {
		return fmt.Errorf("failed to set account enabled: %w", err)
	}
	return nil
}
