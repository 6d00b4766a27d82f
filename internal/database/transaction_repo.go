package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/tsunayoshi21/catitaycris-expenses-app/pkg/models"
)

// CreateTransaction inserts a pending transaction. The UNIQUE constraint on
// raw_email_id is the real dedup guarantee: a colliding insert fails with
// ErrAlreadyExists and never overwrites the existing row.
func (db *DB) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	query := `
		INSERT INTO transactions (date, amount, merchant, type, description, category, raw_email_id, created_at, user_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx, query,
		tx.Date.UTC(),
		tx.Amount,
		tx.Merchant,
		tx.Type,
		tx.Description,
		tx.Category,
		tx.RawEmailID,
		now,
		tx.UserID,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	tx.ID = id
	tx.CreatedAt = now
	return nil
}

// TransactionExistsByEmailID is the dedup fast path. The UNIQUE constraint
// still backs it up under concurrent inserts.
func (db *DB) TransactionExistsByEmailID(ctx context.Context, emailID string) (bool, error) {
	var n int
	query := `SELECT COUNT(1) FROM transactions WHERE raw_email_id = ?`
	if err := db.GetContext(ctx, &n, query, emailID); err != nil {
		return false, fmt.Errorf("failed to check duplicate: %w", err)
	}
	return n > 0, nil
}

// GetTransactionByID returns a transaction by ID
func (db *DB) GetTransactionByID(ctx context.Context, id int64) (*models.Transaction, error) {
	var tx models.Transaction
	query := `SELECT * FROM transactions WHERE id = ?`
	err := db.GetContext(ctx, &tx, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &tx, nil
}

// CompleteTransaction sets the human description and final category on a
// transaction, but only if it belongs to the user registered with chatID.
// Ownership is enforced in SQL, not by the caller. A reply to an already
// completed transaction overwrites both fields: last reply wins.
func (db *DB) CompleteTransaction(ctx context.Context, txID int64, chatID, description, category string) (*models.Transaction, error) {
	query := `
		UPDATE transactions SET description = ?, category = ?
		WHERE id = ? AND user_id IN (SELECT id FROM users WHERE chat_id = ?)
	`
	result, err := db.ExecContext(ctx, query, description, category, txID, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to complete transaction: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return db.GetTransactionByID(ctx, txID)
}
