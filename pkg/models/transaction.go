package models

import (
	"database/sql"
	"time"
)

// Transaction kinds as reported by the extraction service.
const (
	TypeDebit    = "debito"
	TypeCredit   = "credito"
	TypeTransfer = "transferencia"
	TypeUnknown  = "desconocido"
)

// DefaultCategory is the suggested category when extraction learned nothing.
const DefaultCategory = "sin categoría"

// Transaction is a bank movement extracted from a notification email.
// Description stays NULL until the owner replies to the Telegram
// notification; at that point Category is overwritten as well.
type Transaction struct {
	ID          int64          `db:"id"`
	Date        time.Time      `db:"date"` // UTC
	Amount      float64        `db:"amount"`
	Merchant    sql.NullString `db:"merchant"`
	Type        string         `db:"type"`
	Description sql.NullString `db:"description"`
	Category    sql.NullString `db:"category"`
	RawEmailID  string         `db:"raw_email_id"` // Message-ID or synthesized hash; UNIQUE, the dedup key
	CreatedAt   time.Time      `db:"created_at"`
	UserID      int64          `db:"user_id"`
}

// Completed reports whether the owner already supplied a description.
func (t *Transaction) Completed() bool {
	return t.Description.Valid && t.Description.String != ""
}
