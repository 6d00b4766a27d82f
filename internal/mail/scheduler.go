package mail

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/tsunayoshi21/catitaycris-expenses-app/internal/database"
	"github.com/tsunayoshi21/catitaycris-expenses-app/internal/notify"
	"github.com/tsunayoshi21/catitaycris-expenses-app/pkg/models"
)

// accountPoller lets tests drive the scheduler without an IMAP server
type accountPoller interface {
	Poll(ctx context.Context, account *models.Account) ([]Draft, error)
}

// transactionNotifier is the dispatcher side the scheduler needs
type transactionNotifier interface {
	Enqueue(env notify.Envelope) bool
}

// Scheduler drives poll cycles across all enabled accounts at a fixed
// interval, one account at a time. A failure in one account never affects
// the others, and nothing here is fatal to the process.
type Scheduler struct {
	db       *database.DB
	poller   accountPoller
	notifier transactionNotifier
	interval time.Duration
	logger   *slog.Logger
}

// NewScheduler creates a new poll scheduler
func NewScheduler(db *database.DB, poller accountPoller, notifier transactionNotifier, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		db:       db,
		poller:   poller,
		notifier: notifier,
		interval: interval,
		logger:   logger.With("component", "scheduler"),
	}
}

// Run loops until the context is cancelled, sleeping the configured
// interval between rounds.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("starting email poller", "interval", s.interval)
	for {
		if n := s.PollOnce(ctx); n > 0 {
			s.logger.Info("poll round ingested transactions", "count", n)
		}
		select {
		case <-ctx.Done():
			s.logger.Info("poll scheduler stopped")
			return
		case <-time.After(s.interval):
		}
	}
}

// PollOnce runs one round over all enabled accounts and returns how many
// transactions were created.
func (s *Scheduler) PollOnce(ctx context.Context) int {
	accounts, err := s.db.GetEnabledAccounts(ctx)
	if err != nil {
		s.logger.Error("failed to list enabled accounts", "error", err)
		return 0
	}
	if len(accounts) == 0 {
		s.logger.Warn("no enabled accounts")
		return 0
	}

	total := 0
	for _, account := range accounts {
		total += s.pollAccount(ctx, account)
	}
	return total
}

func (s *Scheduler) pollAccount(ctx context.Context, account *models.Account) (created int) {
	logger := s.logger.With("account_id", account.ID)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic during poll cycle", "panic", r)
		}
	}()

	drafts, err := s.poller.Poll(ctx, account)
	if err != nil {
		logger.Error("poll cycle failed", "error", err)
		return 0
	}

	for _, draft := range drafts {
		user, err := s.db.GetNotifyUser(ctx, account.ID)
		if err != nil {
			logger.Warn("account has no users, dropping transaction", "email_id", draft.EmailID)
			continue
		}

		tx := draftToTransaction(draft, user.ID)
		if err := s.db.CreateTransaction(ctx, tx); err != nil {
			if errors.Is(err, database.ErrAlreadyExists) {
				logger.Debug("transaction already ingested", "email_id", draft.EmailID)
			} else {
				logger.Error("failed to persist transaction", "email_id", draft.EmailID, "error", err)
			}
			continue
		}
		created++

		if !user.CanNotify() {
			logger.Warn("user has no chat id, skipping notification",
				"user_id", user.ID, "transaction_id", tx.ID)
			continue
		}
		s.notifier.Enqueue(notify.Envelope{
			ChatID:        user.ChatID.String,
			Text:          notify.RenderTransaction(tx),
			TransactionID: tx.ID,
		})
	}

	logger.Info("poll cycle finished", "new_transactions", created)
	return created
}

func draftToTransaction(draft Draft, userID int64) *models.Transaction {
	tx := &models.Transaction{
		Date:       draft.Date,
		Amount:     draft.Amount,
		Type:       draft.Type,
		Category:   sql.NullString{String: draft.SuggestedCategory, Valid: draft.SuggestedCategory != ""},
		RawEmailID: draft.EmailID,
		UserID:     userID,
	}
	if draft.Merchant != "" {
		tx.Merchant = sql.NullString{String: draft.Merchant, Valid: true}
	}
	return tx
}
