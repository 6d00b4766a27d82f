package telegram

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tgmodels "github.com/go-telegram/bot/models"

	"github.com/tsunayoshi21/catitaycris-expenses-app/internal/database"
	"github.com/tsunayoshi21/catitaycris-expenses-app/internal/extract"
	"github.com/tsunayoshi21/catitaycris-expenses-app/pkg/models"
)

type stubExtractor struct {
	category string
}

func (s *stubExtractor) ParseEmail(context.Context, string, string) extract.ParsedEmail {
	panic("not used")
}

func (s *stubExtractor) Categorize(_ context.Context, _ string) string {
	return s.category
}

func newTestBot(t *testing.T) (*Bot, *database.DB) {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))

	b := &Bot{
		db:        db,
		extractor: &stubExtractor{category: "comida"},
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return b, db
}

func seedPending(t *testing.T, db *database.DB, chatID string) *models.Transaction {
	t.Helper()
	ctx := context.Background()

	account := &models.Account{IMAPHost: "imap.example.com:993", IMAPUser: "enc", IMAPPassword: "enc", Enabled: true}
	require.NoError(t, db.CreateAccount(ctx, account))

	user := &models.User{
		Username:     "catita",
		PasswordHash: []byte("hash"),
		AccountID:    account.ID,
		ChatID:       sql.NullString{String: chatID, Valid: chatID != ""},
	}
	require.NoError(t, db.CreateUser(ctx, user))

	tx := &models.Transaction{
		Date:       time.Date(2026, 8, 29, 13, 0, 0, 0, time.UTC),
		Amount:     15990,
		Merchant:   sql.NullString{String: "Comercio X", Valid: true},
		Type:       models.TypeDebit,
		Category:   sql.NullString{String: models.DefaultCategory, Valid: true},
		RawEmailID: "<msg-1@bank.example>",
		UserID:     user.ID,
	}
	require.NoError(t, db.CreateTransaction(ctx, tx))
	return tx
}

func TestResolveReplyCompletesTransaction(t *testing.T) {
	b, db := newTestBot(t)
	tx := seedPending(t, db, "1000")

	replied := fmt.Sprintf("💳 Nueva transacción detectada (#%d):\n📅 Fecha: 29/08/2026 13:00", tx.ID)
	got := b.resolveReply(context.Background(), "1000", replied, "Almuerzo con amigos")
	assert.Contains(t, got, fmt.Sprintf("✅ Transacción #%d guardada", tx.ID))
	assert.Contains(t, got, "Almuerzo con amigos")
	assert.Contains(t, got, "comida")

	stored, err := db.GetTransactionByID(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, "Almuerzo con amigos", stored.Description.String)
	assert.Equal(t, "comida", stored.Category.String)
}

func TestResolveReplyNoToken(t *testing.T) {
	b, db := newTestBot(t)
	seedPending(t, db, "1000")

	got := b.resolveReply(context.Background(), "1000", "un mensaje cualquiera", "Almuerzo")
	assert.Equal(t, msgNoToken, got)
}

func TestResolveReplyWrongOwner(t *testing.T) {
	b, db := newTestBot(t)
	tx := seedPending(t, db, "1000")

	got := b.resolveReply(context.Background(), "9999",
		fmt.Sprintf("💳 Nueva transacción detectada (#%d):", tx.ID), "Almuerzo")
	assert.Contains(t, got, fmt.Sprintf("No encontré la transacción #%d", tx.ID))

	stored, err := db.GetTransactionByID(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.False(t, stored.Completed())
}

func TestResolveReplyUnknownTransaction(t *testing.T) {
	b, db := newTestBot(t)
	seedPending(t, db, "1000")

	got := b.resolveReply(context.Background(), "1000",
		"💳 Nueva transacción detectada (#777):", "Almuerzo")
	assert.Contains(t, got, "No encontré la transacción #777")
}

func TestRouteReplyRequiresBotAuthoredMessage(t *testing.T) {
	b, db := newTestBot(t)
	tx := seedPending(t, db, "1000")
	ctx := context.Background()

	quoted := fmt.Sprintf("oye te debo lo del #%d", tx.ID)

	t.Run("reply to a human message is rejected", func(t *testing.T) {
		msg := &tgmodels.Message{
			Text: "ok lo pago mañana",
			ReplyToMessage: &tgmodels.Message{
				Text: quoted,
				From: &tgmodels.User{IsBot: false},
			},
		}
		assert.Equal(t, msgReplyNeeded, b.routeReply(ctx, "1000", msg))

		stored, err := db.GetTransactionByID(ctx, tx.ID)
		require.NoError(t, err)
		assert.False(t, stored.Completed())
	})

	t.Run("reply without sender info is rejected", func(t *testing.T) {
		msg := &tgmodels.Message{
			Text:           "Almuerzo",
			ReplyToMessage: &tgmodels.Message{Text: quoted},
		}
		assert.Equal(t, msgReplyNeeded, b.routeReply(ctx, "1000", msg))
	})

	t.Run("not a reply at all is rejected", func(t *testing.T) {
		msg := &tgmodels.Message{Text: "Almuerzo"}
		assert.Equal(t, msgReplyNeeded, b.routeReply(ctx, "1000", msg))
	})

	t.Run("reply to the bot notification completes", func(t *testing.T) {
		msg := &tgmodels.Message{
			Text: "Almuerzo con amigos",
			ReplyToMessage: &tgmodels.Message{
				Text: fmt.Sprintf("💳 Nueva transacción detectada (#%d):", tx.ID),
				From: &tgmodels.User{IsBot: true},
			},
		}
		got := b.routeReply(ctx, "1000", msg)
		assert.Contains(t, got, "guardada")

		stored, err := db.GetTransactionByID(ctx, tx.ID)
		require.NoError(t, err)
		assert.True(t, stored.Completed())
	})
}

func TestResolveReplyLastReplyWins(t *testing.T) {
	b, db := newTestBot(t)
	tx := seedPending(t, db, "1000")

	replied := fmt.Sprintf("💳 Nueva transacción detectada (#%d):", tx.ID)
	_ = b.resolveReply(context.Background(), "1000", replied, "Almuerzo")
	got := b.resolveReply(context.Background(), "1000", replied, "Cena de cumpleaños")
	assert.Contains(t, got, "Cena de cumpleaños")

	stored, err := db.GetTransactionByID(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cena de cumpleaños", stored.Description.String)
}
