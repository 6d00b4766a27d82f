package notify

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsunayoshi21/catitaycris-expenses-app/pkg/models"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []Envelope
	err  error
}

func (s *recordingSender) Send(ctx context.Context, chatID, text string, transactionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, Envelope{ChatID: chatID, Text: text, TransactionID: transactionID})
	return nil
}

func (s *recordingSender) delivered() []Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Envelope(nil), s.sent...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatcherDeliversWithInstructions(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, 4, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	ok := d.Enqueue(Envelope{ChatID: "123", Text: "💳 Nueva transacción detectada (#42):", TransactionID: 42})
	assert.True(t, ok)

	require.Eventually(t, func() bool { return len(sender.delivered()) == 1 }, 2*time.Second, 10*time.Millisecond)

	got := sender.delivered()[0]
	assert.Equal(t, "123", got.ChatID)
	assert.Equal(t, int64(42), got.TransactionID)
	assert.Contains(t, got.Text, "#42")
	assert.Contains(t, got.Text, "Responde a ESTE mensaje")
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, 1, discardLogger())
	d.timeout = 20 * time.Millisecond

	// No worker running: the second enqueue must time out, not block
	assert.True(t, d.Enqueue(Envelope{ChatID: "1", TransactionID: 1}))
	assert.False(t, d.Enqueue(Envelope{ChatID: "1", TransactionID: 2}))
}

func TestDispatcherDeliveryFailureIsNotRetried(t *testing.T) {
	sender := &recordingSender{err: fmt.Errorf("chat unreachable")}
	d := NewDispatcher(sender, 4, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	d.Enqueue(Envelope{ChatID: "9", TransactionID: 7})

	// Give the worker time to attempt delivery once
	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, sender.delivered())
	assert.Empty(t, d.queue)
}

func TestRenderTransaction(t *testing.T) {
	tx := &models.Transaction{
		ID:       42,
		Date:     time.Date(2025, 8, 5, 14, 30, 0, 0, time.UTC),
		Amount:   15990.0,
		Merchant: sql.NullString{String: "Comercio X", Valid: true},
		Type:     models.TypeDebit,
		Category: sql.NullString{String: "comida", Valid: true},
	}

	text := RenderTransaction(tx)
	assert.Contains(t, text, "#42")
	assert.Contains(t, text, "05/08/2025 14:30")
	assert.Contains(t, text, "$15,990")
	assert.Contains(t, text, "Comercio X")
	assert.Contains(t, text, models.TypeDebit)
	assert.Contains(t, text, "comida")
}

func TestRenderTransactionDefaults(t *testing.T) {
	tx := &models.Transaction{
		ID:     7,
		Date:   time.Date(2025, 8, 5, 0, 0, 0, 0, time.UTC),
		Type:   models.TypeUnknown,
		Amount: 0,
	}

	text := RenderTransaction(tx)
	assert.Contains(t, text, "No especificado")
	assert.Contains(t, text, models.DefaultCategory)
}
