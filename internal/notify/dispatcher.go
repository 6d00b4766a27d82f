// Package notify decouples the poller (producer) from chat delivery
// (consumer) with a bounded channel. Envelopes are in-memory only and lost
// on crash; the transaction rows persist regardless, so delivery is
// deliberately at-most-once.
package notify

import (
	"context"
	"log/slog"
	"time"
)

// Envelope is one pending chat notification
type Envelope struct {
	ChatID        string
	Text          string
	TransactionID int64 // correlation token embedded in the message
}

// Sender delivers a rendered notification to a chat identity
type Sender interface {
	Send(ctx context.Context, chatID, text string, transactionID int64) error
}

const (
	defaultQueueSize  = 64
	enqueueTimeout    = 1 * time.Second
	deliveryTimeout   = 10 * time.Second
	replyInstructions = "\n\n✍️ Responde a ESTE mensaje con la descripción para la transacción #%d"
)

// Dispatcher queues notifications and drains them on a background worker
type Dispatcher struct {
	queue   chan Envelope
	sender  Sender
	timeout time.Duration
	logger  *slog.Logger
}

// NewDispatcher creates a dispatcher with the given queue capacity
// (defaulted when zero).
func NewDispatcher(sender Sender, size int, logger *slog.Logger) *Dispatcher {
	if size <= 0 {
		size = defaultQueueSize
	}
	return &Dispatcher{
		queue:   make(chan Envelope, size),
		sender:  sender,
		timeout: enqueueTimeout,
		logger:  logger.With("component", "dispatcher"),
	}
}

// Enqueue offers an envelope to the queue without ever blocking the caller
// beyond a short timeout. On a full queue the notification is dropped with
// an error log; the transaction row already exists, so nothing is lost but
// the ping.
func (d *Dispatcher) Enqueue(env Envelope) bool {
	select {
	case d.queue <- env:
		d.logger.Debug("notification queued", "chat_id", env.ChatID, "transaction_id", env.TransactionID)
		return true
	case <-time.After(d.timeout):
		d.logger.Error("notification queue full, dropping",
			"chat_id", env.ChatID, "transaction_id", env.TransactionID)
		return false
	}
}

// Run drains the queue until the context is cancelled. Delivery failures
// are logged and the envelope is not retried.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("notification worker started")
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("notification worker stopped")
			return
		case env := <-d.queue:
			d.deliver(ctx, env)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, env Envelope) {
	sendCtx, cancel := context.WithTimeout(ctx, deliveryTimeout)
	defer cancel()

	text := env.Text + renderInstructions(env.TransactionID)
	if err := d.sender.Send(sendCtx, env.ChatID, text, env.TransactionID); err != nil {
		d.logger.Error("failed to deliver notification",
			"chat_id", env.ChatID, "transaction_id", env.TransactionID, "error", err)
		return
	}
	d.logger.Info("notification delivered", "chat_id", env.ChatID, "transaction_id", env.TransactionID)
}
