package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"

	"github.com/tsunayoshi21/catitaycris-expenses-app/internal/database"
)

const (
	msgWelcome = "👋 Hola! Este bot te avisa cuando llega una transacción nueva.\n" +
		"Responde al mensaje de la transacción con una descripción para clasificarla."
	msgNotRegistered = "Tu cuenta no está registrada. Contacta al administrador."
	msgReplyNeeded   = "Para completar una transacción, responde directamente al mensaje de la notificación. 💬"
	msgNoToken       = "No pude identificar la transacción en ese mensaje. Responde a la notificación original."
	msgTxNotFound    = "No encontré la transacción #%d o no te pertenece."
)

func (b *Bot) handleStart(ctx context.Context, _ *bot.Bot, update *tgmodels.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	_, err := b.db.GetUserByChatID(ctx, strconv.FormatInt(chatID, 10))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			b.reply(ctx, chatID, msgNotRegistered)
			return
		}
		b.logger.Error("failed to look up user", "chat_id", chatID, "error", err)
		return
	}

	b.reply(ctx, chatID, msgWelcome)
}

func (b *Bot) handleMessage(ctx context.Context, _ *bot.Bot, update *tgmodels.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}
	if strings.HasPrefix(update.Message.Text, "/") {
		return
	}

	chatID := update.Message.Chat.ID
	chatKey := strconv.FormatInt(chatID, 10)

	if _, err := b.db.GetUserByChatID(ctx, chatKey); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			b.reply(ctx, chatID, msgNotRegistered)
		} else {
			b.logger.Error("failed to look up user", "chat_id", chatID, "error", err)
		}
		return
	}

	b.reply(ctx, chatID, b.routeReply(ctx, chatKey, update.Message))
}

// routeReply gates correlation on the message being a reply to something the
// bot itself sent. A "#1" in a quoted human message must never complete a
// transaction.
func (b *Bot) routeReply(ctx context.Context, chatKey string, msg *tgmodels.Message) string {
	replied := msg.ReplyToMessage
	if replied == nil || replied.Text == "" {
		return msgReplyNeeded
	}
	if replied.From == nil || !replied.From.IsBot {
		return msgReplyNeeded
	}
	return b.resolveReply(ctx, chatKey, replied.Text, msg.Text)
}

// resolveReply matches a reply against the notification it answers and
// records the description. The replied-to text must carry the #id token;
// replies to anything else are rejected rather than guessed at.
func (b *Bot) resolveReply(ctx context.Context, chatID, repliedText, replyText string) string {
	txID, ok := ExtractToken(repliedText)
	if !ok {
		return msgNoToken
	}

	description := strings.TrimSpace(replyText)
	category := b.extractor.Categorize(ctx, description)

	tx, err := b.db.CompleteTransaction(ctx, txID, chatID, description, category)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Sprintf(msgTxNotFound, txID)
		}
		b.logger.Error("failed to complete transaction", "transaction_id", txID, "error", err)
		return "Ocurrió un error guardando la descripción. Intenta de nuevo."
	}

	b.logger.Info("transaction completed",
		"transaction_id", tx.ID,
		"category", category,
	)
	return fmt.Sprintf("✅ Transacción #%d guardada: %s (%s)", tx.ID, description, category)
}
