package telegram

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"

	"github.com/tsunayoshi21/catitaycris-expenses-app/internal/database"
	"github.com/tsunayoshi21/catitaycris-expenses-app/internal/extract"
)

// Bot notifies users about pending transactions and collects their
// descriptions via replies.
type Bot struct {
	bot       *bot.Bot
	db        *database.DB
	extractor extract.Extractor
	logger    *slog.Logger
}

// BotDeps dependencies for creating a bot
type BotDeps struct {
	Token     string
	DB        *database.DB
	Extractor extract.Extractor
	Logger    *slog.Logger
}

// NewBot creates a new Telegram bot
func NewBot(deps BotDeps) (*Bot, error) {
	b := &Bot{
		db:        deps.DB,
		extractor: deps.Extractor,
		logger:    deps.Logger.With("component", "telegram_bot"),
	}

	opts := []bot.Option{
		bot.WithDefaultHandler(b.handleMessage),
	}

	tgBot, err := bot.New(deps.Token, opts...)
	if err != nil {
		return nil, err
	}

	b.bot = tgBot
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, b.handleStart)

	return b, nil
}

// Start starts the bot event loop; blocks until the context is cancelled
func (b *Bot) Start(ctx context.Context) {
	b.logger.Info("starting telegram bot")
	b.bot.Start(ctx)
}

// Send delivers a notification, implementing notify.Sender. ForceReply
// nudges the client into the reply flow the correlator depends on.
func (b *Bot) Send(ctx context.Context, chatID, text string, transactionID int64) error {
	_, err := b.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
		ReplyMarkup: &tgmodels.ForceReply{
			ForceReply:            true,
			Selective:             true,
			InputFieldPlaceholder: fmt.Sprintf("Descripción para #%d", transactionID),
		},
	})
	return err
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	_, err := b.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		b.logger.Error("failed to send reply", "chat_id", chatID, "error", err)
	}
}
