package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/tsunayoshi21/catitaycris-expenses-app/internal/config"
	"github.com/tsunayoshi21/catitaycris-expenses-app/internal/database"
	"github.com/tsunayoshi21/catitaycris-expenses-app/internal/extract"
	"github.com/tsunayoshi21/catitaycris-expenses-app/internal/mail"
	"github.com/tsunayoshi21/catitaycris-expenses-app/internal/notify"
	"github.com/tsunayoshi21/catitaycris-expenses-app/internal/telegram"
	"github.com/tsunayoshi21/catitaycris-expenses-app/internal/vault"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup logger
	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting expense tracker")

	// Connect to database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run migrations
	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("database migrations completed")

	// Create components
	v, err := vault.New(cfg.EncryptionKey)
	if err != nil {
		logger.Error("failed to create credential vault", "error", err)
		os.Exit(1)
	}

	extractor := extract.NewGemini(ctx, cfg.GeminiModel, logger)
	normalizer := mail.NewNormalizer(logger)
	poller := mail.NewPoller(v, db, normalizer, extractor, mail.PollerConfig{
		Folder:      cfg.IMAPFolder,
		DialTimeout: cfg.IMAPDialTimeout,
		BankSenders: cfg.BankSenders,
	}, logger)

	// Create bot
	bot, err := telegram.NewBot(telegram.BotDeps{
		Token:     cfg.TelegramToken,
		DB:        db,
		Extractor: extractor,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("failed to create bot", "error", err)
		os.Exit(1)
	}

	dispatcher := notify.NewDispatcher(bot, 0, logger)
	scheduler := mail.NewScheduler(db, poller, dispatcher, cfg.PollInterval, logger)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh

		logger.Info("received shutdown signal", "signal", sig)
		logger.Info("shutting down...")
		cancel()
	}()

	go dispatcher.Run(ctx)
	go scheduler.Run(ctx)

	// Start bot; blocks until shutdown
	logger.Info("bot is running, press Ctrl+C to stop")
	bot.Start(ctx)

	logger.Info("stopped")
}

func setupLogger(level, format string) *slog.Logger {
	var handler slog.Handler
	logLevel := parseLevel(level)

	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: logLevel,
		})
	} else {
		// Pretty colored output for console
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.DateTime,
			NoColor:    false,
		})
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
