package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"github.com/tsunayoshi21/catitaycris-expenses-app/internal/database"
	"github.com/tsunayoshi21/catitaycris-expenses-app/internal/mail"
	"github.com/tsunayoshi21/catitaycris-expenses-app/internal/vault"
	"github.com/tsunayoshi21/catitaycris-expenses-app/pkg/models"
)

// Provisioning tool: registers a monitored mailbox and its owner. IMAP
// credentials are encrypted before they touch the database.
func main() {
	var (
		imapHost     = flag.String("imap-host", "", "IMAP host:port (resolved from the address when empty)")
		imapUser     = flag.String("imap-user", "", "mailbox address (required)")
		imapPassword = flag.String("imap-password", "", "mailbox password or app password (required)")
		username     = flag.String("username", "", "dashboard username (required)")
		password     = flag.String("password", "", "dashboard password (required)")
		chatID       = flag.String("chat-id", "", "Telegram chat ID for notifications (optional)")
	)
	flag.Parse()

	if *imapUser == "" || *imapPassword == "" || *username == "" || *password == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*imapHost, *imapUser, *imapPassword, *username, *password, *chatID); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(imapHost, imapUser, imapPassword, username, password, chatID string) error {
	_ = godotenv.Load()

	key := os.Getenv("ENCRYPTION_KEY")
	v, err := vault.New(key)
	if err != nil {
		return fmt.Errorf("ENCRYPTION_KEY: %w", err)
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./data/finanzas.db"
	}
	db, err := database.New(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		return err
	}

	if imapHost == "" {
		imapHost, err = mail.ResolveIMAPServer(imapUser)
		if err != nil {
			return err
		}
	} else {
		imapHost = mail.EnsureIMAPPort(imapHost)
	}

	encUser, err := v.Encrypt(imapUser)
	if err != nil {
		return fmt.Errorf("failed to encrypt credentials: %w", err)
	}
	encPassword, err := v.Encrypt(imapPassword)
	if err != nil {
		return fmt.Errorf("failed to encrypt credentials: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	account := &models.Account{
		IMAPHost:     imapHost,
		IMAPUser:     encUser,
		IMAPPassword: encPassword,
		Enabled:      true,
	}
	if err := db.CreateAccount(ctx, account); err != nil {
		return err
	}

	user := &models.User{
		Username:     username,
		PasswordHash: hash,
		AccountID:    account.ID,
	}
	if chatID != "" {
		user.ChatID.String = chatID
		user.ChatID.Valid = true
	}
	if err := db.CreateUser(ctx, user); err != nil {
		return err
	}

	fmt.Printf("account %d created for %s (%s)\n", account.ID, username, imapHost)
	if chatID == "" {
		fmt.Println("no chat-id given: this user will not receive notifications")
	}
	return nil
}
