package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/tsunayoshi21/catitaycris-expenses-app/internal/database"
	"github.com/tsunayoshi21/catitaycris-expenses-app/pkg/models"
)

// Operator tool: rewinds an account's ingestion watermark so already seen
// messages get re-examined on the next poll. Deduplication still prevents
// re-ingesting stored transactions.
func main() {
	var (
		list      = flag.Bool("list", false, "list accounts and their watermarks")
		accountID = flag.Int64("account", 0, "account ID to reset")
		date      = flag.String("date", "", "watermark to rewind to, YYYY-MM-DD (defaults to the historical floor)")
	)
	flag.Parse()

	if err := run(*list, *accountID, *date); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(list bool, accountID int64, date string) error {
	_ = godotenv.Load()

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

	if list {
		accounts, err := db.GetAllAccounts(ctx)
		if err != nil {
			return err
		}
		for _, a := range accounts {
			state := "enabled"
			if !a.Enabled {
				state = "disabled"
			}
			fmt.Printf("%d\t%s\t%s\tlast_checked=%s\n",
				a.ID, a.IMAPHost, state, a.LastChecked.UTC().Format(time.RFC3339))
		}
		return nil
	}

	if accountID == 0 {
		return fmt.Errorf("either -list or -account is required")
	}

	to := models.DefaultWatermark
	if date != "" {
		to, err = time.Parse("2006-01-02", date)
		if err != nil {
			return fmt.Errorf("invalid -date %q: %w", date, err)
		}
		to = to.UTC()
	}

	account, err := db.GetAccountByID(ctx, accountID)
	if err != nil {
		return err
	}

	if err := db.ResetWatermark(ctx, account.ID, to); err != nil {
		return err
	}
	fmt.Printf("account %d watermark: %s -> %s\n",
		account.ID, account.LastChecked.UTC().Format(time.RFC3339), to.Format(time.RFC3339))
	return nil
}
