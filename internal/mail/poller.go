package mail

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/tsunayoshi21/catitaycris-expenses-app/internal/database"
	"github.com/tsunayoshi21/catitaycris-expenses-app/internal/extract"
	"github.com/tsunayoshi21/catitaycris-expenses-app/internal/vault"
	"github.com/tsunayoshi21/catitaycris-expenses-app/pkg/models"
)

// Draft is a transaction candidate produced by one poll cycle, not yet
// persisted or assigned to a user.
type Draft struct {
	EmailID           string // dedup key
	Date              time.Time
	Amount            float64
	Merchant          string // empty = unknown
	Type              string
	SuggestedCategory string
	EmailDate         *time.Time // message sent-at, drives the watermark
}

// PollerConfig tunes a Poller
type PollerConfig struct {
	Folder      string
	DialTimeout time.Duration
	BankSenders []string // lowercase substrings; empty list disables the sender filter
}

// Poller runs one IMAP session per poll cycle per account and turns matching
// bank emails into transaction drafts.
type Poller struct {
	vault      *vault.Vault
	db         *database.DB
	normalizer *Normalizer
	extractor  extract.Extractor
	cfg        PollerConfig
	logger     *slog.Logger
}

// NewPoller creates a new mailbox poller
func NewPoller(v *vault.Vault, db *database.DB, normalizer *Normalizer, extractor extract.Extractor, cfg PollerConfig, logger *slog.Logger) *Poller {
	if cfg.Folder == "" {
		cfg.Folder = "INBOX"
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 30 * time.Second
	}
	return &Poller{
		vault:      v,
		db:         db,
		normalizer: normalizer,
		extractor:  extractor,
		cfg:        cfg,
		logger:     logger.With("component", "poller"),
	}
}

// Poll runs one cycle for one account: search, fetch, normalize, dedup,
// extract. Per-message errors are logged and skipped; a session-level error
// aborts the cycle for this account only. The watermark advances from the
// newest sent-at seen even when some messages failed, so one bad message
// never blocks progress for the good ones.
func (p *Poller) Poll(ctx context.Context, account *models.Account) ([]Draft, error) {
	logger := p.logger.With("account_id", account.ID)

	user, password, err := p.vault.Credentials(account)
	if err != nil {
		return nil, fmt.Errorf("credentials for account %d: %w", account.ID, err)
	}

	dialer := &net.Dialer{Timeout: p.cfg.DialTimeout}
	c, err := client.DialWithDialerTLS(dialer, account.IMAPHost, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", account.IMAPHost, err)
	}
	// Session cleanup is unconditional, even on search/fetch errors
	defer c.Logout()

	if err := c.Login(user, password); err != nil {
		return nil, fmt.Errorf("failed to login: %w", err)
	}
	if _, err := c.Select(p.cfg.Folder, false); err != nil {
		return nil, fmt.Errorf("failed to select %s: %w", p.cfg.Folder, err)
	}

	criteria := p.searchCriteria(account)
	seqNums, err := c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	logger.Debug("mailbox search done", "matches", len(seqNums))
	if len(seqNums) == 0 {
		return nil, nil
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(seqNums...)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{section.FetchItem()}

	messages := make(chan *imap.Message, 16)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqSet, items, messages)
	}()

	var drafts []Draft
	var maxSeen time.Time
	for msg := range messages {
		draft, err := p.handleRaw(ctx, account, readBody(msg, section))
		if err != nil {
			logger.Error("failed to process message, skipping", "seq", msg.SeqNum, "error", err)
			continue
		}
		if draft == nil {
			continue
		}
		drafts = append(drafts, *draft)
		if draft.EmailDate != nil && draft.EmailDate.After(maxSeen) {
			maxSeen = *draft.EmailDate
		}
	}
	if err := <-done; err != nil {
		// Partial failure: keep what was processed, the watermark still
		// advances below from those messages
		logger.Error("fetch ended with error", "error", err)
	}

	if !maxSeen.IsZero() && maxSeen.After(account.LastChecked) {
		advanced, err := p.db.AdvanceWatermark(ctx, account.ID, maxSeen)
		if err != nil {
			logger.Error("failed to advance watermark", "error", err)
		} else if advanced {
			account.LastChecked = maxSeen
			logger.Debug("watermark advanced", "last_checked", maxSeen)
		}
	}

	return drafts, nil
}

func readBody(msg *imap.Message, section *imap.BodySectionName) []byte {
	r := msg.GetBody(section)
	if r == nil {
		return nil
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil
	}
	return raw
}

// searchCriteria builds the server-side filter: messages since the watermark
// (day granularity, treated as approximate) from any allow-listed sender.
// With no watermark and no allow-list, unseen messages only.
func (p *Poller) searchCriteria(account *models.Account) *imap.SearchCriteria {
	criteria := imap.NewSearchCriteria()
	filtered := false

	if !account.LastChecked.IsZero() {
		criteria.Since = account.LastChecked.UTC().Truncate(24 * time.Hour)
		filtered = true
	}

	if len(p.cfg.BankSenders) > 0 {
		from := sendersCriteria(p.cfg.BankSenders)
		criteria.Header = from.Header
		criteria.Or = from.Or
		filtered = true
	}

	if !filtered {
		criteria.WithoutFlags = []string{imap.SeenFlag}
	}
	return criteria
}

// sendersCriteria ORs a FROM clause per sender pattern
func sendersCriteria(senders []string) *imap.SearchCriteria {
	c := imap.NewSearchCriteria()
	if len(senders) == 1 {
		c.Header.Add("From", senders[0])
		return c
	}
	c.Or = [][2]*imap.SearchCriteria{{sendersCriteria(senders[:1]), sendersCriteria(senders[1:])}}
	return c
}

// handleRaw runs the per-message pipeline: normalize, allow-list check,
// dedup, subject filter, extraction. A nil draft with nil error means the
// message was filtered out or already ingested.
func (p *Poller) handleRaw(ctx context.Context, account *models.Account, raw []byte) (*Draft, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("server returned no body")
	}

	msg, err := p.normalizer.Normalize(raw)
	if err != nil {
		return nil, err
	}

	// The search filter already narrowed by sender; re-check here because
	// day-granularity SINCE plus OR clauses can overmatch
	if !p.senderAllowed(msg.From) {
		return nil, nil
	}

	emailID := msg.MessageID
	if emailID == "" {
		emailID = fallbackEmailID(account.ID, msg)
	}

	dup, err := p.db.TransactionExistsByEmailID(ctx, emailID)
	if err != nil {
		return nil, err
	}
	if dup {
		p.logger.Debug("message already ingested", "email_id", emailID)
		return nil, nil
	}

	if !IsSubjectSupported(msg.Subject) {
		p.logger.Debug("unsupported subject", "subject", msg.Subject)
		return nil, nil
	}

	parsed := p.extractor.ParseEmail(ctx, msg.Subject, msg.Body)
	draft := buildDraft(emailID, msg, parsed)
	return &draft, nil
}

func (p *Poller) senderAllowed(from string) bool {
	if len(p.cfg.BankSenders) == 0 {
		return true
	}
	from = strings.ToLower(from)
	for _, sender := range p.cfg.BankSenders {
		if strings.Contains(from, sender) {
			return true
		}
	}
	return false
}

// buildDraft merges the extraction result with the message metadata,
// filling documented defaults where extraction learned nothing.
func buildDraft(emailID string, msg *Message, parsed extract.ParsedEmail) Draft {
	draft := Draft{
		EmailID:           emailID,
		Amount:            parsed.Monto,
		Merchant:          parsed.Comercio,
		Type:              parsed.TipoTransaccion,
		SuggestedCategory: parsed.PosibleCategoria,
		EmailDate:         msg.Date,
	}
	if draft.Type == "" {
		draft.Type = models.TypeUnknown
	}
	if draft.SuggestedCategory == "" {
		draft.SuggestedCategory = models.DefaultCategory
	}

	// Timestamp priority: extraction-supplied, then the message's own
	// sent-at, then now
	switch {
	case parsed.FechaISO != "":
		if ts, err := parseISO(parsed.FechaISO); err == nil {
			draft.Date = ts
			return draft
		}
		fallthrough
	default:
		if msg.Date != nil {
			draft.Date = *msg.Date
		} else {
			draft.Date = time.Now().UTC()
		}
	}
	return draft
}

func parseISO(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// fallbackEmailID synthesizes a dedup key for messages without a Message-ID.
// Hashing stable message attributes keeps the key identical across restarts
// and re-fetches, unlike a session-local reference.
func fallbackEmailID(accountID int64, msg *Message) string {
	var sentAt string
	if msg.Date != nil {
		sentAt = msg.Date.UTC().Format(time.RFC3339)
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d|%s|%s|%s", accountID, msg.From, msg.Subject, sentAt)))
	return fmt.Sprintf("%d:%s", accountID, hex.EncodeToString(sum[:]))
}
