package mail

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	// Registers decoders for the charsets bank senders actually use
	// (iso-8859-1, windows-1252, ...)
	_ "github.com/emersion/go-message/charset"

	"github.com/tsunayoshi21/catitaycris-expenses-app/internal/parser"
)

// A plain-text part shorter than this is considered useless boilerplate and
// the HTML part is used instead.
const minPlainTextLen = 50

// Message is the canonical decoded form of a raw email
type Message struct {
	From      string // decoded From header, "Name <addr>" or bare address
	Subject   string
	Body      string
	Date      *time.Time // nil when the Date header is missing or unparseable
	MessageID string     // empty when the message carries none
}

// Normalizer decodes raw RFC822 messages into Messages. All decode failures
// are non-fatal: headers degrade to lossy text, bodies to empty strings.
type Normalizer struct {
	html    *parser.HTMLParser
	reducer *parser.BankReducer
	logger  *slog.Logger
}

// NewNormalizer creates a new message normalizer
func NewNormalizer(logger *slog.Logger) *Normalizer {
	return &Normalizer{
		html:    parser.NewHTMLParser(),
		reducer: parser.NewBankReducer(),
		logger:  logger.With("component", "normalizer"),
	}
}

// Normalize decodes a raw message into its canonical form
func (n *Normalizer) Normalize(raw []byte) (*Message, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if mr == nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if err != nil {
		// Header decoded but something in the structure is off; keep going
		// with whatever is readable
		n.logger.Debug("message parsed with errors", "error", err)
	}

	msg := &Message{}

	// RFC 2047 decoding is handled by go-message; on bad encoded words the
	// returned value is the best-effort decode, so errors are dropped
	msg.Subject, _ = mr.Header.Subject()
	msg.From = decodeFrom(&mr.Header)
	msg.MessageID, _ = mr.Header.MessageID()
	if msg.MessageID != "" {
		msg.MessageID = "<" + msg.MessageID + ">"
	}

	if date, err := mr.Header.Date(); err == nil && !date.IsZero() {
		utc := date.UTC()
		msg.Date = &utc
	}

	plain, html := n.collectParts(mr)
	msg.Body = n.selectBody(plain, html)

	return msg, nil
}

func decodeFrom(header *mail.Header) string {
	addrs, err := header.AddressList("From")
	if err != nil || len(addrs) == 0 {
		// Keep the raw header text so sender matching still has a chance
		raw, _ := header.Text("From")
		return raw
	}
	a := addrs[0]
	if a.Name != "" {
		return fmt.Sprintf("%s <%s>", a.Name, a.Address)
	}
	return a.Address
}

// collectParts walks the MIME tree and picks up the first inline plain-text
// and HTML parts, skipping attachments.
func (n *Normalizer) collectParts(mr *mail.Reader) (plain, html string) {
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			n.logger.Debug("failed to read part, skipping rest", "error", err)
			break
		}

		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue // attachment
		}

		contentType, _, _ := header.ContentType()
		body, err := io.ReadAll(part.Body)
		if err != nil {
			n.logger.Debug("failed to read part body", "error", err)
			continue
		}

		switch {
		case strings.HasPrefix(contentType, "text/plain") && plain == "":
			plain = string(body)
		case strings.HasPrefix(contentType, "text/html") && html == "":
			html = string(body)
		}
	}
	return plain, html
}

// selectBody prefers substantial plain text; otherwise the HTML part is
// converted and reduced to labeled bank fields to bound prompt size.
func (n *Normalizer) selectBody(plain, html string) string {
	if len(strings.TrimSpace(plain)) >= minPlainTextLen {
		return plain
	}
	if html != "" {
		text, err := n.html.Text(html)
		if err != nil {
			n.logger.Debug("failed to convert HTML body", "error", err)
		} else if text != "" {
			return n.reducer.Reduce(text)
		}
	}
	return plain
}
