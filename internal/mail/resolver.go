package mail

import (
	"fmt"
	"strings"
)

// IMAP endpoints for the mail providers bank-notification mailboxes tend to
// live on.
var knownIMAPServers = map[string]string{
	"gmail.com":      "imap.gmail.com:993",
	"googlemail.com": "imap.gmail.com:993",
	"outlook.com":    "outlook.office365.com:993",
	"hotmail.com":    "outlook.office365.com:993",
	"live.com":       "outlook.office365.com:993",
	"yahoo.com":      "imap.mail.yahoo.com:993",
	"icloud.com":     "imap.mail.me.com:993",
	"me.com":         "imap.mail.me.com:993",
	"fastmail.com":   "imap.fastmail.com:993",
	"gmx.com":        "imap.gmx.com:993",
}

// ResolveIMAPServer guesses the host:port for a mailbox address when the
// operator did not provide one.
func ResolveIMAPServer(email string) (string, error) {
	parts := strings.Split(email, "@")
	if len(parts) != 2 || parts[1] == "" {
		return "", fmt.Errorf("invalid email address %q", email)
	}

	domain := strings.ToLower(parts[1])
	if server, ok := knownIMAPServers[domain]; ok {
		return server, nil
	}
	return "imap." + domain + ":993", nil
}

// EnsureIMAPPort appends the implicit-TLS IMAP port when the host has none
func EnsureIMAPPort(host string) string {
	if strings.Contains(host, ":") {
		return host
	}
	return host + ":993"
}
