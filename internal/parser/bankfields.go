package parser

import (
	"fmt"
	"regexp"
	"strings"
)

// Converted bank HTML is mostly boilerplate. The reducer pulls out the
// handful of labeled fields the extraction service actually needs and caps
// the result so prompts stay bounded.
const (
	maxReducedLen  = 2000
	maxFallbackLen = 1500
)

type fieldPattern struct {
	Label string
	Regex *regexp.Regexp
}

// BankReducer reduces converted bank-email text to labeled fields
type BankReducer struct {
	patterns []*fieldPattern
	spaces   *regexp.Regexp
}

// NewBankReducer creates a reducer with the known Banco de Chile field patterns
func NewBankReducer() *BankReducer {
	return &BankReducer{
		patterns: []*fieldPattern{
			{
				Label: "titulo",
				Regex: regexp.MustCompile(`(?i)(Comprobante de [^.\n]+|Transferencia a [^.\n]+|Cargo en [^.\n]+|Compra con [^.\n]+)`),
			},
			{
				Label: "monto",
				Regex: regexp.MustCompile(`\$\s*[\d.,]+`),
			},
			{
				Label: "destinatario",
				Regex: regexp.MustCompile(`(?i)(?:Nombre y Apellido|Destinatario)[:\s]+([A-Za-zÁÉÍÓÚÑáéíóúñ ]+)`),
			},
			{
				Label: "comercio",
				Regex: regexp.MustCompile(`(?i)(?:Comercio|Establecimiento)[:\s]+([A-Za-z0-9ÁÉÍÓÚÑáéíóúñ \-]+)`),
			},
			{
				Label: "fecha hora",
				Regex: regexp.MustCompile(`(?i)Fecha y Hora[:\s]+([^.\n]+)`),
			},
			{
				Label: "transaccion",
				Regex: regexp.MustCompile(`(?i)Transacci[oó]n[:\s]+([A-Z0-9]+)`),
			},
			{
				Label: "cuenta",
				Regex: regexp.MustCompile(`(?i)N°? de Cuenta[:\s]+([0-9\-]+)`),
			},
			{
				Label: "banco",
				Regex: regexp.MustCompile(`(?i)Banco[:\s]+([A-Za-z /]+)`),
			},
		},
		spaces: regexp.MustCompile(`\s+`),
	}
}

// Reduce extracts the labeled bank fields from already-converted text. If no
// field matches, the raw text is returned capped instead so the extraction
// service still sees something.
func (r *BankReducer) Reduce(text string) string {
	flat := r.spaces.ReplaceAllString(text, " ")
	flat = strings.TrimSpace(flat)

	var fields []string
	for _, p := range r.patterns {
		matches := p.Regex.FindAllStringSubmatch(flat, -1)
		var values []string
		seen := make(map[string]bool)
		for _, m := range matches {
			v := m[len(m)-1]
			v = strings.TrimSpace(v)
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			values = append(values, v)
			if len(values) == 3 {
				break
			}
		}
		if len(values) > 0 {
			fields = append(fields, fmt.Sprintf("%s: %s", p.Label, strings.Join(values, ", ")))
		}
	}

	if len(fields) > 0 {
		return truncate(strings.Join(fields, "\n"), maxReducedLen)
	}
	return truncate(flat, maxFallbackLen)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
