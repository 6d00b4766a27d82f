// Package extract is the boundary to the language-understanding service.
// Nothing in here ever returns an error to callers: any upstream failure
// collapses to a zero ParsedEmail or the fallback category, and the pipeline
// proceeds with defaults.
package extract

import "context"

// ParsedEmail is the structured record extracted from a bank email.
// Zero value means "nothing learned".
type ParsedEmail struct {
	TipoTransaccion  string // debito | credito | transferencia | desconocido
	Monto            float64
	Comercio         string // counterparty; empty when unknown
	FechaISO         string // ISO-8601 timestamp as reported by the service, may be empty
	PosibleCategoria string // suggested category, may be empty
}

// FallbackCategory is returned by Categorize when the service is unavailable
const FallbackCategory = "otros"

// Extractor is the structured-extraction capability
type Extractor interface {
	// ParseEmail extracts transaction fields from a bank email
	ParseEmail(ctx context.Context, subject, body string) ParsedEmail
	// Categorize assigns a short lowercase category to a free-text description
	Categorize(ctx context.Context, description string) string
}
