package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

// Gemini implements Extractor on top of the Gemini API. When the client
// cannot be created (typically a missing API key) the adapter stays usable
// and degrades to empty records, so ingestion keeps working.
type Gemini struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewGemini creates the extraction adapter. Credentials are picked up from
// the environment by the genai client.
func NewGemini(ctx context.Context, model string, logger *slog.Logger) *Gemini {
	g := &Gemini{
		model:  model,
		logger: logger.With("component", "extractor"),
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		g.logger.Warn("extraction service unavailable, transactions will use default fields", "error", err)
		return g
	}

	g.client = client
	return g
}

// ParseEmail extracts structured transaction fields from a bank email.
// Any failure returns the zero ParsedEmail.
func (g *Gemini) ParseEmail(ctx context.Context, subject, body string) ParsedEmail {
	if g.client == nil {
		return ParsedEmail{}
	}

	prompt := fmt.Sprintf("%s\n\nAsunto: %s\n\nCuerpo:\n%s", parseSystem, subject, body)
	raw, err := g.generate(ctx, prompt)
	if err != nil {
		g.logger.Warn("email extraction failed", "error", err)
		return ParsedEmail{}
	}

	parsed, err := decodeParsed([]byte(cleanModelJSON(raw)))
	if err != nil {
		g.logger.Warn("extraction returned malformed JSON", "error", err)
		return ParsedEmail{}
	}
	return parsed
}

// Categorize assigns a category to a free-text expense description
func (g *Gemini) Categorize(ctx context.Context, description string) string {
	if g.client == nil {
		return FallbackCategory
	}

	input := description
	if runes := []rune(input); len(runes) > 500 {
		input = string(runes[:500])
	}

	raw, err := g.generate(ctx, categorizeSystem+"\n\n"+input)
	if err != nil {
		g.logger.Warn("categorization failed", "error", err)
		return FallbackCategory
	}

	category := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.IndexByte(category, '\n'); i >= 0 {
		category = category[:i]
	}
	if runes := []rune(category); len(runes) > 50 {
		category = string(runes[:50])
	}
	if category == "" {
		return FallbackCategory
	}
	return category
}

func (g *Gemini) generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return text, nil
}

// wire format of the parse response; monto tolerates both numbers and
// locale-formatted strings
type parsedPayload struct {
	TipoTransaccion  string          `json:"tipo_transaccion"`
	Monto            json.RawMessage `json:"monto"`
	Comercio         *string         `json:"comercio"`
	FechaISO         *string         `json:"fecha_iso"`
	PosibleCategoria string          `json:"posible_categoria"`
}

func decodeParsed(data []byte) (ParsedEmail, error) {
	var payload parsedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return ParsedEmail{}, err
	}

	parsed := ParsedEmail{
		TipoTransaccion:  strings.ToLower(strings.TrimSpace(payload.TipoTransaccion)),
		Monto:            normalizeAmount(payload.Monto),
		PosibleCategoria: strings.TrimSpace(payload.PosibleCategoria),
	}
	if payload.Comercio != nil {
		parsed.Comercio = strings.TrimSpace(*payload.Comercio)
	}
	if payload.FechaISO != nil {
		parsed.FechaISO = strings.TrimSpace(*payload.FechaISO)
	}
	return parsed, nil
}

// cleanModelJSON strips Markdown fences and surrounding junk the model may
// emit despite instructions, keeping only the outermost JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
