package extract

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAmount(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want float64
	}{
		{"json number", `15990.5`, 15990.5},
		{"json integer", `15990`, 15990},
		{"plain string", `"15990.5"`, 15990.5},
		{"chilean grouping", `"15.990"`, 15990},
		{"chilean decimal comma", `"15.990,50"`, 15990.5},
		{"currency prefix", `"$ 15.990"`, 15990},
		{"multiple groups", `"1.250.000"`, 1250000},
		{"real decimal point", `"15.5"`, 15.5},
		{"null", `null`, 0},
		{"empty string", `""`, 0},
		{"garbage", `"n/a"`, 0},
		{"empty raw", ``, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, normalizeAmount(json.RawMessage(tc.raw)))
		})
	}
}

func TestDecodeParsed(t *testing.T) {
	parsed, err := decodeParsed([]byte(`{
		"tipo_transaccion": "Debito",
		"monto": "15.990",
		"comercio": " Comercio X ",
		"fecha_iso": "2025-08-05T14:30:00Z",
		"posible_categoria": "comida"
	}`))
	require.NoError(t, err)
	assert.Equal(t, "debito", parsed.TipoTransaccion)
	assert.Equal(t, 15990.0, parsed.Monto)
	assert.Equal(t, "Comercio X", parsed.Comercio)
	assert.Equal(t, "2025-08-05T14:30:00Z", parsed.FechaISO)
	assert.Equal(t, "comida", parsed.PosibleCategoria)
}

func TestDecodeParsedNullFields(t *testing.T) {
	parsed, err := decodeParsed([]byte(`{"tipo_transaccion": "transferencia", "monto": 5000, "comercio": null, "fecha_iso": null}`))
	require.NoError(t, err)
	assert.Equal(t, "transferencia", parsed.TipoTransaccion)
	assert.Equal(t, 5000.0, parsed.Monto)
	assert.Empty(t, parsed.Comercio)
	assert.Empty(t, parsed.FechaISO)
}

func TestDecodeParsedMalformed(t *testing.T) {
	_, err := decodeParsed([]byte(`not json`))
	assert.Error(t, err)
}

func TestCleanModelJSON(t *testing.T) {
	want := `{"monto": 100}`

	assert.Equal(t, want, cleanModelJSON(want))
	assert.Equal(t, want, cleanModelJSON("```json\n"+want+"\n```"))
	assert.Equal(t, want, cleanModelJSON("```\n"+want+"\n```"))
	assert.Equal(t, want, cleanModelJSON("Aquí está el resultado:\n"+want+"\nEspero que ayude."))
}

func TestGeminiWithoutClientDegrades(t *testing.T) {
	// No API key in the test environment: the adapter must stay usable and
	// return defaults instead of failing.
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	g := NewGemini(context.Background(), "gemini-2.0-flash", slog.Default())

	parsed := g.ParseEmail(context.Background(), "Cargo en Cuenta", "cuerpo")
	assert.Equal(t, ParsedEmail{}, parsed)

	assert.Equal(t, FallbackCategory, g.Categorize(context.Background(), "Almuerzo con amigos"))
}
