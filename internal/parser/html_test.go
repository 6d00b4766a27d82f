package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextStripsTags(t *testing.T) {
	p := NewHTMLParser()

	html := `<html><head><style>body{color:red}</style></head><body>
		<h1>Comprobante de Transferencia</h1>
		<table><tr><td>Monto</td><td>$ 15.990</td></tr></table>
		<script>alert(1)</script>
	</body></html>`

	text, err := p.Text(html)
	require.NoError(t, err)
	assert.Contains(t, text, "Comprobante de Transferencia")
	assert.Contains(t, text, "$ 15.990")
	assert.NotContains(t, text, "alert")
	assert.NotContains(t, text, "color:red")
}

func TestTextCollapsesWhitespace(t *testing.T) {
	p := NewHTMLParser()

	text, err := p.Text("<div>a</div>\n\n\n\n<div>   b    c</div>")
	require.NoError(t, err)
	assert.Equal(t, "a\nb c", text)
}

func TestTextEmptyInput(t *testing.T) {
	p := NewHTMLParser()
	text, err := p.Text("")
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestReduceExtractsFields(t *testing.T) {
	r := NewBankReducer()

	text := `Comprobante de Transferencia de Fondos
	Monto Transferido: $ 15.990
	Nombre y Apellido: Juan Perez
	Fecha y Hora: 05/08/2025 14:30
	Banco: Banco de Chile`

	out := r.Reduce(text)
	assert.Contains(t, out, "titulo: Comprobante de Transferencia de Fondos")
	assert.Contains(t, out, "monto: $ 15.990")
	assert.Contains(t, out, "destinatario: Juan Perez")
	assert.Contains(t, out, "banco: Banco de Chile")
}

func TestReduceFallbackIsCapped(t *testing.T) {
	r := NewBankReducer()

	// No bank field matches: the raw text comes back capped
	out := r.Reduce(strings.Repeat("lorem ipsum ", 500))
	assert.LessOrEqual(t, len([]rune(out)), maxFallbackLen)
	assert.Contains(t, out, "lorem ipsum")
}

func TestReduceLabeledOutputIsCapped(t *testing.T) {
	r := NewBankReducer()

	out := r.Reduce("Comercio: " + strings.Repeat("A", 3000))
	assert.LessOrEqual(t, len([]rune(out)), maxReducedLen)
}
