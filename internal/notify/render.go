package notify

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tsunayoshi21/catitaycris-expenses-app/pkg/models"
)

// Bank emails render amounts with thousands grouping; matching it keeps the
// notification readable ($15,990 rather than $15990).
var amountPrinter = message.NewPrinter(language.English)

// RenderTransaction builds the notification text for a new pending
// transaction. The #<id> token is the correlation contract: the reply
// correlator parses it back out of the quoted message.
func RenderTransaction(tx *models.Transaction) string {
	merchant := "No especificado"
	if tx.Merchant.Valid && tx.Merchant.String != "" {
		merchant = tx.Merchant.String
	}
	category := models.DefaultCategory
	if tx.Category.Valid && tx.Category.String != "" {
		category = tx.Category.String
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "💳 Nueva transacción detectada (#%d):\n\n", tx.ID)
	fmt.Fprintf(&sb, "📅 Fecha: %s\n", tx.Date.Format("02/01/2006 15:04"))
	fmt.Fprintf(&sb, "💰 Monto: %s\n", amountPrinter.Sprintf("$%.0f", tx.Amount))
	fmt.Fprintf(&sb, "🏪 Comercio: %s\n", merchant)
	fmt.Fprintf(&sb, "🔄 Tipo: %s\n", tx.Type)
	fmt.Fprintf(&sb, "📁 Categoría sugerida: %s\n\n", category)
	sb.WriteString("❓ Por favor, escribe una breve descripción de esta transacción:")
	return sb.String()
}

func renderInstructions(transactionID int64) string {
	return fmt.Sprintf(replyInstructions, transactionID)
}
