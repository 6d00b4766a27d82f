package mail

// Subjects of Banco de Chile notification emails the extraction service
// understands. Charges and outgoing transfers only, incomes are not covered.
var supportedSubjects = []string{
	"Transferencia a Terceros",
	"Cargo en Cuenta",
	"Compra con Tarjeta de Crédito",
}

// IsSubjectSupported reports whether extraction should be attempted for a
// message with this subject.
func IsSubjectSupported(subject string) bool {
	for _, s := range supportedSubjects {
		if subject == s {
			return true
		}
	}
	return false
}
