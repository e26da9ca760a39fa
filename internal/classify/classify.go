// Package classify assigns a document type from extracted text.
package classify

import (
	"strings"

	"docuflow/internal/documents"
)

// Classify returns LISTADO_APORTE, COMPROBANTE_BANCO or DESCONOCIDO for text.
// A text that looks like both is a bank receipt.
func Classify(text string) documents.Type {
	t := strings.Join(strings.Fields(strings.ToLower(text)), " ")

	listado := containsAny(t, "periodo", "período") &&
		containsAny(t, "aporte", "aportes") &&
		containsAny(t, "total", "totales")

	comprobante := containsAny(t, "cbu", "transferencia") &&
		containsAny(t, "importe", "monto") &&
		containsAny(t, "referencia", "operacion", "operación")

	switch {
	case comprobante:
		return documents.TypeComprobanteBanco
	case listado:
		return documents.TypeListadoAporte
	default:
		return documents.TypeDesconocido
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
