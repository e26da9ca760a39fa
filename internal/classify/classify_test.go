package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"docuflow/internal/documents"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		text string
		want documents.Type
	}{
		{
			name: "contribution list",
			text: "Institución: Hospital Central\nPeríodo: 03/2026\nAportes del personal\nTOTAL 12.345,67",
			want: documents.TypeListadoAporte,
		},
		{
			name: "bank receipt",
			text: "Comprobante de TRANSFERENCIA\nCBU: 0110599520000001234567\nImporte: $ 1.500,00\nNro. de Operación: 998877",
			want: documents.TypeComprobanteBanco,
		},
		{
			name: "both patterns prefer receipt",
			text: "periodo aportes total cbu monto referencia",
			want: documents.TypeComprobanteBanco,
		},
		{
			name: "whitespace is collapsed",
			text: "PERIODO\n\n\tAPORTES    TOTALES",
			want: documents.TypeListadoAporte,
		},
		{
			name: "partial receipt is unknown",
			text: "transferencia importe",
			want: documents.TypeDesconocido,
		},
		{
			name: "empty",
			text: "",
			want: documents.TypeDesconocido,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.text))
		})
	}
}
