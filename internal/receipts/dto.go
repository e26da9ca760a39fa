package receipts

import "time"

// Records is the parsed-record block of a document response.
type Records struct {
	BankTransfer      *TransferView `json:"bankTransfer,omitempty"`
	ContributionBatch *BatchView    `json:"contributionBatch,omitempty"`
}

// TransferView is the JSON form of a bank transfer.
type TransferView struct {
	ID              string     `json:"id"`
	DocumentID      string     `json:"documentId"`
	BeneficiaryName *string    `json:"beneficiaryName"`
	BeneficiaryCUIT *string    `json:"beneficiaryCuit"`
	CBU             *string    `json:"cbu"`
	Fecha           *time.Time `json:"fecha"`
	NroOperacion    *string    `json:"nroOperacion"`
	NroReferencia   *string    `json:"nroReferencia"`
	Importe         float64    `json:"importe"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// ItemView is the JSON form of a contribution item.
type ItemView struct {
	ID           string   `json:"id"`
	FullNameRaw  string   `json:"fullNameRaw"`
	LegajosCount int      `json:"legajosCount"`
	Remunerativo *float64 `json:"remunerativo"`
	AporteMonto  float64  `json:"aporteMonto"`
}

// BatchView is the JSON form of a contribution batch with its items.
type BatchView struct {
	ID                   string               `json:"id"`
	DocumentID           string               `json:"documentId"`
	InstitutionName      string               `json:"institutionName"`
	InstitutionCUIT      *string              `json:"institutionCuit"`
	Period               *string              `json:"period"`
	Concept              string               `json:"concept"`
	PersonasCount        int                  `json:"personasCount"`
	TotalAportesPeriodo  float64              `json:"totalAportesPeriodo"`
	ReconciliationStatus ReconciliationStatus `json:"reconciliationStatus"`
	Items                []ItemView           `json:"items"`
	CreatedAt            time.Time            `json:"createdAt"`
}

// TransferResponse renders t.
func TransferResponse(t BankTransfer) *TransferView {
	return &TransferView{
		ID:              t.ID,
		DocumentID:      t.DocumentID,
		BeneficiaryName: t.BeneficiaryName,
		BeneficiaryCUIT: t.BeneficiaryCUIT,
		CBU:             t.CBU,
		Fecha:           t.Fecha,
		NroOperacion:    t.NroOperacion,
		NroReferencia:   t.NroReferencia,
		Importe:         t.Importe,
		CreatedAt:       t.CreatedAt,
	}
}

// BatchResponse renders b.
func BatchResponse(b ContributionBatch) *BatchView {
	out := &BatchView{
		ID:                   b.ID,
		DocumentID:           b.DocumentID,
		InstitutionName:      b.InstitutionName,
		InstitutionCUIT:      b.InstitutionCUIT,
		Period:               b.Period,
		Concept:              b.Concept,
		PersonasCount:        b.PersonasCount,
		TotalAportesPeriodo:  b.TotalAportesPeriodo,
		ReconciliationStatus: b.ReconciliationStatus,
		Items:                make([]ItemView, 0, len(b.Items)),
		CreatedAt:            b.CreatedAt,
	}
	for _, it := range b.Items {
		out.Items = append(out.Items, ItemView{
			ID:           it.ID,
			FullNameRaw:  it.FullNameRaw,
			LegajosCount: it.LegajosCount,
			Remunerativo: it.Remunerativo,
			AporteMonto:  it.AporteMonto,
		})
	}
	return out
}
