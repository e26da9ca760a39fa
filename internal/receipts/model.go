package receipts

import "time"

// ReconciliationStatus is the outcome of checking a batch total against its items.
type ReconciliationStatus string

const (
	StatusPendiente  ReconciliationStatus = "PENDIENTE"
	StatusConciliado ReconciliationStatus = "CONCILIADO"
	StatusDiferencia ReconciliationStatus = "DIFERENCIA"
)

// BankTransfer is the parsed content of a bank receipt.
type BankTransfer struct {
	ID              string
	DocumentID      string
	BeneficiaryName *string
	BeneficiaryCUIT *string
	CBU             *string
	Fecha           *time.Time
	NroOperacion    *string
	NroReferencia   *string
	Importe         float64
	CreatedAt       time.Time
}

// ContributionBatch is the parsed header of a contribution list.
type ContributionBatch struct {
	ID                   string
	DocumentID           string
	InstitutionName      string
	InstitutionCUIT      *string
	Period               *string
	Concept              string
	PersonasCount        int
	TotalAportesPeriodo  float64
	ReconciliationStatus ReconciliationStatus
	Items                []ContributionItem
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// ContributionItem is one person in a contribution list.
type ContributionItem struct {
	ID           string
	BatchID      string
	Position     int
	FullNameRaw  string
	LegajosCount int
	Remunerativo *float64
	AporteMonto  float64
}

// ItemsTotal sums the contribution of every item.
func (b ContributionBatch) ItemsTotal() float64 {
	var sum float64
	for _, it := range b.Items {
		sum += it.AporteMonto
	}
	return sum
}
