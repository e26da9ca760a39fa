package receipts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"docuflow/internal/parse"
)

// Service stores parsed records and serves them back.
type Service struct {
	Repo Repo
	Now  func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// SaveBankReceipt replaces the bank transfer of a document with r.
func (s *Service) SaveBankReceipt(ctx context.Context, documentID string, r parse.BankReceipt) (BankTransfer, error) {
	t := BankTransfer{
		ID:              uuid.NewString(),
		DocumentID:      documentID,
		BeneficiaryCUIT: r.BeneficiaryCUIT,
		CBU:             r.CBU,
		Fecha:           r.Fecha,
		NroOperacion:    r.NroOperacion,
		NroReferencia:   r.NroReferencia,
		Importe:         r.Importe,
		CreatedAt:       s.now(),
	}
	if err := s.Repo.SaveTransfer(ctx, t); err != nil {
		return BankTransfer{}, err
	}
	return t, nil
}

// SaveContributionList replaces the contribution batch of a document with l.
func (s *Service) SaveContributionList(ctx context.Context, documentID string, l parse.ContributionList) (ContributionBatch, error) {
	now := s.now()
	b := ContributionBatch{
		ID:                   uuid.NewString(),
		DocumentID:           documentID,
		InstitutionName:      l.InstitutionName,
		InstitutionCUIT:      l.InstitutionCUIT,
		Period:               l.Period,
		Concept:              l.Concept,
		PersonasCount:        len(l.Items),
		TotalAportesPeriodo:  l.Total,
		ReconciliationStatus: StatusPendiente,
		Items:                make([]ContributionItem, 0, len(l.Items)),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	for i, it := range l.Items {
		b.Items = append(b.Items, ContributionItem{
			ID:           uuid.NewString(),
			BatchID:      b.ID,
			Position:     i + 1,
			FullNameRaw:  it.FullNameRaw,
			LegajosCount: 1,
			Remunerativo: it.Remunerativo,
			AporteMonto:  it.AporteMonto,
		})
	}
	if err := s.Repo.SaveBatch(ctx, b); err != nil {
		return ContributionBatch{}, err
	}
	return b, nil
}

// Transfer returns the bank transfer parsed from a document.
func (s *Service) Transfer(ctx context.Context, documentID string) (BankTransfer, error) {
	return s.Repo.GetTransferByDocument(ctx, documentID)
}

// Batch returns the contribution batch parsed from a document.
func (s *Service) Batch(ctx context.Context, documentID string) (ContributionBatch, error) {
	return s.Repo.GetBatchByDocument(ctx, documentID)
}

// SetReconciliation stores the reconciliation outcome of a batch.
func (s *Service) SetReconciliation(ctx context.Context, batchID string, status ReconciliationStatus) error {
	return s.Repo.UpdateReconciliation(ctx, batchID, status, s.now())
}

// RecordsForDocument returns the API view of whatever was parsed from a
// document, or nil when nothing was.
func (s *Service) RecordsForDocument(ctx context.Context, documentID string) (any, error) {
	t, err := s.Repo.GetTransferByDocument(ctx, documentID)
	switch {
	case err == nil:
		return Records{BankTransfer: TransferResponse(t)}, nil
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}
	b, err := s.Repo.GetBatchByDocument(ctx, documentID)
	switch {
	case err == nil:
		return Records{ContributionBatch: BatchResponse(b)}, nil
	case errors.Is(err, ErrNotFound):
		return nil, nil
	default:
		return nil, err
	}
}
