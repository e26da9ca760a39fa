package receipts

import (
	"context"
	"time"
)

// Repo persists parsed records. Saving replaces any previous record of the
// same document.
type Repo interface {
	SaveTransfer(ctx context.Context, t BankTransfer) error
	SaveBatch(ctx context.Context, b ContributionBatch) error
	GetTransferByDocument(ctx context.Context, documentID string) (BankTransfer, error)
	GetBatchByDocument(ctx context.Context, documentID string) (ContributionBatch, error)
	UpdateReconciliation(ctx context.Context, batchID string, status ReconciliationStatus, at time.Time) error
}
