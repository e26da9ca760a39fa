package receipts

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu        sync.RWMutex
	transfers map[string]BankTransfer      // documentId -> transfer
	batches   map[string]ContributionBatch // documentId -> batch
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		transfers: make(map[string]BankTransfer),
		batches:   make(map[string]ContributionBatch),
	}
}

func (r *MemoryRepo) SaveTransfer(ctx context.Context, t BankTransfer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transfers[t.DocumentID] = t
	return nil
}

func (r *MemoryRepo) SaveBatch(ctx context.Context, b ContributionBatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	b.Items = append([]ContributionItem(nil), b.Items...)
	r.batches[b.DocumentID] = b
	return nil
}

func (r *MemoryRepo) GetTransferByDocument(ctx context.Context, documentID string) (BankTransfer, error) {
	if err := ctx.Err(); err != nil {
		return BankTransfer{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.transfers[documentID]
	if !ok {
		return BankTransfer{}, ErrNotFound
	}
	return t, nil
}

func (r *MemoryRepo) GetBatchByDocument(ctx context.Context, documentID string) (ContributionBatch, error) {
	if err := ctx.Err(); err != nil {
		return ContributionBatch{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.batches[documentID]
	if !ok {
		return ContributionBatch{}, ErrNotFound
	}
	b.Items = append([]ContributionItem(nil), b.Items...)
	return b, nil
}

func (r *MemoryRepo) UpdateReconciliation(ctx context.Context, batchID string, status ReconciliationStatus, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for docID, b := range r.batches {
		if b.ID == batchID {
			b.ReconciliationStatus = status
			b.UpdatedAt = at
			r.batches[docID] = b
			return nil
		}
	}
	return ErrNotFound
}

var _ Repo = (*MemoryRepo)(nil)
