package receipts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docuflow/internal/parse"
)

func newTestService() *Service {
	now := time.Date(2026, time.May, 4, 8, 0, 0, 0, time.UTC)
	return &Service{Repo: NewMemoryRepo(), Now: func() time.Time { return now }}
}

func TestSaveContributionListReplacesPrevious(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	rem := 1000.0

	first, err := svc.SaveContributionList(ctx, "doc-1", parse.ContributionList{
		InstitutionName: "Hospital", Concept: parse.DefaultConcept, Total: 30,
		Items: []parse.ContributionItem{{FullNameRaw: "A", AporteMonto: 10, Remunerativo: &rem}, {FullNameRaw: "B", AporteMonto: 20}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, first.PersonasCount)
	assert.Equal(t, StatusPendiente, first.ReconciliationStatus)
	assert.InDelta(t, 30.0, first.ItemsTotal(), 0.001)

	second, err := svc.SaveContributionList(ctx, "doc-1", parse.ContributionList{InstitutionName: "Hospital", Concept: parse.DefaultConcept})
	require.NoError(t, err)

	got, err := svc.Batch(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
	assert.Empty(t, got.Items)

	require.NoError(t, svc.SetReconciliation(ctx, got.ID, StatusConciliado))
	got, _ = svc.Batch(ctx, "doc-1")
	assert.Equal(t, StatusConciliado, got.ReconciliationStatus)
}

func TestRecordsForDocument(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	rec, err := svc.RecordsForDocument(ctx, "none")
	require.NoError(t, err)
	assert.Nil(t, rec)

	cbu := "0110599520000001234567"
	_, err = svc.SaveBankReceipt(ctx, "doc-2", parse.BankReceipt{CBU: &cbu, Importe: 1500.5})
	require.NoError(t, err)

	rec, err = svc.RecordsForDocument(ctx, "doc-2")
	require.NoError(t, err)
	records, ok := rec.(Records)
	require.True(t, ok)
	require.NotNil(t, records.BankTransfer)
	assert.Nil(t, records.ContributionBatch)
	assert.Equal(t, &cbu, records.BankTransfer.CBU)
	assert.InDelta(t, 1500.5, records.BankTransfer.Importe, 0.001)
}
