package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"docuflow/internal/shared/cache"
)

func newTestService(now time.Time) (*Service, *MemoryRepo) {
	repo := NewMemoryRepo()
	clock := now
	return &Service{Repo: repo, Now: func() time.Time { return clock }}, repo
}

func TestEnqueueDefaultsAndClamps(t *testing.T) {
	svc, _ := newTestService(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	ctx := context.Background()

	j, err := svc.Enqueue(ctx, EnqueueOptions{Type: TypeOCR, Payload: OCRPayload{DocumentID: "doc-1", SHA256: "abc"}})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if j.Priority != 0 || j.MaxAttempts != DefaultMaxAttempts || j.Status != StatusQueued || j.ScheduledAt != nil {
		t.Fatalf("unexpected defaults: %+v", j)
	}
	if j.DocumentID == nil || *j.DocumentID != "doc-1" {
		t.Fatalf("expected document id from payload, got %v", j.DocumentID)
	}

	j, err = svc.Enqueue(ctx, EnqueueOptions{Type: TypeExport, Priority: 99, MaxAttempts: 50})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if j.Priority != MaxPriority || j.MaxAttempts != MaxAttemptsLimit {
		t.Fatalf("expected clamped values, got priority=%d maxAttempts=%d", j.Priority, j.MaxAttempts)
	}
	if string(j.Payload) != `{}` {
		t.Fatalf("expected empty object payload, got %s", j.Payload)
	}

	j, err = svc.Enqueue(ctx, EnqueueOptions{Type: TypeExport, Priority: -3, MaxAttempts: -1})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if j.Priority != MinPriority || j.MaxAttempts != 1 {
		t.Fatalf("expected lower clamps, got priority=%d maxAttempts=%d", j.Priority, j.MaxAttempts)
	}
}

func TestEnqueueRejectsUnknownType(t *testing.T) {
	svc, _ := newTestService(time.Now())
	if _, err := svc.Enqueue(context.Background(), EnqueueOptions{Type: "RENDER"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.Enqueue(context.Background(), EnqueueOptions{Type: TypeOCR, Payload: json.RawMessage(`{bad`)}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bad payload, got %v", err)
	}
}

func TestEnqueueSignalsWorkers(t *testing.T) {
	svc, _ := newTestService(time.Now())
	mem := cache.NewMemory()
	svc.Signals = mem
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wake, err := mem.Listen(ctx, cache.ChannelJobsQueued)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}

	if _, err := svc.Enqueue(ctx, EnqueueOptions{Type: TypeParsing, Payload: ParsingPayload{DocumentID: "d"}}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	select {
	case <-wake:
	case <-time.After(time.Second):
		t.Fatal("expected wakeup signal")
	}
}

func TestClaimOrderAndSchedule(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc, repo := newTestService(now)
	ctx := context.Background()
	future := now.Add(time.Hour)

	low, _ := svc.Build(EnqueueOptions{Type: TypeOCR, Priority: 1})
	high, _ := svc.Build(EnqueueOptions{Type: TypeOCR, Priority: 5})
	later, _ := svc.Build(EnqueueOptions{Type: TypeOCR, Priority: 10, ScheduledAt: &future})
	for _, j := range []Job{low, high, later} {
		if err := repo.Create(ctx, j); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	got, ok, err := repo.Claim(ctx, "w1", now)
	if err != nil || !ok {
		t.Fatalf("Claim: ok=%v err=%v", ok, err)
	}
	if got.ID != high.ID || got.Attempts != 1 || got.Status != StatusProcessing || *got.LockedBy != "w1" {
		t.Fatalf("unexpected claim: %+v", got)
	}
	got, _, _ = repo.Claim(ctx, "w1", now)
	if got.ID != low.ID {
		t.Fatalf("expected low priority job next, got %s", got.ID)
	}
	if _, ok, _ := repo.Claim(ctx, "w1", now); ok {
		t.Fatal("scheduled job must not be claimed early")
	}
	if got, ok, _ := repo.Claim(ctx, "w1", future); !ok || got.ID != later.ID {
		t.Fatalf("expected scheduled job once due, got ok=%v", ok)
	}
}

func TestCompleteSkipsDuplicateNextStage(t *testing.T) {
	now := time.Now().UTC()
	svc, repo := newTestService(now)
	ctx := context.Background()
	docID := "doc-1"

	first, _ := svc.Enqueue(ctx, EnqueueOptions{Type: TypeOCR, DocumentID: &docID})
	if claimed, _, _ := repo.Claim(ctx, "w", now); claimed.ID != first.ID {
		t.Fatalf("unexpected claim %s", claimed.ID)
	}
	if _, err := svc.Enqueue(ctx, EnqueueOptions{Type: TypeParsing, DocumentID: &docID}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	next, _ := svc.Build(EnqueueOptions{Type: TypeParsing, DocumentID: &docID})
	ok, err := repo.Complete(ctx, first.ID, json.RawMessage(`{"pages":1}`), nil, now, &next)
	if err != nil || !ok {
		t.Fatalf("Complete: ok=%v err=%v", ok, err)
	}
	jobs, _ := repo.ListByDocument(ctx, docID)
	if len(jobs) != 2 {
		t.Fatalf("expected no duplicate parsing job, got %d jobs", len(jobs))
	}
	done, _ := svc.Get(ctx, first.ID)
	if done.Status != StatusDone || done.FinishedAt == nil || done.LockedBy != nil {
		t.Fatalf("unexpected completed job: %+v", done)
	}
}

func TestCompleteIgnoresCancelledJob(t *testing.T) {
	now := time.Now().UTC()
	svc, repo := newTestService(now)
	ctx := context.Background()

	j, _ := svc.Enqueue(ctx, EnqueueOptions{Type: TypeOCR})
	if _, _, err := repo.Claim(ctx, "w", now); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if _, err := svc.Cancel(ctx, j.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	ok, err := repo.Complete(ctx, j.ID, nil, nil, now, nil)
	if err != nil || ok {
		t.Fatalf("expected cancelled job to stay cancelled, ok=%v err=%v", ok, err)
	}
	got, _ := svc.Get(ctx, j.ID)
	if got.Status != StatusError || got.LastError == nil || *got.LastError != "Cancelled by user" {
		t.Fatalf("unexpected job: %+v", got)
	}
}

func TestRetryAndCancelTransitions(t *testing.T) {
	now := time.Now().UTC()
	svc, repo := newTestService(now)
	ctx := context.Background()

	j, _ := svc.Enqueue(ctx, EnqueueOptions{Type: TypeOCR})
	if _, err := svc.Retry(ctx, j.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("retry from QUEUED should fail, got %v", err)
	}
	repo.Claim(ctx, "w", now)
	if ok, err := repo.Fail(ctx, j.ID, "boom", now, nil); !ok || err != nil {
		t.Fatalf("Fail: ok=%v err=%v", ok, err)
	}
	if _, err := svc.Cancel(ctx, j.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("cancel from ERROR should fail, got %v", err)
	}
	got, err := svc.Retry(ctx, j.ID)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if got.Status != StatusQueued || got.Attempts != 0 || got.LastError != nil || got.StartedAt != nil || got.ScheduledAt == nil {
		t.Fatalf("unexpected retried job: %+v", got)
	}
	if _, err := svc.Retry(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecoverStale(t *testing.T) {
	now := time.Now().UTC()
	svc, repo := newTestService(now)
	ctx := context.Background()

	a, _ := svc.Enqueue(ctx, EnqueueOptions{Type: TypeOCR, MaxAttempts: 3})
	b, _ := svc.Enqueue(ctx, EnqueueOptions{Type: TypeOCR, MaxAttempts: 1})
	old := now.Add(-time.Hour)
	repo.Claim(ctx, "w", old)
	repo.Claim(ctx, "w", old)

	requeued, failed, err := repo.RecoverStale(ctx, now.Add(-15*time.Minute), now)
	if err != nil {
		t.Fatalf("RecoverStale: %v", err)
	}
	if requeued != 1 || failed != 1 {
		t.Fatalf("expected 1 requeued and 1 failed, got %d/%d", requeued, failed)
	}
	ga, _ := svc.Get(ctx, a.ID)
	gb, _ := svc.Get(ctx, b.ID)
	if ga.Status != StatusQueued || gb.Status != StatusError {
		t.Fatalf("unexpected statuses %s/%s", ga.Status, gb.Status)
	}
}

func TestListDefaultsTake(t *testing.T) {
	svc, _ := newTestService(time.Now())
	_, _, f, err := svc.List(context.Background(), ListFilter{Take: 500, Skip: -1})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if f.Take != maxTake || f.Skip != 0 {
		t.Fatalf("unexpected filter %+v", f)
	}
	if _, _, _, err := svc.List(context.Background(), ListFilter{Status: "PAUSED"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
