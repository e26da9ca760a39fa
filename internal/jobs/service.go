package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"docuflow/internal/shared/cache"
	"docuflow/internal/shared/telemetry"
)

const (
	defaultTake = 20
	maxTake     = 100
)

// Service contains job lifecycle logic shared by the API and the worker.
type Service struct {
	Repo Repo
	// Signals, when set, wakes idle workers after an enqueue.
	Signals cache.Signals
	Now     func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Build validates opts and returns the job row it describes without
// persisting it.
func (s *Service) Build(opts EnqueueOptions) (Job, error) {
	if !opts.Type.Valid() {
		return Job{}, fmt.Errorf("%w: unknown job type %q", ErrInvalidInput, opts.Type)
	}
	payload, err := marshalPayload(opts.Payload)
	if err != nil {
		return Job{}, fmt.Errorf("%w: payload: %v", ErrInvalidInput, err)
	}
	documentID := opts.DocumentID
	if documentID == nil {
		if id := documentIDOf(payload); id != "" {
			documentID = &id
		}
	}
	now := s.now()
	return Job{
		ID:          uuid.NewString(),
		Type:        opts.Type,
		Status:      StatusQueued,
		Payload:     payload,
		Priority:    clamp(opts.Priority, MinPriority, MaxPriority),
		MaxAttempts: clampAttempts(opts.MaxAttempts),
		ScheduledAt: opts.ScheduledAt,
		DocumentID:  documentID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Enqueue persists a new QUEUED job and wakes the workers.
func (s *Service) Enqueue(ctx context.Context, opts EnqueueOptions) (Job, error) {
	job, err := s.Build(opts)
	if err != nil {
		return Job{}, err
	}
	if err := s.Repo.Create(ctx, job); err != nil {
		return Job{}, err
	}
	s.Wake(ctx)
	return job, nil
}

// Wake notifies listening workers that work is available. Failures only log.
func (s *Service) Wake(ctx context.Context) {
	if s.Signals == nil {
		return
	}
	if err := s.Signals.Signal(ctx, cache.ChannelJobsQueued); err != nil {
		telemetry.Warn("jobs.signal_failed", map[string]any{"error": err.Error()})
	}
}

func (s *Service) Get(ctx context.Context, id string) (Job, error) {
	return s.Repo.Get(ctx, id)
}

// Detail returns a job with the document it belongs to.
func (s *Service) Detail(ctx context.Context, id string) (Listed, error) {
	return s.Repo.GetListed(ctx, id)
}

// List returns jobs in claim order. take defaults to 20 and is capped at 100.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Listed, int, ListFilter, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, f, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, f.Status)
	}
	if f.Type != "" && !f.Type.Valid() {
		return nil, 0, f, fmt.Errorf("%w: unknown type %q", ErrInvalidInput, f.Type)
	}
	if f.Take <= 0 {
		f.Take = defaultTake
	}
	if f.Take > maxTake {
		f.Take = maxTake
	}
	if f.Skip < 0 {
		f.Skip = 0
	}
	items, total, err := s.Repo.List(ctx, f)
	return items, total, f, err
}

func (s *Service) ListByDocument(ctx context.Context, documentID string) ([]Job, error) {
	return s.Repo.ListByDocument(ctx, documentID)
}

// Retry requeues a job that ended in ERROR with a fresh attempt budget.
func (s *Service) Retry(ctx context.Context, id string) (Job, error) {
	j, err := s.Repo.Retry(ctx, id, s.now())
	if err != nil {
		return Job{}, err
	}
	s.Wake(ctx)
	return j, nil
}

// Cancel stops a QUEUED or PROCESSING job. A running handler finishes but
// its result is discarded.
func (s *Service) Cancel(ctx context.Context, id string) (Job, error) {
	return s.Repo.Cancel(ctx, id, s.now())
}

func marshalPayload(p any) (json.RawMessage, error) {
	switch v := p.(type) {
	case nil:
		return json.RawMessage(`{}`), nil
	case json.RawMessage:
		if len(v) == 0 || string(v) == "null" {
			return json.RawMessage(`{}`), nil
		}
		if !json.Valid(v) {
			return nil, fmt.Errorf("invalid json")
		}
		return v, nil
	default:
		return json.Marshal(v)
	}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func clampAttempts(v int) int {
	if v == 0 {
		return DefaultMaxAttempts
	}
	return clamp(v, 1, MaxAttemptsLimit)
}
