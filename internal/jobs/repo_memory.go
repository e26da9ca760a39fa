package jobs

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repo for dev mode and tests.
type MemoryRepo struct {
	mu   sync.Mutex
	jobs map[string]Job
	// Documents resolves the document shown in listings.
	Documents func(id string) (DocumentRef, bool)
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{jobs: map[string]Job{}}
}

func (r *MemoryRepo) Create(ctx context.Context, job Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return j, nil
}

func (r *MemoryRepo) GetListed(ctx context.Context, id string) (Listed, error) {
	j, err := r.Get(ctx, id)
	if err != nil {
		return Listed{}, err
	}
	return r.listed(j), nil
}

func (r *MemoryRepo) listed(j Job) Listed {
	l := Listed{Job: j}
	if j.DocumentID != nil && r.Documents != nil {
		if d, ok := r.Documents(*j.DocumentID); ok {
			l.Document = &d
		}
	}
	return l
}

func (r *MemoryRepo) List(ctx context.Context, f ListFilter) ([]Listed, int, error) {
	r.mu.Lock()
	matched := make([]Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		if f.Status != "" && j.Status != f.Status {
			continue
		}
		if f.Type != "" && j.Type != f.Type {
			continue
		}
		matched = append(matched, j)
	}
	r.mu.Unlock()

	sortClaimOrder(matched)
	total := len(matched)
	start := min(f.Skip, total)
	end := min(start+f.Take, total)
	out := make([]Listed, 0, end-start)
	for _, j := range matched[start:end] {
		out = append(out, r.listed(j))
	}
	return out, total, nil
}

func (r *MemoryRepo) ListByDocument(ctx context.Context, documentID string) ([]Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []Job{}
	for _, j := range r.jobs {
		if j.DocumentID != nil && *j.DocumentID == documentID {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.Before(out[b].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) Claim(ctx context.Context, workerID string, now time.Time) (Job, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	runnable := []Job{}
	for _, j := range r.jobs {
		if j.Status == StatusQueued && (j.ScheduledAt == nil || !j.ScheduledAt.After(now)) {
			runnable = append(runnable, j)
		}
	}
	if len(runnable) == 0 {
		return Job{}, false, nil
	}
	sortClaimOrder(runnable)
	j := runnable[0]
	j.Status = StatusProcessing
	j.Attempts++
	j.StartedAt = &now
	j.LockedAt = &now
	j.LockedBy = &workerID
	j.LastError = nil
	j.UpdatedAt = now
	r.jobs[j.ID] = j
	return j, true, nil
}

func (r *MemoryRepo) Complete(ctx context.Context, id string, result, metrics json.RawMessage, now time.Time, next *Job) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok || j.Status != StatusProcessing {
		return false, nil
	}
	j.Status = StatusDone
	j.Result = result
	j.Metrics = metrics
	j.FinishedAt = &now
	j.LockedAt = nil
	j.LockedBy = nil
	j.UpdatedAt = now
	r.jobs[id] = j
	if next != nil && !r.hasActiveLocked(next.DocumentID, next.Type) {
		r.jobs[next.ID] = *next
	}
	return true, nil
}

func (r *MemoryRepo) Fail(ctx context.Context, id, msg string, now time.Time, retryAt *time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok || j.Status != StatusProcessing {
		return false, nil
	}
	j.LastError = &msg
	j.LockedAt = nil
	j.LockedBy = nil
	j.UpdatedAt = now
	if retryAt == nil {
		j.Status = StatusError
		j.FinishedAt = &now
	} else {
		j.Status = StatusQueued
		at := *retryAt
		j.ScheduledAt = &at
	}
	r.jobs[id] = j
	return true, nil
}

func (r *MemoryRepo) Retry(ctx context.Context, id string, now time.Time) (Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	if j.Status != StatusError {
		return Job{}, ErrInvalidTransition
	}
	j.Status = StatusQueued
	j.Attempts = 0
	j.LastError = nil
	j.ScheduledAt = &now
	j.StartedAt = nil
	j.FinishedAt = nil
	j.LockedAt = nil
	j.LockedBy = nil
	j.UpdatedAt = now
	r.jobs[id] = j
	return j, nil
}

func (r *MemoryRepo) Cancel(ctx context.Context, id string, now time.Time) (Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	if j.Status == StatusDone || j.Status == StatusError {
		return Job{}, ErrInvalidTransition
	}
	msg := cancelledMessage
	j.Status = StatusError
	j.LastError = &msg
	j.FinishedAt = &now
	j.LockedAt = nil
	j.LockedBy = nil
	j.UpdatedAt = now
	r.jobs[id] = j
	return j, nil
}

func (r *MemoryRepo) RecoverStale(ctx context.Context, cutoff, now time.Time) (int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var requeued, failed int
	for id, j := range r.jobs {
		if j.Status != StatusProcessing || j.LockedAt == nil || !j.LockedAt.Before(cutoff) {
			continue
		}
		msg := staleMessage
		j.LastError = &msg
		j.LockedAt = nil
		j.LockedBy = nil
		j.UpdatedAt = now
		if j.Attempts >= j.MaxAttempts {
			j.Status = StatusError
			j.FinishedAt = &now
			failed++
		} else {
			j.Status = StatusQueued
			j.ScheduledAt = &now
			requeued++
		}
		r.jobs[id] = j
	}
	return requeued, failed, nil
}

func (r *MemoryRepo) hasActiveLocked(documentID *string, t Type) bool {
	if documentID == nil {
		return false
	}
	for _, j := range r.jobs {
		if j.DocumentID == nil || *j.DocumentID != *documentID || j.Type != t {
			continue
		}
		if j.Status == StatusQueued || j.Status == StatusProcessing {
			return true
		}
	}
	return false
}

func sortClaimOrder(jobs []Job) {
	sort.Slice(jobs, func(a, b int) bool {
		if jobs[a].Priority != jobs[b].Priority {
			return jobs[a].Priority > jobs[b].Priority
		}
		if !jobs[a].CreatedAt.Equal(jobs[b].CreatedAt) {
			return jobs[a].CreatedAt.Before(jobs[b].CreatedAt)
		}
		return jobs[a].ID < jobs[b].ID
	})
}

var _ Repo = (*MemoryRepo)(nil)
