package jobs

import (
	"context"
	"encoding/json"
	"time"
)

// Repo persists jobs. Claim, Complete and Fail carry the worker's state
// machine and must be safe for concurrent workers.
type Repo interface {
	Create(ctx context.Context, job Job) error
	Get(ctx context.Context, id string) (Job, error)
	// GetListed returns a job with its document, when it still exists.
	GetListed(ctx context.Context, id string) (Listed, error)
	List(ctx context.Context, f ListFilter) ([]Listed, int, error)
	ListByDocument(ctx context.Context, documentID string) ([]Job, error)

	// Claim moves the next runnable QUEUED job to PROCESSING, counting the
	// attempt. ok is false when nothing is runnable.
	Claim(ctx context.Context, workerID string, now time.Time) (job Job, ok bool, err error)
	// Complete marks a PROCESSING job DONE and, in the same transaction,
	// enqueues next unless an active job of that type exists for its
	// document. ok is false when the job was no longer PROCESSING.
	Complete(ctx context.Context, id string, result, metrics json.RawMessage, now time.Time, next *Job) (ok bool, err error)
	// Fail records msg. A nil retryAt ends the job in ERROR; otherwise it is
	// queued again for retryAt.
	Fail(ctx context.Context, id, msg string, now time.Time, retryAt *time.Time) (ok bool, err error)

	Retry(ctx context.Context, id string, now time.Time) (Job, error)
	Cancel(ctx context.Context, id string, now time.Time) (Job, error)
	// RecoverStale releases PROCESSING jobs locked before cutoff.
	RecoverStale(ctx context.Context, cutoff, now time.Time) (requeued, failed int, err error)
}

const (
	cancelledMessage = "Cancelled by user"
	staleMessage     = "Worker lock expired"
)
