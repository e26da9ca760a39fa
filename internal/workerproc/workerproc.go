package workerproc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"docuflow/internal/jobs"
	"docuflow/internal/shared/cache"
	"docuflow/internal/shared/metrics"
	"docuflow/internal/shared/telemetry"
)

// Handler runs one claimed job.
type Handler interface {
	Handle(ctx context.Context, job jobs.Job) (jobs.Outcome, error)
}

// Options tunes the poll loop.
type Options struct {
	WorkerID        string
	Concurrency     int
	PollInterval    time.Duration
	RetryBase       time.Duration
	RetryMax        time.Duration
	ShutdownTimeout time.Duration
	StaleAfter      time.Duration
}

// Worker claims jobs from the queue and runs them through Handler.
type Worker struct {
	Jobs    *jobs.Service
	Handler Handler
	// Signals, when set, wakes the poll loop as soon as a job is enqueued.
	Signals cache.Signals
	Opts    Options
	Now     func() time.Time
	// Rand feeds retry jitter; nil uses math/rand.
	Rand func() float64
}

// DefaultWorkerID identifies this process in locked_by.
func DefaultWorkerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d-%s", host, os.Getpid(), uuid.NewString()[:8])
}

func (w *Worker) now() time.Time {
	if w.Now != nil {
		return w.Now().UTC()
	}
	return time.Now().UTC()
}

func (w *Worker) options() Options {
	o := w.Opts
	if o.Concurrency < 1 {
		o.Concurrency = 1
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 5 * time.Second
	}
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = 30 * time.Second
	}
	if o.StaleAfter <= 0 {
		o.StaleAfter = 15 * time.Minute
	}
	return o
}

// Run polls until ctx is cancelled, then waits up to ShutdownTimeout for
// in-flight jobs. Jobs run on a context detached from ctx so a shutdown
// signal does not abort them mid-way.
func (w *Worker) Run(ctx context.Context) error {
	if w.Opts.WorkerID == "" {
		w.Opts.WorkerID = DefaultWorkerID()
	}
	opts := w.options()
	jobCtx, cancelJobs := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelJobs()

	var wake <-chan struct{}
	if w.Signals != nil {
		ch, err := w.Signals.Listen(ctx, cache.ChannelJobsQueued)
		if err != nil {
			telemetry.Warn("worker.listen_failed", map[string]any{"error": err.Error()})
		} else {
			wake = ch
		}
	}

	sem := make(chan struct{}, opts.Concurrency)
	freed := make(chan struct{}, 1)
	var wg sync.WaitGroup
	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	telemetry.Info("worker.started", map[string]any{
		"worker_id":        opts.WorkerID,
		"concurrency":      opts.Concurrency,
		"poll_interval_ms": opts.PollInterval.Milliseconds(),
	})

pollLoop:
	for {
		w.fill(ctx, jobCtx, opts.WorkerID, sem, freed, &wg)
		select {
		case <-ctx.Done():
			break pollLoop
		case <-ticker.C:
		case <-wake:
		case <-freed:
		}
	}

	telemetry.Info("worker.shutdown", map[string]any{"timeout": opts.ShutdownTimeout.String()})
	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
		return nil
	case <-time.After(opts.ShutdownTimeout):
		cancelJobs()
		telemetry.Warn("worker.shutdown_timeout", map[string]any{"in_flight": len(sem)})
		return errors.New("shutdown timeout reached with in-flight jobs")
	}
}

// fill claims jobs until every slot is busy or the queue has nothing runnable.
func (w *Worker) fill(ctx, jobCtx context.Context, workerID string, sem chan struct{}, freed chan struct{}, wg *sync.WaitGroup) {
	for ctx.Err() == nil {
		select {
		case sem <- struct{}{}:
		default:
			return
		}
		job, ok, err := w.Jobs.Repo.Claim(ctx, workerID, w.now())
		if err != nil || !ok {
			<-sem
			if err != nil && ctx.Err() == nil {
				telemetry.Error("worker.claim_failed", map[string]any{"error": err.Error()})
			}
			return
		}
		wg.Add(1)
		go func(j jobs.Job) {
			defer wg.Done()
			defer func() {
				<-sem
				select {
				case freed <- struct{}{}:
				default:
				}
			}()
			w.Process(jobCtx, j)
		}(job)
	}
}

// Process runs a claimed job and records its outcome.
func (w *Worker) Process(ctx context.Context, job jobs.Job) {
	started := w.now()
	fields := jobFields(job)
	metrics.IncJobClaimed(string(job.Type))
	telemetry.Info("worker.job.claimed", fields)

	out, err := w.handle(ctx, job)
	finished := w.now()
	metrics.ObserveJobDuration(string(job.Type), finished.Sub(started))
	if err != nil {
		w.fail(ctx, job, err, started, finished)
		return
	}

	result, err := json.Marshal(out.Result)
	if err != nil {
		w.fail(ctx, job, jobs.Permanent(fmt.Errorf("encode result: %w", err)), started, finished)
		return
	}
	stats := runMetrics(started, finished, out.Metrics)
	var next *jobs.Job
	if out.Next != nil {
		nj, err := w.Jobs.Build(*out.Next)
		if err != nil {
			w.fail(ctx, job, jobs.Permanent(fmt.Errorf("build next stage: %w", err)), started, finished)
			return
		}
		next = &nj
	}

	ok, err := w.Jobs.Repo.Complete(ctx, job.ID, result, stats, finished, next)
	if err != nil {
		w.fail(ctx, job, fmt.Errorf("complete: %w", err), started, finished)
		return
	}
	if !ok {
		telemetry.Warn("worker.job.discarded", fields)
		return
	}
	metrics.IncJobCompleted(string(job.Type))
	fields["duration_ms"] = finished.Sub(started).Milliseconds()
	if next != nil {
		fields["next_type"] = string(next.Type)
		w.Jobs.Wake(ctx)
	}
	telemetry.Info("worker.job.completed", fields)
}

// handle runs the handler, turning panics into permanent failures.
func (w *Worker) handle(ctx context.Context, job jobs.Job) (out jobs.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = jobs.Permanent(fmt.Errorf("panic: %v", r))
		}
	}()
	return w.Handler.Handle(ctx, job)
}

// fail ends the job in ERROR when it is permanent or out of attempts and
// schedules a retry with backoff otherwise.
func (w *Worker) fail(ctx context.Context, job jobs.Job, cause error, started, finished time.Time) {
	opts := w.options()
	final := jobs.IsPermanent(cause) || job.Attempts >= job.MaxAttempts
	var retryAt *time.Time
	if !final {
		at := finished.Add(jobs.RetryDelay(job.Attempts, opts.RetryBase, opts.RetryMax, w.Rand))
		retryAt = &at
	}

	fields := jobFields(job)
	fields["error"] = cause.Error()
	fields["duration_ms"] = finished.Sub(started).Milliseconds()
	ok, err := w.Jobs.Repo.Fail(ctx, job.ID, cause.Error(), finished, retryAt)
	if err != nil {
		fields["fail_error"] = err.Error()
		telemetry.Error("worker.job.fail_record_failed", fields)
		return
	}
	if !ok {
		telemetry.Warn("worker.job.discarded", fields)
		return
	}
	metrics.IncJobFailed(string(job.Type), final)
	if final {
		fields["permanent"] = jobs.IsPermanent(cause)
		telemetry.Error("worker.job.failed", fields)
		return
	}
	fields["retry_at"] = retryAt.Format(time.RFC3339)
	telemetry.Warn("worker.job.retry", fields)
}

// Drain claims and runs jobs one at a time until nothing is runnable or ctx
// ends, and returns how many it ran. It serves event-driven consumers that
// have no poll loop.
func (w *Worker) Drain(ctx context.Context) (int, error) {
	if w.Opts.WorkerID == "" {
		w.Opts.WorkerID = DefaultWorkerID()
	}
	n := 0
	for ctx.Err() == nil {
		job, ok, err := w.Jobs.Repo.Claim(ctx, w.Opts.WorkerID, w.now())
		if err != nil {
			return n, fmt.Errorf("claim: %w", err)
		}
		if !ok {
			return n, nil
		}
		w.Process(ctx, job)
		n++
	}
	return n, ctx.Err()
}

// RecoverStale releases jobs whose worker stopped heartbeating by holding
// the lock longer than StaleAfter.
func (w *Worker) RecoverStale(ctx context.Context) (requeued, failed int, err error) {
	opts := w.options()
	now := w.now()
	requeued, failed, err = w.Jobs.Repo.RecoverStale(ctx, now.Add(-opts.StaleAfter), now)
	if err != nil {
		return 0, 0, err
	}
	if requeued+failed > 0 {
		metrics.AddJobsRecovered(requeued + failed)
		telemetry.Warn("worker.recovery", map[string]any{"requeued": requeued, "failed": failed})
	}
	if requeued > 0 {
		w.Jobs.Wake(ctx)
	}
	return requeued, failed, nil
}

// RecoveryJob adapts RecoverStale to the maintenance scheduler.
type RecoveryJob struct {
	Worker  *Worker
	Timeout time.Duration
}

func (j RecoveryJob) Run() error {
	timeout := j.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	_, _, err := j.Worker.RecoverStale(ctx)
	return err
}

func (j RecoveryJob) Name() string { return "stale-job-recovery" }

func runMetrics(started, finished time.Time, extra map[string]any) json.RawMessage {
	m := map[string]any{}
	for k, v := range extra {
		m[k] = v
	}
	m["startedAt"] = started.Format(time.RFC3339Nano)
	m["completedAt"] = finished.Format(time.RFC3339Nano)
	m["durationMs"] = finished.Sub(started).Milliseconds()
	raw, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return raw
}

func jobFields(job jobs.Job) map[string]any {
	fields := map[string]any{
		"job_id":       job.ID,
		"job_type":     string(job.Type),
		"attempt":      job.Attempts,
		"max_attempts": job.MaxAttempts,
	}
	if job.DocumentID != nil {
		fields["document_id"] = *job.DocumentID
	}
	return fields
}
