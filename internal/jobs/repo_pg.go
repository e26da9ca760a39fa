package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"

	"docuflow/internal/shared/storage/db"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var columns = []string{
	"id", "type", "status", "payload", "result", "metrics", "priority",
	"attempts", "max_attempts", "last_error", "scheduled_at", "locked_at",
	"locked_by", "started_at", "finished_at", "document_id", "created_at",
	"updated_at",
}

const returning = `
RETURNING id, type, status, payload, result, metrics, priority,
          attempts, max_attempts, last_error, scheduled_at, locked_at,
          locked_by, started_at, finished_at, document_id, created_at,
          updated_at`

// claimQuery locks and takes the next runnable job in one statement, so two
// workers never see the same row.
const claimQuery = `
UPDATE jobs
SET status = 'PROCESSING',
    attempts = attempts + 1,
    started_at = $1,
    locked_at = $1,
    locked_by = $2,
    last_error = NULL,
    updated_at = $1
WHERE id = (
    SELECT id FROM jobs
    WHERE status = 'QUEUED'
      AND (scheduled_at IS NULL OR scheduled_at <= $1)
    ORDER BY priority DESC, created_at ASC
    LIMIT 1
    FOR UPDATE SKIP LOCKED
)` + returning

const completeQuery = `
UPDATE jobs
SET status = 'DONE',
    result = $2::jsonb,
    metrics = $3::jsonb,
    finished_at = $4,
    locked_at = NULL,
    locked_by = NULL,
    updated_at = $4
WHERE id = $1 AND status = 'PROCESSING'`

const activeQuery = `
SELECT EXISTS (
    SELECT 1 FROM jobs
    WHERE document_id = $1 AND type = $2 AND status IN ('QUEUED', 'PROCESSING')
)`

const insertQuery = `
INSERT INTO jobs (
    id, type, status, payload, priority, attempts, max_attempts,
    scheduled_at, document_id, created_at, updated_at
) VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7, $8, $9, $10, $11)`

var errNotProcessing = errors.New("job no longer processing")

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, job Job) error {
	err := insertJob(ctx, r.DB, job)
	if db.IsForeignKeyViolation(err) || db.IsInvalidTextRepresentation(err) {
		return ErrDocumentNotFound
	}
	return err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertJob(ctx context.Context, e execer, job Job) error {
	_, err := e.ExecContext(ctx, insertQuery,
		job.ID, string(job.Type), string(job.Status), string(nonEmptyJSON(job.Payload)),
		job.Priority, job.Attempts, job.MaxAttempts, job.ScheduledAt, job.DocumentID,
		job.CreatedAt, job.UpdatedAt,
	)
	return err
}

func (r *PGRepo) Get(ctx context.Context, id string) (Job, error) {
	query, args, err := psql.Select(columns...).From("jobs").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return Job{}, err
	}
	j, err := scanJob(r.DB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) || db.IsInvalidTextRepresentation(err) {
		return Job{}, ErrNotFound
	}
	return j, err
}

func (r *PGRepo) GetListed(ctx context.Context, id string) (Listed, error) {
	query, args, err := listedSelect().Where(sq.Eq{"j.id": id}).ToSql()
	if err != nil {
		return Listed{}, err
	}
	l, err := scanListed(r.DB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) || db.IsInvalidTextRepresentation(err) {
		return Listed{}, ErrNotFound
	}
	return l, err
}

// listedSelect selects job columns followed by the joined document.
func listedSelect() sq.SelectBuilder {
	cols := make([]string, 0, len(columns)+3)
	for _, c := range columns {
		cols = append(cols, "j."+c)
	}
	cols = append(cols, "d.id", "d.original_name", "d.mime_type")
	return psql.Select(cols...).
		From("jobs j").
		LeftJoin("documents d ON d.id = j.document_id")
}

func scanListed(row scanner) (Listed, error) {
	var docID, docName, docMime sql.NullString
	j, err := scanJob(row, &docID, &docName, &docMime)
	if err != nil {
		return Listed{}, err
	}
	l := Listed{Job: j}
	if docID.Valid {
		l.Document = &DocumentRef{ID: docID.String, OriginalName: docName.String, MimeType: docMime.String}
	}
	return l, nil
}

// List returns jobs in claim order with their document.
func (r *PGRepo) List(ctx context.Context, f ListFilter) ([]Listed, int, error) {
	where := sq.And{}
	if f.Status != "" {
		where = append(where, sq.Eq{"j.status": string(f.Status)})
	}
	if f.Type != "" {
		where = append(where, sq.Eq{"j.type": string(f.Type)})
	}

	countQuery, countArgs, err := psql.Select("COUNT(*)").From("jobs j").Where(where).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.DB.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query, args, err := listedSelect().
		Where(where).
		OrderBy("j.priority DESC", "j.created_at ASC").
		Limit(uint64(f.Take)).
		Offset(uint64(f.Skip)).
		ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []Listed{}
	for rows.Next() {
		l, err := scanListed(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, l)
	}
	return out, total, rows.Err()
}

func (r *PGRepo) ListByDocument(ctx context.Context, documentID string) ([]Job, error) {
	query, args, err := psql.Select(columns...).From("jobs").
		Where(sq.Eq{"document_id": documentID}).
		OrderBy("created_at ASC").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (r *PGRepo) Claim(ctx context.Context, workerID string, now time.Time) (Job, bool, error) {
	j, err := scanJob(r.DB.QueryRowContext(ctx, claimQuery, now, workerID))
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, false, nil
	}
	if err != nil {
		return Job{}, false, err
	}
	return j, true, nil
}

func (r *PGRepo) Complete(ctx context.Context, id string, result, metrics json.RawMessage, now time.Time, next *Job) (bool, error) {
	err := db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, completeQuery, id, nullableJSON(result), nullableJSON(metrics), now)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errNotProcessing
		}
		if next == nil {
			return nil
		}
		if next.DocumentID != nil {
			var active bool
			if err := tx.QueryRowContext(ctx, activeQuery, *next.DocumentID, string(next.Type)).Scan(&active); err != nil {
				return err
			}
			if active {
				return nil
			}
		}
		return insertJob(ctx, tx, *next)
	})
	if errors.Is(err, errNotProcessing) {
		return false, nil
	}
	return err == nil, err
}

func (r *PGRepo) Fail(ctx context.Context, id, msg string, now time.Time, retryAt *time.Time) (bool, error) {
	var (
		res sql.Result
		err error
	)
	if retryAt == nil {
		res, err = r.DB.ExecContext(ctx, `
UPDATE jobs
SET status = 'ERROR', last_error = $2, finished_at = $3,
    locked_at = NULL, locked_by = NULL, updated_at = $3
WHERE id = $1 AND status = 'PROCESSING'`, id, msg, now)
	} else {
		res, err = r.DB.ExecContext(ctx, `
UPDATE jobs
SET status = 'QUEUED', last_error = $2, scheduled_at = $4,
    locked_at = NULL, locked_by = NULL, updated_at = $3
WHERE id = $1 AND status = 'PROCESSING'`, id, msg, now, *retryAt)
	}
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *PGRepo) Retry(ctx context.Context, id string, now time.Time) (Job, error) {
	const query = `
UPDATE jobs
SET status = 'QUEUED',
    attempts = 0,
    last_error = NULL,
    scheduled_at = $2,
    started_at = NULL,
    finished_at = NULL,
    locked_at = NULL,
    locked_by = NULL,
    updated_at = $2
WHERE id = $1 AND status = 'ERROR'` + returning
	return r.transition(ctx, id, query, id, now)
}

func (r *PGRepo) Cancel(ctx context.Context, id string, now time.Time) (Job, error) {
	const query = `
UPDATE jobs
SET status = 'ERROR',
    last_error = $3,
    finished_at = $2,
    locked_at = NULL,
    locked_by = NULL,
    updated_at = $2
WHERE id = $1 AND status IN ('QUEUED', 'PROCESSING')` + returning
	return r.transition(ctx, id, query, id, now, cancelledMessage)
}

// transition runs a conditional update; no row means the job is missing or
// in a status the update does not accept.
func (r *PGRepo) transition(ctx context.Context, id, query string, args ...any) (Job, error) {
	j, err := scanJob(r.DB.QueryRowContext(ctx, query, args...))
	if err == nil {
		return j, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Job{}, err
	}
	if _, err := r.Get(ctx, id); err != nil {
		return Job{}, err
	}
	return Job{}, ErrInvalidTransition
}

func (r *PGRepo) RecoverStale(ctx context.Context, cutoff, now time.Time) (int, int, error) {
	const query = `
UPDATE jobs
SET status = CASE WHEN attempts >= max_attempts THEN 'ERROR' ELSE 'QUEUED' END,
    finished_at = CASE WHEN attempts >= max_attempts THEN $2::timestamptz ELSE NULL END,
    scheduled_at = CASE WHEN attempts >= max_attempts THEN scheduled_at ELSE $2::timestamptz END,
    last_error = $3,
    locked_at = NULL,
    locked_by = NULL,
    updated_at = $2
WHERE status = 'PROCESSING' AND locked_at < $1
RETURNING status`
	rows, err := r.DB.QueryContext(ctx, query, cutoff, now, staleMessage)
	if err != nil {
		return 0, 0, err
	}
	defer rows.Close()
	var requeued, failed int
	for rows.Next() {
		var status string
		if err := rows.Scan(&status); err != nil {
			return 0, 0, err
		}
		if Status(status) == StatusError {
			failed++
		} else {
			requeued++
		}
	}
	return requeued, failed, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner, extra ...any) (Job, error) {
	var (
		j                                            Job
		typ, status                                  string
		payload, result, metrics                     []byte
		lastError, lockedBy, documentID              sql.NullString
		scheduledAt, lockedAt, startedAt, finishedAt sql.NullTime
	)
	dest := []any{
		&j.ID, &typ, &status, &payload, &result, &metrics, &j.Priority,
		&j.Attempts, &j.MaxAttempts, &lastError, &scheduledAt, &lockedAt,
		&lockedBy, &startedAt, &finishedAt, &documentID, &j.CreatedAt,
		&j.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return Job{}, err
	}
	j.Type = Type(typ)
	j.Status = Status(status)
	j.Payload = json.RawMessage(payload)
	if len(result) > 0 {
		j.Result = json.RawMessage(result)
	}
	if len(metrics) > 0 {
		j.Metrics = json.RawMessage(metrics)
	}
	j.LastError = nullString(lastError)
	j.LockedBy = nullString(lockedBy)
	j.DocumentID = nullString(documentID)
	j.ScheduledAt = nullTime(scheduledAt)
	j.LockedAt = nullTime(lockedAt)
	j.StartedAt = nullTime(startedAt)
	j.FinishedAt = nullTime(finishedAt)
	return j, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func nonEmptyJSON(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage(`{}`)
	}
	return raw
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

var _ Repo = (*PGRepo)(nil)
