package documents

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
	"id", "original_name", "storage_key", "mime_type", "size_bytes", "sha256", "type",
	"member_id", "institution_id", "metadata", "uploaded_at", "processed_at",
	"created_at", "updated_at",
}

var extractionColumns = []string{
	"id", "document_id", "field_name", "field_value", "page_index", "source",
	"confidence", "created_at", "updated_at",
}

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new document.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	meta, err := json.Marshal(nonNilMeta(doc.Metadata))
	if err != nil {
		return err
	}
	const query = `
INSERT INTO documents (
    id,
    original_name,
    storage_key,
    mime_type,
    size_bytes,
    sha256,
    type,
    member_id,
    institution_id,
    metadata,
    uploaded_at,
    created_at,
    updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err = r.DB.ExecContext(ctx, query,
		doc.ID,
		doc.OriginalName,
		doc.StorageKey,
		doc.MimeType,
		doc.SizeBytes,
		doc.SHA256,
		string(doc.Type),
		doc.MemberID,
		doc.InstitutionID,
		string(meta),
		doc.UploadedAt,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	if db.IsForeignKeyViolation(err) || db.IsInvalidTextRepresentation(err) {
		return ErrOwnerNotFound
	}
	return err
}

// GetByID fetches a document by ID.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Document, error) {
	query, args, err := psql.Select(columns...).From("documents").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return Document{}, err
	}
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) || db.IsInvalidTextRepresentation(err) {
		return Document{}, ErrNotFound
	}
	return doc, err
}

// List returns documents newest first.
func (r *PGRepo) List(ctx context.Context, f ListFilter) ([]Document, int, error) {
	where := sq.And{}
	if f.Type != "" {
		where = append(where, sq.Eq{"type": string(f.Type)})
	}
	if f.MemberID != "" {
		where = append(where, sq.Eq{"member_id": f.MemberID})
	}
	if f.Q != "" {
		where = append(where, sq.ILike{"original_name": "%" + f.Q + "%"})
	}

	countQuery, countArgs, err := psql.Select("COUNT(*)").From("documents").Where(where).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.DB.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query, args, err := psql.Select(columns...).From("documents").Where(where).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(f.PageSize)).
		Offset(uint64((f.Page - 1) * f.PageSize)).
		ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, doc)
	}
	return out, total, rows.Err()
}

// UpdateType sets the classification of a document.
func (r *PGRepo) UpdateType(ctx context.Context, id string, t Type, at time.Time) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE documents SET type = $2, updated_at = $3 WHERE id = $1`, id, string(t), at)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkProcessed sets processed_at and merges meta into metadata.
func (r *PGRepo) MarkProcessed(ctx context.Context, id string, at time.Time, meta map[string]any) error {
	patch, err := json.Marshal(nonNilMeta(meta))
	if err != nil {
		return err
	}
	const query = `
UPDATE documents
SET processed_at = $2,
    updated_at = $2,
    metadata = COALESCE(metadata, '{}'::jsonb) || $3::jsonb
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, id, at, string(patch))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertExtraction inserts or replaces the named field of a document.
func (r *PGRepo) UpsertExtraction(ctx context.Context, e Extraction) error {
	const query = `
INSERT INTO extractions (id, document_id, field_name, field_value, page_index, source, confidence, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (document_id, field_name) DO UPDATE
SET field_value = EXCLUDED.field_value,
    page_index = EXCLUDED.page_index,
    source = EXCLUDED.source,
    confidence = EXCLUDED.confidence,
    updated_at = EXCLUDED.updated_at`
	_, err := r.DB.ExecContext(ctx, query,
		e.ID, e.DocumentID, e.FieldName, e.FieldValue, e.PageIndex,
		e.Source, e.Confidence, e.CreatedAt, e.UpdatedAt,
	)
	return err
}

func (r *PGRepo) GetExtraction(ctx context.Context, documentID, fieldName string) (Extraction, error) {
	query, args, err := psql.Select(extractionColumns...).From("extractions").
		Where(sq.Eq{"document_id": documentID, "field_name": fieldName}).ToSql()
	if err != nil {
		return Extraction{}, err
	}
	e, err := scanExtraction(r.DB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) || db.IsInvalidTextRepresentation(err) {
		return Extraction{}, ErrNotFound
	}
	return e, err
}

func (r *PGRepo) ListExtractions(ctx context.Context, documentID string) ([]Extraction, error) {
	query, args, err := psql.Select(extractionColumns...).From("extractions").
		Where(sq.Eq{"document_id": documentID}).OrderBy("field_name ASC").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Extraction{}
	for rows.Next() {
		e, err := scanExtraction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *PGRepo) CountByMember(ctx context.Context, memberID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE member_id = $1`, memberID).Scan(&n)
	return n, err
}

func (r *PGRepo) CountByInstitution(ctx context.Context, institutionID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE institution_id = $1`, institutionID).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var docType string
	var memberID, institutionID sql.NullString
	var meta []byte
	var processedAt sql.NullTime
	err := row.Scan(
		&doc.ID,
		&doc.OriginalName,
		&doc.StorageKey,
		&doc.MimeType,
		&doc.SizeBytes,
		&doc.SHA256,
		&docType,
		&memberID,
		&institutionID,
		&meta,
		&doc.UploadedAt,
		&processedAt,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return Document{}, err
	}
	doc.Type = Type(docType)
	if memberID.Valid {
		doc.MemberID = &memberID.String
	}
	if institutionID.Valid {
		doc.InstitutionID = &institutionID.String
	}
	if processedAt.Valid {
		doc.ProcessedAt = &processedAt.Time
	}
	doc.Metadata = map[string]any{}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &doc.Metadata); err != nil {
			return Document{}, err
		}
	}
	return doc, nil
}

func scanExtraction(row rowScanner) (Extraction, error) {
	var e Extraction
	var pageIndex sql.NullInt64
	err := row.Scan(
		&e.ID,
		&e.DocumentID,
		&e.FieldName,
		&e.FieldValue,
		&pageIndex,
		&e.Source,
		&e.Confidence,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return Extraction{}, err
	}
	if pageIndex.Valid {
		p := int(pageIndex.Int64)
		e.PageIndex = &p
	}
	return e, nil
}

func nonNilMeta(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

var _ Repo = (*PGRepo)(nil)
