package documents

import (
	"context"
	"time"
)

// Repo defines persistence operations for documents and their extractions.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, id string) (Document, error)
	List(ctx context.Context, f ListFilter) ([]Document, int, error)
	UpdateType(ctx context.Context, id string, t Type, at time.Time) error
	// MarkProcessed sets processed_at and merges meta into the metadata object.
	MarkProcessed(ctx context.Context, id string, at time.Time, meta map[string]any) error
	UpsertExtraction(ctx context.Context, e Extraction) error
	GetExtraction(ctx context.Context, documentID, fieldName string) (Extraction, error)
	ListExtractions(ctx context.Context, documentID string) ([]Extraction, error)
	CountByMember(ctx context.Context, memberID string) (int, error)
	CountByInstitution(ctx context.Context, institutionID string) (int, error)
}
