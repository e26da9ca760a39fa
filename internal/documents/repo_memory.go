package documents

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu          sync.RWMutex
	docs        map[string]Document
	extractions map[string]map[string]Extraction // documentId -> fieldName -> extraction
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		docs:        make(map[string]Document),
		extractions: make(map[string]map[string]Extraction),
	}
}

func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc.Metadata = copyMeta(doc.Metadata)
	r.docs[doc.ID] = doc
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	doc.Metadata = copyMeta(doc.Metadata)
	return doc, nil
}

func (r *MemoryRepo) List(ctx context.Context, f ListFilter) ([]Document, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	q := strings.ToLower(f.Q)

	r.mu.RLock()
	var matched []Document
	for _, doc := range r.docs {
		if f.Type != "" && doc.Type != f.Type {
			continue
		}
		if f.MemberID != "" && (doc.MemberID == nil || *doc.MemberID != f.MemberID) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(doc.OriginalName), q) {
			continue
		}
		matched = append(matched, doc)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	offset := (f.Page - 1) * f.PageSize
	if offset >= total {
		return []Document{}, total, nil
	}
	end := offset + f.PageSize
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (r *MemoryRepo) UpdateType(ctx context.Context, id string, t Type, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return ErrNotFound
	}
	doc.Type = t
	doc.UpdatedAt = at
	r.docs[id] = doc
	return nil
}

func (r *MemoryRepo) MarkProcessed(ctx context.Context, id string, at time.Time, meta map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return ErrNotFound
	}
	merged := copyMeta(doc.Metadata)
	for k, v := range meta {
		merged[k] = v
	}
	doc.Metadata = merged
	doc.ProcessedAt = &at
	doc.UpdatedAt = at
	r.docs[id] = doc
	return nil
}

func (r *MemoryRepo) UpsertExtraction(ctx context.Context, e Extraction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[e.DocumentID]; !ok {
		return ErrNotFound
	}
	fields := r.extractions[e.DocumentID]
	if fields == nil {
		fields = make(map[string]Extraction)
		r.extractions[e.DocumentID] = fields
	}
	if prev, ok := fields[e.FieldName]; ok {
		e.ID = prev.ID
		e.CreatedAt = prev.CreatedAt
	}
	fields[e.FieldName] = e
	return nil
}

func (r *MemoryRepo) GetExtraction(ctx context.Context, documentID, fieldName string) (Extraction, error) {
	if err := ctx.Err(); err != nil {
		return Extraction{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.extractions[documentID][fieldName]
	if !ok {
		return Extraction{}, ErrNotFound
	}
	return e, nil
}

func (r *MemoryRepo) ListExtractions(ctx context.Context, documentID string) ([]Extraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Extraction, 0, len(r.extractions[documentID]))
	for _, e := range r.extractions[documentID] {
		out = append(out, e)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].FieldName < out[j].FieldName })
	return out, nil
}

func (r *MemoryRepo) CountByMember(ctx context.Context, memberID string) (int, error) {
	return r.count(ctx, func(d Document) *string { return d.MemberID }, memberID)
}

func (r *MemoryRepo) CountByInstitution(ctx context.Context, institutionID string) (int, error) {
	return r.count(ctx, func(d Document) *string { return d.InstitutionID }, institutionID)
}

func (r *MemoryRepo) count(ctx context.Context, field func(Document) *string, id string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, doc := range r.docs {
		if v := field(doc); v != nil && *v == id {
			n++
		}
	}
	return n, nil
}

func copyMeta(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

var _ Repo = (*MemoryRepo)(nil)
