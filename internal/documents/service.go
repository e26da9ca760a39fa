package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"docuflow/internal/shared/storage/object"
)

// MemberSummary is the member shown next to a document.
type MemberSummary struct {
	ID        string
	FirstName string
	LastName  string
	DNI       *string
}

// JobSummary is a pipeline job attached to a document.
type JobSummary struct {
	ID        string
	Type      string
	Status    string
	LastError *string
	CreatedAt time.Time
}

// MemberLookup resolves the member of a document.
type MemberLookup interface {
	LookupMember(ctx context.Context, id string) (MemberSummary, error)
}

// JobLister returns the jobs of a document.
type JobLister interface {
	JobsForDocument(ctx context.Context, documentID string) ([]JobSummary, error)
}

// RecordLoader returns the parsed records of a document, or nil when none exist.
type RecordLoader interface {
	RecordsForDocument(ctx context.Context, documentID string) (any, error)
}

// Service contains business logic for documents.
type Service struct {
	Repo    Repo
	Store   object.ObjectStore
	Members MemberLookup
	Jobs    JobLister
	Records RecordLoader
	Now     func() time.Time
}

// NewDocument describes a stored object to register as a document.
type NewDocument struct {
	Object        object.Object
	OriginalName  string
	MimeType      string
	Type          Type
	MemberID      *string
	InstitutionID *string
	Metadata      map[string]any
}

// Detail is a document with everything the API shows about it.
type Detail struct {
	Document    Document
	Member      *MemberSummary
	Extractions []Extraction
	Jobs        []JobSummary
	Records     any
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Register records a stored object as a document.
func (s *Service) Register(ctx context.Context, in NewDocument) (Document, error) {
	if strings.TrimSpace(in.OriginalName) == "" || in.Object.Key == "" {
		return Document{}, ErrInvalidInput
	}
	docType := in.Type
	if docType == "" {
		docType = TypeDesconocido
	}
	mimeType := in.MimeType
	if mimeType == "" {
		mimeType = in.Object.ContentType
	}
	now := s.now()
	doc := Document{
		ID:            uuid.NewString(),
		OriginalName:  in.OriginalName,
		StorageKey:    in.Object.Key,
		MimeType:      mimeType,
		SizeBytes:     in.Object.Size,
		SHA256:        in.Object.SHA256,
		Type:          docType,
		MemberID:      in.MemberID,
		InstitutionID: in.InstitutionID,
		Metadata:      in.Metadata,
		UploadedAt:    now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if doc.Metadata == nil {
		doc.Metadata = map[string]any{}
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Get returns a document with its extractions, jobs and parsed records.
func (s *Service) Get(ctx context.Context, id string) (Detail, error) {
	doc, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	d, err := s.detail(ctx, doc)
	if err != nil {
		return Detail{}, err
	}
	if s.Records != nil {
		if d.Records, err = s.Records.RecordsForDocument(ctx, id); err != nil {
			return Detail{}, err
		}
	}
	return d, nil
}

// List returns a page of documents, newest first.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Detail, int, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 || f.PageSize > 100 {
		f.PageSize = 20
	}
	if f.Type != "" && !f.Type.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown document type %q", ErrInvalidInput, f.Type)
	}
	if f.MemberID != "" {
		if _, err := uuid.Parse(f.MemberID); err != nil {
			return nil, 0, fmt.Errorf("%w: memberId must be a uuid", ErrInvalidInput)
		}
	}
	f.Q = strings.TrimSpace(f.Q)

	docs, total, err := s.Repo.List(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	out := make([]Detail, 0, len(docs))
	for _, doc := range docs {
		d, err := s.detail(ctx, doc)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, nil
}

// Open returns the document and a reader over its stored original.
func (s *Service) Open(ctx context.Context, id string) (Document, io.ReadCloser, error) {
	doc, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Document{}, nil, err
	}
	rc, err := s.Store.Open(ctx, doc.StorageKey)
	if errors.Is(err, object.ErrNotFound) {
		return Document{}, nil, ErrNotFound
	}
	if err != nil {
		return Document{}, nil, err
	}
	return doc, rc, nil
}

// SaveText stores one extraction per page plus the joined full text.
func (s *Service) SaveText(ctx context.Context, documentID string, pages []string, source string) (string, error) {
	now := s.now()
	for i, text := range pages {
		idx := i
		e := Extraction{
			ID:         uuid.NewString(),
			DocumentID: documentID,
			FieldName:  fmt.Sprintf("page_%d", i+1),
			FieldValue: text,
			PageIndex:  &idx,
			Source:     source,
			Confidence: 1,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.Repo.UpsertExtraction(ctx, e); err != nil {
			return "", err
		}
	}
	full := strings.Join(pages, "\n\n")
	e := Extraction{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		FieldName:  FieldFullText,
		FieldValue: full,
		Source:     source,
		Confidence: 1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Repo.UpsertExtraction(ctx, e); err != nil {
		return "", err
	}
	return full, nil
}

// FullText returns the stored full_text extraction of a document.
func (s *Service) FullText(ctx context.Context, documentID string) (string, error) {
	e, err := s.Repo.GetExtraction(ctx, documentID, FieldFullText)
	if err != nil {
		return "", err
	}
	return e.FieldValue, nil
}

// SetType records the classification of a document.
func (s *Service) SetType(ctx context.Context, documentID string, t Type) error {
	if !t.Valid() {
		return ErrInvalidInput
	}
	return s.Repo.UpdateType(ctx, documentID, t, s.now())
}

// MarkProcessed stamps processedAt and merges meta into the document metadata.
func (s *Service) MarkProcessed(ctx context.Context, documentID string, meta map[string]any) (time.Time, error) {
	now := s.now()
	return now, s.Repo.MarkProcessed(ctx, documentID, now, meta)
}

func (s *Service) detail(ctx context.Context, doc Document) (Detail, error) {
	d := Detail{Document: doc}
	var err error
	if doc.MemberID != nil && s.Members != nil {
		m, err := s.Members.LookupMember(ctx, *doc.MemberID)
		if err == nil {
			d.Member = &m
		}
	}
	if d.Extractions, err = s.Repo.ListExtractions(ctx, doc.ID); err != nil {
		return Detail{}, err
	}
	if s.Jobs != nil {
		if d.Jobs, err = s.Jobs.JobsForDocument(ctx, doc.ID); err != nil {
			return Detail{}, err
		}
	}
	return d, nil
}
