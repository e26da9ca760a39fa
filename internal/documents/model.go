package documents

import "time"

// Type is the classification of a document.
type Type string

const (
	TypeListadoAporte    Type = "LISTADO_APORTE"
	TypeComprobanteBanco Type = "COMPROBANTE_BANCO"
	TypeDesconocido      Type = "DESCONOCIDO"
)

// Valid reports whether t is a known document type.
func (t Type) Valid() bool {
	switch t {
	case TypeListadoAporte, TypeComprobanteBanco, TypeDesconocido:
		return true
	}
	return false
}

// Extraction sources.
const (
	SourceText   = "TEXT"
	SourceOCR    = "OCR"
	SourcePlain  = "PLAIN"
	SourceParser = "PARSER"
)

// FieldFullText is the extraction holding the joined text of every page.
const FieldFullText = "full_text"

// Document is an uploaded file and its classification.
type Document struct {
	ID            string
	OriginalName  string
	StorageKey    string
	MimeType      string
	SizeBytes     int64
	SHA256        string
	Type          Type
	MemberID      *string
	InstitutionID *string
	Metadata      map[string]any
	UploadedAt    time.Time
	ProcessedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Extraction is a named value pulled out of a document.
type Extraction struct {
	ID         string
	DocumentID string
	FieldName  string
	FieldValue string
	PageIndex  *int
	Source     string
	Confidence float64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ListFilter selects a page of documents, newest first.
type ListFilter struct {
	Type     Type
	MemberID string
	Q        string
	Page     int
	PageSize int
}
