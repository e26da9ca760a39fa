package jobs

import (
	"encoding/json"
	"time"
)

// Type names a pipeline stage.
type Type string

const (
	TypeOCR        Type = "OCR"
	TypeParsing    Type = "PARSING"
	TypeValidation Type = "VALIDATION"
	TypeExport     Type = "EXPORT"
)

// Valid reports whether t is a known stage.
func (t Type) Valid() bool {
	switch t {
	case TypeOCR, TypeParsing, TypeValidation, TypeExport:
		return true
	}
	return false
}

// Status is the lifecycle state of a job.
type Status string

const (
	StatusQueued     Status = "QUEUED"
	StatusProcessing Status = "PROCESSING"
	StatusDone       Status = "DONE"
	StatusError      Status = "ERROR"
)

func (s Status) Valid() bool {
	switch s {
	case StatusQueued, StatusProcessing, StatusDone, StatusError:
		return true
	}
	return false
}

// Enqueue defaults and bounds.
const (
	DefaultMaxAttempts = 3
	MinPriority        = 0
	MaxPriority        = 10
	MaxAttemptsLimit   = 10

	// StagePriority is used for jobs created by uploads and stage handoffs.
	StagePriority = 5
)

// Job is one unit of pipeline work.
type Job struct {
	ID          string
	Type        Type
	Status      Status
	Payload     json.RawMessage
	Result      json.RawMessage
	Metrics     json.RawMessage
	Priority    int
	Attempts    int
	MaxAttempts int
	LastError   *string
	ScheduledAt *time.Time
	LockedAt    *time.Time
	LockedBy    *string
	StartedAt   *time.Time
	FinishedAt  *time.Time
	DocumentID  *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DocumentRef is the document shown next to a job in listings.
type DocumentRef struct {
	ID           string
	OriginalName string
	MimeType     string
}

// Listed is a job row with its document, when it still exists.
type Listed struct {
	Job
	Document *DocumentRef
}

// EnqueueOptions describes a job to create.
type EnqueueOptions struct {
	Type        Type
	Payload     any
	Priority    int
	MaxAttempts int
	ScheduledAt *time.Time
	DocumentID  *string
}

// ListFilter selects jobs for the admin listing.
type ListFilter struct {
	Status Status
	Type   Type
	Skip   int
	Take   int
}

// Outcome is what a stage handler reports on success.
type Outcome struct {
	Result  any
	Metrics map[string]any
	// Next is the follow-up stage to enqueue, if any.
	Next *EnqueueOptions
}
