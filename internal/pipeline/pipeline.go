// Package pipeline implements the OCR, PARSING, VALIDATION and EXPORT job
// stages run by the worker.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"docuflow/internal/documents"
	"docuflow/internal/extract"
	"docuflow/internal/intake"
	"docuflow/internal/jobs"
	"docuflow/internal/receipts"
	"docuflow/internal/shared/storage/object"
)

const defaultExportPrefix = "exports"

// Stages dispatches claimed jobs to their stage handler.
type Stages struct {
	Documents *documents.Service
	Receipts  *receipts.Service
	Intake    *intake.Processor
	Store     object.ObjectStore
	// ExportPrefix is the object store prefix exports are written under.
	ExportPrefix string
	// MaxAttempts is used for follow-up stage jobs.
	MaxAttempts int
	Now         func() time.Time
}

func (s *Stages) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Handle runs the stage for job.Type.
func (s *Stages) Handle(ctx context.Context, job jobs.Job) (jobs.Outcome, error) {
	switch job.Type {
	case jobs.TypeOCR:
		return s.OCR(ctx, job)
	case jobs.TypeParsing:
		return s.Parsing(ctx, job)
	case jobs.TypeValidation:
		return s.Validation(ctx, job)
	case jobs.TypeExport:
		return s.Export(ctx, job)
	default:
		return jobs.Outcome{}, jobs.Permanent(fmt.Errorf("unsupported job type %q", job.Type))
	}
}

// OCR extracts and classifies the document, then hands off to PARSING.
func (s *Stages) OCR(ctx context.Context, job jobs.Job) (jobs.Outcome, error) {
	p, err := jobs.DecodeOCR(job.Payload)
	if err != nil {
		return jobs.Outcome{}, err
	}
	doc, err := s.document(ctx, p.DocumentID)
	if err != nil {
		return jobs.Outcome{}, err
	}
	res, err := s.Intake.ExtractStored(ctx, doc)
	if err != nil {
		if errors.Is(err, extract.ErrUnsupported) || errors.Is(err, object.ErrNotFound) {
			return jobs.Outcome{}, jobs.Permanent(err)
		}
		return jobs.Outcome{}, err
	}
	return jobs.Outcome{
		Result:  res,
		Metrics: map[string]any{"status": "OK", "pagesProcessed": res.Pages, "source": res.Source},
		Next: s.next(jobs.TypeParsing, doc.ID, jobs.ParsingPayload{
			DocumentID: doc.ID,
			SHA256:     p.SHA256,
		}),
	}, nil
}

// Parsing parses the stored full text and hands off to VALIDATION when the
// document type has a parser.
func (s *Stages) Parsing(ctx context.Context, job jobs.Job) (jobs.Outcome, error) {
	p, err := jobs.DecodeParsing(job.Payload)
	if err != nil {
		return jobs.Outcome{}, err
	}
	if _, err := s.document(ctx, p.DocumentID); err != nil {
		return jobs.Outcome{}, err
	}
	parsed, err := s.Intake.ParseStored(ctx, p.DocumentID)
	if errors.Is(err, documents.ErrNotFound) {
		return jobs.Outcome{}, jobs.Permanent(fmt.Errorf("document %s has no extracted text: %w", p.DocumentID, err))
	}
	if err != nil {
		return jobs.Outcome{}, err
	}
	out := jobs.Outcome{
		Result:  parsed,
		Metrics: map[string]any{"status": "OK", "documentType": parsed.Kind},
	}
	if parsed.Kind != "" {
		out.Next = s.next(jobs.TypeValidation, p.DocumentID, jobs.ValidationPayload{
			DocumentID: p.DocumentID,
			Kind:       parsed.Kind,
		})
	}
	return out, nil
}

// Validation checks the parsed records and hands valid documents to EXPORT.
func (s *Stages) Validation(ctx context.Context, job jobs.Job) (jobs.Outcome, error) {
	p, err := jobs.DecodeValidation(job.Payload)
	if err != nil {
		return jobs.Outcome{}, err
	}
	if _, err := s.document(ctx, p.DocumentID); err != nil {
		return jobs.Outcome{}, err
	}
	kind := p.Kind
	if kind == "" {
		if kind, err = s.kindOf(ctx, p.DocumentID); err != nil {
			return jobs.Outcome{}, err
		}
	}

	var report Report
	switch kind {
	case jobs.KindBankReceipt:
		report, err = s.validateBankReceipt(ctx, p.DocumentID)
	case jobs.KindContribList:
		report, err = s.validateContributionList(ctx, p.DocumentID)
	default:
		return jobs.Outcome{}, jobs.Permanent(fmt.Errorf("unknown validation kind %q", kind))
	}
	if err != nil {
		return jobs.Outcome{}, err
	}

	status := "OK"
	if !report.IsValid || len(report.Warnings) > 0 {
		status = "WARN"
	}
	out := jobs.Outcome{
		Result: report,
		Metrics: map[string]any{
			"status":             status,
			"validationErrors":   len(report.Errors),
			"validationWarnings": len(report.Warnings),
		},
	}
	if report.IsValid {
		format := jobs.FormatCSV
		if kind == jobs.KindBankReceipt {
			format = jobs.FormatPDF
		}
		out.Next = s.next(jobs.TypeExport, p.DocumentID, jobs.ExportPayload{DocumentID: p.DocumentID, Format: format})
	}
	return out, nil
}

// kindOf infers the validation kind from the records stored for a document.
func (s *Stages) kindOf(ctx context.Context, documentID string) (string, error) {
	if _, err := s.Receipts.Transfer(ctx, documentID); err == nil {
		return jobs.KindBankReceipt, nil
	} else if !errors.Is(err, receipts.ErrNotFound) {
		return "", err
	}
	if _, err := s.Receipts.Batch(ctx, documentID); err == nil {
		return jobs.KindContribList, nil
	} else if !errors.Is(err, receipts.ErrNotFound) {
		return "", err
	}
	return "", nil
}

func (s *Stages) document(ctx context.Context, id string) (documents.Document, error) {
	doc, err := s.Documents.Repo.GetByID(ctx, id)
	if errors.Is(err, documents.ErrNotFound) {
		return documents.Document{}, jobs.Permanent(fmt.Errorf("document %s not found", id))
	}
	return doc, err
}

func (s *Stages) next(t jobs.Type, documentID string, payload any) *jobs.EnqueueOptions {
	id := documentID
	return &jobs.EnqueueOptions{
		Type:        t,
		Payload:     payload,
		Priority:    jobs.StagePriority,
		MaxAttempts: s.MaxAttempts,
		DocumentID:  &id,
	}
}
