package pipeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"docuflow/internal/documents"
	"docuflow/internal/jobs"
	"docuflow/internal/receipts"
)

// ExportResult is the EXPORT stage result.
type ExportResult struct {
	Success    bool      `json:"success"`
	ExportPath string    `json:"exportPath"`
	Format     string    `json:"format"`
	Size       int64     `json:"size"`
	ExportedAt time.Time `json:"exportedAt"`
}

// Export writes the CSV rendition of the parsed records, or archives the
// original upload for PDF, under <prefix>/<documentId>.<ext>.
func (s *Stages) Export(ctx context.Context, job jobs.Job) (jobs.Outcome, error) {
	p, err := jobs.DecodeExport(job.Payload)
	if err != nil {
		return jobs.Outcome{}, err
	}
	doc, err := s.document(ctx, p.DocumentID)
	if err != nil {
		return jobs.Outcome{}, err
	}
	format := p.Format
	if format == "" {
		format = jobs.FormatPDF
	}

	var (
		body        io.Reader
		contentType string
		ext         string
	)
	switch format {
	case jobs.FormatCSV:
		data, err := s.renderCSV(ctx, doc)
		if err != nil {
			return jobs.Outcome{}, err
		}
		body, contentType, ext = bytes.NewReader(data), "text/csv", "csv"
	default:
		rc, err := s.Store.Open(ctx, doc.StorageKey)
		if err != nil {
			return jobs.Outcome{}, fmt.Errorf("open original: %w", err)
		}
		defer rc.Close()
		body, contentType, ext = rc, doc.MimeType, archiveExt(doc)
	}

	prefix := strings.Trim(s.ExportPrefix, "/")
	if prefix == "" {
		prefix = defaultExportPrefix
	}
	key := path.Join(prefix, doc.ID+"."+ext)
	size, err := s.Store.SaveWithKey(ctx, key, contentType, body)
	if err != nil {
		return jobs.Outcome{}, fmt.Errorf("write export: %w", err)
	}

	exportedAt, err := s.Documents.MarkProcessed(ctx, doc.ID, map[string]any{
		"lastExport":   s.now().Format(time.RFC3339),
		"exportFormat": format,
		"exportKey":    key,
	})
	if err != nil {
		return jobs.Outcome{}, fmt.Errorf("mark processed: %w", err)
	}
	return jobs.Outcome{
		Result: ExportResult{
			Success:    true,
			ExportPath: key,
			Format:     format,
			Size:       size,
			ExportedAt: exportedAt,
		},
		Metrics: map[string]any{"status": "OK", "exportFormat": format, "fileSize": size},
	}, nil
}

// archiveExt keeps .pdf for PDFs and the original extension for images.
func archiveExt(doc documents.Document) string {
	if doc.MimeType == "application/pdf" {
		return "pdf"
	}
	if ext := strings.TrimPrefix(strings.ToLower(path.Ext(doc.OriginalName)), "."); ext != "" {
		return ext
	}
	return "pdf"
}

func (s *Stages) renderCSV(ctx context.Context, doc documents.Document) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	switch doc.Type {
	case documents.TypeComprobanteBanco:
		t, err := s.Receipts.Transfer(ctx, doc.ID)
		if err != nil {
			return nil, jobs.Permanent(fmt.Errorf("export csv: %w", err))
		}
		writeTransferCSV(w, t)
	case documents.TypeListadoAporte:
		b, err := s.Receipts.Batch(ctx, doc.ID)
		if err != nil {
			return nil, jobs.Permanent(fmt.Errorf("export csv: %w", err))
		}
		writeBatchCSV(w, b)
	default:
		return nil, jobs.Permanent(fmt.Errorf("export csv: document type %s has no records", doc.Type))
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeTransferCSV(w *csv.Writer, t receipts.BankTransfer) {
	_ = w.Write([]string{"documentId", "beneficiaryCuit", "cbu", "fecha", "nroOperacion", "nroReferencia", "importe"})
	fecha := ""
	if t.Fecha != nil {
		fecha = t.Fecha.Format("2006-01-02")
	}
	_ = w.Write([]string{
		t.DocumentID, deref(t.BeneficiaryCUIT), deref(t.CBU), fecha,
		deref(t.NroOperacion), deref(t.NroReferencia), money(t.Importe),
	})
}

func writeBatchCSV(w *csv.Writer, b receipts.ContributionBatch) {
	_ = w.Write([]string{"institution", "cuit", "period", "concept", "personas", "total", "reconciliation"})
	_ = w.Write([]string{
		b.InstitutionName, deref(b.InstitutionCUIT), deref(b.Period), b.Concept,
		strconv.Itoa(b.PersonasCount), money(b.TotalAportesPeriodo), string(b.ReconciliationStatus),
	})
	_ = w.Write([]string{"position", "fullName", "legajos", "remunerativo", "aporte"})
	for _, it := range b.Items {
		rem := ""
		if it.Remunerativo != nil {
			rem = money(*it.Remunerativo)
		}
		_ = w.Write([]string{
			strconv.Itoa(it.Position), it.FullNameRaw, strconv.Itoa(it.LegajosCount), rem, money(it.AporteMonto),
		})
	}
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
