// Package intake turns stored uploads into extractions and parsed records.
package intake

import (
	"context"
	"fmt"
	"io"

	"docuflow/internal/classify"
	"docuflow/internal/documents"
	"docuflow/internal/extract"
	"docuflow/internal/parse"
	"docuflow/internal/receipts"
	"docuflow/internal/shared/metrics"
)

// Parsed record kinds.
const (
	KindBankReceipt = "BANK_RECEIPT"
	KindContribList = "CONTRIB_LIST"
)

// Extracted summarises the text pulled from a document.
type Extracted struct {
	Pages      int            `json:"pages"`
	TextLength int            `json:"textLength"`
	Source     string         `json:"source"`
	Type       documents.Type `json:"documentType"`
	Text       string         `json:"-"`
}

// Parsed is the outcome of parsing a document. Kind is empty when the
// document type has no parser.
type Parsed struct {
	Kind   string `json:"kind"`
	Fields any    `json:"fields"`
}

// Processor runs extraction, classification and parsing against the
// document and receipt stores.
type Processor struct {
	Documents *documents.Service
	Receipts  *receipts.Service
	Extractor *extract.Extractor
}

// ExtractStored reads the stored original of doc and extracts it.
func (p *Processor) ExtractStored(ctx context.Context, doc documents.Document) (Extracted, error) {
	rc, err := p.Documents.Store.Open(ctx, doc.StorageKey)
	if err != nil {
		return Extracted{}, fmt.Errorf("open %s: %w", doc.StorageKey, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return Extracted{}, fmt.Errorf("read %s: %w", doc.StorageKey, err)
	}
	return p.Extract(ctx, doc, data)
}

// Extract pulls the text out of data, stores the page and full_text
// extractions, then classifies the document.
func (p *Processor) Extract(ctx context.Context, doc documents.Document, data []byte) (Extracted, error) {
	res, err := p.Extractor.Extract(ctx, data, doc.MimeType, doc.OriginalName)
	if err != nil {
		return Extracted{}, err
	}
	return p.Apply(ctx, doc, res)
}

// Apply stores already extracted text for doc and classifies it.
func (p *Processor) Apply(ctx context.Context, doc documents.Document, res extract.Result) (Extracted, error) {
	full, err := p.Documents.SaveText(ctx, doc.ID, res.Pages, res.Source)
	if err != nil {
		return Extracted{}, fmt.Errorf("save text: %w", err)
	}
	docType := classify.Classify(full)
	if err := p.Documents.SetType(ctx, doc.ID, docType); err != nil {
		return Extracted{}, fmt.Errorf("set type: %w", err)
	}
	metrics.IncDocumentClassified(string(docType))
	return Extracted{
		Pages:      len(res.Pages),
		TextLength: len(full),
		Source:     res.Source,
		Type:       docType,
		Text:       full,
	}, nil
}

// Parse runs the parser for docType over text and replaces the stored
// records of the document.
func (p *Processor) Parse(ctx context.Context, documentID string, docType documents.Type, text string) (Parsed, error) {
	switch docType {
	case documents.TypeComprobanteBanco:
		t, err := p.Receipts.SaveBankReceipt(ctx, documentID, parse.Comprobante(text))
		if err != nil {
			return Parsed{}, err
		}
		return Parsed{Kind: KindBankReceipt, Fields: receipts.TransferResponse(t)}, nil
	case documents.TypeListadoAporte:
		b, err := p.Receipts.SaveContributionList(ctx, documentID, parse.Listado(text))
		if err != nil {
			return Parsed{}, err
		}
		return Parsed{Kind: KindContribList, Fields: receipts.BatchResponse(b)}, nil
	default:
		return Parsed{}, nil
	}
}

// ParseStored parses the stored full_text of a document.
func (p *Processor) ParseStored(ctx context.Context, documentID string) (Parsed, error) {
	doc, err := p.Documents.Repo.GetByID(ctx, documentID)
	if err != nil {
		return Parsed{}, err
	}
	text, err := p.Documents.FullText(ctx, documentID)
	if err != nil {
		return Parsed{}, fmt.Errorf("full text: %w", err)
	}
	return p.Parse(ctx, documentID, doc.Type, text)
}
