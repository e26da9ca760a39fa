package jobs

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Validation kinds.
const (
	KindBankReceipt = "BANK_RECEIPT"
	KindContribList = "CONTRIB_LIST"
)

// Export formats.
const (
	FormatPDF = "PDF"
	FormatCSV = "CSV"
)

// OCRPayload starts the pipeline for an uploaded document.
type OCRPayload struct {
	DocumentID string `json:"documentId"`
	SHA256     string `json:"sha256"`
	FilePath   string `json:"filePath,omitempty"`
	Filename   string `json:"filename,omitempty"`
	MimeType   string `json:"mimeType,omitempty"`
}

type ParsingPayload struct {
	DocumentID string `json:"documentId"`
	SHA256     string `json:"sha256,omitempty"`
}

type ValidationPayload struct {
	DocumentID string `json:"documentId"`
	Kind       string `json:"kind,omitempty"`
}

type ExportPayload struct {
	DocumentID string `json:"documentId"`
	Format     string `json:"format,omitempty"`
}

// DecodeOCR validates an OCR payload. Errors are permanent.
func DecodeOCR(raw json.RawMessage) (OCRPayload, error) {
	var p OCRPayload
	if err := decode(raw, &p); err != nil {
		return p, err
	}
	if strings.TrimSpace(p.SHA256) == "" {
		return p, Permanent(fmt.Errorf("%w: sha256 is required", ErrInvalidInput))
	}
	return p, nil
}

func DecodeParsing(raw json.RawMessage) (ParsingPayload, error) {
	var p ParsingPayload
	return p, decode(raw, &p)
}

func DecodeValidation(raw json.RawMessage) (ValidationPayload, error) {
	var p ValidationPayload
	if err := decode(raw, &p); err != nil {
		return p, err
	}
	switch p.Kind {
	case "", KindBankReceipt, KindContribList:
		return p, nil
	}
	return p, Permanent(fmt.Errorf("%w: unknown validation kind %q", ErrInvalidInput, p.Kind))
}

func DecodeExport(raw json.RawMessage) (ExportPayload, error) {
	var p ExportPayload
	if err := decode(raw, &p); err != nil {
		return p, err
	}
	p.Format = strings.ToUpper(strings.TrimSpace(p.Format))
	switch p.Format {
	case "", FormatPDF, FormatCSV:
		return p, nil
	}
	return p, Permanent(fmt.Errorf("%w: unknown export format %q", ErrInvalidInput, p.Format))
}

// documentIDOf pulls documentId out of any stage payload.
func documentIDOf(raw json.RawMessage) string {
	var p struct {
		DocumentID string `json:"documentId"`
	}
	if len(raw) == 0 || json.Unmarshal(raw, &p) != nil {
		return ""
	}
	return strings.TrimSpace(p.DocumentID)
}

func decode(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return Permanent(fmt.Errorf("%w: empty payload", ErrInvalidInput))
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return Permanent(fmt.Errorf("%w: decode payload: %v", ErrInvalidInput, err))
	}
	id := documentIDOf(raw)
	if id == "" {
		return Permanent(fmt.Errorf("%w: documentId is required", ErrInvalidInput))
	}
	if _, err := uuid.Parse(id); err != nil {
		return Permanent(fmt.Errorf("%w: documentId %q is not a uuid", ErrInvalidInput, id))
	}
	return nil
}
