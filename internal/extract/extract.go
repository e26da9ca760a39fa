package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"docuflow/internal/shared/metrics"
	"docuflow/internal/shared/telemetry"
)

const (
	mimePDF   = "application/pdf"
	mimeJPEG  = "image/jpeg"
	mimePNG   = "image/png"
	mimePlain = "text/plain"

	// Text layers shorter than this are treated as scanned pages.
	minTextChars = 10
)

// Sources reported in Result.Source.
const (
	SourceText  = "TEXT"
	SourceOCR   = "OCR"
	SourcePlain = "PLAIN"
)

// ErrUnsupported is returned for payloads that are neither PDF, image nor plain text.
var ErrUnsupported = errors.New("unsupported mime type")

// OCR turns an image or scanned PDF into text, one entry per page.
type OCR interface {
	Recognize(ctx context.Context, data []byte, ext string) ([]string, error)
}

// Result is the text of a document, one entry per page.
type Result struct {
	Pages  []string
	Source string
}

// Text joins the pages the same way the full_text extraction does.
func (r Result) Text() string {
	return strings.Join(r.Pages, "\n\n")
}

// Extractor reads the text of uploaded documents.
type Extractor struct {
	OCR OCR
}

// New returns an Extractor using ocr for scanned input.
func New(ocr OCR) *Extractor {
	return &Extractor{OCR: ocr}
}

// Extract pulls text from an in-memory payload. PDFs use their text layer
// and fall back to OCR when it is missing or unreadable.
// Libraries used: github.com/ledongthuc/pdf (PDF text layer).
func (e *Extractor) Extract(ctx context.Context, data []byte, mimeType, fileName string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	normalized := NormalizeMimeType(mimeType, fileName, data)
	switch normalized {
	case mimePDF:
		pages, err := extractPDF(data)
		if err == nil && len(strings.TrimSpace(strings.Join(pages, " "))) >= minTextChars {
			return Result{Pages: pages, Source: SourceText}, nil
		}
		reason := "empty_text_layer"
		if err != nil {
			reason = err.Error()
		}
		telemetry.Info("extract.ocr_fallback", map[string]any{"file": fileName, "reason": reason})
		metrics.IncOCRFallback()
		return e.ocr(ctx, data, ".pdf", fileName)
	case mimeJPEG:
		return e.ocr(ctx, data, ".jpg", fileName)
	case mimePNG:
		return e.ocr(ctx, data, ".png", fileName)
	case mimePlain:
		if !utf8.Valid(data) {
			return Result{}, fmt.Errorf("extract %s: text is not valid utf-8", fileName)
		}
		return Result{Pages: []string{string(data)}, Source: SourcePlain}, nil
	default:
		return Result{}, fmt.Errorf("extract %s: %w: %s", fileName, ErrUnsupported, normalized)
	}
}

func (e *Extractor) ocr(ctx context.Context, data []byte, ext, fileName string) (Result, error) {
	if e.OCR == nil {
		return Result{}, fmt.Errorf("extract %s: ocr not configured", fileName)
	}
	pages, err := e.OCR.Recognize(ctx, data, ext)
	if err != nil {
		return Result{}, fmt.Errorf("extract %s: %w", fileName, err)
	}
	if len(pages) == 0 {
		pages = []string{""}
	}
	return Result{Pages: pages, Source: SourceOCR}, nil
}

// extractPDF returns the text layer of every page. The pdf reader panics on
// some malformed inputs, so panics are turned into errors.
func extractPDF(data []byte) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("pdf parse: %v", r)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("pdf open: %w", err)
	}
	n := reader.NumPage()
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := reader.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("pdf page %d: %w", i, err)
		}
		pages = append(pages, strings.TrimSpace(text))
	}
	return pages, nil
}

// NormalizeMimeType resolves the effective type from the declared mime type,
// then the file extension, then content sniffing.
func NormalizeMimeType(mimeType, fileName string, data []byte) string {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch mt {
	case mimePDF, mimeJPEG, mimePNG, mimePlain:
		return mt
	case "image/jpg":
		return mimeJPEG
	}

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return mimePDF
	case ".jpg", ".jpeg":
		return mimeJPEG
	case ".png":
		return mimePNG
	case ".txt":
		return mimePlain
	}

	if len(data) == 0 {
		return mt
	}
	sniffed := http.DetectContentType(data)
	if i := strings.Index(sniffed, ";"); i >= 0 {
		sniffed = sniffed[:i]
	}
	return sniffed
}
