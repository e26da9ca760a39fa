package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// TesseractOCR runs the tesseract CLI over a temporary copy of the input.
type TesseractOCR struct {
	Path    string
	Lang    string
	Timeout time.Duration
}

// Recognize writes data to a temp file and returns tesseract's output split
// on form feeds, which tesseract emits between pages.
func (t *TesseractOCR) Recognize(ctx context.Context, data []byte, ext string) ([]string, error) {
	bin := t.Path
	if bin == "" {
		bin = "tesseract"
	}
	lang := t.Lang
	if lang == "" {
		lang = "spa"
	}
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	f, err := os.CreateTemp("", "docuflow-ocr-*"+ext)
	if err != nil {
		return nil, fmt.Errorf("ocr temp file: %w", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(data); err != nil {
		f.Close()
		return nil, fmt.Errorf("ocr temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("ocr temp file: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, f.Name(), "stdout", "-l", lang, "--psm", "6", "--oem", "1")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("tesseract: %w", ctx.Err())
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = "unknown error"
		}
		return nil, fmt.Errorf("tesseract error (%v): %s", err, msg)
	}
	return splitPages(stdout.String()), nil
}

func splitPages(out string) []string {
	parts := strings.Split(out, "\f")
	pages := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		pages = append(pages, p)
	}
	if len(pages) == 0 {
		return []string{""}
	}
	return pages
}
