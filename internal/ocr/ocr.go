// Package ocr turns PDF funding documents into plain text.
package ocr

import (
	"context"
	"io"
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/grant-seeker/internal/config"
)

// Extractor extracts text content from PDF files.
type Extractor interface {
	ExtractText(ctx context.Context, pdfPath string) (string, error)
}

// NewExtractor creates an Extractor based on config.
func NewExtractor(cfg config.OCRConfig) (Extractor, error) {
	switch cfg.Provider {
	case "local", "":
		return NewPdfToText(cfg.PdfToTextPath), nil
	default:
		return nil, eris.Errorf("ocr: unknown provider %q", cfg.Provider)
	}
}

// ExtractReader spools r to a temporary file and runs ext over it. The file
// is removed before returning.
func ExtractReader(ctx context.Context, ext Extractor, r io.Reader) (string, error) {
	f, err := os.CreateTemp("", "grant-*.pdf")
	if err != nil {
		return "", eris.Wrap(err, "ocr: create temp file")
	}
	defer os.Remove(f.Name()) //nolint:errcheck

	if _, err := io.Copy(f, r); err != nil {
		f.Close() //nolint:errcheck
		return "", eris.Wrap(err, "ocr: spool pdf")
	}
	if err := f.Close(); err != nil {
		return "", eris.Wrap(err, "ocr: close temp file")
	}

	return ext.ExtractText(ctx, f.Name())
}
