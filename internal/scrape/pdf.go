package scrape

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/grant-seeker/internal/ocr"
)

// PDFSource downloads PDF documents and converts them to text.
type PDFSource struct {
	http      *http.Client
	extractor ocr.Extractor
}

// NewPDFSource creates a PDFSource. A nil client gets a 60s default.
func NewPDFSource(hc *http.Client, extractor ocr.Extractor) *PDFSource {
	if hc == nil {
		hc = &http.Client{Timeout: 60 * time.Second}
	}
	return &PDFSource{http: hc, extractor: extractor}
}

func (s *PDFSource) Name() string { return "pdf" }

func (s *PDFSource) Supports(url string) bool { return IsPDFURL(url) }

func (s *PDFSource) Fetch(ctx context.Context, url string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "pdf: create request")
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "pdf: download")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("pdf: status %d", resp.StatusCode)
	}

	text, err := ocr.ExtractReader(ctx, s.extractor, io.LimitReader(resp.Body, 4*maxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "pdf: extract text")
	}
	return &Page{URL: url, Content: text}, nil
}
