// Package scrape fetches the readable text of candidate funding pages
// through an ordered chain of sources.
package scrape

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
)

// DefaultMinContentLength is the shortest page body the chain accepts.
const DefaultMinContentLength = 200

// ErrNoContent is returned when no source produced usable page text.
var ErrNoContent = eris.New("scrape: no usable content")

// Page is the readable text of one fetched URL.
type Page struct {
	URL     string
	Title   string
	Content string
	Source  string
}

// Source fetches a single URL and returns its content.
type Source interface {
	Name() string
	Supports(url string) bool
	Fetch(ctx context.Context, url string) (*Page, error)
}

// IsPDFURL reports whether url points at a PDF document.
func IsPDFURL(url string) bool {
	lower := strings.ToLower(url)
	return strings.HasSuffix(lower, ".pdf") ||
		strings.Contains(lower, "/pdf/") ||
		strings.Contains(lower, ".pdf?")
}

var challengeSignatures = []string{
	"checking your browser",
	"enable javascript",
	"please enable cookies",
	"access denied",
	"403 forbidden",
	"just a moment",
	"attention required",
	"verify you are human",
}

// looksBlocked reports whether short page text is an anti-bot interstitial
// rather than real content.
func looksBlocked(content string) bool {
	if len(content) >= 1000 {
		return false
	}
	lower := strings.ToLower(content)
	for _, sig := range challengeSignatures {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}
