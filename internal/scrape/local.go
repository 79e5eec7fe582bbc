package scrape

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

const maxBodyBytes = 10 << 20

// userAgent is sent by the direct HTTP sources.
const userAgent = "Mozilla/5.0 (compatible; GrantSeeker/1.0)"

// BlockType describes the kind of anti-bot block detected.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockJSShell    BlockType = "js_shell"
)

// DetectBlock checks an HTTP response for signs of anti-bot protection.
func DetectBlock(resp *http.Response, body []byte) BlockType {
	if resp == nil {
		return BlockNone
	}

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable {
		if resp.Header.Get("cf-ray") != "" || strings.EqualFold(resp.Header.Get("server"), "cloudflare") {
			return BlockCloudflare
		}
	}

	lower := strings.ToLower(string(body))
	switch {
	case strings.Contains(lower, "cf-browser-verification"),
		strings.Contains(lower, "checking your browser"):
		return BlockCloudflare
	case strings.Contains(lower, "g-recaptcha"),
		strings.Contains(lower, "h-captcha"),
		strings.Contains(lower, "captcha-container"):
		return BlockCaptcha
	}

	if len(body) < 2000 {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
			return BlockJSShell
		}
		if strings.Contains(lower, `http-equiv="refresh"`) {
			return BlockJSShell
		}
	}
	return BlockNone
}

// noiseSelectors are removed before reading page text.
const noiseSelectors = "script, style, nav, footer, header, aside, iframe, noscript, form, svg"

// contentSelectors are tried in order for the main content region.
var contentSelectors = []string{"main", "article", "[role=main]", "#content", ".content"}

// LocalSource fetches HTML directly and reads its main text with goquery.
type LocalSource struct {
	http *http.Client
}

// NewLocalSource creates a LocalSource. A nil client gets a 30s default.
func NewLocalSource(hc *http.Client) *LocalSource {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &LocalSource{http: hc}
}

func (s *LocalSource) Name() string { return "local" }

func (s *LocalSource) Supports(url string) bool { return !IsPDFURL(url) }

func (s *LocalSource) Fetch(ctx context.Context, url string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "local: create request")
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "local: request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "local: read body")
	}

	if block := DetectBlock(resp, body); block != BlockNone {
		return nil, eris.Errorf("local: blocked (%s)", block)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("local: status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); strings.Contains(ct, "application/pdf") {
		return nil, eris.New("local: pdf content")
	}

	title, text, err := readHTML(body)
	if err != nil {
		return nil, err
	}
	return &Page{URL: url, Title: title, Content: text}, nil
}

// readHTML returns the document title and the readable text of its main
// content region, falling back to the whole body.
func readHTML(body []byte) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", "", eris.Wrap(err, "local: parse html")
	}

	title := collapseSpace(doc.Find("title").First().Text())
	doc.Find(noiseSelectors).Remove()

	root := doc.Find("body")
	for _, sel := range contentSelectors {
		if found := doc.Find(sel).First(); found.Length() > 0 && strings.TrimSpace(found.Text()) != "" {
			root = found
			break
		}
	}

	var lines []string
	root.Find("h1, h2, h3, h4, p, li, td, dt, dd").Each(func(_ int, s *goquery.Selection) {
		if s.Find("p, li").Length() > 0 {
			return
		}
		if line := collapseSpace(s.Text()); line != "" {
			lines = append(lines, line)
		}
	})
	if len(lines) == 0 {
		return title, collapseSpace(root.Text()), nil
	}
	return title, strings.Join(lines, "\n"), nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
