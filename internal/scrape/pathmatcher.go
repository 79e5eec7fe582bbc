package scrape

import (
	"net/url"
	"path"
	"strings"
)

// defaultExcludeHosts are social and video sites whose pages never hold a
// funding program's details.
var defaultExcludeHosts = []string{
	"facebook.com",
	"twitter.com",
	"x.com",
	"linkedin.com",
	"instagram.com",
	"youtube.com",
	"tiktok.com",
}

// defaultExcludePatterns skip account and checkout pages.
var defaultExcludePatterns = []string{
	"/login*",
	"/signin*",
	"/account/*",
	"/cart/*",
}

// PathMatcher filters URLs by host and by glob-style path patterns.
// "/account/*" also matches deeper paths such as "/account/a/b".
type PathMatcher struct {
	hosts    []string
	patterns []string
}

// NewPathMatcher creates a PathMatcher. Nil hosts or patterns fall back to
// the defaults; pass an empty non-nil slice to disable one of them.
func NewPathMatcher(hosts, patterns []string) *PathMatcher {
	if hosts == nil {
		hosts = defaultExcludeHosts
	}
	if patterns == nil {
		patterns = defaultExcludePatterns
	}
	return &PathMatcher{hosts: hosts, patterns: patterns}
}

// Patterns returns the configured path patterns.
func (m *PathMatcher) Patterns() []string {
	return m.patterns
}

// IsExcluded reports whether rawURL should not be fetched. Unparseable
// URLs are excluded.
func (m *PathMatcher) IsExcluded(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}
	return m.isHostExcluded(u.Hostname()) || m.isPathExcluded(u.Path)
}

func (m *PathMatcher) isHostExcluded(host string) bool {
	host = strings.ToLower(host)
	for _, h := range m.hosts {
		h = strings.ToLower(h)
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func (m *PathMatcher) isPathExcluded(urlPath string) bool {
	urlPath = strings.ToLower(urlPath)
	for _, pattern := range m.patterns {
		if matchSegmented(strings.ToLower(pattern), urlPath) {
			return true
		}
	}
	return false
}

// matchSegmented tries path.Match first, then treats a trailing "/*" as a
// prefix match over every deeper segment.
func matchSegmented(pattern, urlPath string) bool {
	if ok, _ := path.Match(pattern, urlPath); ok {
		return true
	}
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if urlPath == prefix || strings.HasPrefix(urlPath, prefix+"/") {
			return true
		}
	}
	return false
}
