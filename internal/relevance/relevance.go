// Package relevance scores how well a grant record matches a search query.
package relevance

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/grant-seeker/internal/model"
)

const (
	titleWeight = 3
	tagWeight   = 2
	textWeight  = 1
)

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "for": true, "of": true,
	"in": true, "to": true, "with": true, "on": true, "at": true, "by": true,
}

// Fold lowercases s and strips accents, so "Québec" and "quebec" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// Keywords returns the distinct non-stop-word terms of query in order.
// Surrounding punctuation is trimmed from each term.
func Keywords(query string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range strings.Fields(Fold(query)) {
		w = strings.TrimFunc(w, unicode.IsPunct)
		if w == "" || stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

// Score returns the 0-100 fit of r against query. Each keyword earns 3
// points when found in the title, 2 in any tag, and 1 in the description
// or overview. The score is the percentage of keywords found anywhere plus
// twice the points earned, capped at 100.
func Score(r model.Record, query string) int {
	keywords := Keywords(query)
	if len(keywords) == 0 {
		return 0
	}

	title := Fold(r.Title)
	text := Fold(r.Description + " " + r.DetailedOverview)
	tags := make([]string, len(r.Tags))
	for i, tag := range r.Tags {
		tags[i] = Fold(tag)
	}

	matched, points := 0, 0
	for _, kw := range keywords {
		hit := false
		if strings.Contains(title, kw) {
			points += titleWeight
			hit = true
		}
		for _, tag := range tags {
			if strings.Contains(tag, kw) {
				points += tagWeight
				hit = true
				break
			}
		}
		if strings.Contains(text, kw) {
			points += textWeight
			hit = true
		}
		if hit {
			matched++
		}
	}

	coverage := float64(matched) / float64(len(keywords)) * 100
	return min(100, int(coverage+float64(2*points)))
}

// Apply sets FitScore on every record for query.
func Apply(records []model.Record, query string) {
	for i := range records {
		records[i].FitScore = Score(records[i], query)
	}
}
