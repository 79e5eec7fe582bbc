package pipeline

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sells-group/grant-seeker/internal/model"
)

// DefaultBroadQuery is the last-resort query variant.
const DefaultBroadQuery = "small business grants"

const defaultRefinement = "eligibility deadline"

// Variants returns the candidate queries for each attempt, in order. The
// list may contain duplicates; the loop skips any it has already run.
func Variants(query string, filters model.Filters, broad string) []string {
	query = collapse(query)
	if broad == "" {
		broad = DefaultBroadQuery
	}

	refine := strings.Join(filters.Keywords(), " ")
	if strings.TrimSpace(refine) == "" {
		refine = defaultRefinement
	}

	return []string{
		query,
		collapse(query + " " + refine),
		swapFundingTerms(query),
		dropShortestWord(query),
		collapse(broad),
	}
}

// swapFundingTerms exchanges "grant" and "funding" word for word. The
// plural "grants" also maps to "funding"; capitalization of the first letter
// is kept.
func swapFundingTerms(query string) string {
	words := strings.Fields(query)
	for i, w := range words {
		var repl string
		switch strings.ToLower(w) {
		case "grant", "grants":
			repl = "funding"
		case "funding", "fundings":
			repl = "grants"
		default:
			continue
		}
		if r, _ := utf8.DecodeRuneInString(w); unicode.IsUpper(r) {
			repl = strings.ToUpper(repl[:1]) + repl[1:]
		}
		words[i] = repl
	}
	return strings.Join(words, " ")
}

// dropShortestWord removes the first of the shortest words. Queries of fewer
// than two words are returned unchanged.
func dropShortestWord(query string) string {
	words := strings.Fields(query)
	if len(words) < 2 {
		return query
	}
	shortest := 0
	for i, w := range words {
		if utf8.RuneCountInString(w) < utf8.RuneCountInString(words[shortest]) {
			shortest = i
		}
	}
	return strings.Join(append(words[:shortest:shortest], words[shortest+1:]...), " ")
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// variantKey is the comparison form used to skip repeated variants.
func variantKey(s string) string {
	return strings.ToLower(collapse(s))
}
