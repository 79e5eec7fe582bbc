package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sells-group/grant-seeker/internal/model"
)

// MaxLeads is the most leads triage keeps from one search.
const MaxLeads = 7

const triageSystemPrompt = `You are a grant scout. You receive web search results for a funding search.
Pick the 5 to 7 results most likely to be a single, active funding program page.

Return a JSON object with a "discovered_leads" list. Each lead must have:
- "url": the URL of the program page, copied exactly from the results
- "source": the name of the funding organization
- "title": the program name

Prefer official funder pages and open programs. Skip grant directories, listicles, news articles and
social media. Return only the JSON object.

Example:
{"discovered_leads": [{"url": "https://example.org/grant", "source": "Example Foundation", "title": "Community Grant"}]}`

// Triager asks a model to choose the most promising search results.
type Triager struct {
	completer Completer
	validate  *validator.Validate
	maxTokens int64
}

// NewTriager creates a Triager.
func NewTriager(c Completer, maxTokens int64) *Triager {
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	return &Triager{
		completer: c,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		maxTokens: maxTokens,
	}
}

// Triage returns up to MaxLeads validated leads, deduplicated by URL. Model
// output that cannot be decoded yields a *ParseError.
func (t *Triager) Triage(ctx context.Context, query string, results []model.SearchResult) ([]model.Lead, error) {
	if len(results) == 0 {
		return nil, nil
	}

	out, err := t.completer.Complete(ctx, triageSystemPrompt, triageUserPrompt(query, results), t.maxTokens)
	if err != nil {
		return nil, err
	}

	objs, err := decodeObjects("triage", out.Text, "discovered_leads")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var leads []model.Lead
	for _, o := range objs {
		lead := model.Lead{
			URL:    strings.TrimSpace(fmt.Sprint(valueOr(o["url"]))),
			Source: strings.TrimSpace(fmt.Sprint(valueOr(o["source"]))),
			Title:  strings.TrimSpace(fmt.Sprint(valueOr(o["title"]))),
		}
		if err := t.validate.Struct(lead); err != nil {
			zap.L().Debug("agent: dropping invalid lead", zap.String("url", lead.URL), zap.Error(err))
			continue
		}
		if seen[lead.URL] {
			continue
		}
		seen[lead.URL] = true
		leads = append(leads, lead)
		if len(leads) == MaxLeads {
			break
		}
	}
	return leads, nil
}

func triageUserPrompt(query string, results []model.SearchResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Search query: %s\n\nSearch results:\n\n", query)
	for i, r := range results {
		snippet := r.Snippet
		if len(snippet) > 300 {
			snippet = snippet[:300] + "..."
		}
		fmt.Fprintf(&sb, "%d. %s\n   URL: %s\n   Snippet: %s\n\n", i+1, r.Title, r.URL, snippet)
	}
	return sb.String()
}

func valueOr(v any) any {
	if v == nil {
		return ""
	}
	return v
}
