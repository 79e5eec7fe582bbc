package agent

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
)

var errEmptyOutput = eris.New("empty model output")

const querySystemPrompt = `You are a search query expert. Turn a project description into one concise web search
query for finding grants and funding programs in Canada.

Rules:
1. Keep the core topic, for example "community garden" or "clean technology".
2. Keep any location, always within a Canadian context.
3. Keep the applicant type, for example "non-profit" or "small business".
4. Add "Canada" unless a Canadian province or city is already named.
5. Add one action term such as "call for proposals", "application" or "intake".
6. Return only the query text.

Example input: We are a non-profit looking to build a community garden.
Example output: community garden grants Canada non-profit funding application`

// QueryGenerator turns a free-text project description into a search query.
type QueryGenerator struct {
	completer Completer
}

// NewQueryGenerator creates a QueryGenerator.
func NewQueryGenerator(c Completer) *QueryGenerator {
	return &QueryGenerator{completer: c}
}

// Generate returns a single-line search query for description.
func (g *QueryGenerator) Generate(ctx context.Context, description string) (string, error) {
	out, err := g.completer.Complete(ctx, querySystemPrompt, description, 256)
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(out.Text)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	text = strings.Trim(strings.TrimSpace(text), "\"'`")
	if text == "" {
		return "", &ParseError{Step: "query", Output: out.Text, Err: errEmptyOutput}
	}
	return text, nil
}
