package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/sells-group/grant-seeker/internal/model"
)

const extractSystemPrompt = `You are a grant data extractor. You receive the text of a funding program web page.

Today's date is %s. A deadline before today is expired: write it as "Expired (YYYY-MM-DD)".

Return a JSON object with these fields. If the page describes several distinct programs, return a JSON
array with one object per program.
- title: program name
- funder: organization offering the funding
- deadline: next application deadline after today, formatted YYYY-MM-DD when possible. Use
  "Rolling deadline" for rolling or ongoing intake. Search the whole page for dates, cycles and rounds.
- amount: funding amount. Use "Up to $X" for caps and "$A - $B" for ranges.
- description: one or two sentence summary
- detailed_overview: thorough description of goals, priorities and what is funded
- tags: 3 to 5 category tags
- eligibility: full eligibility text
- url: the page URL given below
- application_requirements: list of documents or conditions needed to apply
- funding_nature: one of "Grant", "Loan", "Tax Credit"
- geography: geographic scope, for example "Ontario" or "Canada"
- founder_demographics: groups the program targets, for example ["Women", "Indigenous", "Youth"]

Use "Not specified" for anything the page does not state. Return only JSON.`

// Extractor turns page text into grant records with a model.
type Extractor struct {
	completer Completer
	maxTokens int64
	now       func() time.Time
}

// NewExtractor creates an Extractor.
func NewExtractor(c Completer, maxTokens int64) *Extractor {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Extractor{completer: c, maxTokens: maxTokens, now: time.Now}
}

// Extract returns one or more normalized records read from content. Each
// record's URL defaults to url.
func (e *Extractor) Extract(ctx context.Context, url, content string) ([]model.Record, error) {
	system := fmt.Sprintf(extractSystemPrompt, e.now().Format("2006-01-02"))
	user := fmt.Sprintf("URL: %s\n\nPage content:\n%s", url, content)

	out, err := e.completer.Complete(ctx, system, user, e.maxTokens)
	if err != nil {
		return nil, err
	}

	objs, err := decodeObjects("extract", out.Text, "grants")
	if err != nil {
		return nil, err
	}
	if len(objs) == 0 {
		return nil, &ParseError{Step: "extract", Output: out.Text, Err: errEmptyOutput}
	}

	records := make([]model.Record, 0, len(objs))
	for _, o := range objs {
		r := model.RecordFromMap(o)
		if r.URL == "" {
			r.URL = url
		}
		records = append(records, r)
	}
	return records, nil
}
