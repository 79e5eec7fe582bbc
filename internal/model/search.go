package model

import "time"

// SearchResult is one raw hit returned by a search provider.
type SearchResult struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// SearchAttempt tracks one iteration of the refinement loop.
type SearchAttempt struct {
	Number     int      `json:"attempt"`
	Query      string   `json:"query"`
	Leads      int      `json:"leads"`
	NewRecords []Record `json:"-"`
	NewCount   int      `json:"new_records"`
	Err        string   `json:"error,omitempty"`
}

// Filters narrows results beyond the built-in eligibility policy.
type Filters struct {
	DemographicFocus []string `json:"demographic_focus,omitempty" yaml:"demographic_focus"`
	FundingMin       float64  `json:"funding_min,omitempty" yaml:"funding_min"`
	FundingTypes     []string `json:"funding_types,omitempty" yaml:"funding_types"`
	GeographicScope  []string `json:"geographic_scope,omitempty" yaml:"geographic_scope"`
}

// Empty reports whether no filter is set.
func (f Filters) Empty() bool {
	return len(f.DemographicFocus) == 0 && f.FundingMin <= 0 &&
		len(f.FundingTypes) == 0 && len(f.GeographicScope) == 0
}

// Keywords returns the filter terms worth appending to a search query.
func (f Filters) Keywords() []string {
	var kw []string
	kw = append(kw, f.DemographicFocus...)
	kw = append(kw, f.FundingTypes...)
	kw = append(kw, f.GeographicScope...)
	return kw
}

// Usage summarizes provider consumption for one run.
type Usage struct {
	SearchCalls    int64   `json:"search_calls"`
	FetchCalls     int64   `json:"fetch_calls"`
	CacheHits      int64   `json:"cache_hits"`
	LLMCalls       int64   `json:"llm_calls"`
	InputTokens    int64   `json:"input_tokens"`
	OutputTokens   int64   `json:"output_tokens"`
	EstimatedCost  float64 `json:"estimated_cost_usd"`
}

// Result is the terminal output of one refinement run.
type Result struct {
	Query       string          `json:"query"`
	Records     []Record        `json:"records"`
	Attempts    []SearchAttempt `json:"attempts"`
	Usage       Usage           `json:"usage"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt time.Time       `json:"completed_at"`
}
