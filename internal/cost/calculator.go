// Package cost prices provider calls and tracks the usage of one search run.
package cost

// Rates holds per-provider pricing configuration.
type Rates struct {
	Anthropic  map[string]ModelRate `yaml:"anthropic" mapstructure:"anthropic"`
	Tavily     TavilyRate           `yaml:"tavily" mapstructure:"tavily"`
	Google     FlatRate             `yaml:"google" mapstructure:"google"`
	Jina       FlatRate             `yaml:"jina" mapstructure:"jina"`
	Perplexity FlatRate             `yaml:"perplexity" mapstructure:"perplexity"`
	Firecrawl  FirecrawlRate        `yaml:"firecrawl" mapstructure:"firecrawl"`
}

// ModelRate holds per-model token pricing (per million tokens).
type ModelRate struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// TavilyRate prices Tavily credits. An advanced search costs two credits
// and an extract costs one.
type TavilyRate struct {
	PerCredit float64 `yaml:"per_credit" mapstructure:"per_credit"`
}

// FlatRate is a fixed price per call.
type FlatRate struct {
	PerCall float64 `yaml:"per_call" mapstructure:"per_call"`
}

// FirecrawlRate holds Firecrawl plan pricing.
type FirecrawlRate struct {
	PlanMonthly     float64 `yaml:"plan_monthly" mapstructure:"plan_monthly"`
	CreditsIncluded float64 `yaml:"credits_included" mapstructure:"credits_included"`
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Claude computes the cost for a Claude API call. Unknown models cost 0.
func (c *Calculator) Claude(model string, input, output, cacheWrite, cacheRead int64) float64 {
	rate, ok := c.rates.Anthropic[model]
	if !ok {
		return 0
	}

	inCost := (float64(input) / 1e6) * rate.Input
	outCost := (float64(output) / 1e6) * rate.Output
	cwCost := (float64(cacheWrite) / 1e6) * rate.Input * rate.CacheWriteMul
	crCost := (float64(cacheRead) / 1e6) * rate.Input * rate.CacheReadMul

	return inCost + outCost + cwCost + crCost
}

// KnownModel reports whether model has Anthropic pricing.
func (c *Calculator) KnownModel(model string) bool {
	_, ok := c.rates.Anthropic[model]
	return ok
}

// Search returns the price of one search call on provider.
func (c *Calculator) Search(provider string) float64 {
	switch provider {
	case "tavily":
		return 2 * c.rates.Tavily.PerCredit
	case "google":
		return c.rates.Google.PerCall
	case "jina":
		return c.rates.Jina.PerCall
	}
	return 0
}

// Fetch returns the price of one page fetch through source.
func (c *Calculator) Fetch(source string) float64 {
	switch source {
	case "tavily":
		return c.rates.Tavily.PerCredit
	case "jina":
		return c.rates.Jina.PerCall
	case "firecrawl":
		return c.FirecrawlCredit()
	}
	return 0
}

// FirecrawlCredit returns the effective price of one Firecrawl credit.
func (c *Calculator) FirecrawlCredit() float64 {
	if c.rates.Firecrawl.CreditsIncluded <= 0 {
		return 0
	}
	return c.rates.Firecrawl.PlanMonthly / c.rates.Firecrawl.CreditsIncluded
}

// PerplexityQuery returns the flat cost per Perplexity query.
func (c *Calculator) PerplexityQuery() float64 {
	return c.rates.Perplexity.PerCall
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5-20251001": {
				Input: 0.80, Output: 4.00, CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
			"claude-sonnet-4-5-20250929": {
				Input: 3.00, Output: 15.00, CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
		},
		Tavily:     TavilyRate{PerCredit: 0.008},
		Google:     FlatRate{PerCall: 0.005},
		Jina:       FlatRate{PerCall: 0.0002},
		Perplexity: FlatRate{PerCall: 0.005},
		Firecrawl:  FirecrawlRate{PlanMonthly: 19.00, CreditsIncluded: 3000},
	}
}
