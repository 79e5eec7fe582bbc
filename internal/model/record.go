package model

import (
	"fmt"
	"strings"
	"time"
)

// FundingNature classifies what kind of money an opportunity provides.
type FundingNature string

const (
	FundingGrant     FundingNature = "Grant"
	FundingLoan      FundingNature = "Loan"
	FundingTaxCredit FundingNature = "Tax Credit"
	FundingUnknown   FundingNature = "Unknown"
)

// ParseFundingNature maps free text onto a FundingNature. "tax credit" wins
// over "loan" which wins over "grant".
func ParseFundingNature(s string) FundingNature {
	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "tax credit"):
		return FundingTaxCredit
	case strings.Contains(lower, "loan"):
		return FundingLoan
	case strings.Contains(lower, "grant"):
		return FundingGrant
	default:
		return FundingUnknown
	}
}

// Placeholder values written into a Record when the extractor left a field out.
const (
	DefaultTitle            = "Untitled Grant"
	DefaultFunder           = "Unknown"
	DefaultDeadline         = "Not specified"
	DefaultAmount           = "Not specified"
	DefaultDescription      = "No description available"
	DefaultDetailedOverview = "No detailed overview available"
	DefaultEligibility      = "Not specified"
	DefaultGeography        = "Not specified"
)

// Lead is a candidate URL surfaced by discovery. Leads are never persisted.
type Lead struct {
	URL    string `json:"url" validate:"required,url"`
	Source string `json:"source"`
	Title  string `json:"title" validate:"required"`
}

// Record is a structured funding opportunity. URL is the identity key.
type Record struct {
	ID                      int           `json:"id"`
	Title                   string        `json:"title"`
	Funder                  string        `json:"funder"`
	Deadline                string        `json:"deadline"`
	DeadlineDate            *time.Time    `json:"deadline_date,omitempty"`
	Amount                  string        `json:"amount"`
	Description             string        `json:"description"`
	DetailedOverview        string        `json:"detailed_overview"`
	Tags                    []string      `json:"tags"`
	Eligibility             string        `json:"eligibility"`
	URL                     string        `json:"url"`
	ApplicationRequirements []string      `json:"application_requirements"`
	FundingNature           FundingNature `json:"funding_nature"`
	Geography               string        `json:"geography"`
	FounderDemographics     []string      `json:"founder_demographics"`
	FitScore                int           `json:"fit_score"`
	Error                   string        `json:"error,omitempty"`
}

// Failed reports whether the record carries an extraction failure marker.
func (r *Record) Failed() bool {
	return r.Error != ""
}

// Normalize fills every empty field with its placeholder default.
func (r *Record) Normalize() {
	r.Title = orDefault(r.Title, DefaultTitle)
	r.Funder = orDefault(r.Funder, DefaultFunder)
	r.Deadline = orDefault(r.Deadline, DefaultDeadline)
	r.Amount = orDefault(r.Amount, DefaultAmount)
	r.Description = orDefault(r.Description, DefaultDescription)
	r.DetailedOverview = orDefault(r.DetailedOverview, DefaultDetailedOverview)
	r.Eligibility = orDefault(r.Eligibility, DefaultEligibility)
	r.Geography = orDefault(r.Geography, DefaultGeography)
	if r.FundingNature == "" {
		r.FundingNature = FundingUnknown
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}
	if r.ApplicationRequirements == nil {
		r.ApplicationRequirements = []string{}
	}
	if r.FounderDemographics == nil {
		r.FounderDemographics = []string{}
	}
	if r.FitScore < 0 {
		r.FitScore = 0
	}
	if r.FitScore > 100 {
		r.FitScore = 100
	}
}

// RecordFromMap converts one loosely typed extractor object into a normalized
// Record. Scalars that arrive as numbers and lists that arrive as a single
// string are coerced rather than rejected.
func RecordFromMap(m map[string]any) Record {
	r := Record{
		Title:                   stringValue(m["title"]),
		Funder:                  stringValue(m["funder"]),
		Deadline:                stringValue(m["deadline"]),
		Amount:                  stringValue(m["amount"]),
		Description:             stringValue(m["description"]),
		DetailedOverview:        stringValue(m["detailed_overview"]),
		Tags:                    stringSlice(m["tags"]),
		Eligibility:             stringValue(m["eligibility"]),
		URL:                     stringValue(m["url"]),
		ApplicationRequirements: stringSlice(m["application_requirements"]),
		Geography:               stringValue(m["geography"]),
		FounderDemographics:     stringSlice(m["founder_demographics"]),
	}
	fn := stringValue(m["funding_nature"])
	if fn == "" {
		fn = stringValue(m["funding_type"])
	}
	if fn != "" {
		r.FundingNature = ParseFundingNature(fn)
	}
	r.Normalize()
	return r
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func stringSlice(v any) []string {
	switch t := v.(type) {
	case nil:
		return []string{}
	case []string:
		return t
	case string:
		if strings.TrimSpace(t) == "" {
			return []string{}
		}
		parts := strings.Split(t, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := stringValue(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return []string{}
	}
}
