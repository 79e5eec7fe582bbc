package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFundingNature(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want FundingNature
	}{
		{"Grant", FundingGrant},
		{"non-repayable GRANT", FundingGrant},
		{"Interest-free loan", FundingLoan},
		{"Refundable tax credit", FundingTaxCredit},
		{"loan or tax credit", FundingTaxCredit},
		{"equity", FundingUnknown},
		{"", FundingUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseFundingNature(tt.in), tt.in)
	}
}

func TestRecordNormalize_Defaults(t *testing.T) {
	t.Parallel()

	var r Record
	r.Normalize()

	assert.Equal(t, DefaultTitle, r.Title)
	assert.Equal(t, DefaultFunder, r.Funder)
	assert.Equal(t, DefaultDeadline, r.Deadline)
	assert.Equal(t, DefaultAmount, r.Amount)
	assert.Equal(t, DefaultDescription, r.Description)
	assert.Equal(t, DefaultDetailedOverview, r.DetailedOverview)
	assert.Equal(t, DefaultEligibility, r.Eligibility)
	assert.Equal(t, DefaultGeography, r.Geography)
	assert.Equal(t, FundingUnknown, r.FundingNature)
	assert.NotNil(t, r.Tags)
	assert.NotNil(t, r.ApplicationRequirements)
	assert.NotNil(t, r.FounderDemographics)
	assert.Zero(t, r.FitScore)
}

func TestRecordNormalize_ClampsFitScore(t *testing.T) {
	t.Parallel()

	r := Record{FitScore: 140}
	r.Normalize()
	assert.Equal(t, 100, r.FitScore)

	r = Record{FitScore: -3}
	r.Normalize()
	assert.Equal(t, 0, r.FitScore)
}

func TestRecordFromMap(t *testing.T) {
	t.Parallel()

	r := RecordFromMap(map[string]any{
		"title":                    "Green Futures Fund",
		"funder":                   "Ontario Trillium",
		"amount":                   float64(25000),
		"tags":                     "environment, community , ",
		"application_requirements": []any{"Budget", "", 3.0},
		"funding_nature":           "grant program",
	})

	assert.Equal(t, "Green Futures Fund", r.Title)
	assert.Equal(t, "25000", r.Amount)
	assert.Equal(t, []string{"environment", "community"}, r.Tags)
	assert.Equal(t, []string{"Budget", "3"}, r.ApplicationRequirements)
	assert.Equal(t, FundingGrant, r.FundingNature)
	assert.Equal(t, DefaultDeadline, r.Deadline)
	assert.Equal(t, []string{}, r.FounderDemographics)
}

func TestRecordFailed(t *testing.T) {
	t.Parallel()

	assert.False(t, (&Record{}).Failed())
	assert.True(t, (&Record{Error: "fetch failed"}).Failed())
}

func TestFiltersKeywords(t *testing.T) {
	t.Parallel()

	f := Filters{
		DemographicFocus: []string{"women"},
		FundingTypes:     []string{"loan"},
		GeographicScope:  []string{"Ontario"},
	}
	assert.Equal(t, []string{"women", "loan", "Ontario"}, f.Keywords())
	assert.False(t, f.Empty())
	assert.True(t, Filters{}.Empty())
}
