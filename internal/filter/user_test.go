package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/grant-seeker/internal/model"
)

func TestMatchUser_Demographics(t *testing.T) {
	women := model.Record{FounderDemographics: []string{"Female founders"}}
	indigenous := model.Record{FounderDemographics: []string{"First Nations entrepreneurs"}}
	none := model.Record{}

	f := model.Filters{DemographicFocus: []string{"Women-led"}}
	assert.True(t, MatchUser(women, f))
	assert.False(t, MatchUser(indigenous, f))
	assert.False(t, MatchUser(none, f))

	f = model.Filters{DemographicFocus: []string{"Indigenous", "Youth"}}
	assert.True(t, MatchUser(indigenous, f))
	assert.True(t, MatchUser(model.Record{FounderDemographics: []string{"Young entrepreneurs"}}, f))

	f = model.Filters{DemographicFocus: []string{"Newcomers"}}
	assert.True(t, MatchUser(model.Record{FounderDemographics: []string{"Newcomers to Canada"}}, f))
}

func TestMatchUser_FundingMin(t *testing.T) {
	f := model.Filters{FundingMin: 10_000}

	assert.False(t, MatchUser(model.Record{Amount: "Not specified"}, f))
	assert.False(t, MatchUser(model.Record{Amount: "Up to $5,000"}, f))
	assert.True(t, MatchUser(model.Record{Amount: "$5,000 - $25,000"}, f))
	assert.True(t, MatchUser(model.Record{Amount: "Up to $50K"}, f))
	assert.True(t, MatchUser(model.Record{Amount: "Varies by project"}, f))
}

func TestMaxAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"$5,000 - $25,000", 25_000, true},
		{"Up to $1.5M", 1_500_000, true},
		{"$ 750", 750, true},
		{"$10k per year", 10_000, true},
		{"Not specified", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := MaxAmount(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}
}

func TestMatchUser_FundingTypes(t *testing.T) {
	grant := model.Record{FundingNature: model.FundingGrant}
	loan := model.Record{FundingNature: model.FundingLoan}

	f := model.Filters{FundingTypes: []string{"Grants"}}
	assert.True(t, MatchUser(grant, f))
	assert.False(t, MatchUser(loan, f))

	f = model.Filters{FundingTypes: []string{"grant", "Loans"}}
	assert.True(t, MatchUser(loan, f))
}

func TestMatchUser_Geography(t *testing.T) {
	f := model.Filters{GeographicScope: []string{"Ontario"}}

	assert.True(t, MatchUser(model.Record{Geography: "Toronto, Ontario"}, f))
	assert.True(t, MatchUser(model.Record{Geography: "Canada"}, f))
	assert.False(t, MatchUser(model.Record{Geography: "British Columbia"}, f))
}

func TestApplyUser(t *testing.T) {
	records := []model.Record{
		{URL: "a", Geography: "Ontario"},
		{URL: "b", Geography: "Alberta"},
		{URL: "c", Geography: "Canada"},
	}

	got := ApplyUser(records, model.Filters{GeographicScope: []string{"ontario"}})
	assert.Len(t, got, 2)
	assert.Equal(t, "a", got[0].URL)
	assert.Equal(t, "c", got[1].URL)

	assert.Len(t, ApplyUser(records, model.Filters{}), 3)
}
