package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/grant-seeker/internal/model"
)

func TestVariants(t *testing.T) {
	got := Variants("community garden grants", model.Filters{}, "")
	assert.Equal(t, []string{
		"community garden grants",
		"community garden grants eligibility deadline",
		"community garden funding",
		"community grants",
		"small business grants",
	}, got)
}

func TestVariants_FilterKeywords(t *testing.T) {
	got := Variants("  youth  employment ", model.Filters{
		DemographicFocus: []string{"youth"},
		GeographicScope:  []string{"Ontario"},
	}, "nonprofit grants")
	assert.Equal(t, "youth employment youth Ontario", got[1])
	assert.Equal(t, "nonprofit grants", got[4])
}

func TestSwapFundingTerms(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"community garden grants", "community garden funding"},
		{"Grant programs", "Funding programs"},
		{"arts funding Ontario", "arts grants Ontario"},
		{"grantmaking foundations", "grantmaking foundations"},
		{"no match", "no match"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, swapFundingTerms(tt.in), tt.in)
	}
}

func TestDropShortestWord(t *testing.T) {
	assert.Equal(t, "community grants", dropShortestWord("community garden grants"))
	assert.Equal(t, "tech grants women", dropShortestWord("tech grants for women"))
	assert.Equal(t, "garden", dropShortestWord("garden"))
	assert.Equal(t, "", dropShortestWord(""))
}

func TestVariantKey(t *testing.T) {
	assert.Equal(t, variantKey("Garden  Grants "), variantKey("garden grants"))
}

type genFunc func(string) (string, error)

func (f genFunc) Generate(_ context.Context, d string) (string, error) { return f(d) }

func TestGenerateQuery(t *testing.T) {
	ctx := context.Background()

	q := GenerateQuery(ctx, genFunc(func(string) (string, error) { return "  garden  grants Canada ", nil }), "We build gardens")
	assert.Equal(t, "garden grants Canada", q)

	desc := "We are a small non-profit in Toronto that wants to build a rooftop community garden for seniors"
	q = GenerateQuery(ctx, genFunc(func(string) (string, error) { return "", errors.New("down") }), desc)
	assert.Equal(t, "We are a small non-profit in Toronto that wants to grants", q)

	assert.Equal(t, "rooftop garden grants", GenerateQuery(ctx, nil, "rooftop garden"))
}
