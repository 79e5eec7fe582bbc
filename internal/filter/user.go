package filter

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/grant-seeker/internal/model"
)

// demographicSynonyms maps a demographic filter to the terms that satisfy it.
var demographicSynonyms = map[string][]string{
	"women":      {"women", "female"},
	"indigenous": {"indigenous", "first nations", "metis", "métis", "inuit"},
	"youth":      {"youth", "young"},
}

var dollarAmount = regexp.MustCompile(`\$\s?([\d,]+(?:\.\d+)?)\s*([kKmM])?\b`)

// MatchUser reports whether r satisfies every filter set in f.
func MatchUser(r model.Record, f model.Filters) bool {
	return matchDemographics(r, f.DemographicFocus) &&
		matchFundingMin(r, f.FundingMin) &&
		matchFundingTypes(r, f.FundingTypes) &&
		matchGeography(r, f.GeographicScope)
}

// ApplyUser keeps the records that satisfy f, preserving order.
func ApplyUser(records []model.Record, f model.Filters) []model.Record {
	if f.Empty() {
		return records
	}
	out := make([]model.Record, 0, len(records))
	for _, r := range records {
		if MatchUser(r, f) {
			out = append(out, r)
		}
	}
	return out
}

func matchDemographics(r model.Record, focus []string) bool {
	if len(focus) == 0 {
		return true
	}
	if len(r.FounderDemographics) == 0 {
		return false
	}
	for _, want := range focus {
		terms := synonymsFor(want)
		for _, have := range r.FounderDemographics {
			have = strings.ToLower(have)
			for _, term := range terms {
				if strings.Contains(have, term) {
					return true
				}
			}
		}
	}
	return false
}

func synonymsFor(filter string) []string {
	lower := strings.ToLower(strings.TrimSpace(filter))
	for key, terms := range demographicSynonyms {
		if strings.Contains(lower, key) {
			return terms
		}
	}
	return []string{lower}
}

// matchFundingMin drops records without a stated amount, and records whose
// largest stated dollar figure is below floor.
func matchFundingMin(r model.Record, floor float64) bool {
	if floor <= 0 {
		return true
	}
	if strings.Contains(strings.ToLower(r.Amount), "not specified") {
		return false
	}
	top, ok := MaxAmount(r.Amount)
	if !ok {
		return true
	}
	return top >= floor
}

// MaxAmount returns the largest dollar figure in s, honouring k and M
// suffixes.
func MaxAmount(s string) (float64, bool) {
	var best float64
	found := false
	for _, m := range dollarAmount.FindAllStringSubmatch(s, -1) {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			continue
		}
		switch strings.ToLower(m[2]) {
		case "k":
			v *= 1_000
		case "m":
			v *= 1_000_000
		}
		if !found || v > best {
			best = v
			found = true
		}
	}
	return best, found
}

func matchFundingTypes(r model.Record, types []string) bool {
	if len(types) == 0 {
		return true
	}
	nature := strings.ToLower(string(r.FundingNature))
	for _, ft := range types {
		ft = strings.ToLower(ft)
		for _, kind := range []string{"grant", "loan", "wage", "tax credit"} {
			if strings.Contains(ft, kind) && strings.Contains(nature, kind) {
				return true
			}
		}
	}
	return false
}

// matchGeography accepts national programs for any regional scope.
func matchGeography(r model.Record, scope []string) bool {
	if len(scope) == 0 {
		return true
	}
	geo := strings.ToLower(r.Geography)
	if strings.Contains(geo, "canada") {
		return true
	}
	for _, s := range scope {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" && strings.Contains(geo, s) {
			return true
		}
	}
	return false
}
