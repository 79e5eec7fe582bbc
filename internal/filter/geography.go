package filter

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// usStates lists every US state name.
var usStates = []string{
	"alabama", "alaska", "arizona", "arkansas", "california", "colorado", "connecticut",
	"delaware", "florida", "georgia", "hawaii", "idaho", "illinois", "indiana", "iowa",
	"kansas", "kentucky", "louisiana", "maine", "maryland", "massachusetts", "michigan",
	"minnesota", "mississippi", "missouri", "montana", "nebraska", "nevada", "new hampshire",
	"new jersey", "new mexico", "new york", "north carolina", "north dakota", "ohio",
	"oklahoma", "oregon", "pennsylvania", "rhode island", "south carolina", "south dakota",
	"tennessee", "texas", "utah", "vermont", "virginia", "washington", "west virginia",
	"wisconsin", "wyoming",
}

// Policy decides which record geographies are out of scope.
type Policy struct {
	ExcludedMarkers []string `yaml:"excluded_markers"`
}

// DefaultPolicy excludes United States programs and records whose
// geography was marked not applicable.
func DefaultPolicy() Policy {
	markers := []string{"usa", "united states", "not applicable"}
	markers = append(markers, usStates...)
	return Policy{ExcludedMarkers: markers}
}

// LoadPolicy reads a YAML policy file of the form:
//
//	excluded_markers:
//	  - usa
//	  - united states
func LoadPolicy(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, eris.Wrapf(err, "filter: read policy %s", path)
	}
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, eris.Wrapf(err, "filter: parse policy %s", path)
	}
	if len(p.ExcludedMarkers) == 0 {
		return Policy{}, eris.Errorf("filter: policy %s has no excluded_markers", path)
	}
	for i, m := range p.ExcludedMarkers {
		p.ExcludedMarkers[i] = strings.ToLower(strings.TrimSpace(m))
	}
	return p, nil
}

// Excluded reports whether geography contains any excluded marker.
func (p Policy) Excluded(geography string) bool {
	lower := strings.ToLower(geography)
	for _, m := range p.ExcludedMarkers {
		if m != "" && strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
