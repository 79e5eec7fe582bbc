package filter

import (
	"strings"

	"github.com/sells-group/grant-seeker/internal/model"
)

// MinDescriptionLength is the shortest description a viable record may have.
const MinDescriptionLength = 50

// IsViable reports whether r has enough substance to show: no extraction
// error, at least two of title, deadline and amount filled in, and a real
// description of at least MinDescriptionLength characters.
func IsViable(r model.Record) bool {
	if r.Failed() {
		return false
	}

	filled := 0
	if !isPlaceholder(r.Title, model.DefaultTitle) {
		filled++
	}
	if !isPlaceholder(r.Deadline, model.DefaultDeadline, "Unknown") {
		filled++
	}
	if !isPlaceholder(r.Amount, model.DefaultAmount, "Unknown") {
		filled++
	}
	if filled < 2 {
		return false
	}

	desc := strings.TrimSpace(r.Description)
	if isPlaceholder(desc, model.DefaultDescription) {
		return false
	}
	return len(desc) >= MinDescriptionLength
}

func isPlaceholder(v string, defaults ...string) bool {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, "N/A") {
		return true
	}
	for _, d := range defaults {
		if v == d {
			return true
		}
	}
	return false
}
