package filter

import (
	"regexp"
	"strings"
	"time"
)

var (
	isoDate = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	dmyDate = regexp.MustCompile(`\d{2}-\d{2}-\d{4}`)
)

// ParseDeadline returns the first date in s. YYYY-MM-DD is tried before
// DD-MM-YYYY, and a YYYY-MM-DD match that is not a real date falls through
// to DD-MM-YYYY. It reports false when neither yields a valid date.
func ParseDeadline(s string) (time.Time, bool) {
	if m := isoDate.FindString(s); m != "" {
		if t, err := time.Parse("2006-01-02", m); err == nil {
			return t, true
		}
	}
	if m := dmyDate.FindString(s); m != "" {
		if t, err := time.Parse("02-01-2006", m); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// IsExpired reports whether deadline names a date strictly before the day
// of now, or says "expired". A deadline without a recognizable date is
// treated as open.
func IsExpired(deadline string, now time.Time) bool {
	if strings.Contains(strings.ToLower(deadline), "expired") {
		return true
	}
	t, ok := ParseDeadline(deadline)
	if !ok {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return t.Before(today)
}

// IsRolling reports whether deadline describes continuous intake.
func IsRolling(deadline string) bool {
	lower := strings.ToLower(deadline)
	for _, w := range []string{"rolling", "ongoing", "open", "continuous"} {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
