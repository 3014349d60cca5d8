package rotten

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// timeNow is swapped in tests to pin relative-timestamp arithmetic.
var timeNow = time.Now

var relativePattern = regexp.MustCompile(`^(\d+)\s*(mo|[smhdwMy])(?:\s+ago)?$`)

var absoluteLayouts = []string{
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 02, 2006",
}

var dayOnlyLayouts = []string{
	"Jan 2",
	"January 2",
}

// parseTimestamp converts the site's timestamp strings to a point in
// time. Relative forms ("3d", "2w ago") are offsets from now; absolute
// forms without a year that land in the future belong to last year.
func parseTimestamp(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	if m := relativePattern.FindStringSubmatch(raw); m != nil {
		n, _ := strconv.Atoi(m[1])
		switch m[2] {
		case "s":
			return now.Add(-time.Duration(n) * time.Second), nil
		case "m":
			return now.Add(-time.Duration(n) * time.Minute), nil
		case "h":
			return now.Add(-time.Duration(n) * time.Hour), nil
		case "d":
			return now.AddDate(0, 0, -n), nil
		case "w":
			return now.AddDate(0, 0, -7*n), nil
		case "M", "mo":
			return now.AddDate(0, -n, 0), nil
		case "y":
			return now.AddDate(-n, 0, 0), nil
		}
	}

	for _, layout := range absoluteLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	for _, layout := range dayOnlyLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		t = time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		if t.After(now) {
			t = t.AddDate(-1, 0, 0)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}
