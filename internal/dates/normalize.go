// Package dates turns the date/time text found on close-position screenshots
// into instants and provides the ISO week arithmetic used by the metrics.
//
// All values are wall-clock readings carried as UTC instants: the recognized
// text is assumed to already be in the zone the user expects, so nothing here
// converts between zones.
package dates

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

type layout struct {
	name    string
	pattern *regexp.Regexp
	build   func(m []string) (time.Time, bool)
}

// layouts are tried in priority order; the first one that matches and yields
// in-range components wins.
var layouts = []layout{
	{
		name:    "iso",
		pattern: regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})[\sT](\d{2}):(\d{2})(?::(\d{2}))?`),
		build:   numeric(1, 2, 3, 4, 5, 6),
	},
	{
		name:    "us-slash",
		pattern: regexp.MustCompile(`(\d{2})/(\d{2})/(\d{4})\s+(\d{2}):(\d{2})`),
		build:   numeric(3, 1, 2, 4, 5, 0),
	},
	{
		name:    "day-first-dash",
		pattern: regexp.MustCompile(`(\d{2})-(\d{2})-(\d{4})\s+(\d{2}):(\d{2})`),
		build:   numeric(3, 2, 1, 4, 5, 0),
	},
	{
		name:    "month-name",
		pattern: regexp.MustCompile(`\b([A-Za-z]{3,9})\.?\s+(\d{1,2}),?\s+(\d{4})\s+(\d{1,2}):(\d{2})(?::(\d{2}))?`),
		build:   monthName,
	},
	{
		name:    "ymd-slash",
		pattern: regexp.MustCompile(`(\d{4})/(\d{2})/(\d{2})\s+(\d{2}):(\d{2})`),
		build:   numeric(1, 2, 3, 4, 5, 0),
	},
}

var freeFormLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC850,
	time.ANSIC,
	time.UnixDate,
	time.RFC822Z,
	time.RFC822,
	"Jan 2, 2006 15:04:05",
	"Jan 2, 2006 15:04",
	"Jan 2, 2006",
	"Jan 2 2006",
	"January 2, 2006",
	"January 2 2006",
	"2 Jan 2006 15:04",
	"2 Jan 2006",
	"2006/01/02",
	"01/02/2006",
	"02-01-2006",
	"2006.01.02",
}

// lookupMonth accepts an English month name or any prefix of it of at least
// three letters ("Sep", "Sept", "September").
func lookupMonth(word string) (time.Month, bool) {
	word = strings.ToLower(word)
	if len(word) < 3 {
		return 0, false
	}
	for m := time.January; m <= time.December; m++ {
		if strings.HasPrefix(strings.ToLower(m.String()), word) {
			return m, true
		}
	}
	return 0, false
}

// ParseFlexible finds a date/time in s using the supported layouts, then a
// free-form fallback. ok is false when nothing usable was found.
func ParseFlexible(s string) (t time.Time, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range layouts {
		m := l.pattern.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		if t, ok := l.build(m); ok {
			return t, true
		}
	}
	for _, f := range freeFormLayouts {
		if t, err := time.Parse(f, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// numeric builds from capture-group indexes; an index of 0 means "not captured" (zero).
func numeric(y, mo, d, h, mi, sec int) func([]string) (time.Time, bool) {
	return func(m []string) (time.Time, bool) {
		return civil(group(m, y), group(m, mo), group(m, d), group(m, h), group(m, mi), group(m, sec))
	}
}

func monthName(m []string) (time.Time, bool) {
	mo, ok := lookupMonth(m[1])
	if !ok {
		return time.Time{}, false
	}
	return civil(group(m, 3), int(mo), group(m, 2), group(m, 4), group(m, 5), group(m, 6))
}

func group(m []string, i int) int {
	if i <= 0 || i >= len(m) || m[i] == "" {
		return 0
	}
	n, err := strconv.Atoi(m[i])
	if err != nil {
		return -1
	}
	return n
}

// civil rejects out-of-range components instead of letting time.Date roll them over.
func civil(y, mo, d, h, mi, sec int) (time.Time, bool) {
	if y < 1 || mo < 1 || mo > 12 || d < 1 || h < 0 || h > 23 || mi < 0 || mi > 59 || sec < 0 || sec > 59 {
		return time.Time{}, false
	}
	if d > daysIn(time.Month(mo), y) {
		return time.Time{}, false
	}
	return time.Date(y, time.Month(mo), d, h, mi, sec, 0, time.UTC), true
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
