package dates

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/joseph-ayodele/pnl-tracker/internal/common"
)

var reWeekKey = regexp.MustCompile(`^(\d{4})-W(\d{1,2})$`)

// WeekOption is one entry of a week selector.
type WeekOption struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// WeekKey returns the ISO 8601 week identifier ("2024-W02") of t.
func WeekKey(t time.Time) string {
	y, w := t.UTC().ISOWeek()
	return fmt.Sprintf("%d-W%02d", y, w)
}

// ParseWeekKey validates key and returns its ISO year and week number.
func ParseWeekKey(key string) (year, week int, err error) {
	m := reWeekKey.FindStringSubmatch(key)
	if m == nil {
		return 0, 0, fmt.Errorf("%w %q: want YYYY-Www", common.ErrInvalidWeekKey, key)
	}
	year, _ = strconv.Atoi(m[1])
	week, _ = strconv.Atoi(m[2])
	if week < 1 || week > weeksInYear(year) {
		return 0, 0, fmt.Errorf("%w %q: year %d has %d weeks", common.ErrInvalidWeekKey, key, year, weeksInYear(year))
	}
	return year, week, nil
}

// WeekRange returns Monday 00:00 and the last instant of Sunday for key.
func WeekRange(key string) (start, end time.Time, err error) {
	year, week, err := ParseWeekKey(key)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7
	firstMonday := jan4.AddDate(0, 0, -offset)
	start = firstMonday.AddDate(0, 0, 7*(week-1))
	end = start.AddDate(0, 0, 7).Add(-time.Nanosecond)
	return start, end, nil
}

// InWeek reports whether t falls inside key's range, bounds inclusive.
// A malformed key contains nothing.
func InWeek(t time.Time, key string) bool {
	start, end, err := WeekRange(key)
	if err != nil {
		return false
	}
	return !t.Before(start) && !t.After(end)
}

// LastWeeks returns the n week keys ending with now's week, oldest first.
func LastWeeks(n int, now time.Time) []string {
	keys := make([]string, 0, n)
	for i := n - 1; i >= 0; i-- {
		keys = append(keys, WeekKey(now.AddDate(0, 0, -7*i)))
	}
	return keys
}

// WeekOptions returns n selector entries, newest first.
func WeekOptions(n int, now time.Time) []WeekOption {
	opts := make([]WeekOption, 0, n)
	for i := 0; i < n; i++ {
		key := WeekKey(now.AddDate(0, 0, -7*i))
		opts = append(opts, WeekOption{Key: key, Label: FormatWeekRange(key)})
	}
	return opts
}

// DateKey is the calendar day of t as YYYY-MM-DD.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// FormatWeekRange renders "Jan 8 - Jan 14, 2024"; a malformed key is returned as is.
func FormatWeekRange(key string) string {
	start, end, err := WeekRange(key)
	if err != nil {
		return key
	}
	return start.Format("Jan 2") + " - " + end.Format("Jan 2, 2006")
}

// FormatWeekShort renders the week's Monday as "Jan 8".
func FormatWeekShort(key string) string {
	start, _, err := WeekRange(key)
	if err != nil {
		return key
	}
	return start.Format("Jan 2")
}

func weeksInYear(year int) int {
	_, w := time.Date(year, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	return w
}
