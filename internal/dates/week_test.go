package dates

import (
	"testing"
	"time"

	"github.com/joseph-ayodele/pnl-tracker/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekKey(t *testing.T) {
	tests := []struct {
		t    time.Time
		want string
	}{
		{time.Date(2024, 1, 8, 14, 32, 0, 0, time.UTC), "2024-W02"},
		{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "2024-W01"},
		// Jan 1 2021 is a Friday and belongs to the last week of 2020.
		{time.Date(2021, 1, 1, 12, 0, 0, 0, time.UTC), "2020-W53"},
		// Dec 30 2024 is a Monday in week 1 of 2025.
		{time.Date(2024, 12, 30, 9, 0, 0, 0, time.UTC), "2025-W01"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, WeekKey(tt.t), tt.t.String())
	}
}

func TestWeekRange(t *testing.T) {
	start, end, err := WeekRange("2024-W02")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 1, 14, 23, 59, 59, 999999999, time.UTC), end)

	start, _, err = WeekRange("2020-W53")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, 12, 28, 0, 0, 0, 0, time.UTC), start)
}

func TestWeekKeyRoundTrip(t *testing.T) {
	day := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 800; i++ {
		ts := day.AddDate(0, 0, i).Add(13 * time.Hour)
		key := WeekKey(ts)
		start, end, err := WeekRange(key)
		require.NoError(t, err)
		assert.True(t, !ts.Before(start) && !ts.After(end), "%s not in %s", ts, key)
		assert.Equal(t, time.Monday, start.Weekday())
	}
}

func TestParseWeekKey_Invalid(t *testing.T) {
	for _, key := range []string{"", "2024-02", "2024-W00", "2024-W54", "2024-W53", "24-W01", "2024-w01"} {
		_, _, err := ParseWeekKey(key)
		assert.ErrorIs(t, err, common.ErrInvalidWeekKey, key)
	}
	y, w, err := ParseWeekKey("2020-W53")
	require.NoError(t, err)
	assert.Equal(t, 2020, y)
	assert.Equal(t, 53, w)
}

func TestInWeek(t *testing.T) {
	assert.True(t, InWeek(time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), "2024-W02"))
	assert.True(t, InWeek(time.Date(2024, 1, 14, 23, 59, 59, 0, time.UTC), "2024-W02"))
	assert.False(t, InWeek(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), "2024-W02"))
	assert.False(t, InWeek(time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), "garbage"))
}

func TestLastWeeksAndOptions(t *testing.T) {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, []string{"2023-W52", "2024-W01", "2024-W02"}, LastWeeks(3, now))

	opts := WeekOptions(2, now)
	require.Len(t, opts, 2)
	assert.Equal(t, WeekOption{Key: "2024-W02", Label: "Jan 8 - Jan 14, 2024"}, opts[0])
	assert.Equal(t, "2024-W01", opts[1].Key)
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "Dec 30 - Jan 5, 2025", FormatWeekRange("2025-W01"))
	assert.Equal(t, "Jan 8", FormatWeekShort("2024-W02"))
	assert.Equal(t, "nope", FormatWeekRange("nope"))
	assert.Equal(t, "2024-01-08", DateKey(time.Date(2024, 1, 8, 23, 0, 0, 0, time.UTC)))
}
