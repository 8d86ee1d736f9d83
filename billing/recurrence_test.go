package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestNextDueDate(t *testing.T) {
	tests := []struct {
		name       string
		frequency  string
		dayOfMonth int
		from       time.Time
		want       time.Time
	}{
		{
			name:       "monthly mid-month",
			frequency:  FrequencyMonthly,
			dayOfMonth: 15,
			from:       date(2024, time.March, 15),
			want:       date(2024, time.April, 15),
		},
		{
			name:       "monthly day 31 clamps to leap February",
			frequency:  FrequencyMonthly,
			dayOfMonth: 31,
			from:       date(2024, time.January, 31),
			want:       date(2024, time.February, 29),
		},
		{
			name:       "monthly day 31 clamps to non-leap February",
			frequency:  FrequencyMonthly,
			dayOfMonth: 31,
			from:       date(2023, time.January, 31),
			want:       date(2023, time.February, 28),
		},
		{
			name:       "monthly recovers to day 31 after clamped month",
			frequency:  FrequencyMonthly,
			dayOfMonth: 31,
			from:       date(2024, time.February, 29),
			want:       date(2024, time.March, 31),
		},
		{
			name:       "monthly rolls over the year",
			frequency:  FrequencyMonthly,
			dayOfMonth: 15,
			from:       date(2024, time.December, 15),
			want:       date(2025, time.January, 15),
		},
		{
			name:       "monthly day 30 clamps in February then recovers",
			frequency:  FrequencyMonthly,
			dayOfMonth: 30,
			from:       date(2023, time.January, 30),
			want:       date(2023, time.February, 28),
		},
		{
			name:       "yearly preserves month and day",
			frequency:  FrequencyYearly,
			dayOfMonth: 15,
			from:       date(2023, time.June, 15),
			want:       date(2024, time.June, 15),
		},
		{
			name:       "yearly Feb 29 anchor clamps in non-leap year",
			frequency:  FrequencyYearly,
			dayOfMonth: 29,
			from:       date(2024, time.February, 29),
			want:       date(2025, time.February, 28),
		},
		{
			name:       "weekly advances seven days",
			frequency:  FrequencyWeekly,
			dayOfMonth: 1,
			from:       date(2024, time.March, 15),
			want:       date(2024, time.March, 22),
		},
		{
			name:       "weekly crosses month boundary and ignores day of month",
			frequency:  FrequencyWeekly,
			dayOfMonth: 31,
			from:       date(2024, time.February, 27),
			want:       date(2024, time.March, 5),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextDueDate(tt.frequency, tt.dayOfMonth, tt.from)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			// Pure function, same inputs twice.
			again, err := NextDueDate(tt.frequency, tt.dayOfMonth, tt.from)
			require.NoError(t, err)
			assert.Equal(t, got, again)
		})
	}
}

func TestNextDueDateUnsupportedFrequency(t *testing.T) {
	_, err := NextDueDate("DAILY", 15, date(2024, time.March, 15))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedFrequency)
}

func TestNextDueDateStripsTimeOfDay(t *testing.T) {
	from := time.Date(2024, time.March, 15, 23, 45, 12, 0, time.UTC)
	got, err := NextDueDate(FrequencyMonthly, 15, from)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.April, 15), got)
}

func TestInitialDueDate(t *testing.T) {
	tests := []struct {
		name       string
		frequency  string
		dayOfMonth int
		today      time.Time
		want       time.Time
	}{
		{
			name:       "target day still ahead this month",
			frequency:  FrequencyMonthly,
			dayOfMonth: 25,
			today:      date(2024, time.March, 20),
			want:       date(2024, time.March, 25),
		},
		{
			name:       "target day already passed advances a month",
			frequency:  FrequencyMonthly,
			dayOfMonth: 15,
			today:      date(2024, time.March, 20),
			want:       date(2024, time.April, 15),
		},
		{
			name:       "target day is today advances a month",
			frequency:  FrequencyMonthly,
			dayOfMonth: 20,
			today:      date(2024, time.March, 20),
			want:       date(2024, time.April, 20),
		},
		{
			name:       "day 31 clamps within leap February",
			frequency:  FrequencyMonthly,
			dayOfMonth: 31,
			today:      date(2024, time.February, 10),
			want:       date(2024, time.February, 29),
		},
		{
			name:       "yearly with passed day advances a full year",
			frequency:  FrequencyYearly,
			dayOfMonth: 15,
			today:      date(2024, time.June, 20),
			want:       date(2025, time.June, 15),
		},
		{
			name:       "weekly due day today advances seven days",
			frequency:  FrequencyWeekly,
			dayOfMonth: 20,
			today:      date(2024, time.March, 20),
			want:       date(2024, time.March, 27),
		},
		{
			name:       "weekly ignores day of month earlier this month",
			frequency:  FrequencyWeekly,
			dayOfMonth: 5,
			today:      date(2024, time.March, 20),
			want:       date(2024, time.March, 27),
		},
		{
			name:       "weekly ignores day of month later this month",
			frequency:  FrequencyWeekly,
			dayOfMonth: 28,
			today:      date(2024, time.March, 20),
			want:       date(2024, time.March, 27),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := InitialDueDate(tt.frequency, tt.dayOfMonth, tt.today)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.False(t, got.Before(DateOf(tt.today)), "initial due date must not be in the past")
		})
	}
}

func TestInitialDueDateUnsupportedFrequency(t *testing.T) {
	_, err := InitialDueDate("BIWEEKLY", 15, date(2024, time.March, 20))
	assert.ErrorIs(t, err, ErrUnsupportedFrequency)
}

func TestGroupID(t *testing.T) {
	key := GroupID("7", date(2024, time.March, 15))
	assert.Equal(t, "sub-7-2024-03-15", key)
}
