// Package billing turns subscription recurrence rules into concrete expense
// postings: a pure recurrence calculator, narrow store interfaces over the
// subscriptions and expenses tables, the processor that drives them, and the
// daily cron job.
package billing

import (
	"errors"
	"fmt"
	"time"
)

// Subscription frequencies.
const (
	FrequencyMonthly = "MONTHLY"
	FrequencyYearly  = "YEARLY"
	FrequencyWeekly  = "WEEKLY"
)

var ErrUnsupportedFrequency = errors.New("unsupported subscription frequency")

// DateOf strips the time-of-day component, keeping the calendar date in UTC.
// All billing math happens on these normalized dates.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func clampDay(year int, month time.Month, day int) int {
	if last := daysInMonth(year, month); day > last {
		return last
	}
	return day
}

// NextDueDate returns the due date that follows from.
//
// MONTHLY advances one calendar month with the day clamped to the target
// month's length, so a day-31 subscription bills on Feb 28/29 and returns to
// the 31st in March. YEARLY keeps the month and day, clamping only a Feb 29
// anchor in non-leap years. WEEKLY advances seven days; dayOfMonth is ignored.
func NextDueDate(frequency string, dayOfMonth int, from time.Time) (time.Time, error) {
	from = DateOf(from)

	switch frequency {
	case FrequencyMonthly:
		year, month := from.Year(), from.Month()+1
		if month > time.December {
			year, month = year+1, time.January
		}
		return time.Date(year, month, clampDay(year, month, dayOfMonth), 0, 0, 0, 0, time.UTC), nil
	case FrequencyYearly:
		year := from.Year() + 1
		return time.Date(year, from.Month(), clampDay(year, from.Month(), from.Day()), 0, 0, 0, 0, time.UTC), nil
	case FrequencyWeekly:
		return from.AddDate(0, 0, 7), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnsupportedFrequency, frequency)
	}
}

// InitialDueDate computes the first due date for a subscription created or
// reactivated today. The candidate is today's month with the day clamped; if
// that is not strictly after today it advances once, so a fresh subscription
// is never due in the past. WEEKLY has no monthly anchor, so its first charge
// is simply one week out.
func InitialDueDate(frequency string, dayOfMonth int, today time.Time) (time.Time, error) {
	today = DateOf(today)

	if frequency == FrequencyWeekly {
		return NextDueDate(frequency, dayOfMonth, today)
	}

	candidate := time.Date(today.Year(), today.Month(),
		clampDay(today.Year(), today.Month(), dayOfMonth), 0, 0, 0, 0, time.UTC)

	if !candidate.After(today) {
		return NextDueDate(frequency, dayOfMonth, candidate)
	}
	return candidate, nil
}
