// Package billingdate computes monthly billing cycle rollovers anchored to
// the account's creation date.
package billingdate

import "time"

// IsLastDay reports whether t falls on the last day of its month.
func IsLastDay(t time.Time) bool {
	return t.Day() == DaysIn(t.Year(), t.Month())
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	// Day zero of the following month normalizes to this month's last day.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// LastDayOfMonth returns midnight UTC on the last day of the given month.
func LastDayOfMonth(year int, month time.Month) time.Time {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
}

// Next advances the billing date one cycle past current.
//
// The cycle day is anchored to the creation date: an account created on the
// last day of its month always bills on month ends, every other account
// bills on its creation day, clamped to shorter months. Clamped dates bounce
// back to the anchor day as soon as the month allows (created Jan 31,
// billing Feb 28, next is Mar 31).
func Next(creation, current time.Time) time.Time {
	creation = creation.UTC()
	current = current.UTC()

	year, month := current.Year(), current.Month()+1

	if IsLastDay(creation) {
		return LastDayOfMonth(year, month)
	}

	day := creation.Day()
	if limit := DaysIn(year, month); day > limit {
		day = limit
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
