package billingdate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestIsLastDay(t *testing.T) {
	assert.True(t, IsLastDay(date(2026, time.January, 31)))
	assert.True(t, IsLastDay(date(2026, time.February, 28)))
	assert.True(t, IsLastDay(date(2028, time.February, 29)))
	assert.True(t, IsLastDay(date(2026, time.April, 30)))

	assert.False(t, IsLastDay(date(2026, time.January, 30)))
	assert.False(t, IsLastDay(date(2028, time.February, 28)))
	assert.False(t, IsLastDay(date(2026, time.December, 1)))
}

func TestLastDayOfMonth(t *testing.T) {
	assert.Equal(t, date(2026, time.January, 31), LastDayOfMonth(2026, time.January))
	assert.Equal(t, date(2026, time.February, 28), LastDayOfMonth(2026, time.February))
	assert.Equal(t, date(2028, time.February, 29), LastDayOfMonth(2028, time.February))
	assert.Equal(t, date(2026, time.November, 30), LastDayOfMonth(2026, time.November))
	// Month 13 normalizes into the next year.
	assert.Equal(t, date(2027, time.January, 31), LastDayOfMonth(2026, time.Month(13)))
}

func TestNextKeepsCreationDay(t *testing.T) {
	creation := date(2026, time.March, 15)

	next := Next(creation, date(2026, time.March, 15))
	assert.Equal(t, date(2026, time.April, 15), next)

	next = Next(creation, next)
	assert.Equal(t, date(2026, time.May, 15), next)
}

func TestNextRollsOverYearEnd(t *testing.T) {
	creation := date(2025, time.December, 10)

	next := Next(creation, date(2026, time.December, 10))
	assert.Equal(t, date(2027, time.January, 10), next)
}

func TestNextClampsToShortMonths(t *testing.T) {
	creation := date(2026, time.January, 30)

	// February cannot hold day 30.
	next := Next(creation, date(2026, time.January, 30))
	assert.Equal(t, date(2026, time.February, 28), next)

	// Leap year February clamps to 29.
	assert.Equal(t, date(2028, time.February, 29), Next(creation, date(2028, time.January, 30)))

	// Day 31 clamps in every 30-day month.
	creation31 := date(2026, time.March, 31)
	assert.Equal(t, date(2026, time.April, 30), Next(creation31, date(2026, time.March, 31)))
}

func TestNextBouncesBackAfterClamp(t *testing.T) {
	// Created Jan 31: February clamps to 28, March returns to 31.
	creation := date(2026, time.January, 31)

	feb := Next(creation, date(2026, time.January, 31))
	assert.Equal(t, date(2026, time.February, 28), feb)

	mar := Next(creation, feb)
	assert.Equal(t, date(2026, time.March, 31), mar)
}

func TestNextMonthEndAnchorStaysOnMonthEnd(t *testing.T) {
	// Created on the last day of a short month: billing stays on month
	// ends, including longer ones.
	creation := date(2026, time.April, 30)

	next := Next(creation, date(2026, time.April, 30))
	assert.Equal(t, date(2026, time.May, 31), next)

	next = Next(creation, next)
	assert.Equal(t, date(2026, time.June, 30), next)
}

func TestNextFebruaryAnchor(t *testing.T) {
	// Created Feb 28 in a non-leap year is a month-end anchor.
	creation := date(2026, time.February, 28)
	assert.Equal(t, date(2026, time.March, 31), Next(creation, date(2026, time.February, 28)))

	// Created Feb 28 in a leap year is a plain day-28 anchor.
	leapCreation := date(2028, time.February, 28)
	assert.Equal(t, date(2028, time.March, 28), Next(leapCreation, date(2028, time.February, 28)))
}

func TestNextIgnoresTimeOfDayAndZone(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	creation := time.Date(2026, time.March, 15, 23, 30, 0, 0, loc)
	current := time.Date(2026, time.March, 15, 18, 45, 0, 0, loc)

	next := Next(creation, current)
	assert.Equal(t, time.UTC, next.Location())
	assert.Equal(t, 15, next.Day())
	assert.Equal(t, time.April, next.Month())
}

func TestNextFullYearFromDay31Anchor(t *testing.T) {
	creation := date(2026, time.January, 31)
	expected := []time.Time{
		date(2026, time.February, 28),
		date(2026, time.March, 31),
		date(2026, time.April, 30),
		date(2026, time.May, 31),
		date(2026, time.June, 30),
		date(2026, time.July, 31),
		date(2026, time.August, 31),
		date(2026, time.September, 30),
		date(2026, time.October, 31),
		date(2026, time.November, 30),
		date(2026, time.December, 31),
		date(2027, time.January, 31),
	}

	current := creation
	for _, want := range expected {
		current = Next(creation, current)
		assert.Equal(t, want, current)
	}
}
