package recurrence

import (
	"slices"
	"testing"
	"time"

	"github.com/smallbiznis/contractledger/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestGenerateOpenEndedCapsAtTwelve(t *testing.T) {
	dates, err := Dates(Schedule{Anchor: date(2024, 1, 20), BillingDay: 5, Period: Monthly})
	require.NoError(t, err)

	require.Len(t, dates, 12)
	assert.Equal(t, date(2024, 2, 5), dates[0])
	assert.Equal(t, date(2024, 3, 5), dates[1])
	assert.Equal(t, date(2025, 1, 5), dates[11])
}

func TestGenerateBillingDayLaterInAnchorMonth(t *testing.T) {
	dates, err := Dates(Schedule{Anchor: date(2024, 1, 3), BillingDay: 10, Period: Monthly, MaxOccurrences: 2})
	require.NoError(t, err)
	assert.Equal(t, []time.Time{date(2024, 1, 10), date(2024, 2, 10)}, dates)
}

func TestGenerateAnchorOnBillingDayStartsNextPeriod(t *testing.T) {
	dates, err := Dates(Schedule{Anchor: date(2024, 3, 15), BillingDay: 15, Period: Quarterly, MaxOccurrences: 2})
	require.NoError(t, err)
	assert.Equal(t, []time.Time{date(2024, 6, 15), date(2024, 9, 15)}, dates)
}

func TestGenerateEndDateIsInclusive(t *testing.T) {
	end := date(2024, 6, 5)
	dates, err := Dates(Schedule{Anchor: date(2024, 1, 20), BillingDay: 5, Period: Bimonthly, End: &end})
	require.NoError(t, err)
	assert.Equal(t, []time.Time{date(2024, 2, 5), date(2024, 4, 5), date(2024, 6, 5)}, dates)
}

func TestGenerateEndDateIgnoresDefaultCap(t *testing.T) {
	end := date(2026, 12, 31)
	dates, err := Dates(Schedule{Anchor: date(2024, 12, 31), BillingDay: 1, Period: Monthly, End: &end})
	require.NoError(t, err)
	assert.Len(t, dates, 24)
}

func TestGenerateClampsShortMonthsWithoutDrift(t *testing.T) {
	dates, err := Dates(Schedule{Anchor: date(2024, 1, 1), BillingDay: 31, Period: Monthly, MaxOccurrences: 4})
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		date(2024, 1, 31),
		date(2024, 2, 29),
		date(2024, 3, 31),
		date(2024, 4, 30),
	}, dates)
}

func TestGenerateAnnualAcrossLeapYear(t *testing.T) {
	dates, err := Dates(Schedule{Anchor: date(2023, 3, 1), BillingDay: 29, Period: Annual, MaxOccurrences: 3})
	require.NoError(t, err)
	assert.Equal(t, []time.Time{date(2023, 3, 29), date(2024, 3, 29), date(2025, 3, 29)}, dates)
}

func TestGenerateIsRestartable(t *testing.T) {
	seq := Generate(Schedule{Anchor: date(2024, 5, 10), BillingDay: 1, Period: Semiannual, MaxOccurrences: 3})
	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Equal(t, first, second)
	assert.Equal(t, date(2024, 11, 1), first[0])
	assert.Equal(t, date(2025, 11, 1), first[2])
}

func TestGenerateStopsEarly(t *testing.T) {
	var got []time.Time
	for d := range Generate(Schedule{Anchor: date(2024, 1, 1), BillingDay: 2, Period: Monthly}) {
		got = append(got, d)
		if len(got) == 3 {
			break
		}
	}
	assert.Len(t, got, 3)
}

func TestGenerateIgnoresTimeOfDay(t *testing.T) {
	anchor := time.Date(2024, 1, 5, 18, 30, 0, 0, time.UTC)
	dates, err := Dates(Schedule{Anchor: anchor, BillingDay: 5, Period: Monthly, MaxOccurrences: 1})
	require.NoError(t, err)
	assert.Equal(t, []time.Time{date(2024, 2, 5)}, dates)
}

func TestValidate(t *testing.T) {
	end := date(2023, 12, 31)
	farEnd := date(9999, 12, 31)
	cases := []struct {
		name string
		s    Schedule
		want error
	}{
		{"billing day zero", Schedule{Anchor: date(2024, 1, 1), BillingDay: 0, Period: Monthly}, ErrInvalidBillingDay},
		{"billing day 32", Schedule{Anchor: date(2024, 1, 1), BillingDay: 32, Period: Monthly}, ErrInvalidBillingDay},
		{"unknown period", Schedule{Anchor: date(2024, 1, 1), BillingDay: 1, Period: "weekly"}, ErrInvalidPeriod},
		{"end before anchor", Schedule{Anchor: date(2024, 1, 1), BillingDay: 1, Period: Monthly, End: &end}, ErrEndBeforeAnchor},
		{"far end date", Schedule{Anchor: date(2024, 1, 1), BillingDay: 1, Period: Monthly, End: &farEnd}, ErrScheduleTooLong},
		{"too many occurrences", Schedule{Anchor: date(2024, 1, 1), BillingDay: 1, Period: Monthly, MaxOccurrences: MaxScheduleOccurrences + 1}, ErrScheduleTooLong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.s)
			assert.ErrorIs(t, err, tc.want)
			assert.True(t, apperror.IsValidation(err))
			assert.Empty(t, slices.Collect(Generate(tc.s)))
		})
	}
}

func TestGenerateLongestAllowedSchedule(t *testing.T) {
	end := date(2074, 1, 5)
	s := Schedule{Anchor: date(2024, 1, 20), BillingDay: 5, Period: Monthly, End: &end}
	dates, err := Dates(s)
	require.NoError(t, err)
	require.Len(t, dates, MaxScheduleOccurrences)
	assert.Equal(t, date(2024, 2, 5), dates[0])
	assert.Equal(t, end, dates[len(dates)-1])

	later := date(2074, 2, 5)
	s.End = &later
	assert.ErrorIs(t, Validate(s), ErrScheduleTooLong)
}

func TestGenerateFarEndAnnualIsAllowed(t *testing.T) {
	end := date(2523, 12, 31)
	dates, err := Dates(Schedule{Anchor: date(2024, 1, 20), BillingDay: 5, Period: Annual, End: &end})
	require.NoError(t, err)
	assert.Len(t, dates, 499)
}

func TestPeriodMonths(t *testing.T) {
	assert.Equal(t, 1, Monthly.Months())
	assert.Equal(t, 2, Bimonthly.Months())
	assert.Equal(t, 3, Quarterly.Months())
	assert.Equal(t, 6, Semiannual.Months())
	assert.Equal(t, 12, Annual.Months())
	assert.Equal(t, 0, Period("daily").Months())
}
