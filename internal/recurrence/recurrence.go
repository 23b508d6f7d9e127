// Package recurrence generates billing dates for recurring contracts.
package recurrence

import (
	"iter"
	"slices"
	"time"

	"github.com/smallbiznis/contractledger/pkg/apperror"
)

var (
	ErrInvalidBillingDay = apperror.Validation("invalid_billing_day")
	ErrInvalidPeriod     = apperror.Validation("invalid_recurrence_period")
	ErrEndBeforeAnchor   = apperror.Validation("end_before_anchor")
	ErrScheduleTooLong   = apperror.Validation("schedule_too_long")
)

const (
	// DefaultMaxOccurrences caps open-ended schedules.
	DefaultMaxOccurrences = 12
	// MaxScheduleOccurrences is the most dates any schedule may produce,
	// fifty years of monthly billing.
	MaxScheduleOccurrences = 600
)

type Period string

const (
	Monthly    Period = "monthly"
	Bimonthly  Period = "bimonthly"
	Quarterly  Period = "quarterly"
	Semiannual Period = "semiannual"
	Annual     Period = "annual"
)

// Months returns the step in months, or 0 for an unknown period.
func (p Period) Months() int {
	switch p {
	case Monthly:
		return 1
	case Bimonthly:
		return 2
	case Quarterly:
		return 3
	case Semiannual:
		return 6
	case Annual:
		return 12
	default:
		return 0
	}
}

func (p Period) Valid() bool { return p.Months() > 0 }

// Schedule describes a billing calendar. End is inclusive. When End is nil
// and MaxOccurrences is not positive, DefaultMaxOccurrences applies. No
// schedule yields more than MaxScheduleOccurrences dates.
type Schedule struct {
	Anchor         time.Time
	BillingDay     int
	Period         Period
	End            *time.Time
	MaxOccurrences int
}

func Validate(s Schedule) error {
	if s.BillingDay < 1 || s.BillingDay > 31 {
		return apperror.Detail(ErrInvalidBillingDay, "billing day %d outside 1..31", s.BillingDay)
	}
	if !s.Period.Valid() {
		return apperror.Detail(ErrInvalidPeriod, "unknown period %q", s.Period)
	}
	if s.End != nil && Day(*s.End).Before(Day(s.Anchor)) {
		return ErrEndBeforeAnchor
	}
	if s.MaxOccurrences > MaxScheduleOccurrences {
		return apperror.Detail(ErrScheduleTooLong, "%d occurrences exceeds %d", s.MaxOccurrences, MaxScheduleOccurrences)
	}
	if s.End != nil && s.MaxOccurrences <= 0 {
		step := s.Period.Months()
		span := monthIndex(Day(*s.End)) - monthIndex(Day(s.Anchor)) - firstOffset(Day(s.Anchor), s.BillingDay, step)
		if n := span/step + 1; span >= 0 && n > MaxScheduleOccurrences {
			return apperror.Detail(ErrScheduleTooLong, "end date allows %d occurrences, limit is %d", n, MaxScheduleOccurrences)
		}
	}
	return nil
}

// Generate yields billing dates strictly after the anchor. The first date is
// the billing day of the anchor month, pushed one period forward when it does
// not fall after the anchor. Each later date is computed from the anchor month
// so clamping in short months never drifts the billing day.
//
// The sequence is pure: every range restarts from the anchor. An invalid
// schedule yields nothing; call Validate first to learn why.
func Generate(s Schedule) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		if Validate(s) != nil {
			return
		}

		anchor := Day(s.Anchor)
		step := s.Period.Months()
		limit := s.MaxOccurrences
		if s.End == nil && limit <= 0 {
			limit = DefaultMaxOccurrences
		}
		if limit <= 0 || limit > MaxScheduleOccurrences {
			limit = MaxScheduleOccurrences
		}
		var end time.Time
		if s.End != nil {
			end = Day(*s.End)
		}

		offset := firstOffset(anchor, s.BillingDay, step)

		for emitted := 0; emitted < limit; emitted++ {
			candidate := dateAt(anchor, offset, s.BillingDay)
			if s.End != nil && candidate.After(end) {
				return
			}
			if !yield(candidate) {
				return
			}
			offset += step
		}
	}
}

// Dates collects Generate into a slice.
func Dates(s Schedule) ([]time.Time, error) {
	if err := Validate(s); err != nil {
		return nil, err
	}
	return slices.Collect(Generate(s)), nil
}

// Day truncates t to UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the UTC midnight n days after t.
func AddDays(t time.Time, n int) time.Time {
	return Day(t).AddDate(0, 0, n)
}

// FirstOfMonth returns the first day of the given month.
func FirstOfMonth(year int, month time.Month) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

// firstOffset is the month offset of the first date after anchor.
func firstOffset(anchor time.Time, billingDay, step int) int {
	if dateAt(anchor, 0, billingDay).After(anchor) {
		return 0
	}
	return step
}

func monthIndex(t time.Time) int {
	return t.Year()*12 + int(t.Month()) - 1
}

func dateAt(anchor time.Time, monthOffset, billingDay int) time.Time {
	index := monthIndex(anchor) + monthOffset
	year, month := index/12, time.Month(index%12+1)
	day := min(billingDay, daysIn(year, month))
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
