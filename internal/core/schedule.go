package core

import (
	"fmt"
	"time"
)

type IntervalUnit string

const (
	UnitDaily   IntervalUnit = "daily"
	UnitWeekly  IntervalUnit = "weekly"
	UnitMonthly IntervalUnit = "monthly"
	UnitYearly  IntervalUnit = "yearly"
)

// ParseIntervalUnit converts the stored representation back into a unit.
func ParseIntervalUnit(s string) (IntervalUnit, error) {
	switch IntervalUnit(s) {
	case UnitDaily, UnitWeekly, UnitMonthly, UnitYearly:
		return IntervalUnit(s), nil
	default:
		return "", Invalid("unknown interval unit: " + s)
	}
}

// Schedule is a recurrence rule: every N units, e.g. {monthly, 1}.
type Schedule struct {
	Unit  IntervalUnit
	Every int
}

func (s Schedule) Validate() error {
	if _, err := ParseIntervalUnit(string(s.Unit)); err != nil {
		return err
	}
	if s.Every < 1 {
		return Invalid(fmt.Sprintf("interval count must be positive, got %d", s.Every))
	}
	return nil
}

func (s Schedule) String() string {
	return fmt.Sprintf("every %d %s", s.Every, s.Unit)
}

// Next returns the occurrence that follows from. Monthly and yearly
// steps are calendar-aware: the day of month (and month, for yearly) is
// re-anchored to the schedule's start date and clamped to the last day
// of shorter months. Anchoring to the start date rather than the
// previous occurrence keeps a Jan 31 schedule from drifting to the 28th
// forever after its first February.
//
//	start Jan 31, monthly: Jan 31, Feb 28, Mar 31, Apr 30, ...
//	start Feb 29, yearly:  Feb 29 2024, Feb 28 2025, Feb 28 2026, ...
func (s Schedule) Next(from, anchor time.Time) time.Time {
	switch s.Unit {
	case UnitDaily:
		return from.AddDate(0, 0, s.Every)
	case UnitWeekly:
		return from.AddDate(0, 0, 7*s.Every)
	case UnitMonthly:
		y, m := from.Year(), int(from.Month())+s.Every
		return dateClamped(y, m, anchor.Day(), from.Location())
	case UnitYearly:
		return dateClamped(from.Year()+s.Every, int(anchor.Month()), anchor.Day(), from.Location())
	default:
		// Validate rejects unknown units before a schedule is stored.
		return from.AddDate(0, 0, s.Every)
	}
}

// dateClamped builds a date at midnight, clamping day to the last valid
// day of the (normalized) target month instead of rolling over.
func dateClamped(year, month, day int, loc *time.Location) time.Time {
	firstOfMonth := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	lastDay := firstOfMonth.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfMonth.Year(), firstOfMonth.Month(), day, 0, 0, 0, 0, loc)
}
