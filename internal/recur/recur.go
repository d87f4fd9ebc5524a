// Package recur decides whether a routine's recurrence pattern fires on a
// given calendar day. It is a pure predicate: no clock, no logging, no
// errors. Malformed patterns fail closed so a single corrupt routine can
// never take down a whole day's schedule.
package recur

import (
	"fmt"

	"famcal/internal/model"
)

// Applies reports whether the pattern recurs on the given day.
//
// Unknown pattern types return false rather than an error; callers that
// want to surface the corruption should run Validate separately.
func Applies(p model.RecurrencePattern, d model.Date) bool {
	switch p.Type {
	case model.RecurDaily:
		return true

	case model.RecurWeekly:
		wd := d.Weekday()
		for _, code := range p.Days {
			if w, ok := code.Weekday(); ok && w == wd {
				return true
			}
		}
		return false

	case model.RecurMonthly:
		// No end-of-month clamping: day_of_month=31 never fires in short
		// months. Accepted behavior, not a bug.
		return d.Day == p.DayOfMonth

	default:
		return false
	}
}

// Validate reports why a pattern is unusable, for the resolver's
// warn-and-exclude path. A valid pattern returns nil.
func Validate(p model.RecurrencePattern) error {
	switch p.Type {
	case model.RecurDaily:
		return nil
	case model.RecurWeekly:
		for _, code := range p.Days {
			if _, ok := code.Weekday(); !ok {
				return fmt.Errorf("weekly pattern has unknown day code %q", code)
			}
		}
		return nil
	case model.RecurMonthly:
		if p.DayOfMonth < 1 || p.DayOfMonth > 31 {
			return fmt.Errorf("monthly pattern has day_of_month %d out of range", p.DayOfMonth)
		}
		return nil
	case "":
		return model.ErrMissingPattern
	default:
		return fmt.Errorf("unknown recurrence type %q", p.Type)
	}
}
