package ics

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	appLog "famcal/internal/log"
	"famcal/internal/model"
)

const defaultMaxOccurrencesPerEvent = 5000

// ExpandConfig controls recurrence expansion.
type ExpandConfig struct {
	// DisplayLocation is the timezone occurrences are converted into.
	// Nil means time.Local.
	DisplayLocation *time.Location

	// RangeStart / RangeEnd bound the occurrence window (inclusive).
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps runaway RRULEs. Zero means the default.
	MaxOccurrencesPerEvent int
}

// ExpandEvents turns parsed VEVENTs into concrete calendar events within
// the window, handling plain events, RRULE recurrence, EXDATE removals,
// RECURRENCE-ID overrides and all-day semantics. A bad RRULE drops that
// event with a warning; the rest of the feed expands normally.
func ExpandEvents(events []ParsedEvent, cfg ExpandConfig) ([]model.CalendarEvent, error) {
	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return nil, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	// Group base events and their per-instance overrides by UID.
	baseByUID := make(map[string][]ParsedEvent)
	overridesByUID := make(map[string][]ParsedEvent)
	order := make([]string, 0, len(events))

	for _, ev := range events {
		if ev.IsOverride && ev.Recurrence != nil {
			overridesByUID[ev.UID] = append(overridesByUID[ev.UID], ev)
			continue
		}
		if _, seen := baseByUID[ev.UID]; !seen {
			order = append(order, ev.UID)
		}
		baseByUID[ev.UID] = append(baseByUID[ev.UID], ev)
	}

	// Iterate UIDs in first-seen order so output is deterministic for a
	// given feed body.
	out := make([]model.CalendarEvent, 0)
	for _, uid := range order {
		for _, ev := range baseByUID[uid] {
			occ, hitCap := expandEvent(ev, overridesByUID[uid], cfg)
			if hitCap {
				appLog.Warn("expand: occurrence cap hit for event",
					"uid", uid, "cap", cfg.MaxOccurrencesPerEvent)
			}
			out = append(out, occ...)
		}
	}

	return out, nil
}

func expandEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]model.CalendarEvent, bool) {
	if ev.RawRRule == "" {
		return expandSingleEvent(ev, overrides, cfg), false
	}
	return expandRecurringEvent(ev, overrides, cfg)
}

func expandSingleEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) []model.CalendarEvent {
	if !timeRangesOverlap(ev.Start, ev.End, cfg.RangeStart, cfg.RangeEnd) {
		return nil
	}

	start, end := ev.Start, ev.End
	if o, ok := findOverrideForStart(overrides, start); ok {
		start, end = o.Start, o.End
		ev = o
	}

	return []model.CalendarEvent{makeEvent(ev, start, end, cfg.DisplayLocation)}
}

func expandRecurringEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]model.CalendarEvent, bool) {
	out := make([]model.CalendarEvent, 0)

	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Warn("expand: unparseable RRULE; event dropped", "uid", ev.UID, "rrule", ev.RawRRule)
		return out, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		// Align EXDATE with the event's own location before exclusion.
		set.ExDate(ex.In(ev.Start.Location()))
	}

	rangeStart := cfg.RangeStart.In(ev.Start.Location())
	rangeEnd := cfg.RangeEnd.In(ev.Start.Location())
	occTimes := set.Between(rangeStart, rangeEnd, true)

	hitCap := false
	if len(occTimes) > cfg.MaxOccurrencesPerEvent {
		occTimes = occTimes[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	for _, occStart := range occTimes {
		var occEnd time.Time
		if ev.AllDay {
			date := time.Date(occStart.Year(), occStart.Month(), occStart.Day(), 0, 0, 0, 0, occStart.Location())
			occStart = date
			occEnd = date.Add(24 * time.Hour)
		} else {
			occEnd = occStart.Add(ev.End.Sub(ev.Start))
		}

		occEv := ev
		if o, ok := findOverrideForStart(overrides, occStart); ok {
			occStart, occEnd = o.Start, o.End
			occEv = o
		}

		out = append(out, makeEvent(occEv, occStart, occEnd, cfg.DisplayLocation))
	}

	return out, hitCap
}

// findOverrideForStart matches an override whose RECURRENCE-ID equals the
// occurrence start, compared in the base occurrence's location.
func findOverrideForStart(overrides []ParsedEvent, baseStart time.Time) (ParsedEvent, bool) {
	for _, ov := range overrides {
		if ov.Recurrence == nil {
			continue
		}
		if ov.Recurrence.In(baseStart.Location()).Equal(baseStart) {
			return ov, true
		}
	}
	return ParsedEvent{}, false
}

// makeEvent converts one occurrence into the engine's read-only calendar
// projection, normalized into displayLoc. The occurrence id combines the
// feed id, the UID and the local start so a recurring event yields a
// distinct, stable id per occurrence for override records to target.
func makeEvent(ev ParsedEvent, start, end time.Time, displayLoc *time.Location) model.CalendarEvent {
	startLocal := start.In(displayLoc)
	endLocal := end.In(displayLoc)

	out := model.CalendarEvent{
		ID:     ev.Source.ID + ":" + ev.UID + ":" + startLocal.Format(time.RFC3339),
		Title:  ev.Summary,
		Start:  startLocal,
		AllDay: ev.AllDay,
	}
	if !endLocal.IsZero() {
		out.End = &endLocal
	}
	return out
}

func timeRangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	if aEnd.Before(bStart) {
		return false
	}
	if bEnd.Before(aStart) {
		return false
	}
	return true
}
