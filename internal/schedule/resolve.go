package schedule

import (
	"strconv"
	"strings"
	"time"

	appLog "famcal/internal/log"
	"famcal/internal/model"
	"famcal/internal/recur"
)

// overrideOutcome is the interpretation of one instance record relative
// to the viewed day. The same rules hold for every entity kind; the
// per-kind resolvers differ only in candidacy and re-injection.
type overrideOutcome struct {
	drop      bool
	retime    *time.Time
	completed bool
}

// interpretOverride applies the instance state machine to one occurrence:
//
//   - skipped: hidden from the day entirely
//   - deferred to another day: hidden from this day
//   - deferred to this day: kept, with the deferral target as its time
//   - pending with a DeferredTo: same-day retime without a status change
//   - completed: kept and marked done
func interpretOverride(in model.ActionableInstance, viewed model.Date) overrideOutcome {
	switch in.Status {
	case model.StatusSkipped:
		return overrideOutcome{drop: true}
	case model.StatusCompleted:
		return overrideOutcome{completed: true}
	case model.StatusDeferred:
		if in.DeferredTo != nil && model.DateOf(*in.DeferredTo) == viewed {
			return overrideOutcome{retime: in.DeferredTo}
		}
		return overrideOutcome{drop: true}
	case model.StatusPending:
		if in.DeferredTo != nil {
			return overrideOutcome{retime: in.DeferredTo}
		}
		return overrideOutcome{}
	default:
		// Unknown status is treated as no override at all.
		return overrideOutcome{}
	}
}

// ResolveTasks produces the timeline items for tasks explicitly scheduled
// on the viewed day, plus tasks deferred into it from another day. Inbox
// tasks (no ScheduledFor) are never examined here.
func ResolveTasks(tasks []model.Task, viewed model.Date, ov, defIn *OverrideIndex) []model.TimelineItem {
	items := make([]model.TimelineItem, 0, len(tasks))

	for _, task := range tasks {
		var start *time.Time

		if in, ok := defIn.Get(model.EntityTask, task.ID); ok {
			t := *in.DeferredTo
			start = &t
		} else if task.ScheduledFor != nil && model.DateOf(*task.ScheduledFor) == viewed {
			t := *task.ScheduledFor
			start = &t
		} else {
			continue
		}

		item := model.TimelineItem{
			ID:        task.ID,
			Title:     task.Title,
			Type:      model.EntityTask,
			StartTime: start,
			AllDay:    task.IsAllDay,
			Completed: task.Completed,
		}

		if in, ok := ov.Get(model.EntityTask, task.ID); ok {
			out := interpretOverride(in, viewed)
			if out.drop {
				continue
			}
			if out.retime != nil {
				t := *out.retime
				item.StartTime = &t
			}
			if out.completed {
				item.Completed = true
			}
		}

		items = append(items, item)
	}

	return items
}

// ResolveRoutines produces the timeline items for routines that naturally
// recur on the viewed day, plus routines deferred into it from another
// day even when their pattern does not fire today. A routine whose
// instance skips or defers it away from today is hidden; it reappears in
// full on the deferral target's resolution.
func ResolveRoutines(routines []model.RoutineDefinition, viewed model.Date, ov, defIn *OverrideIndex, loc *time.Location) []model.TimelineItem {
	items := make([]model.TimelineItem, 0, len(routines))

	for _, r := range routines {
		if !r.ShowOnTimeline {
			continue
		}
		if err := recur.Validate(r.Pattern); err != nil {
			// One corrupt routine must not break the day. Exclude and warn.
			appLog.Warn("routine excluded from schedule: bad recurrence pattern",
				"routine_id", r.ID, "name", r.Name, "reason", err.Error())
			continue
		}

		var start *time.Time

		if in, ok := defIn.Get(model.EntityRoutine, r.ID); ok {
			t := *in.DeferredTo
			start = &t
		} else if recur.Applies(r.Pattern, viewed) {
			start = timeOfDayOn(r.TimeOfDay, viewed, loc)
		} else {
			continue
		}

		item := model.TimelineItem{
			ID:        r.ID,
			Title:     r.Name,
			Type:      model.EntityRoutine,
			StartTime: start,
		}

		if in, ok := ov.Get(model.EntityRoutine, r.ID); ok {
			out := interpretOverride(in, viewed)
			if out.drop {
				continue
			}
			if out.retime != nil {
				t := *out.retime
				item.StartTime = &t
			}
			item.Completed = out.completed
		}

		items = append(items, item)
	}

	return items
}

// ResolveEvents produces the timeline items for external calendar events
// starting on the viewed day. Deferring an event away from its day hides
// it but does not re-inject it anywhere: the external calendar, not this
// engine, owns event timing, so only same-day retimes are honored.
func ResolveEvents(events []model.CalendarEvent, viewed model.Date, ov *OverrideIndex) []model.TimelineItem {
	items := make([]model.TimelineItem, 0, len(events))

	for _, ev := range events {
		if model.DateOf(ev.Start) != viewed {
			continue
		}

		start := ev.Start
		item := model.TimelineItem{
			ID:        ev.ID,
			Title:     ev.Title,
			Type:      model.EntityCalendarEvent,
			StartTime: &start,
			EndTime:   ev.End,
			AllDay:    ev.AllDay,
		}

		if in, ok := ov.Get(model.EntityCalendarEvent, ev.ID); ok {
			out := interpretOverride(in, viewed)
			if out.drop {
				continue
			}
			if out.retime != nil {
				t := *out.retime
				item.StartTime = &t
			}
			item.Completed = out.completed
		}

		items = append(items, item)
	}

	return items
}

// timeOfDayOn turns an "HH:MM" routine time into an instant on the viewed
// day. Empty or malformed times yield nil, which lands the routine in the
// unscheduled section.
func timeOfDayOn(hhmm string, d model.Date, loc *time.Location) *time.Time {
	if hhmm == "" {
		return nil
	}
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) != 2 {
		return nil
	}
	hour, err1 := strconv.Atoi(parts[0])
	min, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || hour < 0 || hour > 23 || min < 0 || min > 59 {
		return nil
	}
	t := d.At(hour, min, loc)
	return &t
}
