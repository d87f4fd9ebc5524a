package schedule

import (
	"sort"
	"time"

	"famcal/internal/model"
)

// DayInput is everything one day's resolution needs, fetched up front.
// BuildDaySections does no I/O and consults no clock: identical inputs
// always produce identical output.
type DayInput struct {
	Date model.Date

	// Location resolves routine times of day ("HH:MM") into instants.
	// Nil means time.Local.
	Location *time.Location

	Tasks    []model.Task
	Routines []model.RoutineDefinition
	Events   []model.CalendarEvent

	// Instances is the raw override list for the day: records whose own
	// date is Date plus records deferring into Date. Both indexes are
	// projected from this one list.
	Instances []model.ActionableInstance
}

// BuildDaySections resolves the three entity kinds against their override
// records and merges them into one bucketed agenda for the day.
func BuildDaySections(in DayInput) model.DaySections {
	loc := in.Location
	if loc == nil {
		loc = time.Local
	}

	ov := NewOverrideIndex(in.Instances, in.Date)
	defIn := NewDeferredInIndex(in.Instances, in.Date)

	items := make([]model.TimelineItem, 0, len(in.Tasks)+len(in.Routines)+len(in.Events))
	items = append(items, ResolveTasks(in.Tasks, in.Date, ov, defIn)...)
	items = append(items, ResolveRoutines(in.Routines, in.Date, ov, defIn, loc)...)
	items = append(items, dedupEvents(ResolveEvents(in.Events, in.Date, ov))...)

	sections := model.DaySections{
		Date:        in.Date,
		AllDay:      []model.TimelineItem{},
		Morning:     []model.TimelineItem{},
		Afternoon:   []model.TimelineItem{},
		Evening:     []model.TimelineItem{},
		Unscheduled: []model.TimelineItem{},
	}

	for _, item := range items {
		switch sectionFor(item) {
		case model.SectionAllDay:
			sections.AllDay = append(sections.AllDay, item)
		case model.SectionMorning:
			sections.Morning = append(sections.Morning, item)
		case model.SectionAfternoon:
			sections.Afternoon = append(sections.Afternoon, item)
		case model.SectionEvening:
			sections.Evening = append(sections.Evening, item)
		default:
			sections.Unscheduled = append(sections.Unscheduled, item)
		}
	}

	sortSection(sections.AllDay)
	sortSection(sections.Morning)
	sortSection(sections.Afternoon)
	sortSection(sections.Evening)
	// Unscheduled keeps stable input order; there is nothing to sort by.

	return sections
}

// sectionFor buckets one item. Boundaries are inclusive on the lower
// bound, exclusive on the upper: morning [00:00, 12:00), afternoon
// [12:00, 17:00), evening [17:00, 24:00).
func sectionFor(item model.TimelineItem) model.Section {
	if item.AllDay {
		return model.SectionAllDay
	}
	if item.StartTime == nil {
		return model.SectionUnscheduled
	}
	switch hour := item.StartTime.Hour(); {
	case hour < 12:
		return model.SectionMorning
	case hour < 17:
		return model.SectionAfternoon
	default:
		return model.SectionEvening
	}
}

// sortSection orders items ascending by start time, keeping input order
// for ties. Untimed items sort after timed ones.
func sortSection(items []model.TimelineItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].StartTime, items[j].StartTime
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
}

// dedupEvents collapses events the external calendar returned more than
// once (the same event can arrive via two feeds). Identity is the
// (title, start time) pair; the first occurrence wins and input order is
// authoritative.
func dedupEvents(items []model.TimelineItem) []model.TimelineItem {
	type eventIdentity struct {
		title string
		start int64
		timed bool
	}

	seen := make(map[eventIdentity]bool, len(items))
	out := items[:0]
	for _, item := range items {
		id := eventIdentity{title: item.Title}
		if item.StartTime != nil {
			id.start = item.StartTime.UnixNano()
			id.timed = true
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, item)
	}
	return out
}
