package schedule

import (
	"time"

	"famcal/internal/model"
)

// 2024-03-05 is a Tuesday; most fixtures hang off that week.
func d(y, m, day int) model.Date {
	return model.Date{Year: y, Month: time.Month(m), Day: day}
}

func at(day model.Date, hour, min int) time.Time {
	return day.At(hour, min, time.UTC)
}

func tp(t time.Time) *time.Time {
	return &t
}

func routine(id, name, hhmm string, pattern model.RecurrencePattern) model.RoutineDefinition {
	return model.RoutineDefinition{
		ID:             id,
		Name:           name,
		Pattern:        pattern,
		TimeOfDay:      hhmm,
		ShowOnTimeline: true,
	}
}

func weeklyOn(days ...model.DayCode) model.RecurrencePattern {
	return model.RecurrencePattern{Type: model.RecurWeekly, Days: days}
}

func daily() model.RecurrencePattern {
	return model.RecurrencePattern{Type: model.RecurDaily}
}

func event(id, title string, start time.Time) model.CalendarEvent {
	return model.CalendarEvent{ID: id, Title: title, Start: start}
}

func task(id, title string, scheduled *time.Time) model.Task {
	return model.Task{ID: id, Title: title, ScheduledFor: scheduled}
}

func instance(et model.EntityType, id string, day model.Date, status model.InstanceStatus, deferredTo *time.Time) model.ActionableInstance {
	return model.ActionableInstance{
		EntityType: et,
		EntityID:   id,
		Date:       day,
		Status:     status,
		DeferredTo: deferredTo,
	}
}
