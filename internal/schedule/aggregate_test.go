package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"famcal/internal/model"
)

func TestBuildDaySectionsBucketsAndSorts(t *testing.T) {
	tue := d(2024, 3, 5)

	in := DayInput{
		Date:     tue,
		Location: time.UTC,
		Tasks: []model.Task{
			task("t-noon", "Lunch prep", tp(at(tue, 12, 0))),
			task("t-untimed-allday", "House day", tp(at(tue, 0, 0))),
		},
		Routines: []model.RoutineDefinition{
			routine("r-early", "Feed cat", "06:30", daily()),
			routine("r-untimed", "Tidy up", "", daily()),
		},
		Events: []model.CalendarEvent{
			event("e-late-morning", "Standup", at(tue, 11, 59)),
			event("e-late-afternoon", "Pickup", at(tue, 16, 59)),
			event("e-evening", "Dinner", at(tue, 17, 0)),
		},
	}
	in.Tasks[1].IsAllDay = true

	out := BuildDaySections(in)

	require.Len(t, out.AllDay, 1)
	assert.Equal(t, "t-untimed-allday", out.AllDay[0].ID)

	// Morning is [00:00, 12:00): 06:30 routine then 11:59 event.
	require.Len(t, out.Morning, 2)
	assert.Equal(t, "r-early", out.Morning[0].ID)
	assert.Equal(t, "e-late-morning", out.Morning[1].ID)

	// Afternoon is [12:00, 17:00): the noon task and the 16:59 event.
	require.Len(t, out.Afternoon, 2)
	assert.Equal(t, "t-noon", out.Afternoon[0].ID)
	assert.Equal(t, "e-late-afternoon", out.Afternoon[1].ID)

	// Evening starts at 17:00 sharp.
	require.Len(t, out.Evening, 1)
	assert.Equal(t, "e-evening", out.Evening[0].ID)

	require.Len(t, out.Unscheduled, 1)
	assert.Equal(t, "r-untimed", out.Unscheduled[0].ID)
}

func TestBuildDaySectionsIsDeterministic(t *testing.T) {
	tue := d(2024, 3, 5)
	in := DayInput{
		Date:     tue,
		Location: time.UTC,
		Tasks: []model.Task{
			task("t1", "Errand", tp(at(tue, 14, 0))),
		},
		Routines: []model.RoutineDefinition{
			routine("r1", "Trash day", "08:00", weeklyOn("tue")),
			routine("r2", "Tidy up", "", daily()),
		},
		Events: []model.CalendarEvent{
			event("e1", "Dentist", at(tue, 9, 0)),
			event("e2", "Dinner", at(tue, 19, 0)),
		},
		Instances: []model.ActionableInstance{
			instance(model.EntityRoutine, "r1", tue, model.StatusCompleted, nil),
		},
	}

	first := BuildDaySections(in)
	second := BuildDaySections(in)
	assert.Equal(t, first, second)
}

func TestBuildDaySectionsDedupsEventsByTitleAndStart(t *testing.T) {
	tue := d(2024, 3, 5)
	nine := at(tue, 9, 0)

	in := DayInput{
		Date:     tue,
		Location: time.UTC,
		Events: []model.CalendarEvent{
			// The same event arriving under two feed ids.
			event("feed-a:e1", "Dentist", nine),
			event("feed-b:e1", "Dentist", nine),
			// Same title at a different time is a distinct occurrence.
			event("feed-a:e2", "Dentist", at(tue, 15, 0)),
		},
	}

	out := BuildDaySections(in)
	require.Len(t, out.Morning, 1)
	// First occurrence wins; input order is authoritative.
	assert.Equal(t, "feed-a:e1", out.Morning[0].ID)
	require.Len(t, out.Afternoon, 1)
	assert.Equal(t, "feed-a:e2", out.Afternoon[0].ID)
}

func TestBuildDaySectionsStableOrderForEqualTimes(t *testing.T) {
	tue := d(2024, 3, 5)
	two := at(tue, 14, 0)

	in := DayInput{
		Date:     tue,
		Location: time.UTC,
		Tasks: []model.Task{
			task("t1", "First at two", tp(two)),
			task("t2", "Second at two", tp(two)),
		},
		Events: []model.CalendarEvent{
			event("e1", "Also at two", two),
		},
	}

	out := BuildDaySections(in)
	require.Len(t, out.Afternoon, 3)
	// Ties keep concatenation order: tasks before events, input order within.
	assert.Equal(t, []string{"t1", "t2", "e1"},
		[]string{out.Afternoon[0].ID, out.Afternoon[1].ID, out.Afternoon[2].ID})
}

// The trash-day walkthrough: a weekly Tuesday routine viewed on Tuesday,
// then deferred to Wednesday 08:00 and viewed on both days.
func TestTrashDayDeferralScenario(t *testing.T) {
	tue := d(2024, 3, 5)
	wed := d(2024, 3, 6)
	trash := routine("trash", "Trash day", "07:00", weeklyOn("tue"))

	// Tuesday with no instance: one morning item.
	out := BuildDaySections(DayInput{
		Date: tue, Location: time.UTC,
		Routines: []model.RoutineDefinition{trash},
	})
	require.Len(t, out.Morning, 1)
	assert.Equal(t, "trash", out.Morning[0].ID)

	// Wednesday with no instance: absent.
	out = BuildDaySections(DayInput{
		Date: wed, Location: time.UTC,
		Routines: []model.RoutineDefinition{trash},
	})
	assert.Empty(t, out.Morning)
	assert.Empty(t, out.Unscheduled)

	// Deferred from Tuesday to Wednesday 08:00.
	moved := []model.ActionableInstance{
		instance(model.EntityRoutine, "trash", tue, model.StatusDeferred, tp(at(wed, 8, 0))),
	}

	out = BuildDaySections(DayInput{
		Date: tue, Location: time.UTC,
		Routines:  []model.RoutineDefinition{trash},
		Instances: moved,
	})
	assert.Empty(t, out.Morning)

	out = BuildDaySections(DayInput{
		Date: wed, Location: time.UTC,
		Routines:  []model.RoutineDefinition{trash},
		Instances: moved,
	})
	require.Len(t, out.Morning, 1)
	assert.Equal(t, at(wed, 8, 0), *out.Morning[0].StartTime)
}

func TestSameDayEventRetimeOnlyMovesSortPosition(t *testing.T) {
	fri := d(2024, 3, 1)
	ev := event("e1", "Call plumber", at(fri, 9, 0))
	other := event("e2", "Groceries", at(fri, 13, 0))

	base := BuildDaySections(DayInput{
		Date: fri, Location: time.UTC,
		Events: []model.CalendarEvent{ev, other},
	})
	require.Len(t, base.Morning, 1)
	require.Len(t, base.Afternoon, 1)

	retimed := BuildDaySections(DayInput{
		Date: fri, Location: time.UTC,
		Events: []model.CalendarEvent{ev, other},
		Instances: []model.ActionableInstance{
			instance(model.EntityCalendarEvent, "e1", fri, model.StatusDeferred, tp(at(fri, 14, 0))),
		},
	})

	// Membership unchanged, position changed: e1 now sorts after e2 in
	// the afternoon.
	assert.Empty(t, retimed.Morning)
	require.Len(t, retimed.Afternoon, 2)
	assert.Equal(t, "e2", retimed.Afternoon[0].ID)
	assert.Equal(t, "e1", retimed.Afternoon[1].ID)
}

func TestScheduledTaskAppearsOnceInAfternoon(t *testing.T) {
	fri := d(2024, 3, 1)
	out := BuildDaySections(DayInput{
		Date: fri, Location: time.UTC,
		Tasks: []model.Task{task("t1", "Renew passport", tp(at(fri, 14, 0)))},
	})

	require.Len(t, out.Afternoon, 1)
	assert.Equal(t, "t1", out.Afternoon[0].ID)
	assert.Empty(t, out.Morning)
	assert.Empty(t, out.Evening)
	assert.Empty(t, out.AllDay)
	assert.Empty(t, out.Unscheduled)
}
