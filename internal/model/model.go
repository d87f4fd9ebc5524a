package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// EntityType identifies which kind of entity an occurrence or override
// record refers to.
type EntityType string

const (
	EntityTask          EntityType = "task"
	EntityRoutine       EntityType = "routine"
	EntityCalendarEvent EntityType = "calendar_event"
)

// InstanceStatus is the per-occurrence user action recorded in an
// ActionableInstance. A missing instance record always means Pending.
type InstanceStatus string

const (
	StatusPending   InstanceStatus = "pending"
	StatusCompleted InstanceStatus = "completed"
	StatusSkipped   InstanceStatus = "skipped"
	StatusDeferred  InstanceStatus = "deferred"
)

// Date is a local calendar day. Recurrence and agenda resolution operate
// on calendar days, never on instants, so we keep a civil date type and
// convert to time.Time only at the edges.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf truncates t to its local calendar day.
func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// String renders the date as YYYY-MM-DD, the form used in instance keys
// and over the wire.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// IsZero reports whether d is the zero date.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Weekday returns the day of week for d.
func (d Date) Weekday() time.Weekday {
	return d.midnight(time.UTC).Weekday()
}

// At returns the instant at hour:min on this day in loc.
func (d Date) At(hour, min int, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, hour, min, 0, 0, loc)
}

func (d Date) midnight(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// DayCode is a lowercase three-letter weekday code as stored in weekly
// recurrence patterns ("sun" .. "sat").
type DayCode string

var dayCodes = map[DayCode]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// Weekday maps the code to a time.Weekday. ok is false for unknown codes.
func (c DayCode) Weekday() (time.Weekday, bool) {
	w, ok := dayCodes[DayCode(strings.ToLower(string(c)))]
	return w, ok
}

// RecurrenceType enumerates the supported routine recurrence kinds.
type RecurrenceType string

const (
	RecurDaily   RecurrenceType = "daily"
	RecurWeekly  RecurrenceType = "weekly"
	RecurMonthly RecurrenceType = "monthly"
)

// RecurrencePattern describes when a routine recurs.
//
//   - daily: every day; Days and DayOfMonth are ignored.
//   - weekly: on the weekdays listed in Days.
//   - monthly: on DayOfMonth. A DayOfMonth past the end of a short month
//     simply does not fire that month; there is no clamping.
type RecurrencePattern struct {
	Type       RecurrenceType `json:"type" yaml:"type"`
	Days       []DayCode      `json:"days,omitempty" yaml:"days,omitempty"`
	DayOfMonth int            `json:"day_of_month,omitempty" yaml:"day_of_month,omitempty"`
}

// Task is a one-off actionable item owned by the task store. Completion is
// a property of the task itself, not of an instance record, because a task
// has at most one occurrence.
type Task struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Completed    bool       `json:"completed"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
	IsAllDay     bool       `json:"is_all_day"`
	// DeferredUntil hides an unscheduled inbox task until this day. The
	// agenda resolver never looks at it; inbox views do.
	DeferredUntil *Date  `json:"deferred_until,omitempty"`
	Category      string `json:"category,omitempty"`
}

// RoutineDefinition is a recurring template. The agenda never mutates it;
// per-day state lives in ActionableInstance records.
type RoutineDefinition struct {
	ID      string            `json:"id"`
	Name    string            `json:"name"`
	Pattern RecurrencePattern `json:"pattern"`
	// TimeOfDay is "HH:MM" or empty for an untimed routine.
	TimeOfDay      string `json:"time_of_day,omitempty"`
	AssignedTo     string `json:"assigned_to,omitempty"`
	ShowOnTimeline bool   `json:"show_on_timeline"`
}

// CalendarEvent is a read-only projection of one occurrence from the
// external calendar. The engine never writes back to the calendar.
type CalendarEvent struct {
	ID     string     `json:"id"`
	Title  string     `json:"title"`
	Start  time.Time  `json:"start"`
	End    *time.Time `json:"end,omitempty"`
	AllDay bool       `json:"all_day"`
}

// ActionableInstance is the override record capturing a user action
// against one occurrence. At most one exists per (EntityType, EntityID,
// Date); upserts replace. Absence means StatusPending.
type ActionableInstance struct {
	EntityType EntityType     `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Date       Date           `json:"date"`
	Status     InstanceStatus `json:"status"`
	// DeferredTo is the deferral target when Status is StatusDeferred. It
	// may also be set alongside StatusPending for a same-day retime that
	// was recorded without a status change.
	DeferredTo *time.Time `json:"deferred_to,omitempty"`
}

// InstanceKey is the in-memory identity of an instance record. The
// stringly form ("entityId_YYYY-MM-DD") survives only at the persistence
// boundary.
type InstanceKey struct {
	EntityType EntityType
	EntityID   string
	Date       Date
}

// Key returns the in-memory key for this instance.
func (i ActionableInstance) Key() InstanceKey {
	return InstanceKey{EntityType: i.EntityType, EntityID: i.EntityID, Date: i.Date}
}

// EncodeInstanceKey renders the persisted key form "entityId_YYYY-MM-DD".
// The date component is always the override's own day, never the deferral
// target.
func EncodeInstanceKey(entityID string, d Date) string {
	return entityID + "_" + d.String()
}

// DecodeInstanceKey splits a persisted key back into entity id and date.
// Entity ids may themselves contain underscores, so the date is taken
// from the final separator.
func DecodeInstanceKey(key string) (string, Date, error) {
	i := strings.LastIndex(key, "_")
	if i <= 0 || i == len(key)-1 {
		return "", Date{}, fmt.Errorf("malformed instance key %q", key)
	}
	d, err := ParseDate(key[i+1:])
	if err != nil {
		return "", Date{}, fmt.Errorf("malformed instance key %q: %w", key, err)
	}
	return key[:i], d, nil
}

// Section names one of the fixed agenda buckets.
type Section string

const (
	SectionAllDay      Section = "allday"
	SectionMorning     Section = "morning"
	SectionAfternoon   Section = "afternoon"
	SectionEvening     Section = "evening"
	SectionUnscheduled Section = "unscheduled"
)

// TimelineItem is the common shape all three entity kinds resolve into
// before aggregation.
type TimelineItem struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Type      EntityType `json:"type"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	AllDay    bool       `json:"all_day"`
	Completed bool       `json:"completed"`
	Skipped   bool       `json:"skipped"`
}

// DaySections is one date's agenda, bucketed for display. Morning covers
// [00:00, 12:00), afternoon [12:00, 17:00), evening [17:00, 24:00).
type DaySections struct {
	Date        Date           `json:"date"`
	AllDay      []TimelineItem `json:"allday"`
	Morning     []TimelineItem `json:"morning"`
	Afternoon   []TimelineItem `json:"afternoon"`
	Evening     []TimelineItem `json:"evening"`
	Unscheduled []TimelineItem `json:"unscheduled"`
}

// ErrMissingPattern marks a routine definition with no usable recurrence
// pattern. Resolution excludes such routines instead of failing the day.
var ErrMissingPattern = errors.New("routine has no recurrence pattern")
