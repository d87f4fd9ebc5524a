package recur

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"famcal/internal/model"
)

func date(y, m, d int) model.Date {
	return model.Date{Year: y, Month: time.Month(m), Day: d}
}

func TestAppliesDaily(t *testing.T) {
	p := model.RecurrencePattern{Type: model.RecurDaily}
	assert.True(t, Applies(p, date(2024, 3, 1)))
	assert.True(t, Applies(p, date(2024, 2, 29)))
}

func TestAppliesWeekly(t *testing.T) {
	p := model.RecurrencePattern{Type: model.RecurWeekly, Days: []model.DayCode{"tue", "thu"}}

	// 2024-03-05 is a Tuesday, 2024-03-06 a Wednesday.
	assert.True(t, Applies(p, date(2024, 3, 5)))
	assert.False(t, Applies(p, date(2024, 3, 6)))
	assert.True(t, Applies(p, date(2024, 3, 7)))
}

func TestAppliesWeeklyEmptyDaysNeverFires(t *testing.T) {
	p := model.RecurrencePattern{Type: model.RecurWeekly, Days: []model.DayCode{}}
	for day := 1; day <= 14; day++ {
		assert.False(t, Applies(p, date(2024, 3, day)), "day %d", day)
	}
}

func TestAppliesWeeklyIgnoresUnknownCodes(t *testing.T) {
	p := model.RecurrencePattern{Type: model.RecurWeekly, Days: []model.DayCode{"xyz", "fri"}}
	// 2024-03-08 is a Friday.
	assert.True(t, Applies(p, date(2024, 3, 8)))
	assert.False(t, Applies(p, date(2024, 3, 9)))
}

func TestAppliesMonthly(t *testing.T) {
	p := model.RecurrencePattern{Type: model.RecurMonthly, DayOfMonth: 15}
	assert.True(t, Applies(p, date(2024, 3, 15)))
	assert.False(t, Applies(p, date(2024, 3, 14)))
}

func TestAppliesMonthlyNoClamping(t *testing.T) {
	p := model.RecurrencePattern{Type: model.RecurMonthly, DayOfMonth: 31}

	// February has no 31st; the pattern simply never fires that month.
	for day := 1; day <= 29; day++ {
		assert.False(t, Applies(p, date(2024, 2, day)))
	}
	assert.True(t, Applies(p, date(2024, 3, 31)))
	assert.False(t, Applies(p, date(2024, 4, 30)))
}

func TestAppliesFailsClosedOnUnknownType(t *testing.T) {
	p := model.RecurrencePattern{Type: "fortnightly"}
	assert.False(t, Applies(p, date(2024, 3, 1)))

	assert.False(t, Applies(model.RecurrencePattern{}, date(2024, 3, 1)))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(model.RecurrencePattern{Type: model.RecurDaily}))
	assert.NoError(t, Validate(model.RecurrencePattern{Type: model.RecurWeekly, Days: []model.DayCode{"mon"}}))
	assert.NoError(t, Validate(model.RecurrencePattern{Type: model.RecurMonthly, DayOfMonth: 31}))

	assert.Error(t, Validate(model.RecurrencePattern{Type: model.RecurWeekly, Days: []model.DayCode{"noday"}}))
	assert.Error(t, Validate(model.RecurrencePattern{Type: model.RecurMonthly, DayOfMonth: 0}))
	assert.Error(t, Validate(model.RecurrencePattern{Type: "fortnightly"}))
	assert.ErrorIs(t, Validate(model.RecurrencePattern{}), model.ErrMissingPattern)
}
