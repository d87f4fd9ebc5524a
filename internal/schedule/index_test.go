package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"famcal/internal/model"
)

func TestOverrideIndexOnlyKeepsViewedDate(t *testing.T) {
	viewed := d(2024, 3, 5)
	raw := []model.ActionableInstance{
		instance(model.EntityRoutine, "r1", viewed, model.StatusCompleted, nil),
		instance(model.EntityRoutine, "r2", d(2024, 3, 4), model.StatusSkipped, nil),
		instance(model.EntityTask, "t1", viewed, model.StatusSkipped, nil),
	}

	ix := NewOverrideIndex(raw, viewed)
	assert.Equal(t, 2, ix.Len())

	in, ok := ix.Get(model.EntityRoutine, "r1")
	require.True(t, ok)
	assert.Equal(t, model.StatusCompleted, in.Status)

	_, ok = ix.Get(model.EntityRoutine, "r2")
	assert.False(t, ok)

	// Entity type is part of the key.
	_, ok = ix.Get(model.EntityRoutine, "t1")
	assert.False(t, ok)
}

func TestDeferredInIndexPredicate(t *testing.T) {
	viewed := d(2024, 3, 6)
	target := at(viewed, 8, 0)
	sameDay := at(d(2024, 3, 5), 15, 0)

	raw := []model.ActionableInstance{
		// Deferred into the viewed day from the day before: indexed.
		instance(model.EntityRoutine, "moved", d(2024, 3, 5), model.StatusDeferred, tp(target)),
		// Same-day retime on another day: not a move into the viewed day.
		instance(model.EntityRoutine, "retimed", d(2024, 3, 5), model.StatusDeferred, tp(sameDay)),
		// Deferred record with no target is malformed; treated as absent.
		instance(model.EntityRoutine, "broken", d(2024, 3, 5), model.StatusDeferred, nil),
		// Non-deferred statuses never land here.
		instance(model.EntityRoutine, "done", d(2024, 3, 5), model.StatusCompleted, nil),
	}

	ix := NewDeferredInIndex(raw, viewed)
	assert.Equal(t, 1, ix.Len())

	in, ok := ix.Get(model.EntityRoutine, "moved")
	require.True(t, ok)
	assert.Equal(t, target, *in.DeferredTo)
}

func TestIndexBuildIsIdempotent(t *testing.T) {
	viewed := d(2024, 3, 5)
	raw := []model.ActionableInstance{
		instance(model.EntityRoutine, "r1", viewed, model.StatusCompleted, nil),
		instance(model.EntityCalendarEvent, "e1", viewed, model.StatusSkipped, nil),
	}

	a := NewOverrideIndex(raw, viewed)
	b := NewOverrideIndex(raw, viewed)
	assert.Equal(t, a.byEntity, b.byEntity)
}
