package schedule

import (
	"context"
	"errors"
	"time"

	"famcal/internal/model"
)

// InstanceWriter is the slice of the persistence collaborator the
// transition surface needs. Upserts replace any existing record for the
// same (entity type, entity id, date) key.
type InstanceWriter interface {
	UpsertInstance(ctx context.Context, in model.ActionableInstance) error
}

// TaskCompleter flips a task's own completed flag. Tasks are the one
// entity kind where "done" is both an instance fact for the day's agenda
// and a property of the entity itself.
type TaskCompleter interface {
	SetTaskCompleted(ctx context.Context, taskID string, completed bool) error
}

// Transitioner applies user actions to occurrences by writing override
// records. All transitions are last-write-wins; the system has a single
// writer per account, so concurrent edits to one key are not merged.
//
// After any transition resolves, the caller must re-fetch instances for
// the affected day(s) before the next BuildDaySections call or the
// displayed agenda will be stale; nothing is cached here.
type Transitioner struct {
	instances InstanceWriter
	tasks     TaskCompleter
}

func NewTransitioner(instances InstanceWriter, tasks TaskCompleter) *Transitioner {
	return &Transitioner{instances: instances, tasks: tasks}
}

// Complete marks the occurrence of the entity on day d as done.
func (t *Transitioner) Complete(ctx context.Context, et model.EntityType, entityID string, d model.Date) error {
	err := t.instances.UpsertInstance(ctx, model.ActionableInstance{
		EntityType: et,
		EntityID:   entityID,
		Date:       d,
		Status:     model.StatusCompleted,
	})
	if err != nil {
		return err
	}
	if et == model.EntityTask {
		return t.tasks.SetTaskCompleted(ctx, entityID, true)
	}
	return nil
}

// UndoComplete reverts a completed occurrence to pending. The record is
// upserted rather than deleted so the write path is uniform; a pending
// record and no record resolve identically.
func (t *Transitioner) UndoComplete(ctx context.Context, et model.EntityType, entityID string, d model.Date) error {
	err := t.instances.UpsertInstance(ctx, model.ActionableInstance{
		EntityType: et,
		EntityID:   entityID,
		Date:       d,
		Status:     model.StatusPending,
	})
	if err != nil {
		return err
	}
	if et == model.EntityTask {
		return t.tasks.SetTaskCompleted(ctx, entityID, false)
	}
	return nil
}

// Skip hides the occurrence from its day. Skipping an already-skipped
// occurrence rewrites the identical record, which is a no-op.
func (t *Transitioner) Skip(ctx context.Context, et model.EntityType, entityID string, d model.Date) error {
	return t.instances.UpsertInstance(ctx, model.ActionableInstance{
		EntityType: et,
		EntityID:   entityID,
		Date:       d,
		Status:     model.StatusSkipped,
	})
}

// Defer moves the occurrence belonging to day `from` to the target
// instant. Whether the target lands on the same day (retime) or a
// different day (move) is not distinguished at write time; resolution
// interprets the target relative to the day being viewed. Re-deferring
// replaces the target rather than stacking.
func (t *Transitioner) Defer(ctx context.Context, et model.EntityType, entityID string, from model.Date, to time.Time) error {
	if to.IsZero() {
		return errors.New("defer: target time is zero")
	}
	return t.instances.UpsertInstance(ctx, model.ActionableInstance{
		EntityType: et,
		EntityID:   entityID,
		Date:       from,
		Status:     model.StatusDeferred,
		DeferredTo: &to,
	})
}
