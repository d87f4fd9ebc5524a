package schedule

import (
	"famcal/internal/model"
)

type overrideKey struct {
	entityType model.EntityType
	entityID   string
}

// OverrideIndex answers "what is the recorded status of entity X for the
// indexed day" in O(1). It is built in a single pass over the raw
// instance list and is a pure projection: building it twice from the same
// list yields the same index.
type OverrideIndex struct {
	byEntity map[overrideKey]model.ActionableInstance
}

// NewOverrideIndex indexes the instances whose own date is the viewed
// day. These are the direct overrides for the day being resolved.
func NewOverrideIndex(raw []model.ActionableInstance, viewed model.Date) *OverrideIndex {
	return newIndex(raw, func(in model.ActionableInstance) bool {
		return in.Date == viewed
	})
}

// NewDeferredInIndex indexes the instances deferred *into* the viewed day
// from some other day. Built from the same raw list as NewOverrideIndex,
// just with a different predicate; it never requires a second fetch.
func NewDeferredInIndex(raw []model.ActionableInstance, viewed model.Date) *OverrideIndex {
	return newIndex(raw, func(in model.ActionableInstance) bool {
		if in.Status != model.StatusDeferred || in.DeferredTo == nil {
			return false
		}
		return in.Date != viewed && model.DateOf(*in.DeferredTo) == viewed
	})
}

func newIndex(raw []model.ActionableInstance, keep func(model.ActionableInstance) bool) *OverrideIndex {
	ix := &OverrideIndex{byEntity: make(map[overrideKey]model.ActionableInstance, len(raw))}
	for _, in := range raw {
		if !keep(in) {
			continue
		}
		// Later records replace earlier ones; the store enforces at most
		// one per key, so this only matters for malformed input.
		ix.byEntity[overrideKey{in.EntityType, in.EntityID}] = in
	}
	return ix
}

// Get returns the indexed instance for the entity, if any.
func (ix *OverrideIndex) Get(t model.EntityType, id string) (model.ActionableInstance, bool) {
	in, ok := ix.byEntity[overrideKey{t, id}]
	return in, ok
}

// Len reports how many entities have an override in this index.
func (ix *OverrideIndex) Len() int {
	return len(ix.byEntity)
}
