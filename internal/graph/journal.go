package graph

import "reflect"

// journal accumulates the (entity ID, storage key) pairs whose stored
// value actually changed during one Write: scalars compared by deep
// equality, references compared by identity (and list length/shape for
// list-valued references), per spec §4.B "Change journal". Fields written
// with the exact value they already held are NOT journaled, so an
// unrelated write re-asserting unchanged data triggers no watch emission.
type journal struct {
	dirty map[EntityID]map[string]struct{}
}

func newJournal() *journal {
	return &journal{dirty: map[EntityID]map[string]struct{}{}}
}

func (j *journal) mark(id EntityID, storageKey string) {
	keys, ok := j.dirty[id]
	if !ok {
		keys = map[string]struct{}{}
		j.dirty[id] = keys
	}
	keys[storageKey] = struct{}{}
}

func (j *journal) touchedEntities() []EntityID {
	out := make([]EntityID, 0, len(j.dirty))
	for id := range j.dirty {
		out = append(out, id)
	}
	return out
}

// scalarChanged reports whether setting a scalar field to value actually
// changes the node, given its previous value (if any).
func scalarChanged(old, value any, existed bool) bool {
	if !existed {
		return true
	}
	return !deepEqualValue(old, value)
}

// referenceChanged reports whether setting a reference field to value
// actually changes the node, comparing by entity identity and, for lists,
// length and per-element identity — not by resolving and comparing the
// referenced entities' contents.
func referenceChanged(old, value any, existed bool) bool {
	if !existed {
		return true
	}
	return !referenceEqual(old, value)
}

func referenceEqual(a, b any) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case EntityID:
		bv, ok := b.(EntityID)
		return ok && av == bv
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !referenceEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// deepEqualValue compares two scalar values (JSON-shaped: nil, bool,
// number, string, []any, map[string]any) for the change journal. A small
// hand-rolled comparison rather than reflect.DeepEqual so that equivalent
// numeric representations (int vs float64) still compare equal.
func deepEqualValue(a, b any) bool {
	switch av := a.(type) {
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !deepEqualValue(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			bvv, ok := bv[k]
			if !ok || !deepEqualValue(v, bvv) {
				return false
			}
		}
		return true
	default:
		ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
		f64 := reflect.TypeOf(float64(0))
		if ra.IsValid() && rb.IsValid() && ra.CanConvert(f64) && rb.CanConvert(f64) {
			return ra.Convert(f64).Float() == rb.Convert(f64).Float()
		}
		return a == b
	}
}

// planIntersectsJournal reports whether any (entity, storage key) pair in
// plan was dirtied in j. A plan entry under the sentinel empty storage key
// means "this entity's existence is of interest" (spec §4.B conservatism:
// the plan still covers every key visited up to a PartialReadError) and is
// satisfied by any change at all to that entity.
func planIntersectsJournal(plan map[EntityID]map[string]struct{}, j *journal) bool {
	for id, keys := range plan {
		dirtyKeys, ok := j.dirty[id]
		if !ok {
			continue
		}
		if _, watchingExistence := keys[""]; watchingExistence {
			return true
		}
		for k := range keys {
			if _, ok := dirtyKeys[k]; ok {
				return true
			}
		}
	}
	return false
}
