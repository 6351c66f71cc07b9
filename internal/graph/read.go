package graph

import (
	"errors"
	"fmt"
	"strings"

	language "github.com/hanpama/cachegraph/internal/language"
	"github.com/hanpama/cachegraph/internal/selection"
)

// ReadInput describes one read: a selection set evaluated against the
// current snapshot starting at RootID, optionally compared against
// PreviousData for stale-detection (spec §4.B "Read", scenario S4).
type ReadInput struct {
	Selections   language.SelectionSet
	Fragments    language.FragmentDefinitionList
	Variables    map[string]any
	RootID       EntityID
	PreviousData map[string]any
}

// ReadResult carries the read projection plus whether any subtree of it
// fell back to PreviousData because the entity a reference pointed at had
// changed identity since PreviousData was captured.
type ReadResult struct {
	Data  map[string]any
	Stale bool
}

// PartialReadError is returned when the selection set demands a field (or
// an entity) the store doesn't currently hold, per spec §4.B "Partial
// reads".
type PartialReadError struct {
	Path []string
}

func (e *PartialReadError) Error() string {
	return fmt.Sprintf("partial read: missing data at %s", strings.Join(e.Path, "."))
}

// IsPartialRead reports whether err is (or wraps) a *PartialReadError.
func IsPartialRead(err error) bool {
	var target *PartialReadError
	return errors.As(err, &target)
}

// Read projects selections against the current snapshot.
//
// Stale detection: for every reference field, if PreviousData carries a
// sub-object previously read from a different entity than the one the
// reference currently names, that entire subtree is returned verbatim from
// PreviousData instead of being re-read — no partial refresh is attempted,
// and fields that subtree contains are never checked against the new
// entity's data, so a divergent reference can never itself trigger
// PartialReadError. Scalar siblings and non-diverged reference subtrees are
// always read fresh from the current snapshot. Stale is set if any subtree
// fell back this way.
func (s *Store) Read(input ReadInput) (ReadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rootID := input.RootID
	if rootID == "" {
		rootID = DefaultRootID
	}

	r := &reader{store: s, fragments: input.Fragments, variables: input.Variables}
	data, stale, err := r.readObject(rootID, input.Selections, input.PreviousData, []string{string(rootID)})
	if err != nil {
		return ReadResult{}, err
	}
	return ReadResult{Data: data, Stale: stale}, nil
}

type reader struct {
	store     *Store
	fragments language.FragmentDefinitionList
	variables map[string]any
	// visited, when non-nil, accumulates the (entity ID, storage key) pairs
	// this read names, whether or not they currently exist in the
	// snapshot — Watch's read-plan (spec §4.B). A missing entity marks the
	// sentinel empty storage key against its ID. Plain Read leaves it nil.
	visited map[EntityID]map[string]struct{}
}

func (r *reader) markVisited(id EntityID, storageKey string) {
	if r.visited == nil {
		return
	}
	keys, ok := r.visited[id]
	if !ok {
		keys = map[string]struct{}{}
		r.visited[id] = keys
	}
	keys[storageKey] = struct{}{}
}

// readObject reads every field of selections from the entity named id,
// comparing against prevObj (the same object from a previous read/write, or
// nil if none is available) for stale-detection on nested references.
func (r *reader) readObject(id EntityID, selections language.SelectionSet, prevObj map[string]any, path []string) (map[string]any, bool, error) {
	node, ok := r.store.snapshot[id]
	if !ok {
		r.markVisited(id, "")
		return nil, false, &PartialReadError{Path: path}
	}

	fields, err := selection.WalkSelections(selections, r.fragments)
	if err != nil {
		return nil, false, err
	}

	result := map[string]any{}
	stale := false

	for field := range fields {
		responseKey := selection.ResponseKey(field)
		storageKey := selection.FieldStorageKey(field, r.variables)
		fieldPath := append(append([]string{}, path...), responseKey)
		r.markVisited(id, storageKey)

		if field.SelectionSet == nil {
			v, ok := node.Scalars[storageKey]
			if !ok {
				return nil, false, &PartialReadError{Path: fieldPath}
			}
			result[responseKey] = v
			continue
		}

		refRaw, ok := node.References[storageKey]
		if !ok {
			return nil, false, &PartialReadError{Path: fieldPath}
		}

		var prevChild any
		if prevObj != nil {
			prevChild = prevObj[responseKey]
		}

		childVal, childStale, err := r.readReferenceValue(refRaw, field.SelectionSet, prevChild, fieldPath)
		if err != nil {
			return nil, false, err
		}
		result[responseKey] = childVal
		stale = stale || childStale
	}

	// Reference-equality short-circuit (spec §9): when this subtree is
	// fresh (not stale), prevObj is an object Read or Write itself built
	// from this same entity, and its content is unchanged, return prevObj
	// itself rather than the newly built map, so a watch fed this read's
	// output back in as previousData sees pointer-identical data and can
	// suppress a redundant emission. A caller-built map is never reused.
	if prevID, built := r.store.identity.identityOf(prevObj); built && prevID == id && !stale && deepEqualValue(result, prevObj) {
		return prevObj, false, nil
	}

	r.store.identity.register(result, id)
	return result, stale, nil
}

// readReferenceValue reads a single reference slot (an EntityID, a nested
// []any of the same, or nil), applying stale-detection at every EntityID
// encountered.
func (r *reader) readReferenceValue(ref any, sub language.SelectionSet, prevValue any, path []string) (any, bool, error) {
	switch v := ref.(type) {
	case nil:
		return nil, false, nil
	case EntityID:
		if prevObj, ok := prevValue.(map[string]any); ok {
			if prevID, found := r.store.identity.identityOf(prevObj); found && prevID != v {
				return prevObj, true, nil
			}
		}
		var prevChildObj map[string]any
		if pm, ok := prevValue.(map[string]any); ok {
			prevChildObj = pm
		}
		return r.readObject(v, sub, prevChildObj, path)
	case []any:
		var prevList []any
		if pl, ok := prevValue.([]any); ok {
			prevList = pl
		}
		out := make([]any, len(v))
		stale := false
		for i, item := range v {
			var prevItem any
			if i < len(prevList) {
				prevItem = prevList[i]
			}
			itemPath := append(append([]string{}, path...), fmt.Sprintf("[%d]", i))
			val, itemStale, err := r.readReferenceValue(item, sub, prevItem, itemPath)
			if err != nil {
				return nil, false, err
			}
			out[i] = val
			stale = stale || itemStale
		}
		return out, stale, nil
	default:
		return nil, false, &PartialReadError{Path: path}
	}
}
