package graph

import (
	"errors"
	"fmt"
	"strings"

	language "github.com/hanpama/cachegraph/internal/language"
	"github.com/hanpama/cachegraph/internal/selection"
)

// WriteInput describes one write: a selection set walked in lockstep with
// an already-resolved data tree, normalized into the store starting at
// RootID (defaulting to DefaultRootID for query operations).
type WriteInput struct {
	Selections language.SelectionSet
	Fragments  language.FragmentDefinitionList
	Variables  map[string]any
	Data       map[string]any
	RootID     EntityID
}

// WriteResult carries the write-back projection — a read of exactly what
// was written, against the post-write snapshot — plus which entities
// carried at least one dirtied field (spec §4.B "Change journal").
type WriteResult struct {
	Data            map[string]any
	ChangedEntities []EntityID
}

// WriteShapeError is returned when Data doesn't match the shape the
// selection set demands: a field the selection set names is absent from
// Data, or a value's Go type doesn't match what the selection (scalar vs.
// nested object vs. list) expects.
type WriteShapeError struct {
	Path    []string
	Message string
}

func (e *WriteShapeError) Error() string {
	return fmt.Sprintf("write shape error at %s: %s", strings.Join(e.Path, "."), e.Message)
}

// IsWriteShapeError reports whether err is (or wraps) a *WriteShapeError.
func IsWriteShapeError(err error) bool {
	var target *WriteShapeError
	return errors.As(err, &target)
}

// Write normalizes input.Data into the store, producing a new snapshot that
// structurally shares every entity node untouched by this write (spec §5
// "Structural sharing").
func (s *Store) Write(input WriteInput) (WriteResult, error) {
	rootID := input.RootID
	if rootID == "" {
		rootID = DefaultRootID
	}

	s.mu.Lock()
	w := &writer{
		store:     s,
		fragments: input.Fragments,
		variables: input.Variables,
		dirty:     map[EntityID]*Node{},
		journal:   newJournal(),
	}
	err := w.writeObject(rootID, input.Selections, input.Data, []string{string(rootID)})
	if err != nil {
		s.mu.Unlock()
		return WriteResult{}, err
	}

	for id, node := range w.dirty {
		s.snapshot[id] = node
	}
	j := w.journal

	// Build the write-back projection: a fresh read of exactly what was
	// just written, against the post-write snapshot, while still holding
	// the lock. Per spec §4.B this is what a subsequent read of the same
	// selection against the same snapshot would yield — passing it as a
	// watch's initialData lets the watch's first emission collapse to this
	// same object by reference (§9 "Reference-equality short-circuit").
	r := &reader{store: s, fragments: input.Fragments, variables: input.Variables}
	data, _, readErr := r.readObject(rootID, input.Selections, nil, []string{string(rootID)})
	s.mu.Unlock()
	if readErr != nil {
		return WriteResult{}, readErr
	}

	// Notify watchers after releasing the lock: a subscriber's Next
	// callback is allowed to call back into the store (spec §5), which
	// would deadlock against a held lock.
	s.notifyWatchers(j)

	return WriteResult{Data: data, ChangedEntities: j.touchedEntities()}, nil
}

// writer accumulates the copy-on-write node clones touched by a single
// Write call, applying them to the store's snapshot only once the whole
// walk has succeeded, and the change journal of fields whose value
// actually changed.
type writer struct {
	store     *Store
	fragments language.FragmentDefinitionList
	variables map[string]any
	dirty     map[EntityID]*Node
	journal   *journal
}

// nodeFor returns the dirty (cloned-or-new) node for id, creating it on
// first touch within this write.
func (w *writer) nodeFor(id EntityID) *Node {
	if n, ok := w.dirty[id]; ok {
		return n
	}
	var n *Node
	if existing, ok := w.store.snapshot[id]; ok {
		n = existing.clone()
	} else {
		n = newNode()
	}
	w.dirty[id] = n
	return n
}

// writeObject walks selections against obj, writing scalar fields and
// references into the entity node named id.
func (w *writer) writeObject(id EntityID, selections language.SelectionSet, obj map[string]any, path []string) error {
	fields, err := selection.WalkSelections(selections, w.fragments)
	if err != nil {
		return err
	}

	node := w.nodeFor(id)

	for field := range fields {
		responseKey := selection.ResponseKey(field)
		storageKey := selection.FieldStorageKey(field, w.variables)
		fieldPath := append(append([]string{}, path...), responseKey)

		value, ok := obj[responseKey]
		if !ok {
			return &WriteShapeError{Path: fieldPath, Message: "missing field in data"}
		}

		if field.SelectionSet == nil {
			old, existed := node.Scalars[storageKey]
			node.Scalars[storageKey] = value
			delete(node.References, storageKey)
			if scalarChanged(old, value, existed) {
				w.journal.mark(id, storageKey)
			}
			continue
		}

		ref, err := w.writeReferenceValue(id, storageKey, field.SelectionSet, value, fieldPath)
		if err != nil {
			return err
		}
		old, existed := node.References[storageKey]
		node.References[storageKey] = ref
		delete(node.Scalars, storageKey)
		if referenceChanged(old, ref, existed) {
			w.journal.mark(id, storageKey)
		}
	}
	return nil
}

// writeReferenceValue writes value (an object, a list, or null) under a
// reference field, returning what the parent's References map should hold:
// an EntityID, a []any of EntityID (with nil holes for null list elements),
// or nil.
func (w *writer) writeReferenceValue(parentID EntityID, storageKey string, sub language.SelectionSet, value any, path []string) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		childID := w.store.deriveEntityID(v, parentID, storageKey)
		if err := w.writeObject(childID, sub, v, path); err != nil {
			return nil, err
		}
		return childID, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			itemPath := append(append([]string{}, path...), fmt.Sprintf("[%d]", i))
			ref, err := w.writeReferenceValue(parentID, storageKey, sub, item, itemPath)
			if err != nil {
				return nil, err
			}
			out[i] = ref
		}
		return out, nil
	default:
		return nil, &WriteShapeError{Path: path, Message: "expected object, list, or null for a reference field"}
	}
}
