package graph

import (
	"reflect"

	language "github.com/hanpama/cachegraph/internal/language"
	"github.com/hanpama/cachegraph/internal/observable"
)

// WatchInput describes one watch: a selection set kept up to date against
// the store's current snapshot, re-emitted whenever a write's change
// journal intersects the (entity, storage key) pairs this selection visits
// (spec §4.B "Watch").
type WatchInput struct {
	Selections language.SelectionSet
	Fragments  language.FragmentDefinitionList
	Variables  map[string]any
	RootID     EntityID
	// InitialData, when non-nil, seeds the watch's very first read as that
	// read's previousData — letting Read's reference-equality short-circuit
	// return InitialData itself (same pointer) when InitialData is a tree
	// Read or Write built and the fresh read it performs is deep-equal to
	// it. A caller who already holds a data tree
	// known to match the current snapshot (a write's own projection, most
	// notably) passes it here so it can tell "this watch's first emission
	// is the same data I already have" apart from "the watch found
	// something new" by simple pointer comparison.
	InitialData map[string]any
}

// watcher is one live Watch subscription's bookkeeping: its most recent
// read-plan (the (entity, storage key) pairs visited), fed to
// planIntersectsJournal on every write, and the data it last emitted, fed
// back as previousData so re-reads get stale-detection continuity (spec
// §4.B).
type watcher struct {
	id       uint64
	input    WatchInput
	lastData map[string]any
	plan     map[EntityID]map[string]struct{}
	obs      observable.Observer[ReadResult]
}

// Watch returns a cold Observable that, on each subscription, immediately
// attempts a read and emits it (if it succeeds), then re-emits on every
// subsequent Write whose change journal intersects this watch's read-plan.
// A read that fails with PartialReadError is never emitted — the watch
// stays registered, its plan covering every key visited up to the failure,
// waiting for a write that completes it (spec §4.B — "no data yet" is
// silence, not an error notification).
func (s *Store) Watch(input WatchInput) *observable.Observable[ReadResult] {
	rootID := input.RootID
	if rootID == "" {
		rootID = DefaultRootID
	}
	input.RootID = rootID

	return observable.New(func(obs observable.Observer[ReadResult]) func() {
		w := &watcher{input: input, obs: obs}

		s.mu.Lock()
		w.id = s.nextWatchID
		s.nextWatchID++
		result, plan, err := s.runWatchRead(w, input.InitialData)
		w.plan = plan
		if err == nil {
			w.lastData = result.Data
		}
		s.addWatcherLocked(w)
		s.mu.Unlock()

		// Initial-data short-circuit (spec §4.B): if this first read reproduces
		// exactly the data the caller already holds — same pointer, and fresh —
		// there is nothing new to tell them, so the emission is suppressed.
		suppressed := err == nil && !result.Stale && sameData(result.Data, input.InitialData)
		if err == nil && !suppressed && obs.Next != nil {
			obs.Next(result)
		}

		return func() {
			s.mu.Lock()
			s.removeWatcherLocked(w)
			s.mu.Unlock()
		}
	})
}

// sameData reports whether a and b are the exact same map value. Two reads
// that each build a fresh map[string]any are never == comparable, so
// identity is checked via the backing pointer instead.
func sameData(a, b map[string]any) bool {
	if a == nil || b == nil {
		return false
	}
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}

// runWatchRead performs one read for watcher w, tracking the (entity,
// storage key) read-plan. Must be called with s.mu held.
func (s *Store) runWatchRead(w *watcher, previousData map[string]any) (ReadResult, map[EntityID]map[string]struct{}, error) {
	r := &reader{
		store:     s,
		fragments: w.input.Fragments,
		variables: w.input.Variables,
		visited:   map[EntityID]map[string]struct{}{},
	}
	data, stale, err := r.readObject(w.input.RootID, w.input.Selections, previousData, []string{string(w.input.RootID)})
	if err != nil {
		return ReadResult{}, r.visited, err
	}
	return ReadResult{Data: data, Stale: stale}, r.visited, nil
}

// addWatcherLocked registers w under every entity ID its plan names.
func (s *Store) addWatcherLocked(w *watcher) {
	for id := range w.plan {
		s.watchers[id] = append(s.watchers[id], w)
	}
}

// removeWatcherLocked unregisters w from every entity ID it was registered
// under.
func (s *Store) removeWatcherLocked(w *watcher) {
	for id := range w.plan {
		list := s.watchers[id]
		for i, candidate := range list {
			if candidate == w {
				s.watchers[id] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
		if len(s.watchers[id]) == 0 {
			delete(s.watchers, id)
		}
	}
}

// notifyWatchers re-reads and re-emits every watcher whose read-plan
// intersects j. Must be called with s.mu NOT held.
func (s *Store) notifyWatchers(j *journal) {
	if len(j.dirty) == 0 {
		return
	}

	s.mu.Lock()
	seen := map[uint64]bool{}
	var affected []*watcher
	for id := range j.dirty {
		for _, w := range s.watchers[id] {
			if !seen[w.id] && planIntersectsJournal(w.plan, j) {
				seen[w.id] = true
				affected = append(affected, w)
			}
		}
	}

	type pending struct {
		w      *watcher
		result ReadResult
	}
	var toEmit []pending

	for _, w := range affected {
		result, plan, err := s.runWatchRead(w, w.lastData)
		if err != nil {
			// Entity became incomplete again; keep the watcher registered
			// under its previous plan and stay silent.
			continue
		}
		s.removeWatcherLocked(w)
		w.plan = plan
		w.lastData = result.Data
		s.addWatcherLocked(w)
		toEmit = append(toEmit, pending{w: w, result: result})
	}
	s.mu.Unlock()

	for _, p := range toEmit {
		if p.w.obs.Next != nil {
			p.w.obs.Next(p.result)
		}
	}
}
