package operation

import (
	"github.com/hanpama/cachegraph/internal/graph"
	"github.com/hanpama/cachegraph/internal/observable"
)

// startWatch subscribes a fresh graph watch over the operation's selection
// set at the current variables, installing it as the operation's sole watch
// subscription. initialData, when non-nil, is the data this watch's first
// read is expected to reproduce — a data tree the caller just wrote or read
// itself, fed back in so Store.Watch can suppress its own initial emission
// when the fresh read it performs is the same data, reference-equal and
// fresh, rather than redeliver it as a redundant state transition (spec
// §4.B "Initial-data short-circuit", §4.D "Construction", §9).
//
// Panics if a watch is already active: every call site stops the previous
// watch first, so this would indicate a bug in this package, not caller
// misuse.
func (o *ObservableOperation) startWatch(initialData map[string]any) {
	o.mu.Lock()
	if o.watchSub != nil {
		o.mu.Unlock()
		panic("operation: startWatch called while a watch is already active")
	}
	variables := o.state.Variables
	o.mu.Unlock()

	obsv := o.store.Watch(graph.WatchInput{
		Selections:  o.operation.SelectionSet,
		Fragments:   o.fragments,
		Variables:   variables,
		RootID:      o.rootID,
		InitialData: initialData,
	})

	sub := obsv.Subscribe(observable.Observer[graph.ReadResult]{
		Next: func(result graph.ReadResult) {
			o.setState(func(s *OperationState) {
				s.Canonical = false
				s.Stale = result.Stale
				s.Data = result.Data
			})
		},
	})

	o.mu.Lock()
	o.watchSub = &sub
	o.mu.Unlock()
}

// stopWatch tears down the active watch subscription, if any. Safe to call
// when no watch is active.
func (o *ObservableOperation) stopWatch() {
	o.mu.Lock()
	sub := o.watchSub
	o.watchSub = nil
	o.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
}
