package operation

import (
	"context"
	"errors"
	"time"

	"github.com/hanpama/cachegraph/internal/eventbus"
	"github.com/hanpama/cachegraph/internal/events"
	"github.com/hanpama/cachegraph/internal/graph"
	"github.com/hanpama/cachegraph/internal/observable"
)

// ErrExecutionInProgress is returned by Execute and MaybeExecute when an
// execution is already in flight (spec §4.D: at most one outstanding
// execution per operation).
var ErrExecutionInProgress = errors.New("Cannot start a new execution when another execution is currently running.")

// Execute stops any active watch, runs the configured Executor against
// variables (falling back to the operation's current variables when nil),
// and folds each emission into the graph store and this operation's state
// (spec §4.D "execute").
//
// A clean result (no Errors) is written into the graph and the operation
// resumes watching from the write-back projection. A result carrying
// Errors is surfaced as-is and the watch is deliberately left stopped —
// the operation stays quarantined on that error until a subsequent
// error-free result arrives (spec §7).
func (o *ObservableOperation) Execute(variables map[string]any) error {
	o.mu.Lock()
	if o.executing {
		o.mu.Unlock()
		return ErrExecutionInProgress
	}
	if variables == nil {
		variables = o.state.Variables
	}
	o.executing = true
	o.mu.Unlock()

	o.stopWatch()
	o.setState(func(s *OperationState) {
		s.Loading = true
		s.Executing = true
		s.Variables = variables
	})

	ctx := context.Background()
	started := nowFunc()
	opType := string(o.operation.Operation)
	eventbus.Publish(ctx, events.OperationExecuteStart{
		OperationName: o.operation.Name,
		OperationType: opType,
	})

	obsv := o.executor(ExecuteParams{
		Operation: o.operation,
		Fragments: o.fragments,
		Variables: variables,
	})

	sub := obsv.Subscribe(observable.Observer[ExecuteResult]{
		Next: func(result ExecuteResult) {
			o.stopWatch()

			if len(result.Errors) == 0 {
				writeResult, err := o.store.Write(graph.WriteInput{
					Selections: o.operation.SelectionSet,
					Fragments:  o.fragments,
					Variables:  variables,
					Data:       result.Data,
					RootID:     o.rootID,
				})
				if err != nil {
					o.emitError(err)
					return
				}
				o.setState(func(s *OperationState) {
					s.Loading = false
					s.Variables = variables
					s.Canonical = true
					s.Stale = false
					s.Errors = nil
					s.Data = writeResult.Data
				})
				o.startWatch(writeResult.Data)
				return
			}

			o.setState(func(s *OperationState) {
				s.Loading = false
				s.Variables = variables
				s.Canonical = true
				s.Stale = false
				s.Errors = result.Errors
				s.Data = result.Data
			})
		},
		Error: func(err error) {
			o.emitError(err)
		},
		Complete: func() {
			o.mu.Lock()
			o.executing = false
			o.execSub = nil
			errCount := len(o.state.Errors)
			o.mu.Unlock()

			o.setState(func(s *OperationState) {
				s.Loading = false
				s.Executing = false
			})

			eventbus.Publish(ctx, events.OperationExecuteFinish{
				OperationName: o.operation.Name,
				OperationType: opType,
				Errors:        errCount,
				Duration:      timeSince(started),
			})
		},
	})

	o.mu.Lock()
	o.execSub = &sub
	o.mu.Unlock()
	return nil
}

// StopExecuting cancels an in-flight execution, if any, and clears the
// loading/executing flags. Calling it when nothing is executing is a no-op
// (spec §8 "Double stopExecuting() is a no-op").
func (o *ObservableOperation) StopExecuting() {
	o.mu.Lock()
	sub := o.execSub
	wasExecuting := o.executing
	o.execSub = nil
	o.executing = false
	o.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	if !wasExecuting {
		return
	}

	o.setState(func(s *OperationState) {
		s.Loading = false
		s.Executing = false
	})
}

// MaybeExecute attempts to satisfy variables from the graph's current
// snapshot before falling back to a full Execute round trip (spec §4.D
// "maybeExecute"): a clean or stale read resumes watching from that read's
// data; a PartialReadError — data simply isn't in the cache yet — falls
// through to Execute. Any other read error is returned unchanged, since per
// spec §7 that represents a bug rather than an expected cache miss.
func (o *ObservableOperation) MaybeExecute(variables map[string]any) error {
	o.mu.Lock()
	if o.executing {
		o.mu.Unlock()
		return ErrExecutionInProgress
	}
	if variables == nil {
		variables = o.state.Variables
	}
	previousData := o.state.Data
	o.mu.Unlock()

	result, err := o.store.Read(graph.ReadInput{
		Selections:   o.operation.SelectionSet,
		Fragments:    o.fragments,
		Variables:    variables,
		RootID:       o.rootID,
		PreviousData: previousData,
	})
	if err != nil {
		if graph.IsPartialRead(err) {
			return o.Execute(variables)
		}
		return err
	}

	o.stopWatch()
	o.setState(func(s *OperationState) {
		s.Variables = variables
		s.Canonical = false
		s.Stale = result.Stale
		s.Data = result.Data
	})
	o.startWatch(result.Data)
	return nil
}

func nowFunc() time.Time { return time.Now() }

func timeSince(t time.Time) time.Duration { return time.Since(t) }
