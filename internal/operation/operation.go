package operation

import (
	"errors"
	"sync"

	language "github.com/hanpama/cachegraph/internal/language"
	"github.com/hanpama/cachegraph/internal/graph"
	"github.com/hanpama/cachegraph/internal/graphqlerr"
	"github.com/hanpama/cachegraph/internal/observable"
)

// Executor is the external collaborator that actually resolves a GraphQL
// operation (over HTTP, a websocket, an in-process resolver — transport is
// opaque here). It may emit zero or more results before completing or
// erroring (spec §6 "Executor contract").
type Executor func(ExecuteParams) *observable.Observable[ExecuteResult]

// ExecuteParams is passed to the Executor on every execute/maybeExecute
// call that falls through to a network round trip.
type ExecuteParams struct {
	Operation *language.OperationDefinition
	Fragments language.FragmentDefinitionList
	Variables map[string]any
}

// ExecuteResult is one emission from the Executor's observable.
type ExecuteResult struct {
	Data   map[string]any
	Errors []graphqlerr.GraphQLError
}

// OperationState is the value ObservableOperation streams to its
// subscribers (spec §3 "OperationState").
type OperationState struct {
	Loading   bool
	Executing bool
	Variables map[string]any
	Canonical bool
	Stale     bool
	Errors    []graphqlerr.GraphQLError
	Data      map[string]any
}

// Config constructs an ObservableOperation. Operation must not be a
// mutation (spec §4.D "Construction" — mutations cannot be observed).
type Config struct {
	Graph            *graph.Store
	Executor         Executor
	Operation        *language.OperationDefinition
	Fragments        language.FragmentDefinitionList
	InitialVariables map[string]any
}

// ObservableOperation is a hot state machine for a single GraphQL
// operation: it merges the executor's result stream with a live graph
// watch into one OperationState stream (spec §4.D), holding at most one
// executor subscription and one store watch at a time.
//
// Grounded on internal/executor's executionState: one mutable struct
// carrying the runtime, the in-flight bookkeeping, and the live result,
// mutated in place through private methods rather than modeled as a chain
// of immutable transitions.
type ObservableOperation struct {
	mu sync.Mutex

	store     *graph.Store
	executor  Executor
	operation *language.OperationDefinition
	fragments language.FragmentDefinitionList
	rootID    graph.EntityID

	state          OperationState
	observers      []*observerRecord
	nextObserverID uint64

	execSub   *observable.Subscription
	watchSub  *observable.Subscription
	executing bool
}

// ErrMutationsNotObservable is returned by New when Operation is a
// mutation.
var ErrMutationsNotObservable = errors.New("Mutations may not be observed.")

// New constructs an ObservableOperation, immediately registering a store
// watch so out-of-band writes are visible even before any execute call
// (spec §4.D "Construction").
func New(cfg Config) (*ObservableOperation, error) {
	if cfg.Operation.Operation == language.Mutation {
		return nil, ErrMutationsNotObservable
	}

	variables := cfg.InitialVariables
	if variables == nil {
		variables = map[string]any{}
	}

	o := &ObservableOperation{
		store:     cfg.Graph,
		executor:  cfg.Executor,
		operation: cfg.Operation,
		fragments: cfg.Fragments,
		rootID:    graph.EntityID(string(cfg.Operation.Operation)),
		state: OperationState{
			Loading:   false,
			Executing: false,
			Variables: variables,
			Canonical: false,
			Stale:     false,
			Errors:    nil,
		},
	}

	o.startWatch(nil)
	return o, nil
}

// GetState returns the current state synchronously.
func (o *ObservableOperation) GetState() OperationState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}
