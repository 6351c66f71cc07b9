package operation_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/hanpama/cachegraph/internal/gqltest"
	"github.com/hanpama/cachegraph/internal/graph"
	"github.com/hanpama/cachegraph/internal/graphqlerr"
	"github.com/hanpama/cachegraph/internal/observable"
	"github.com/hanpama/cachegraph/internal/operation"
)

const waitTimeout = time.Second

// collector accumulates OperationState deliveries from a Subscribe call on
// a buffered channel, so tests can assert on the sequence of transitions
// without racing the deferred delivery timer in state.go.
func collector(t *testing.T) (chan operation.OperationState, observable.Observer[operation.OperationState]) {
	t.Helper()
	ch := make(chan operation.OperationState, 32)
	return ch, observable.Observer[operation.OperationState]{
		Next: func(s operation.OperationState) { ch <- s },
	}
}

func waitState(t *testing.T, ch chan operation.OperationState) operation.OperationState {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(waitTimeout):
		t.Fatalf("timed out waiting for a state delivery")
		return operation.OperationState{}
	}
}

func assertNoState(t *testing.T, ch chan operation.OperationState) {
	t.Helper()
	select {
	case s := <-ch:
		t.Fatalf("unexpected state delivery: %+v", s)
	case <-time.After(50 * time.Millisecond):
	}
}

func newQueryOp(t *testing.T, q string) (*graph.Store, *operation.ObservableOperation, func(operation.Executor)) {
	t.Helper()
	doc := gqltest.MustParseQuery(t, q)
	op := gqltest.Operation(t, doc, "")

	store := graph.New()
	var exec operation.Executor
	oo, err := operation.New(operation.Config{
		Graph:     store,
		Executor:  operation.Executor(func(p operation.ExecuteParams) *observable.Observable[operation.ExecuteResult] { return exec(p) }),
		Operation: op,
		Fragments: doc.Fragments,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store, oo, func(e operation.Executor) { exec = e }
}

func TestNew_RejectsMutation(t *testing.T) {
	doc := gqltest.MustParseQuery(t, `mutation { a }`)
	op := gqltest.Operation(t, doc, "")

	_, err := operation.New(operation.Config{
		Graph:     graph.New(),
		Executor:  func(operation.ExecuteParams) *observable.Observable[operation.ExecuteResult] { return nil },
		Operation: op,
		Fragments: doc.Fragments,
	})
	if err != operation.ErrMutationsNotObservable {
		t.Fatalf("got err %v, want ErrMutationsNotObservable", err)
	}
}

// S3-style: MaybeExecute against an already-populated graph never invokes
// the executor and resumes watching straight from the cache.
func TestMaybeExecute_CacheHit_NeverCallsExecutor(t *testing.T) {
	store, oo, setExec := newQueryOp(t, `{ a b }`)

	doc := gqltest.MustParseQuery(t, `{ a b }`)
	op := gqltest.Operation(t, doc, "")
	if _, err := store.Write(graph.WriteInput{
		Selections: op.SelectionSet,
		Fragments:  doc.Fragments,
		Data:       map[string]any{"a": 1, "b": 2},
	}); err != nil {
		t.Fatalf("seed Write: %v", err)
	}

	setExec(func(operation.ExecuteParams) *observable.Observable[operation.ExecuteResult] {
		t.Fatalf("executor should not be called on a cache hit")
		return nil
	})

	if err := oo.MaybeExecute(nil); err != nil {
		t.Fatalf("MaybeExecute: %v", err)
	}

	state := oo.GetState()
	want := map[string]any{"a": 1, "b": 2}
	if diff := cmp.Diff(want, state.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
	if state.Stale {
		t.Fatalf("expected a fresh (non-stale) cache hit")
	}
}

// S1-style: a cache miss falls through MaybeExecute into a full Execute
// round trip, writing the executor's result into the graph.
func TestMaybeExecute_CacheMiss_FallsThroughToExecute(t *testing.T) {
	store, oo, setExec := newQueryOp(t, `{ a b }`)

	setExec(func(operation.ExecuteParams) *observable.Observable[operation.ExecuteResult] {
		return observable.New(func(obs observable.Observer[operation.ExecuteResult]) func() {
			obs.Next(operation.ExecuteResult{Data: map[string]any{"a": 1, "b": 2}})
			obs.Complete()
			return nil
		})
	})

	ch, obs := collector(t)
	oo.Subscribe(obs)
	waitState(t, ch) // initial state primed on Subscribe

	if err := oo.MaybeExecute(nil); err != nil {
		t.Fatalf("MaybeExecute: %v", err)
	}

	var final operation.OperationState
	for i := 0; i < 6; i++ {
		final = waitState(t, ch)
		if final.Canonical && !final.Loading {
			break
		}
	}
	if !final.Canonical {
		t.Fatalf("expected a canonical state after execution completes, got %+v", final)
	}
	want := map[string]any{"a": 1, "b": 2}
	if diff := cmp.Diff(want, final.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}

	readBack, err := store.Read(graph.ReadInput{Selections: gqltest.Operation(t, gqltest.MustParseQuery(t, `{ a b }`), "").SelectionSet})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if diff := cmp.Diff(want, readBack.Data); diff != "" {
		t.Fatalf("store not written (-want +got):\n%s", diff)
	}
}

// S7-style: an executor result carrying errors is surfaced without being
// written into the graph, and the watch stays quarantined.
func TestExecute_ErrorResult_QuarantinesWatch(t *testing.T) {
	store, oo, setExec := newQueryOp(t, `{ a }`)

	setExec(func(operation.ExecuteParams) *observable.Observable[operation.ExecuteResult] {
		return observable.New(func(obs observable.Observer[operation.ExecuteResult]) func() {
			obs.Next(operation.ExecuteResult{Errors: []graphqlerr.GraphQLError{{Message: "boom"}}})
			obs.Complete()
			return nil
		})
	})

	if err := oo.Execute(nil); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	var state operation.OperationState
	for i := 0; i < 50; i++ {
		state = oo.GetState()
		if len(state.Errors) > 0 && !state.Loading {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if len(state.Errors) != 1 || state.Errors[0].Message != "boom" {
		t.Fatalf("expected quarantined error state, got %+v", state)
	}

	doc := gqltest.MustParseQuery(t, `{ a }`)
	op := gqltest.Operation(t, doc, "")
	if _, err := store.Write(graph.WriteInput{
		Selections: op.SelectionSet,
		Fragments:  doc.Fragments,
		Data:       map[string]any{"a": 99},
	}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	after := oo.GetState()
	if len(after.Errors) == 0 {
		t.Fatalf("quarantined state should not change until a clean result arrives")
	}
}

func TestStopExecuting_IsIdempotent(t *testing.T) {
	_, oo, setExec := newQueryOp(t, `{ a }`)
	setExec(func(operation.ExecuteParams) *observable.Observable[operation.ExecuteResult] {
		return observable.New(func(obs observable.Observer[operation.ExecuteResult]) func() { return nil })
	})

	ch, obs := collector(t)
	oo.Subscribe(obs)
	waitState(t, ch) // initial state primed on Subscribe

	if err := oo.Execute(nil); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	waitState(t, ch) // loading:true delivered by Execute

	oo.StopExecuting()
	waitState(t, ch) // loading:false delivered by the first stop

	oo.StopExecuting() // second call must be a no-op: no further delivery
	assertNoState(t, ch)

	state := oo.GetState()
	if state.Loading || state.Executing {
		t.Fatalf("expected loading/executing cleared after stop, got %+v", state)
	}
}
