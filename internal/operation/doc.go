// Package operation implements ObservableOperation, a hot state machine
// wrapping a single GraphQL query or subscription operation: it merges an
// Executor's result stream with a live graph watch into one OperationState
// stream a UI layer subscribes to directly.
//
// # Lifecycle
//
// New registers a watch over the operation's selection set immediately,
// before any execution has happened, so a caller that writes matching data
// into the graph out of band (another operation's write, a manual Write)
// is reflected even if Execute is never called. Mutations cannot be wrapped
// in an ObservableOperation — New returns ErrMutationsNotObservable for
// one, since a mutation has no steady-state selection to watch.
//
// Execute always performs a network round trip through the configured
// Executor, regardless of what the graph currently holds. MaybeExecute
// reads the graph first and only falls through to Execute on a
// PartialReadError — a plain cache miss. Both stop the active watch before
// running, and Execute restarts it (fed the write-back projection as
// initialData) once a clean result lands; MaybeExecute restarts it
// immediately from its own read. StopExecuting cancels whatever execution
// is in flight; calling it twice is a no-op.
//
// # State delivery
//
// Every transition is delivered to each subscriber on its own deferred
// timer (state.go), collapsing to last-writer-wins: if two transitions
// land for the same observer before its timer fires, only the later one is
// actually delivered. Errors — from the executor, or from writing its
// result into the graph, as opposed to a state transition — are delivered
// synchronously and do not mutate
// OperationState at all; an ObservableOperation has no terminal error
// state.
//
// # Error handling
//
// An executor result carrying GraphQL errors is not written into the
// graph and does not restart the watch: the operation surfaces that
// result's data and Errors as-is and stays quarantined until a subsequent
// error-free result arrives, either from a later emission on the same
// executor subscription or a fresh Execute/MaybeExecute call.
package operation
