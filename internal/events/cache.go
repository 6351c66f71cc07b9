package events

import "time"

// GraphWrite describes one committed graph.Store.Write call.
// internal/otel turns it into a graph.write span; graph.Store itself does
// not publish it.
type GraphWrite struct {
	RootID          string
	ChangedEntities int
	Duration        time.Duration
}

// GraphWatchEmit describes one value delivered by a graph watch to its
// subscriber. No package in this module publishes or subscribes to it.
type GraphWatchEmit struct {
	RootID string
	Stale  bool
}

// OperationExecuteStart is emitted when an ObservableOperation begins an
// execute/maybeExecute round trip through its Executor.
type OperationExecuteStart struct {
	OperationName string
	OperationType string
}

// OperationExecuteFinish is emitted when the executor subscription backing
// an execute call completes. StopExecuting does not emit it.
type OperationExecuteFinish struct {
	OperationName string
	OperationType string
	Errors        int
	Duration      time.Duration
}
