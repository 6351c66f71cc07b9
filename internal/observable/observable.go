// Package observable implements the minimal cold/hot observable used
// internally by the graph store and the observable operation, and exposed
// at the module boundary as the Executor contract's return type. Grounded
// on the teacher's eventbus.Bus (internal/eventbus/eventbus.go) for the
// subscribe/unsubscribe-tolerant-of-concurrent-dispatch shape, generalized
// from a type-keyed pub/sub into a single-stream, per-subscription
// primitive with terminal Error/Complete semantics.
package observable

import "sync"

// Observer receives values from an Observable. Next may be called any
// number of times; Error or Complete, whichever comes first, is terminal —
// no further Next is delivered after either. Nil callbacks are permitted
// and treated as no-ops.
type Observer[T any] struct {
	Next     func(T)
	Error    func(error)
	Complete func()
}

// Subscription is returned by Subscribe. Unsubscribe is idempotent.
type Subscription struct {
	unsubscribeOnce *sync.Once
	unsubscribe     func()
}

func (s Subscription) Unsubscribe() {
	if s.unsubscribeOnce == nil {
		return
	}
	s.unsubscribeOnce.Do(s.unsubscribe)
}

// NewSubscription builds a Subscription around a teardown function, for
// types outside this package (ObservableOperation's own observer registry)
// that need to hand callers an idempotent unsubscribe without wrapping an
// Observable.
func NewSubscription(unsubscribe func()) Subscription {
	return Subscription{unsubscribeOnce: &sync.Once{}, unsubscribe: unsubscribe}
}

// Observable wraps a subscriber function (observer) -> teardown, the same
// factory shape used across the reference implementation this module
// generalizes from JS observables.
type Observable[T any] struct {
	subscribe func(Observer[T]) (teardown func())
}

// New builds an Observable from a subscriber function.
func New[T any](subscribe func(Observer[T]) (teardown func())) *Observable[T] {
	return &Observable[T]{subscribe: subscribe}
}

// Subscribe invokes the subscriber function with an Observer that enforces
// terminal semantics: once Error or Complete fires, subsequent calls to
// Next/Error/Complete from the same subscription are dropped, and
// Unsubscribe calls the underlying teardown at most once.
func (o *Observable[T]) Subscribe(obs Observer[T]) Subscription {
	var mu sync.Mutex
	done := false

	guard := func(fn func()) {
		mu.Lock()
		already := done
		mu.Unlock()
		if already || fn == nil {
			return
		}
		fn()
	}
	markDone := func() {
		mu.Lock()
		done = true
		mu.Unlock()
	}

	wrapped := Observer[T]{
		Next: func(v T) {
			guard(func() {
				if obs.Next != nil {
					obs.Next(v)
				}
			})
		},
		Error: func(err error) {
			guard(func() {
				markDone()
				if obs.Error != nil {
					obs.Error(err)
				}
			})
		},
		Complete: func() {
			guard(func() {
				markDone()
				if obs.Complete != nil {
					obs.Complete()
				}
			})
		},
	}

	teardown := o.subscribe(wrapped)
	once := &sync.Once{}
	return Subscription{
		unsubscribeOnce: once,
		unsubscribe: func() {
			markDone()
			if teardown != nil {
				teardown()
			}
		},
	}
}

// Just returns an Observable that synchronously emits v then completes on
// every subscription. Useful for tests and for executors that resolve
// immediately (spec scenario S3).
func Just[T any](v T) *Observable[T] {
	return New(func(obs Observer[T]) func() {
		if obs.Next != nil {
			obs.Next(v)
		}
		if obs.Complete != nil {
			obs.Complete()
		}
		return nil
	})
}
